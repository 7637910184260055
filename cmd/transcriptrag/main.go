package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/cloo-solutions/transcriptrag/internal/cli"
	"github.com/cloo-solutions/transcriptrag/internal/cli/client"
	"github.com/spf13/cobra"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:   "transcriptrag",
		Short: "Ask questions about lecture transcripts",
		Long: `transcriptrag indexes a transcript on a transcriptragd server and answers
questions grounded in it. It can also translate and summarize text.

Environment variables:
  TRANSCRIPTRAG_API_TOKEN   Bearer token, when the server requires one
  TRANSCRIPTRAG_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.IndexCmd())
	rootCmd.AddCommand(client.WatchCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.ChunksCmd())
	rootCmd.AddCommand(client.ClearCmd())
	rootCmd.AddCommand(client.CacheClearCmd())
	rootCmd.AddCommand(client.TranslateCmd())
	rootCmd.AddCommand(client.SummarizeCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}
