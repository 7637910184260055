package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/spf13/cobra"
)

type BuildResult struct {
	IndexedChunks int    `json:"indexed_chunks"`
	Status        string `json:"status"`
	Provider      string `json:"embedding_provider"`
	Dimension     int    `json:"dimension"`
}

type QueryResult struct {
	Answer    string               `json:"answer"`
	ElapsedMs float64              `json:"elapsed_ms"`
	TopChunks []domain.RankedChunk `json:"top_chunks"`
	FromCache bool                 `json:"from_cache"`
	Outcome   string               `json:"outcome"`
}

type SampleChunk struct {
	ChunkID     string               `json:"chunk_id"`
	TextPreview string               `json:"text_preview"`
	Metadata    domain.ChunkMetadata `json:"metadata"`
}

type IndexStats struct {
	Indexed        bool               `json:"indexed"`
	ChunkCount     int                `json:"chunk_count"`
	CollectionName string             `json:"collection_name,omitempty"`
	Message        string             `json:"message,omitempty"`
	Generation     *domain.Generation `json:"generation,omitempty"`
	SampleChunks   []SampleChunk      `json:"sample_chunks,omitempty"`
}

type ChunkList struct {
	Chunks  []domain.StoredChunk `json:"chunks"`
	Total   int                  `json:"total"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

// IndexCmd creates the index command.
func IndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>",
		Short: "Index a transcript",
		Long: `Chunks, embeds and stores a transcript, replacing any existing index.

The file may be plain text, or JSON/YAML with transcript_text and segments.
Use "-" to read plain text from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runIndex(api, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), outputJSON(cmd))
		},
	}
}

func runIndex(api *APIClient, path string, stdin io.Reader, out io.Writer, asJSON bool) error {
	transcript, err := LoadTranscript(path, stdin)
	if err != nil {
		return err
	}

	var result BuildResult
	if err := api.Decode(http.MethodPost, "/api/rag/index", transcript, &result); err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	if asJSON {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "Indexed %d chunks (%s, dim %d)\n", result.IndexedChunks, result.Provider, result.Dimension)
	return nil
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showChunks bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAsk(api, strings.Join(args, " "), showChunks, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}

	cmd.Flags().BoolVarP(&showChunks, "chunks", "c", false, "Show the chunks the answer was built from")

	return cmd
}

func runAsk(api *APIClient, question string, showChunks bool, out io.Writer, asJSON bool) error {
	var result QueryResult
	if err := api.Decode(http.MethodPost, "/api/rag/query", map[string]string{"question": question}, &result); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if asJSON {
		return printJSON(out, result)
	}

	fmt.Fprintln(out, result.Answer)
	if showChunks && len(result.TopChunks) > 0 {
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
		for i, c := range result.TopChunks {
			fmt.Fprintf(out, "%d. %s (%.3f)%s\n", i+1, c.ChunkID, c.Score, formatSpan(c.StartTime, c.EndTime))
			fmt.Fprintf(out, "   %s\n", c.TextPreview)
		}
	}
	if result.FromCache {
		fmt.Fprintln(out, "(cached)")
	}
	return nil
}

func formatSpan(start, end *float64) string {
	if start == nil || end == nil {
		return ""
	}
	return fmt.Sprintf(" [%.1fs-%.1fs]", *start, *end)
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runStats(api, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}
}

func runStats(api *APIClient, out io.Writer, asJSON bool) error {
	var stats IndexStats
	if err := api.Decode(http.MethodGet, "/api/rag/stats", nil, &stats); err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if asJSON {
		return printJSON(out, stats)
	}
	if !stats.Indexed {
		fmt.Fprintln(out, stats.Message)
		return nil
	}

	fmt.Fprintf(out, "Collection: %s\n", stats.CollectionName)
	fmt.Fprintf(out, "Chunks:     %d\n", stats.ChunkCount)
	if g := stats.Generation; g != nil {
		fmt.Fprintf(out, "Embeddings: %s (dim %d)\n", g.Provider, g.Dimension)
		fmt.Fprintf(out, "Built:      %s\n", g.BuiltAt.Format("2006-01-02 15:04:05"))
	}
	for _, s := range stats.SampleChunks {
		fmt.Fprintf(out, "\n[%s] %s\n", s.ChunkID, s.TextPreview)
	}
	return nil
}

// ChunksCmd creates the chunks command.
func ChunksCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List indexed chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runChunks(api, limit, cursor, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of chunks (0 lists all)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runChunks(api *APIClient, limit int, cursor string, out io.Writer, asJSON bool) error {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	path := "/api/rag/chunks"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list ChunkList
	if err := api.Decode(http.MethodGet, path, nil, &list); err != nil {
		return fmt.Errorf("listing chunks failed: %w", err)
	}

	if asJSON {
		return printJSON(out, list)
	}
	fmt.Fprintf(out, "%d chunks\n", list.Total)
	for _, c := range list.Chunks {
		fmt.Fprintf(out, "\n[%s]%s\n%s\n", c.ID, formatSpan(c.Metadata.StartTime, c.Metadata.EndTime), c.Text)
	}
	if list.HasMore && list.Cursor != "" {
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
		fmt.Fprintf(out, "More chunks available. Use --cursor %s\n", list.Cursor)
	}
	return nil
}

// ClearCmd creates the clear command.
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the index and cached answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runClear(api, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}
}

func runClear(api *APIClient, out io.Writer, asJSON bool) error {
	var result ClearResult
	if err := api.Decode(http.MethodDelete, "/api/rag/index", nil, &result); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	if asJSON {
		return printJSON(out, result)
	}
	if !result.Success {
		return fmt.Errorf("clear failed: %s", result.Error)
	}
	fmt.Fprintln(out, result.Message)
	return nil
}

// CacheClearCmd creates the cache-clear command.
func CacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-clear",
		Short: "Drop every cached answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var result struct {
				Cleared int `json:"cleared"`
			}
			if err := api.Decode(http.MethodDelete, "/api/cache", nil, &result); err != nil {
				return fmt.Errorf("cache clear failed: %w", err)
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached entries\n", result.Cleared)
			return nil
		},
	}
}
