package client

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

type Translation struct {
	SourceLanguage string  `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	TranslatedText string  `json:"translated_text"`
	FromCache      bool    `json:"from_cache"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

type Summary struct {
	EnglishSummary string  `json:"english_summary"`
	BurmeseSummary string  `json:"burmese_summary"`
	FromCache      bool    `json:"from_cache"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

// TranslateCmd creates the translate command.
func TranslateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate English text to Burmese",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runTranslate(api, text, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a transcript file")

	return cmd
}

func runTranslate(api *APIClient, text string, out io.Writer, asJSON bool) error {
	var result Translation
	if err := api.Decode(http.MethodPost, "/api/llm/translate", map[string]string{"transcript_text": text}, &result); err != nil {
		return fmt.Errorf("translate failed: %w", err)
	}

	if asJSON {
		return printJSON(out, result)
	}
	fmt.Fprintln(out, result.TranslatedText)
	return nil
}

// SummarizeCmd creates the summarize command.
func SummarizeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "summarize [text]",
		Short: "Summarize text in English and Burmese",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSummarize(api, text, cmd.OutOrStdout(), outputJSON(cmd))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a transcript file")

	return cmd
}

func runSummarize(api *APIClient, text string, out io.Writer, asJSON bool) error {
	var result Summary
	if err := api.Decode(http.MethodPost, "/api/llm/summarize", map[string]string{"transcript_text": text}, &result); err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	if asJSON {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "English:\n%s\n\nBurmese:\n%s\n", result.EnglishSummary, result.BurmeseSummary)
	return nil
}
