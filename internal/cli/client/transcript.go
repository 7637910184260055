package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"gopkg.in/yaml.v3"
)

// Transcript is what the index endpoint accepts.
type Transcript struct {
	TranscriptText string           `json:"transcript_text" yaml:"transcript_text"`
	Segments       []domain.Segment `json:"segments,omitempty" yaml:"segments,omitempty"`
}

// LoadTranscript reads a transcript file. Plain text files become
// transcript_text; .json, .yaml and .yml files may also carry segments.
// .srt and .vtt caption files become one timed segment per cue.
// A path of "-" reads plain text from stdin.
func LoadTranscript(path string, stdin io.Reader) (*Transcript, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var t Transcript
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".srt":
		subs, err := astisub.ReadFromSRT(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		t.Segments = captionSegments(subs)
	case ".vtt":
		subs, err := astisub.ReadFromWebVTT(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		t.Segments = captionSegments(subs)
	default:
		t.TranscriptText = string(data)
	}

	if t.TranscriptText == "" && len(t.Segments) > 0 {
		texts := make([]string, len(t.Segments))
		for i, s := range t.Segments {
			texts[i] = s.Text
		}
		t.TranscriptText = strings.Join(texts, " ")
	}
	if strings.TrimSpace(t.TranscriptText) == "" {
		return nil, fmt.Errorf("%s: transcript is empty", path)
	}
	return &t, nil
}

// captionSegments turns cues into segments. Cue lines are joined with a
// newline; cues without text are dropped.
func captionSegments(subs *astisub.Subtitles) []domain.Segment {
	segments := make([]domain.Segment, 0, len(subs.Items))
	for _, item := range subs.Items {
		lines := make([]string, 0, len(item.Lines))
		for _, line := range item.Lines {
			parts := make([]string, 0, len(line.Items))
			for _, li := range line.Items {
				parts = append(parts, li.Text)
			}
			if text := strings.TrimSpace(strings.Join(parts, " ")); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) == 0 {
			continue
		}
		start, end := item.StartAt.Seconds(), item.EndAt.Seconds()
		segments = append(segments, domain.Segment{
			Text:  strings.Join(lines, "\n"),
			Start: &start,
			End:   &end,
		})
	}
	return segments
}

// readText returns the argument, or the contents of --file when set.
func readText(args []string, file string, stdin io.Reader) (string, error) {
	if file != "" {
		t, err := LoadTranscript(file, stdin)
		if err != nil {
			return "", err
		}
		return t.TranscriptText, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("provide text as an argument or with --file")
	}
	return strings.Join(args, " "), nil
}
