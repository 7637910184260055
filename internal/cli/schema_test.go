package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchemaTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "transcriptrag", Short: "Query transcripts"}
	AddHelpJSONFlag(root)

	ask := &cobra.Command{
		Use:     "ask <question>",
		Aliases: []string{"q"},
		Short:   "Ask a question about the indexed transcript",
		Example: `transcriptrag ask "What lives in water?"`,
		Run:     func(cmd *cobra.Command, args []string) {},
	}
	ask.Flags().Bool("json", false, "Print the raw response")

	watch := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-index a transcript file when it changes",
		Run:   func(cmd *cobra.Command, args []string) {},
	}
	watch.Flags().StringP("debounce", "d", "500ms", "Quiet period before re-indexing")
	watch.Flags().String("collection", "", "Collection to index into")
	require.NoError(t, watch.MarkFlagRequired("collection"))

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(cmd *cobra.Command, args []string) {}}

	root.AddCommand(ask, watch, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(newSchemaTestRoot(t))

	assert.Equal(t, "transcriptrag", schema.Name)
	assert.Empty(t, schema.Flags)
	require.Len(t, schema.Subcommands, 2)

	ask := schema.Subcommands[0]
	assert.Equal(t, "ask", ask.Name)
	assert.Equal(t, []string{"q"}, ask.Aliases)
	assert.Equal(t, []string{"<question>"}, ask.Args)
	assert.Contains(t, ask.Example, "What lives in water?")

	watch := schema.Subcommands[1]
	require.Len(t, watch.Flags, 2)
	byName := map[string]FlagSchema{}
	for _, f := range watch.Flags {
		byName[f.Name] = f
	}
	assert.True(t, byName["collection"].Required)
	assert.False(t, byName["debounce"].Required)
	assert.Equal(t, "d", byName["debounce"].Shorthand)
	assert.Equal(t, "500ms", byName["debounce"].Default)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, newSchemaTestRoot(t)))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "transcriptrag", decoded.Name)
	assert.Nil(t, decoded.Args)
}

func TestFindTargetCommand(t *testing.T) {
	root := newSchemaTestRoot(t)

	assert.Equal(t, "ask", findTargetCommand(root, []string{"q"}).Name())
	assert.Equal(t, "watch", findTargetCommand(root, []string{"watch"}).Name())
	assert.Equal(t, "transcriptrag", findTargetCommand(root, []string{"unknown"}).Name())
	assert.Equal(t, "transcriptrag", findTargetCommand(root, nil).Name())
}
