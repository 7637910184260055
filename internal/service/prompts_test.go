package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsBurmese(t *testing.T) {
	assert.True(t, IsBurmese("ငါးတွေ ဘယ်မှာ နေလဲ"))
	assert.True(t, IsBurmese("Where do fish live? ငါး"))
	assert.True(t, IsBurmese("႟"))
	assert.False(t, IsBurmese("Where do fish live?"))
	assert.False(t, IsBurmese(""))
	assert.False(t, IsBurmese("Ⴀ"))
}

func TestRefusalMessage(t *testing.T) {
	assert.Equal(t, RefusalEnglish, RefusalMessage("What is the capital of France?"))
	assert.Equal(t, RefusalBurmese, RefusalMessage("ပြင်သစ်နိုင်ငံ၏ မြို့တော်"))
}

func TestBuildRAGPrompt(t *testing.T) {
	top := []domain.RankedChunk{
		{ChunkID: "text_0", Text: "Fish live in water."},
		{ChunkID: "text_3", Text: "Cats are mammals."},
	}

	prompt := BuildRAGPrompt("Where do fish live?", top)

	assert.True(t, strings.HasPrefix(prompt, ragSystemPrompt+"\n\nQuestion: Where do fish live?\n\n"))
	assert.Contains(t, prompt, "Transcript snippets:\nSnippet 1:\nFish live in water.\n\nSnippet 2:\nCats are mammals.\n\nAnswer:")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildTextPrompt(t *testing.T) {
	assert.Equal(t, "Translate.\n\nText:\nhello", buildTextPrompt("Translate.", "hello"))
}
