package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

const ragSystemPrompt = `You are a helpful assistant answering questions based ONLY on the provided transcript snippets.

IMPORTANT RULES:
1. ONLY use information from the provided snippets
2. DO NOT add any outside knowledge or assumptions
3. If the answer is not in the snippets, say "I don't have enough information in this transcript to answer that question."
4. Answer in the SAME LANGUAGE as the question. If the question is in Burmese, answer in Burmese. If in English, answer in English.
5. Use clear, natural formatting:
   - Use numbered lists (1., 2., 3.) for multiple points
   - Use bullet points (•) for sub-items
   - DO NOT use markdown bold (**text**) or italic (*text*)
   - Write in plain text with proper paragraph breaks
6. Be concise and clear in B1-B2 level language
7. Preserve technical terms as-is without translation or modification.`

const translationPrompt = `You are a professional translator. Translate the following English text to Burmese (Myanmar language).
Preserve technical terms where possible. Maintain the original structure and tone.
Provide only the translated text without any additional commentary.`

const englishSummaryPrompt = `You are an educational assistant. Summarize the following English text for B1-B2 level students.
Keep the summary clear, concise, and suitable for learners. Focus on main points and key takeaways.
Use simple academic language. Provide only the summary without additional commentary.`

const burmeseSummaryPrompt = `You are an educational assistant. Summarize the following English text in Burmese (Myanmar language) for B1-B2 level students.
Keep the summary clear, concise, and suitable for learners. Focus on main points and key takeaways.
Preserve important technical terms. Provide only the summary without additional commentary.`

// User-facing fixed answers.
const (
	NotIndexedMessage = "Please index a transcript first before asking questions."
	RefusalEnglish    = "I can only answer questions based on this transcript. I couldn't find relevant information to answer your question."
	RefusalBurmese    = "ဤမှတ်တမ်းအပေါ် အခြေခံ၍သာ မေးခွန်းများကို ဖြေဆိုနိုင်ပါသည်။ သင့်မေးခွန်းအတွက် သက်ဆိုင်သောအချက်အလက်များ ရှာမတွေ့ပါ။"
)

// IsBurmese reports whether text contains any rune of the Myanmar block.
func IsBurmese(text string) bool {
	for _, r := range text {
		if r >= '\u1000' && r <= '\u109F' {
			return true
		}
	}
	return false
}

// RefusalMessage answers an off-topic question in its own language.
func RefusalMessage(question string) string {
	if IsBurmese(question) {
		return RefusalBurmese
	}
	return RefusalEnglish
}

// BuildRAGPrompt grounds the question in numbered transcript snippets.
func BuildRAGPrompt(question string, top []domain.RankedChunk) string {
	snippets := make([]string, 0, len(top))
	for i, c := range top {
		snippets = append(snippets, fmt.Sprintf("Snippet %d:\n%s", i+1, c.Text))
	}
	return fmt.Sprintf("%s\n\nQuestion: %s\n\nTranscript snippets:\n%s\n\nAnswer:",
		ragSystemPrompt, question, strings.Join(snippets, "\n\n"))
}

func buildTextPrompt(instruction, text string) string {
	return instruction + "\n\nText:\n" + text
}
