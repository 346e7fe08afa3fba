package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t, []string{"demosaic", "bayer"}, ExtractKeywords("What is the demosaic of a Bayer?"))
	assert.Equal(t, []string{"白平衡", "算法"}, ExtractKeywords("什么 是 白平衡 的 算法"))
	assert.Equal(t, []string{"awb"}, ExtractKeywords("AWB awb Awb!"))
	assert.Empty(t, ExtractKeywords("   "))

	long := strings.Repeat("w", 2)
	words := []string{}
	for i := 0; i < 15; i++ {
		words = append(words, long+string(rune('a'+i)))
	}
	assert.Len(t, ExtractKeywords(strings.Join(words, " ")), MaxKeywords)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("black level", "Black Level"))
	assert.InDelta(t, 1.0/3.0, Similarity("black level", "black point"), 1e-9)
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestPrompts(t *testing.T) {
	assert.NotContains(t, AnswerSystemPrompt(""), "\n")
	assert.Contains(t, AnswerSystemPrompt("Demosaic\nBayer to RGB"), "Demosaic\nBayer to RGB")

	hits := make([]SearchHit, 7)
	for i := range hits {
		hits[i] = SearchHit{Title: "t", Description: "d"}
	}
	messages := EnhancementMessages("awb", hits)
	assert.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, 5, strings.Count(messages[0].Content, "t: d"))
	assert.Contains(t, messages[1].Content, "awb")
}
