// Package textutil holds the pure text helpers shared by the document and
// snippet retrieval paths: token-budgeted chunking and query excerpts.
package textutil

import "fmt"

// CharsPerToken is the deliberate approximation used for token budgets.
// Substituting a real tokenizer is only acceptable if chunk boundaries stay
// deterministic for identical input.
const CharsPerToken = 4

// ApproxTokens estimates the token count of s.
func ApproxTokens(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Chunk splits content into token-budgeted chunks and returns the one at
// index. Adjacent chunks overlap by a tenth of the budget so a sentence cut
// at a boundary is still readable in the next chunk. maxTokens <= 0 means
// unlimited; the whole content comes back as chunk 0 of 1.
//
// Chunking is deterministic: identical (content, maxTokens) always yields
// identical boundaries.
func Chunk(content string, maxTokens, index int) (string, int, error) {
	if index < 0 {
		return "", 0, fmt.Errorf("chunk index %d out of range", index)
	}

	runes := []rune(content)
	budget := maxTokens * CharsPerToken
	if maxTokens <= 0 || len(runes) <= budget {
		if index != 0 {
			return "", 1, fmt.Errorf("chunk index %d out of range (1 chunk)", index)
		}
		return content, 1, nil
	}

	overlap := budget / 10
	stride := budget - overlap
	if stride < 1 {
		stride = 1
	}

	total := 1 + (len(runes)-budget+stride-1)/stride
	if index >= total {
		return "", total, fmt.Errorf("chunk index %d out of range (%d chunks)", index, total)
	}

	start := index * stride
	end := start + budget
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end]), total, nil
}
