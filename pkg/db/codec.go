package db

import (
	"encoding/json"
	"fmt"

	"github.com/japaniel/wikireader/pkg/analysis"
)

// EncodeFrequentWords serializes pairs as a JSON array of [word, count].
func EncodeFrequentWords(words []analysis.WordCount) (string, error) {
	if words == nil {
		words = []analysis.WordCount{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("encode frequent words: %w", err)
	}
	return string(b), nil
}

// DecodeFrequentWords reads the stored frequent_words column. It accepts the
// current [word, count] pair list and the legacy plain word list (counts
// become 0). NULL, empty or unrecognized values decode to an empty slice.
func DecodeFrequentWords(raw []byte) []analysis.WordCount {
	out := []analysis.WordCount{}
	if len(raw) == 0 {
		return out
	}

	var legacy []string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		for _, w := range legacy {
			out = append(out, analysis.WordCount{Word: w})
		}
		return truncateWords(out)
	}

	var pairs []analysis.WordCount
	if err := json.Unmarshal(raw, &pairs); err == nil && pairs != nil {
		return truncateWords(pairs)
	}
	return out
}

func truncateWords(words []analysis.WordCount) []analysis.WordCount {
	if len(words) > analysis.MaxFrequentWords {
		return words[:analysis.MaxFrequentWords]
	}
	return words
}
