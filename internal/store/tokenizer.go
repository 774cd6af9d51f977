package store

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of word characters (letters, digits, underscore),
// mirroring the simple \w+ tokenization the capture pipeline uses to build
// a SessionRecord's token_stream and the search path uses to tokenize a
// query. Kept as a single shared regex so BM25 query tokens and context
// keyword extraction never drift out of sync with each other.
var wordRegex = regexp.MustCompile(`\w+`)

// TokenizeQuery lowercases text and splits it into word tokens. This is the
// same tokenization applied to a SessionRecord's summary/topics/files when
// building token_stream, so that query tokens and corpus tokens land in the
// same vocabulary.
func TokenizeQuery(text string) []string {
	matches := wordRegex.FindAllString(strings.ToLower(text), -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// BuildStopWordMap converts a slice of stop words to a set for O(1) lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// FilterStopWords removes tokens present in stopWords.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[token]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
