package localindex

import (
	"sort"
	"strings"

	"madison-ai/internal/citation"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	headingMatchBonus  = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "his": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {},
	"which": {}, "who": {}, "with": {},
}

// passage is a retrieved chunk with its blended relevance score.
type passage struct {
	chunkID     string
	documentID  string
	filename    string
	headingPath string
	text        string
	score       float32
}

// rerank adds a lexical score to each passage's vector score and returns the
// best k, highest first. Ties keep retrieval order.
func rerank(question string, passages []passage, k int) []passage {
	queryTokens := filterStopwords(tokenize(question))
	for i := range passages {
		passages[i].score += lexicalScore(queryTokens, passages[i].text, passages[i].headingPath)
	}
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].score > passages[j].score
	})
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages
}

// lexicalScore computes a lightweight term-overlap score for a chunk. The
// result is clamped to [0, maxLexicalScore] so it can be blended with
// cosine similarity.
func lexicalScore(queryTokens []string, chunkText, headingPath string) float32 {
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale

	if headingTokens := tokenize(headingPath); len(headingTokens) > 0 {
		headingSet := make(map[string]struct{}, len(headingTokens))
		for _, token := range headingTokens {
			headingSet[token] = struct{}{}
		}
		for _, token := range queryTokens {
			if _, ok := headingSet[token]; ok {
				score += headingMatchBonus
			}
		}
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	return score
}

// tokenize uses the same normalization as quote matching.
func tokenize(text string) []string {
	return strings.Fields(citation.Normalize(text))
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}
