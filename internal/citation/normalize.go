// Package citation attributes quoted passages in generated answers to the
// documents they came from.
package citation

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	exactScore     = 1.0
	containedScore = 0.95

	// MatchThreshold is the minimum similarity for a quote to claim an annotation.
	MatchThreshold = 0.5
)

// Normalize composes s (NFC), lowercases it, collapses every run of
// characters that are not word runes into one space, and trims the result.
// Word runes are letters, combining marks and numbers of any script, so vowel
// signs and viramas stay inside their word.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if isWordRune(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

// Similarity scores two passages in [0, 1] after normalization: 1 for equal
// text, 0.95 when one contains the other, word-set Jaccard otherwise.
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exactScore
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containedScore
	}
	return jaccard(a, b)
}

// jaccard computes |A∩B| / |A∪B| over the distinct words of two normalized strings.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
