package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const maxCorrectionDistance = 2

// SpellCorrector fixes near-dictionary misspellings while keeping the
// whitespace and punctuation skeleton of the input. A nil corrector passes
// text through unchanged.
type SpellCorrector struct {
	words   map[string]struct{}
	buckets map[int][]string
}

// NewSpellCorrector returns nil for an empty dictionary, which disables
// correction.
func NewSpellCorrector(dictionary []string) *SpellCorrector {
	c := &SpellCorrector{
		words:   make(map[string]struct{}, len(dictionary)),
		buckets: make(map[int][]string),
	}
	for _, word := range dictionary {
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" {
			continue
		}
		if _, dup := c.words[w]; dup {
			continue
		}
		c.words[w] = struct{}{}
		n := utf8.RuneCountInString(w)
		c.buckets[n] = append(c.buckets[n], w)
	}
	if len(c.words) == 0 {
		return nil
	}
	return c
}

func (c *SpellCorrector) Enabled() bool {
	return c != nil
}

func (c *SpellCorrector) Correct(text string) string {
	if c == nil || text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, token := range splitLetterRuns(text) {
		if isLetterToken(token) {
			b.WriteString(c.correctToken(token))
			continue
		}
		b.WriteString(token)
	}
	return b.String()
}

func (c *SpellCorrector) correctToken(token string) string {
	lower := strings.ToLower(token)
	if _, ok := c.words[lower]; ok {
		return token
	}
	candidate, ok := c.bestCandidate(lower)
	if !ok {
		return token
	}
	return applyCasePattern(token, candidate)
}

// bestCandidate scans length buckets nearest first, in dictionary order
// within a bucket, and stops at the first distance-1 hit.
func (c *SpellCorrector) bestCandidate(word string) (string, bool) {
	n := utf8.RuneCountInString(word)
	best := ""
	bestDist := maxCorrectionDistance + 1

	for _, delta := range []int{0, -1, 1, -2, 2} {
		for _, candidate := range c.buckets[n+delta] {
			d := levenshtein.ComputeDistance(word, candidate)
			if d < bestDist {
				best, bestDist = candidate, d
				if d <= 1 {
					return best, true
				}
			}
		}
	}
	return best, bestDist <= maxCorrectionDistance
}

func applyCasePattern(original, corrected string) string {
	switch {
	case isAllUpper(original):
		return strings.ToUpper(corrected)
	case isCapitalized(original):
		r, size := utf8.DecodeRuneInString(corrected)
		return string(unicode.ToUpper(r)) + corrected[size:]
	default:
		return corrected
	}
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func isCapitalized(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(r) {
		return false
	}
	rest := s[size:]
	return rest != "" && strings.ToLower(rest) == rest
}

func splitLetterRuns(text string) []string {
	tokens := make([]string, 0, 16)
	start := 0
	var prevLetter bool
	for i, r := range text {
		letter := unicode.IsLetter(r)
		if i > 0 && letter != prevLetter {
			tokens = append(tokens, text[start:i])
			start = i
		}
		prevLetter = letter
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func isLetterToken(token string) bool {
	r, _ := utf8.DecodeRuneInString(token)
	return unicode.IsLetter(r)
}
