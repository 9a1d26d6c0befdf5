package aggregator

import (
	"strings"

	"github.com/mvalverde/eanscan/internal/model"
)

// duplicateOverlap is the shared-token ratio at or above which two
// context windows are considered the same evidence.
const duplicateOverlap = 0.8

// deduper decides whether a finding repeats evidence already retained.
// It is owned by the collector goroutine and needs no locking.
//
// A finding is a duplicate if an earlier finding came from the same
// (source, URL), or if its normalized context shares at least 80% of
// its tokens with any retained context. First seen wins.
type deduper struct {
	seenKeys  map[string]bool
	tokenSets []map[string]bool
}

func newDeduper() *deduper {
	return &deduper{seenKeys: make(map[string]bool)}
}

// isDuplicate reports whether the finding repeats retained evidence,
// and records it as retained when it does not.
func (d *deduper) isDuplicate(f model.Finding) bool {
	key := f.Source.String() + "|" + f.URL
	if d.seenKeys[key] {
		return true
	}

	tokens := tokenize(f.Context)
	for _, retained := range d.tokenSets {
		if overlap(tokens, retained) >= duplicateOverlap {
			d.seenKeys[key] = true
			return true
		}
	}

	d.seenKeys[key] = true
	d.tokenSets = append(d.tokenSets, tokens)
	return false
}

// tokenize lowercases a context window and splits it into a token set.
// Punctuation-only splitting is deliberately not attempted; whitespace
// tokens are stable enough for near-identical snippets.
func tokenize(context string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(context)) {
		tokens[strings.Trim(field, ".,;:!?\"'()[]")] = true
	}
	delete(tokens, "")
	return tokens
}

// overlap returns the Jaccard index of two token sets.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for token := range small {
		if large[token] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
