// Package query generates the search terms dispatched to the search
// engine and marketplace sources for one identifier.
package query

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/mvalverde/eanscan/internal/model"
)

// supported is the list of languages with a qualifier vocabulary.
// The first entry is the fallback for unmatchable tags.
var supported = []language.Tag{
	language.Spanish,
	language.English,
}

// matcher resolves arbitrary BCP 47 tags against the supported set.
// "es-MX" matches Spanish, "en-GB" matches English, anything else
// falls back to Spanish.
var matcher = language.NewMatcher(supported)

// qualifiers maps a supported language to the words combined with the
// identifier. Quoted identifier terms force exact matching in search
// engines; qualifier terms widen recall for pages that mention the
// number without quoting-friendly formatting.
var qualifiers = map[language.Tag][]string{
	language.Spanish: {
		"producto",
		"código de barras",
		"precio",
		"comprar",
		"descatalogado",
	},
	language.English: {
		"product",
		"barcode",
		"price",
		"buy",
		"discontinued",
	},
}

// Generator builds search terms for an identifier.
type Generator struct {
	// extra holds additional qualifier terms appended after the
	// built-in vocabulary, e.g. from the configuration file.
	extra []string
}

// Option configures a Generator.
type Option func(*Generator)

// WithExtraQualifiers appends additional qualifier words to every
// generated term list.
func WithExtraQualifiers(terms []string) Option {
	return func(g *Generator) {
		g.extra = terms
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Terms returns the ordered search terms for the identifier.
//
// The first term is always the bare quoted identifier. Then come the
// qualifier terms for the requested language, then the English
// qualifiers as a recall fallback. Product pages for one market often
// carry English boilerplate even when the storefront language differs,
// so the English terms stay in regardless of the requested language.
// Duplicates are removed, first occurrence wins, order is deterministic.
func (g *Generator) Terms(ean model.EAN, langTag string) []string {
	primary := Match(langTag)

	terms := []string{fmt.Sprintf("%q", ean.String())}
	seen := map[string]bool{terms[0]: true}

	add := func(qualifier string) {
		term := fmt.Sprintf("%q %s", ean.String(), qualifier)
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}

	for _, q := range qualifiers[primary] {
		add(q)
	}
	if primary != language.English {
		for _, q := range qualifiers[language.English] {
			add(q)
		}
	}
	for _, q := range g.extra {
		add(q)
	}

	return terms
}

// Match resolves a BCP 47 tag string to the nearest supported language.
// Empty or unparsable tags resolve to the fallback language.
func Match(langTag string) language.Tag {
	tag, err := language.Parse(langTag)
	if err != nil {
		return supported[0]
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}
