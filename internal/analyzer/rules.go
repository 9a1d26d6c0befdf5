package analyzer

import (
	"strings"

	"github.com/mvalverde/eanscan/internal/model"
)

// Rule classifies a context window when any of its terms appears in it.
// Terms are matched case-insensitively as plain substrings.
type Rule struct {
	// Name identifies the rule in finding output, e.g. "discontinued-es".
	Name string

	// Classification is assigned when the rule matches.
	Classification model.Classification

	// Terms are the vocabulary entries, already lowercased.
	Terms []string
}

// defaultRules is the built-in rule table.
//
// Design decision: rules are evaluated in order and the first match
// wins. All historical rules come before all current rules, so a page
// saying "discontinued, similar items in stock" classifies as
// historical. Evidence that a product was removed from the market is
// rarer and more telling than the storefront boilerplate that
// surrounds it, so it takes priority.
var defaultRules = []Rule{
	{
		Name:           "discontinued-es",
		Classification: model.ClassificationHistorical,
		Terms: []string{
			"descatalogado",
			"descatalogada",
			"discontinuado",
			"discontinuada",
			"ya no se fabrica",
			"ya no está disponible",
			"ya no esta disponible",
			"fuera de catálogo",
			"fuera de catalogo",
			"producto antiguo",
			"dejó de fabricarse",
			"dejo de fabricarse",
		},
	},
	{
		Name:           "discontinued-en",
		Classification: model.ClassificationHistorical,
		Terms: []string{
			"discontinued",
			"no longer available",
			"no longer sold",
			"out of production",
			"end of life",
			"obsolete",
			"replaced by",
			"superseded",
		},
	},
	{
		Name:           "in-market-es",
		Classification: model.ClassificationCurrent,
		Terms: []string{
			"en stock",
			"disponible",
			"añadir al carrito",
			"anadir al carrito",
			"añadir a la cesta",
			"comprar ahora",
			"envío gratis",
			"envio gratis",
			"precio",
		},
	},
	{
		Name:           "in-market-en",
		Classification: model.ClassificationCurrent,
		Terms: []string{
			"in stock",
			"add to cart",
			"add to basket",
			"buy now",
			"free shipping",
			"available now",
			"order now",
		},
	},
}

// Classifier assigns a lifecycle classification to context windows.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a Classifier from the built-in rule table plus
// optional extra vocabulary. Extra historical terms are appended to a
// rule that still precedes every current rule, preserving the
// historical-first ordering.
func NewClassifier(extraHistorical, extraCurrent []string) *Classifier {
	rules := make([]Rule, 0, len(defaultRules)+2)

	if len(extraHistorical) > 0 {
		rules = append(rules, Rule{
			Name:           "discontinued-custom",
			Classification: model.ClassificationHistorical,
			Terms:          lowercaseAll(extraHistorical),
		})
	}
	for _, r := range defaultRules {
		if r.Classification == model.ClassificationHistorical {
			rules = append(rules, r)
		}
	}
	if len(extraCurrent) > 0 {
		rules = append(rules, Rule{
			Name:           "in-market-custom",
			Classification: model.ClassificationCurrent,
			Terms:          lowercaseAll(extraCurrent),
		})
	}
	for _, r := range defaultRules {
		if r.Classification == model.ClassificationCurrent {
			rules = append(rules, r)
		}
	}

	return &Classifier{rules: rules}
}

// Classify returns the classification for a context window and the name
// of the rule that decided it. Windows matching no rule are
// indeterminate with an empty rule name.
func (c *Classifier) Classify(window string) (model.Classification, string) {
	lowered := strings.ToLower(window)
	for _, rule := range c.rules {
		for _, term := range rule.Terms {
			if strings.Contains(lowered, term) {
				return rule.Classification, rule.Name
			}
		}
	}
	return model.ClassificationIndeterminate, ""
}

// lowercaseAll returns a lowercased copy of the terms.
func lowercaseAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
