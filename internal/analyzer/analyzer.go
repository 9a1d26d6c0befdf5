package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/model"
)

// Analyzer extracts classified findings from raw hits.
// It is stateless between calls and safe for concurrent use.
type Analyzer struct {
	classifier    *Classifier
	contextWindow int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithContextWindow sets the number of characters kept on each side of
// an identifier occurrence.
func WithContextWindow(chars int) Option {
	return func(a *Analyzer) {
		if chars > 0 {
			a.contextWindow = chars
		}
	}
}

// WithExtraVocabulary appends custom classification terms to the
// built-in historical and current vocabularies.
func WithExtraVocabulary(historical, current []string) Option {
	return func(a *Analyzer) {
		a.classifier = NewClassifier(historical, current)
	}
}

// New creates an Analyzer with the built-in rule table.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		classifier:    NewClassifier(nil, nil),
		contextWindow: config.DefaultContextWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts findings for the identifier from one raw hit.
//
// HTML bodies are reduced to visible text first. Every occurrence of
// the identifier yields one finding built from the surrounding context
// window. A hit with no occurrences yields no findings, except for
// metadata-only hits (empty body, non-empty title) from structured
// sources, which yield a single finding built from the title.
func (a *Analyzer) Analyze(ean model.EAN, hit model.RawHit) []model.Finding {
	if hit.Body == "" {
		if hit.Title == "" {
			return nil
		}
		return []model.Finding{a.newFinding(hit, hit.Title)}
	}

	text := hit.Body
	if looksLikeHTML(text) {
		text = ExtractText(text)
	} else {
		text = collapseWhitespace(text)
	}

	occurrences := findOccurrences(text, ean.String())
	if len(occurrences) == 0 {
		return nil
	}

	findings := make([]model.Finding, 0, len(occurrences))
	prevEnd := -1
	for _, occ := range occurrences {
		start, end := a.window(text, occ.start, occ.end-occ.start)
		// Occurrences whose windows sit inside the previous one would
		// produce near-identical findings; skip them here rather than
		// leaning on downstream dedup.
		if end <= prevEnd {
			continue
		}
		prevEnd = end
		findings = append(findings, a.newFinding(hit, text[start:end]))
	}
	return findings
}

// newFinding classifies a context window and fills in the heuristics.
func (a *Analyzer) newFinding(hit model.RawHit, window string) model.Finding {
	classification, rule := a.classifier.Classify(window)

	name := FindProductName(window)
	if name == "" {
		name = strings.TrimSpace(hit.Title)
	}

	date := FindDate(window)
	if date == "" {
		date = hit.DateHint
	}

	return model.Finding{
		Source:             hit.Source,
		URL:                hit.URL,
		Context:            window,
		Classification:     classification,
		ClassificationText: classification.String(),
		Rule:               rule,
		ProductName:        name,
		DateClue:           date,
		SnapshotTime:       hit.SnapshotTime,
		Term:               hit.Term,
	}
}

// window returns byte offsets for the context window around an
// occurrence, clamped to the text and snapped to rune boundaries.
func (a *Analyzer) window(text string, idx, codeLen int) (int, int) {
	start := idx - a.contextWindow
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}

	end := idx + codeLen + a.contextWindow
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	return start, end
}

// occurrencePattern matches the identifier when it is not embedded in a
// longer digit run. "EAN: 400..." and a bare "400..." both match;
// "1400..." does not. A single space or dash is tolerated between any
// two digits, so grouped renderings like "4 006381 333931" and
// "4-006381-333931" match as well.
func occurrencePattern(code string) *regexp.Regexp {
	digits := strings.Split(code, "")
	return regexp.MustCompile(`(?:^|[^0-9])(` + strings.Join(digits, `[\s-]?`) + `)(?:[^0-9]|$)`)
}

// occurrence is the byte span of one standalone identifier match.
type occurrence struct {
	start, end int
}

// findOccurrences returns the byte span of each standalone occurrence
// of the identifier in the text.
func findOccurrences(text, code string) []occurrence {
	matches := occurrencePattern(code).FindAllStringSubmatchIndex(text, -1)
	occurrences := make([]occurrence, 0, len(matches))
	for _, m := range matches {
		// m[2], m[3] bound the captured identifier group.
		if m[2] >= 0 {
			occurrences = append(occurrences, occurrence{start: m[2], end: m[3]})
		}
	}
	return occurrences
}

// looksLikeHTML reports whether the body should go through HTML text
// extraction. JSON bodies and plain text skip it.
func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<")
}
