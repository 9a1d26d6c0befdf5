package analyzer

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText returns the visible text of an HTML document with
// whitespace collapsed. Script and style contents are skipped. Input
// that does not parse as HTML degrades gracefully: the tokenizer treats
// it as text, so plain-text bodies pass through unchanged apart from
// whitespace normalization.
func ExtractText(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// ExtractTitle returns the contents of the first <title> element,
// or empty string if the document has none.
func ExtractTitle(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))

	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		}
	}
}

// skippedTag reports whether an element's text content is invisible
// and should be excluded from extraction.
func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// collapseWhitespace folds runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
