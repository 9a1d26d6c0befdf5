package analyzer

import (
	"regexp"
	"strings"
)

// namePatterns extract an explicitly labeled product name from a
// context window. Labeled forms are the most reliable, so they are
// tried before the capitalized-run fallback.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:producto|product|artículo|articulo|item)\s*:\s*([^.,;|<>\n]{3,80})`),
	regexp.MustCompile(`(?i)(?:nombre|name)\s*:\s*([^.,;|<>\n]{3,80})`),
}

// capitalizedRun matches two to six consecutive capitalized words,
// the usual shape of a brand plus model name in body text. Digits and
// hyphens are allowed inside words for model numbers.
var capitalizedRun = regexp.MustCompile(`\b[A-ZÁÉÍÓÚÑÜ][\wÁÉÍÓÚÑÜáéíóúñü-]+(?:\s+[A-ZÁÉÍÓÚÑÜ0-9][\wÁÉÍÓÚÑÜáéíóúñü-]*){1,5}\b`)

// FindProductName returns the best product name candidate from a
// context window, or empty string when nothing plausible appears.
func FindProductName(window string) string {
	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(window); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	if m := capitalizedRun.FindString(window); m != "" {
		// A run that is mostly digits is a code, not a name.
		if !looksNumeric(m) {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// looksNumeric reports whether more than half of the characters are digits.
func looksNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits*2 > len([]rune(s))
}
