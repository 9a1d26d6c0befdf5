package analyzer

import "regexp"

// datePatterns are tried in order; the first match in a context window
// becomes the finding's date clue. More specific formats come first so
// a full date is preferred over a bare year.
var datePatterns = []*regexp.Regexp{
	// ISO: 2019-03-15
	regexp.MustCompile(`\b(19|20)\d{2}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])\b`),

	// European numeric: 15/03/2019 or 15-03-2019
	regexp.MustCompile(`\b(0?[1-9]|[12]\d|3[01])[/-](0?[1-9]|1[0-2])[/-](19|20)\d{2}\b`),

	// Spanish long form: 15 de marzo de 2019
	regexp.MustCompile(`(?i)\b(0?[1-9]|[12]\d|3[01])\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+(?:de\s+)?(19|20)\d{2}\b`),

	// English long form: March 15, 2019 or 15 March 2019
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(0?[1-9]|[12]\d|3[01]),?\s+(19|20)\d{2}\b`),
	regexp.MustCompile(`(?i)\b(0?[1-9]|[12]\d|3[01])\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+(19|20)\d{2}\b`),

	// Bare year, last resort
	regexp.MustCompile(`\b(19|20)\d{2}\b`),
}

// FindDate returns the first date-like string in the window, or empty
// string if none appears.
func FindDate(window string) string {
	for _, pattern := range datePatterns {
		if m := pattern.FindString(window); m != "" {
			return m
		}
	}
	return ""
}
