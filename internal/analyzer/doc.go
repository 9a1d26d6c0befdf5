// Package analyzer turns raw documents into classified findings.
// It extracts visible text from HTML, locates identifier occurrences,
// cuts a context window around each one, and classifies the window
// against an ordered vocabulary rule table.
package analyzer
