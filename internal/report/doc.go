// Package report renders scan reports. The Writer interface is
// implemented by a human-readable text writer, a JSON writer, a
// Markdown writer, and a CSV exporter.
package report
