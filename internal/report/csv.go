package report

import (
	"encoding/csv"
	"io"

	"github.com/mvalverde/eanscan/internal/model"
)

// CSVWriter exports findings as flat CSV rows.
// This format is designed for spreadsheet import and bulk analysis of
// many scans.
//
// Design decision: We use standard encoding/csv rather than a third-party
// CSV library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It handles quoting and escaping correctly
// 3. Our output is a simple flat table with no schema mapping needs
type CSVWriter struct {
	baseWriter

	// includeContext adds the context window column to each row.
	includeContext bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithContext includes the context window column in the output.
func WithContext(include bool) CSVWriterOption {
	return func(w *CSVWriter) {
		w.includeContext = include
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// csvHeader is the column layout of the export. One row per finding.
var csvHeader = []string{
	"ean",
	"format",
	"scan_date",
	"classification",
	"source",
	"url",
	"product_name",
	"date_clue",
	"snapshot_time",
	"rule",
	"term",
}

// Write outputs one CSV row per finding, preceded by a header row.
// Reports with no findings produce only the header.
//
// The byte count is approximated by counting through a wrapper because
// csv.Writer does not report written sizes.
func (w *CSVWriter) Write(report *model.ScanReport) (int, error) {
	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)

	header := csvHeader
	if w.includeContext {
		header = append(append([]string{}, csvHeader...), "context")
	}
	if err := cw.Write(header); err != nil {
		return counter.n, err
	}

	scanDate := report.DateScanned.Format("2006-01-02 15:04:05")
	for _, f := range report.Results.All() {
		row := []string{
			report.EAN,
			report.Format,
			scanDate,
			f.Classification.String(),
			f.Source.String(),
			f.URL,
			f.ProductName,
			f.DateClue,
			formatSnapshot(f),
			f.Rule,
			f.Term,
		}
		if w.includeContext {
			row = append(row, f.Context)
		}
		if err := cw.Write(row); err != nil {
			return counter.n, err
		}
	}

	cw.Flush()
	return counter.n, cw.Error()
}

// formatSnapshot renders the snapshot time or empty for non-archive hits.
func formatSnapshot(f model.Finding) string {
	if f.SnapshotTime.IsZero() {
		return ""
	}
	return f.SnapshotTime.Format("2006-01-02 15:04:05")
}

// countingWriter counts bytes passed through to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int
}

// Write forwards to the wrapped writer and accumulates the byte count.
func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
