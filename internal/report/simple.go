package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mvalverde/eanscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether buckets with no findings are shown.
	showEmpty bool

	// verbose enables full context windows in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty buckets.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with full context windows.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFindings(&sb, report)
	w.writeStats(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          EANSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("EAN:        %s (%s)\n", report.EAN, report.Format))
	sb.WriteString(fmt.Sprintf("Scan Date:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Language:   %s\n", report.Language))
	sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", report.Elapsed.Round(10*time.Millisecond)))

	switch {
	case report.TimedOut:
		sb.WriteString("Status:     TIMED OUT (partial results)\n")
	case report.ErrorMessage != "":
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", report.ErrorMessage))
	default:
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the classification summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CLASSIFICATION SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  HISTORICAL:    %d\n", report.HistoricalCount()))
	sb.WriteString(fmt.Sprintf("  CURRENT:       %d\n", report.CurrentCount()))
	sb.WriteString(fmt.Sprintf("  INDETERMINATE: %d\n", report.IndeterminateCount()))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:         %d findings\n", report.TotalFindings()))
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by classification bucket.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.ScanReport) {
	if report.Results.IsEmpty() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FINDINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, classification := range model.Classifications() {
		findings := report.Results.Findings(classification)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeBucket(sb, classification, findings)
	}
}

// writeBucket writes the findings of one classification.
func (w *SimpleWriter) writeBucket(sb *strings.Builder, classification model.Classification, findings []model.Finding) {
	sb.WriteString(fmt.Sprintf("[%s] %s\n", bucketIndicator(classification), strings.ToUpper(classification.String())))

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for i, f := range findings {
		sb.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, f.Source, f.URL))
		if f.ProductName != "" {
			sb.WriteString(fmt.Sprintf("     Product: %s\n", f.ProductName))
		}
		if f.DateClue != "" {
			sb.WriteString(fmt.Sprintf("     Date:    %s\n", f.DateClue))
		}
		if f.Rule != "" {
			sb.WriteString(fmt.Sprintf("     Rule:    %s\n", f.Rule))
		}
		if !f.SnapshotTime.IsZero() {
			sb.WriteString(fmt.Sprintf("     Snapshot: %s\n", f.SnapshotTime.Format("2006-01-02")))
		}
		if w.verbose && f.Context != "" {
			sb.WriteString(fmt.Sprintf("     Context: %s\n", f.Context))
		}
	}
	sb.WriteString("\n")
}

// bucketIndicator returns a visual indicator for the classification.
func bucketIndicator(c model.Classification) string {
	switch c {
	case model.ClassificationHistorical:
		return "H"
	case model.ClassificationCurrent:
		return "C"
	case model.ClassificationIndeterminate:
		return "?"
	default:
		return " "
	}
}

// writeStats writes the per-source statistics section.
func (w *SimpleWriter) writeStats(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Stats) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SOURCE STATISTICS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	names := make([]string, 0, len(report.Stats))
	for name := range report.Stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := report.Stats[name]
		sb.WriteString(fmt.Sprintf("  %-15s searches %d/%d, failed fetches %d, parse failures %d, findings %d, duplicates %d\n",
			name, s.SearchesSucceeded, s.SearchesAttempted, s.FetchesFailed, s.ParseFailures, s.Findings, s.Duplicates))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by eanscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
