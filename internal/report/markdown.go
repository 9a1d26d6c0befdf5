package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mvalverde/eanscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writeStats(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("EAN Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"EAN", "`" + report.EAN + "`"},
			{"Format", report.Format},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Language", report.Language},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ScanReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the classification summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Classification Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Classification", "Count"},
		Rows: [][]string{
			{"🕰️ Historical", strconv.Itoa(report.HistoricalCount())},
			{"🟢 Current", strconv.Itoa(report.CurrentCount())},
			{"⚪ Indeterminate", strconv.Itoa(report.IndeterminateCount())},
			{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if report.TotalFindings() > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for the bucket distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Classification Distribution"),
		piechart.WithShowData(true),
	)

	if report.HistoricalCount() > 0 {
		chart.LabelAndIntValue("Historical", uint64(report.HistoricalCount()))
	}
	if report.CurrentCount() > 0 {
		chart.LabelAndIntValue("Current", uint64(report.CurrentCount()))
	}
	if report.IndeterminateCount() > 0 {
		chart.LabelAndIntValue("Indeterminate", uint64(report.IndeterminateCount()))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an assessment alert based on the bucket counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	historical := report.HistoricalCount()
	current := report.CurrentCount()

	switch {
	case historical > 0 && current == 0:
		md.Importantf(
			"All classified evidence (%d finding(s)) points at a discontinued product.",
			historical,
		)
	case historical > 0 && current > 0:
		md.Warningf(
			"Mixed evidence: %d historical and %d current finding(s). The product may be in phase-out.",
			historical, current,
		)
	case current > 0:
		md.Notef(
			"Evidence (%d finding(s)) indicates the product is still on the market.",
			current,
		)
	case report.TotalFindings() > 0:
		md.Note("Only indeterminate mentions were found.")
	default:
		md.Tip("No findings. The identifier may be rare, regional, or very old.")
	}
	md.PlainText("")
}

// writeFindings writes all findings grouped by classification bucket.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Findings")
	md.PlainText("")

	if report.Results.IsEmpty() {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	buckets := []struct {
		classification model.Classification
		header         string
	}{
		{model.ClassificationHistorical, "### 🕰️ Historical"},
		{model.ClassificationCurrent, "### 🟢 Current"},
		{model.ClassificationIndeterminate, "### ⚪ Indeterminate"},
	}

	for _, bucket := range buckets {
		findings := report.Results.Findings(bucket.classification)
		if len(findings) == 0 {
			continue
		}
		md.PlainText(bucket.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		name := f.ProductName
		if name == "" {
			name = "-"
		}
		date := f.DateClue
		if date == "" {
			date = "-"
		}
		rule := f.Rule
		if rule == "" {
			rule = "-"
		}

		rows[i] = []string{
			f.Source.String(),
			truncateString(f.URL, 60),
			truncateString(name, 40),
			date,
			rule,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source", "URL", "Product", "Date", "Rule"},
		Rows:   rows,
	})
	md.PlainText("")

	// Context windows as collapsible details
	for _, f := range findings {
		if f.Context != "" {
			md.Details(truncateString(f.URL, 60), f.Context)
		}
	}
	md.PlainText("")
}

// writeStats writes the per-source statistics table.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.Stats) == 0 {
		return
	}

	md.H2("Source Statistics")
	md.PlainText("")

	names := make([]string, 0, len(report.Stats))
	for name := range report.Stats {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := report.Stats[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(s.SearchesSucceeded) + "/" + strconv.Itoa(s.SearchesAttempted),
			strconv.Itoa(s.FetchesFailed),
			strconv.Itoa(s.ParseFailures),
			strconv.Itoa(s.Findings),
			strconv.Itoa(s.Duplicates),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source", "Searches", "Failed fetches", "Parse failures", "Findings", "Duplicates"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by eanscan*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
