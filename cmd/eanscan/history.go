package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/database"
	"github.com/mvalverde/eanscan/internal/model"
)

// noFindingsMessage is shown for scans with an empty result set.
const noFindingsMessage = "No findings"

// NewHistoryCmd creates the history command.
// This command inspects scan results stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [ean]",
		Short: "Inspect stored scan history for an identifier",
		Long: `History lists previous scans of an identifier and can compare two of
them to show how the evidence changed: findings that appeared, findings
that disappeared, and shifts between the historical and current buckets.

A product moving from "current" evidence to "historical" evidence across
scans is the strongest signal that it has been taken off the market.

Examples:
  # List scan history for an identifier
  eanscan history 4006381333931

  # List all identifiers in the database
  eanscan history --list-eans

  # Compare the latest two scans
  eanscan history --compare 4006381333931

  # Compare the latest scan with a specific stored scan by ID
  eanscan history --compare --with-scan-id 5 4006381333931

  # Compare with the first scan after a date
  eanscan history --compare --since "2026-01-01" 4006381333931

  # Output in JSON format
  eanscan history --json 4006381333931`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list-eans", "L", false,
		"List all identifiers in the database")

	// Comparison flags
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest scan with a previous one")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (see the history listing for IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listEANs, err := cmd.Flags().GetBool("list-eans")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so validation
	// failures never leave a fresh empty database behind.
	var ean string
	if !listEANs {
		if len(args) == 0 {
			return errors.New("identifier is required (use --list-eans to see stored identifiers)")
		}
		parsed, err := model.ParseEAN(args[0])
		if err != nil {
			return fmt.Errorf("invalid identifier: %w", err)
		}
		ean = parsed.String()
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if listEANs {
		return listStoredEANs(ctx, db, jsonOutput)
	}

	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	if !compare {
		return listScanHistory(ctx, db, ean, jsonOutput)
	}

	withScanID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, ean, withScanID, sinceDate, jsonOutput)
}

// listStoredEANs lists all identifiers that have scan records.
func listStoredEANs(ctx context.Context, db *database.HistoryDB, jsonOutput bool) error {
	eans, err := db.ListEANs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identifiers: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(eans)
	}

	if len(eans) == 0 {
		fmt.Println("No scanned identifiers found in the database.")
		fmt.Println("\nUse 'eanscan search <ean>' to scan an identifier.")
		return nil
	}

	fmt.Printf("Scanned identifiers (%d):\n\n", len(eans))
	for _, ean := range eans {
		fmt.Printf("  %s\n", ean)
	}
	fmt.Println("\nUse 'eanscan history <ean>' to see scan history for an identifier.")

	return nil
}

// listScanHistory lists all scan records for one identifier.
func listScanHistory(ctx context.Context, db *database.HistoryDB, ean string, jsonOutput bool) error {
	metas, err := db.GetScanHistoryWithMetadata(ctx, ean)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(metas)
	}

	if len(metas) == 0 {
		fmt.Printf("No scan history found for %s\n", ean)
		fmt.Println("\nUse 'eanscan search' to scan this identifier.")
		return nil
	}

	fmt.Printf("Scan history for %s (%d scans):\n\n", ean, len(metas))
	fmt.Printf("  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Format", "Findings")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range metas {
		fmt.Printf("  %-6d  %-20s  %-8s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.Format,
			formatBucketSummary(meta.BucketSummary),
		)
	}

	fmt.Println("\nUse 'eanscan history --compare <ean>' to compare the latest two scans.")

	return nil
}

// formatBucketSummary formats the bucket summary map into a short string.
func formatBucketSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["historical"]; v > 0 {
		parts = append(parts, fmt.Sprintf("H:%d", v))
	}
	if v := summary["current"]; v > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", v))
	}
	if v := summary["indeterminate"]; v > 0 {
		parts = append(parts, fmt.Sprintf("?:%d", v))
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison compares the latest scan with a previous one.
func runComparison(ctx context.Context, db *database.HistoryDB, ean string, withScanID int64, sinceDate string, jsonOutput bool) error {
	reports, err := db.GetScanHistory(ctx, ean)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", ean)
	}
	if len(reports) < 2 && withScanID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	// The latest report is always the current side of the comparison.
	currentReport := reports[0]
	var previousReport *model.ScanReport

	switch {
	case withScanID > 0:
		previousReport, err = db.GetScanReportByID(ctx, withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if previousReport.EAN != ean {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previousReport.EAN, ean)
		}
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are newest first; walk backwards to find the oldest
		// scan at or after the date.
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateScanned.After(parsedDate) || r.DateScanned.Equal(parsedDate) {
				previousReport = r
				break
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no scans found since %s", sinceDate)
		}
		if previousReport == currentReport {
			return fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", sinceDate)
		}
	default:
		previousReport = reports[1]
	}

	comparison := compareReports(previousReport, currentReport)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	return outputComparisonText(comparison)
}

// ScanSummary holds the metadata of one side of a comparison.
type ScanSummary struct {
	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// Historical is the historical finding count.
	Historical int `json:"historical"`

	// Current is the current finding count.
	Current int `json:"current"`

	// Indeterminate is the indeterminate finding count.
	Indeterminate int `json:"indeterminate"`
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	// EAN is the compared identifier.
	EAN string `json:"ean"`

	// PreviousScan summarizes the older scan.
	PreviousScan ScanSummary `json:"previous_scan"`

	// CurrentScan summarizes the newer scan.
	CurrentScan ScanSummary `json:"current_scan"`

	// NewFindings are findings present only in the current scan.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings are findings present only in the previous scan.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// Assessment is a one-line interpretation of the bucket shift.
	Assessment string `json:"assessment"`
}

// summarize builds a ScanSummary from a report.
func summarize(r *model.ScanReport) ScanSummary {
	return ScanSummary{
		DateScanned:   r.DateScanned,
		Historical:    r.HistoricalCount(),
		Current:       r.CurrentCount(),
		Indeterminate: r.IndeterminateCount(),
	}
}

// findingKey identifies a finding across scans. Context windows vary
// between snapshots of the same page, so only stable fields are used.
func findingKey(f model.Finding) string {
	return f.Source.String() + "|" + f.URL + "|" + f.Classification.String()
}

// compareReports diffs the findings of two scans of the same identifier.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		EAN:          current.EAN,
		PreviousScan: summarize(previous),
		CurrentScan:  summarize(current),
	}

	previousKeys := make(map[string]bool)
	for _, f := range previous.Results.All() {
		previousKeys[findingKey(f)] = true
	}
	currentKeys := make(map[string]bool)
	for _, f := range current.Results.All() {
		currentKeys[findingKey(f)] = true
	}

	for _, f := range current.Results.All() {
		if previousKeys[findingKey(f)] {
			result.UnchangedCount++
		} else {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for _, f := range previous.Results.All() {
		if !currentKeys[findingKey(f)] {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	result.Assessment = assessShift(result.PreviousScan, result.CurrentScan)
	return result
}

// assessShift interprets the bucket movement between two scans.
func assessShift(previous, current ScanSummary) string {
	switch {
	case previous.Current > 0 && current.Current == 0 && current.Historical > 0:
		return "product appears to have left the market since the previous scan"
	case previous.Current == 0 && current.Current > 0:
		return "product appears to have (re)entered the market since the previous scan"
	case current.Historical > previous.Historical && current.Current <= previous.Current:
		return "evidence is shifting toward discontinued"
	case current.Current > previous.Current:
		return "evidence is shifting toward in-market"
	default:
		return "no significant change in evidence"
	}
}

// outputComparisonText prints a human-readable comparison.
func outputComparisonText(c *ComparisonResult) error {
	fmt.Printf("\nComparison for %s\n", c.EAN)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Previous: %s  (H:%d C:%d ?:%d)\n",
		c.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"),
		c.PreviousScan.Historical, c.PreviousScan.Current, c.PreviousScan.Indeterminate)
	fmt.Printf("Current:  %s  (H:%d C:%d ?:%d)\n\n",
		c.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"),
		c.CurrentScan.Historical, c.CurrentScan.Current, c.CurrentScan.Indeterminate)

	fmt.Printf("Assessment: %s\n\n", c.Assessment)

	if len(c.NewFindings) > 0 {
		fmt.Printf("New findings (%d):\n", len(c.NewFindings))
		for _, f := range c.NewFindings {
			fmt.Printf("  + [%s] %s (%s)\n", f.Source, f.URL, f.Classification)
		}
		fmt.Println()
	}

	if len(c.ResolvedFindings) > 0 {
		fmt.Printf("Disappeared findings (%d):\n", len(c.ResolvedFindings))
		for _, f := range c.ResolvedFindings {
			fmt.Printf("  - [%s] %s (%s)\n", f.Source, f.URL, f.Classification)
		}
		fmt.Println()
	}

	fmt.Printf("Unchanged findings: %d\n", c.UnchangedCount)
	return nil
}
