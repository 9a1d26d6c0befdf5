package model

import "time"

// SourceStats counts the outcomes of one source's work during a scan.
// Every skip event is counted individually so resilience behavior is
// observable: a test can assert "3 fetches failed, 2 parses failed".
type SourceStats struct {
	// SearchesAttempted is the number of search units dispatched.
	SearchesAttempted int `json:"searches_attempted"`

	// SearchesSucceeded is the number of search units that completed.
	SearchesSucceeded int `json:"searches_succeeded"`

	// SearchesFailed is the number of search units that failed outright.
	SearchesFailed int `json:"searches_failed"`

	// FetchesFailed counts individual document fetches that were
	// skipped after retry exhaustion.
	FetchesFailed int `json:"fetches_failed"`

	// ParseFailures counts individual documents that could not be parsed.
	ParseFailures int `json:"parse_failures"`

	// Findings is the number of findings retained from this source.
	Findings int `json:"findings"`

	// Duplicates is the number of findings discarded as duplicates.
	Duplicates int `json:"duplicates"`
}

// ScanReport is the complete result of one scan run for one identifier.
// It is the unit of persistence (history database) and of report output.
//
// Design decision: a single struct holding the result set plus run
// metadata, mirroring how the scan pipeline accumulates everything into
// one report object. This keeps JSON serialization and database storage
// trivial at the cost of a wide struct.
type ScanReport struct {
	// EAN is the scanned identifier.
	EAN string `json:"ean"`

	// Format is the identifier variant name (EAN-8/EAN-13/EAN-14).
	Format string `json:"format"`

	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// Language is the qualifier language used for search terms.
	Language string `json:"language"`

	// Terms are the search terms that were dispatched.
	Terms []string `json:"terms,omitempty"`

	// Results holds the deduplicated, bucketed findings.
	Results *ResultSet `json:"results"`

	// Stats maps each source name to its outcome counters.
	Stats map[string]*SourceStats `json:"stats"`

	// Elapsed is the total scan duration.
	Elapsed time.Duration `json:"elapsed"`

	// TimedOut is true if the global deadline expired before all units
	// finished. Partial results from in-flight units are discarded.
	TimedOut bool `json:"timed_out"`

	// Error contains any run-level error. Unit failures are not
	// run-level errors; they only appear in Stats.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewScanReport creates a report for the given identifier.
func NewScanReport(ean EAN) *ScanReport {
	return &ScanReport{
		EAN:         ean.String(),
		Format:      ean.Format().String(),
		DateScanned: time.Now(),
		Results:     NewResultSet(),
		Stats:       make(map[string]*SourceStats),
	}
}

// StatsFor returns the stats entry for a source, creating it on demand.
func (r *ScanReport) StatsFor(s Source) *SourceStats {
	name := s.String()
	if r.Stats[name] == nil {
		r.Stats[name] = &SourceStats{}
	}
	return r.Stats[name]
}

// HistoricalCount returns the number of historical findings.
func (r *ScanReport) HistoricalCount() int {
	return r.Results.Count(ClassificationHistorical)
}

// CurrentCount returns the number of current findings.
func (r *ScanReport) CurrentCount() int {
	return r.Results.Count(ClassificationCurrent)
}

// IndeterminateCount returns the number of indeterminate findings.
func (r *ScanReport) IndeterminateCount() int {
	return r.Results.Count(ClassificationIndeterminate)
}

// TotalFindings returns the total number of retained findings.
func (r *ScanReport) TotalFindings() int {
	return r.Results.Total()
}

// SetError records a run-level error on the report.
func (r *ScanReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
