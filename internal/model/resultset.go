package model

// ResultSet accumulates deduplicated findings bucketed by classification.
// Discovery order is preserved within each bucket.
//
// Design decision: ResultSet is not safe for concurrent use. The
// aggregator funnels all findings through a single collector goroutine
// (workers return findings over a channel), so the merge point is the
// only writer and no locking is needed here.
type ResultSet struct {
	// Buckets maps each classification to its ordered findings.
	Buckets map[Classification][]Finding `json:"buckets"`
}

// NewResultSet creates an empty ResultSet with all buckets initialized.
func NewResultSet() *ResultSet {
	buckets := make(map[Classification][]Finding, len(Classifications()))
	for _, c := range Classifications() {
		buckets[c] = []Finding{}
	}
	return &ResultSet{Buckets: buckets}
}

// Add appends a finding to its classification bucket.
func (rs *ResultSet) Add(f Finding) {
	rs.Buckets[f.Classification] = append(rs.Buckets[f.Classification], f)
}

// Findings returns the bucket for the given classification.
func (rs *ResultSet) Findings(c Classification) []Finding {
	return rs.Buckets[c]
}

// Count returns the number of findings in the given bucket.
func (rs *ResultSet) Count(c Classification) int {
	return len(rs.Buckets[c])
}

// Total returns the number of findings across all buckets.
func (rs *ResultSet) Total() int {
	total := 0
	for _, findings := range rs.Buckets {
		total += len(findings)
	}
	return total
}

// IsEmpty reports whether no findings were retained.
func (rs *ResultSet) IsEmpty() bool {
	return rs.Total() == 0
}

// All returns every finding in bucket display order.
// Useful for export formats that want a flat sequence.
func (rs *ResultSet) All() []Finding {
	all := make([]Finding, 0, rs.Total())
	for _, c := range Classifications() {
		all = append(all, rs.Buckets[c]...)
	}
	return all
}
