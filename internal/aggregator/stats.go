package aggregator

import (
	"sync"

	"github.com/mvalverde/eanscan/internal/model"
)

// stats accumulates per-source counters during a scan. It implements
// source.StatsRecorder for the fetch/parse skip events and adds the
// unit-level and finding-level counters the aggregator owns.
//
// Design decision: a single mutex around plain maps. The counters are
// touched once per unit or per skipped document, never in a hot loop,
// so finer-grained locking would buy nothing.
type stats struct {
	mu    sync.Mutex
	bySrc map[model.Source]*model.SourceStats
}

func newStats() *stats {
	return &stats{bySrc: make(map[model.Source]*model.SourceStats)}
}

// get returns the entry for a source, creating it on demand.
// Callers must hold the mutex.
func (s *stats) get(src model.Source) *model.SourceStats {
	entry := s.bySrc[src]
	if entry == nil {
		entry = &model.SourceStats{}
		s.bySrc[src] = entry
	}
	return entry
}

// SearchAttempted records one dispatched search unit.
func (s *stats) SearchAttempted(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).SearchesAttempted++
}

// SearchSucceeded records one completed search unit.
func (s *stats) SearchSucceeded(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).SearchesSucceeded++
}

// SearchFailed records one search unit that failed outright.
func (s *stats) SearchFailed(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).SearchesFailed++
}

// FetchFailed implements source.StatsRecorder.
func (s *stats) FetchFailed(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).FetchesFailed++
}

// ParseFailed implements source.StatsRecorder.
func (s *stats) ParseFailed(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).ParseFailures++
}

// FindingRetained records one finding that entered the result set.
func (s *stats) FindingRetained(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).Findings++
}

// Duplicate records one finding discarded by dedup.
func (s *stats) Duplicate(src model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(src).Duplicates++
}

// reset clears all counters for a new scan.
func (s *stats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySrc = make(map[model.Source]*model.SourceStats)
}

// fill copies the counters into a scan report.
func (s *stats) fill(report *model.ScanReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for src, entry := range s.bySrc {
		copied := *entry
		report.Stats[src.String()] = &copied
	}
}
