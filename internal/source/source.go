// Package source implements the evidence source clients. Each source
// turns one search into raw hits for the analyzer; the aggregator
// schedules them concurrently and owns the result merging.
package source

import (
	"context"
	"log/slog"

	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// Searcher is the interface all evidence sources implement.
//
// Design decision: sources are a closed, compile-time registry rather
// than a plugin system. The aggregator builds the list once and treats
// every entry uniformly, so adding a source means adding a file here
// and one constructor call.
type Searcher interface {
	// Name returns the source identity used in findings and stats.
	Name() model.Source

	// TermDriven reports whether the source runs one search per
	// generated term. Sources keyed directly by the identifier
	// (structured lookups, snapshot indexes) run a single search with
	// an empty term.
	TermDriven() bool

	// Search runs one search unit. Failures of individual documents
	// inside the unit are recorded through the stats recorder and
	// skipped; a returned error means the whole unit failed.
	// An empty result with a nil error is a miss, not a failure.
	Search(ctx context.Context, ean model.EAN, term string) ([]model.RawHit, error)
}

// StatsRecorder receives per-document skip events from sources as they
// happen. The aggregator injects a mutex-guarded implementation so the
// counts end up in the scan report.
type StatsRecorder interface {
	// FetchFailed records one document fetch abandoned after retries.
	FetchFailed(s model.Source)

	// ParseFailed records one document that could not be parsed.
	ParseFailed(s model.Source)
}

// nopRecorder is the default recorder when none is injected.
type nopRecorder struct{}

func (nopRecorder) FetchFailed(model.Source) {}
func (nopRecorder) ParseFailed(model.Source) {}

// settings holds the configuration shared by all source constructors.
type settings struct {
	recorder     StatsRecorder
	logger       *slog.Logger
	headers      map[string]string
	maxResults   int
	maxSnapshots int
	language     string
	baseURL      string
}

func newSettings() *settings {
	return &settings{
		recorder:     nopRecorder{},
		logger:       slog.Default(),
		maxResults:   config.DefaultMaxResults,
		maxSnapshots: config.DefaultMaxSnapshots,
		language:     config.DefaultLanguage,
	}
}

// Option configures a source client.
type Option func(*settings)

// WithStatsRecorder injects the recorder for skip events.
func WithStatsRecorder(r StatsRecorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger for per-document debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHeaders sets extra HTTP headers sent with every request of this
// source, e.g. Accept-Language from the config file.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		s.headers = headers
	}
}

// WithMaxResults caps how many result documents a search unit examines.
func WithMaxResults(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithMaxSnapshots caps how many archive snapshots are fetched per scan.
func WithMaxSnapshots(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxSnapshots = n
		}
	}
}

// WithLanguage sets the interface language hint sent to search engines.
func WithLanguage(lang string) Option {
	return func(s *settings) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithBaseURL overrides the source's endpoint base URL.
// Used by tests to point sources at local servers.
func WithBaseURL(base string) Option {
	return func(s *settings) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// All constructs the full source registry with shared options.
func All(client *fetch.Client, opts ...Option) []Searcher {
	return AllWith(client, opts, nil)
}

// AllWith constructs the registry like All but additionally applies the
// options perSource yields for each source name, e.g. header or result
// cap overrides from the config file. perSource may be nil.
func AllWith(client *fetch.Client, shared []Option, perSource func(model.Source) []Option) []Searcher {
	opts := func(name model.Source) []Option {
		if perSource == nil {
			return shared
		}
		merged := make([]Option, 0, len(shared)+2)
		merged = append(merged, shared...)
		return append(merged, perSource(name)...)
	}
	return []Searcher{
		NewGoogle(client, opts(model.SourceGoogle)...),
		NewWayback(client, opts(model.SourceWayback)...),
		NewAmazon(client, opts(model.SourceAmazon)...),
		NewOpenFoodFacts(client, opts(model.SourceOpenFoodFacts)...),
	}
}
