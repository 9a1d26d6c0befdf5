// Package aggregator orchestrates one scan: it fans search units out
// across the sources under a concurrency bound, funnels the resulting
// findings through a single collector, deduplicates them, and produces
// the final scan report.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvalverde/eanscan/internal/analyzer"
	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/model"
	"github.com/mvalverde/eanscan/internal/query"
	"github.com/mvalverde/eanscan/internal/source"
)

// Aggregator runs scans. Construct once, scan many identifiers.
type Aggregator struct {
	sources       []source.Searcher
	analyzer      *analyzer.Analyzer
	queries       *query.Generator
	language      string
	concurrency   int
	globalTimeout time.Duration
	logger        *slog.Logger
	stats         *stats
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSources sets the source registry.
func WithSources(sources []source.Searcher) Option {
	return func(a *Aggregator) {
		a.sources = sources
	}
}

// WithAnalyzer sets the content analyzer.
func WithAnalyzer(an *analyzer.Analyzer) Option {
	return func(a *Aggregator) {
		if an != nil {
			a.analyzer = an
		}
	}
}

// WithQueryGenerator sets the search term generator.
func WithQueryGenerator(g *query.Generator) Option {
	return func(a *Aggregator) {
		if g != nil {
			a.queries = g
		}
	}
}

// WithLanguage sets the qualifier language for generated terms.
func WithLanguage(lang string) Option {
	return func(a *Aggregator) {
		if lang != "" {
			a.language = lang
		}
	}
}

// WithConcurrency bounds how many search units run at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithGlobalTimeout bounds the whole scan of one identifier.
// Zero means no deadline beyond per-request timeouts.
func WithGlobalTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.globalTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Aggregator. The stats recorder returned by Recorder
// must be injected into the sources so their skip events land in the
// same report.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		analyzer:    analyzer.New(),
		queries:     query.NewGenerator(),
		language:    config.DefaultLanguage,
		concurrency: config.DefaultConcurrency,
		logger:      slog.Default(),
		stats:       newStats(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recorder exposes the aggregator's stats sink as a source.StatsRecorder
// for injection into source clients.
func (a *Aggregator) Recorder() source.StatsRecorder {
	return a.stats
}

// SetSources installs the source registry after construction.
// Source clients need the recorder from Recorder, which only exists once
// the Aggregator is built, so the CLI wires sources in a second step.
func (a *Aggregator) SetSources(sources []source.Searcher) {
	a.sources = sources
}

// unit is one independently scheduled search task.
type unit struct {
	searcher source.Searcher
	term     string
}

// Scan runs all search units for one identifier and returns the report.
// Unit failures never abort the scan; they are recorded in the report's
// stats. The returned report always has a result set, possibly empty.
//
// Scan is not safe for concurrent calls on the same Aggregator: the
// stats sink handed to the sources is reset at the start of each scan.
// The CLI scans identifiers sequentially, which is also the polite rate
// toward the queried services.
func (a *Aggregator) Scan(ctx context.Context, ean model.EAN) *model.ScanReport {
	started := time.Now()
	a.stats.reset()

	report := model.NewScanReport(ean)
	report.Language = a.language
	report.Terms = a.queries.Terms(ean, a.language)

	if a.globalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.globalTimeout)
		defer cancel()
	}

	units := a.buildUnits(report.Terms)
	findingsCh := make(chan []model.Finding, len(units))

	// Single collector goroutine owns the result set and the deduper,
	// so no locking is needed on either.
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		dedup := newDeduper()
		for batch := range findingsCh {
			for _, f := range batch {
				if dedup.isDuplicate(f) {
					a.stats.Duplicate(f.Source)
					continue
				}
				a.stats.FindingRetained(f.Source)
				report.Results.Add(f)
			}
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for _, u := range units {
		g.Go(func() error {
			a.runUnit(ctx, ean, u, findingsCh)
			return nil
		})
	}
	_ = g.Wait()
	close(findingsCh)
	<-collectorDone

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
	}

	a.stats.fill(report)
	report.Elapsed = time.Since(started)
	return report
}

// buildUnits expands the source registry into search units: one per
// term for term-driven sources, a single unit otherwise.
func (a *Aggregator) buildUnits(terms []string) []unit {
	var units []unit
	for _, s := range a.sources {
		if !s.TermDriven() {
			units = append(units, unit{searcher: s})
			continue
		}
		for _, term := range terms {
			units = append(units, unit{searcher: s, term: term})
		}
	}
	return units
}

// runUnit executes one search unit and sends its findings to the
// collector. Results of units still in flight when the scan deadline
// expires are discarded.
func (a *Aggregator) runUnit(ctx context.Context, ean model.EAN, u unit, findingsCh chan<- []model.Finding) {
	src := u.searcher.Name()
	a.stats.SearchAttempted(src)

	hits, err := u.searcher.Search(ctx, ean, u.term)
	if err != nil {
		a.logger.Warn("search unit failed",
			"source", src.String(),
			"term", u.term,
			"error", err)
		a.stats.SearchFailed(src)
		return
	}
	if ctx.Err() != nil {
		a.stats.SearchFailed(src)
		return
	}
	a.stats.SearchSucceeded(src)

	var findings []model.Finding
	for _, hit := range hits {
		findings = append(findings, a.analyzer.Analyze(ean, hit)...)
	}
	if len(findings) > 0 {
		findingsCh <- findings
	}
}
