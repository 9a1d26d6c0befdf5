package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvalverde/eanscan/internal/model"
	"github.com/mvalverde/eanscan/internal/source"
)

var testEAN = model.MustParseEAN("4006381333931")

// mockSource is a deterministic Searcher for orchestration tests.
type mockSource struct {
	name       model.Source
	termDriven bool
	search     func(ctx context.Context, ean model.EAN, term string) ([]model.RawHit, error)
}

func (m *mockSource) Name() model.Source { return m.name }
func (m *mockSource) TermDriven() bool   { return m.termDriven }
func (m *mockSource) Search(ctx context.Context, ean model.EAN, term string) ([]model.RawHit, error) {
	return m.search(ctx, ean, term)
}

var _ source.Searcher = (*mockSource)(nil)

func TestAggregator_Scan(t *testing.T) {
	t.Parallel()

	t.Run("golden run with four sources", func(t *testing.T) {
		t.Parallel()

		firstTerm := `"4006381333931"`

		google := &mockSource{
			name:       model.SourceGoogle,
			termDriven: true,
			search: func(_ context.Context, _ model.EAN, term string) ([]model.RawHit, error) {
				if term != firstTerm {
					return nil, nil
				}
				return []model.RawHit{{
					Source: model.SourceGoogle,
					URL:    "https://tienda.example.com/p/1",
					Body:   "producto con EAN 4006381333931 descatalogado por el fabricante",
					Term:   term,
				}}, nil
			},
		}
		amazon := &mockSource{
			name:       model.SourceAmazon,
			termDriven: true,
			search: func(_ context.Context, _ model.EAN, term string) ([]model.RawHit, error) {
				if term != firstTerm {
					return nil, nil
				}
				return []model.RawHit{{
					Source: model.SourceAmazon,
					URL:    "https://marketplace.example.com/s?k=4006381333931",
					Body:   "resultados para 4006381333931 disponibles ahora, add to cart aquí",
					Term:   term,
				}}, nil
			},
		}
		wayback := &mockSource{
			name: model.SourceWayback,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return []model.RawHit{{
					Source:       model.SourceWayback,
					URL:          "https://archive.example.org/web/2019/page",
					Body:         "listado antiguo: referencia 4006381333931 junto a otras",
					SnapshotTime: time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC),
				}}, nil
			},
		}
		off := &mockSource{
			name: model.SourceOpenFoodFacts,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return []model.RawHit{{
					Source:   model.SourceOpenFoodFacts,
					URL:      "https://products.example.org/4006381333931",
					Title:    "Galletas María",
					DateHint: "2017-05-06",
				}}, nil
			},
		}

		agg := New(
			WithSources([]source.Searcher{google, wayback, amazon, off}),
			WithLanguage("es"),
			WithConcurrency(4),
		)
		report := agg.Scan(context.Background(), testEAN)

		if got := report.HistoricalCount(); got != 1 {
			t.Errorf("historical count = %d, want 1", got)
		}
		if got := report.CurrentCount(); got != 1 {
			t.Errorf("current count = %d, want 1", got)
		}
		if got := report.IndeterminateCount(); got != 2 {
			t.Errorf("indeterminate count = %d, want 2", got)
		}

		termCount := len(report.Terms)
		if termCount == 0 {
			t.Fatal("report has no terms")
		}
		gs := report.Stats["google"]
		if gs == nil || gs.SearchesAttempted != termCount || gs.SearchesSucceeded != termCount {
			t.Errorf("google stats = %+v, want %d attempted and succeeded", gs, termCount)
		}
		ws := report.Stats["wayback"]
		if ws == nil || ws.SearchesAttempted != 1 {
			t.Errorf("wayback stats = %+v, want 1 attempted", ws)
		}
		if report.TimedOut {
			t.Error("TimedOut = true, want false")
		}
		if report.Elapsed <= 0 {
			t.Error("Elapsed not recorded")
		}
	})

	t.Run("same source and URL dedups to one finding", func(t *testing.T) {
		t.Parallel()

		repeat := &mockSource{
			name:       model.SourceGoogle,
			termDriven: true,
			search: func(_ context.Context, _ model.EAN, term string) ([]model.RawHit, error) {
				return []model.RawHit{{
					Source: model.SourceGoogle,
					URL:    "https://tienda.example.com/p/1",
					Body:   "EAN 4006381333931 descatalogado",
					Term:   term,
				}}, nil
			},
		}

		agg := New(WithSources([]source.Searcher{repeat}), WithConcurrency(2))
		report := agg.Scan(context.Background(), testEAN)

		if got := report.TotalFindings(); got != 1 {
			t.Errorf("total findings = %d, want 1 after dedup", got)
		}
		stats := report.Stats["google"]
		wantDups := len(report.Terms) - 1
		if stats.Duplicates != wantDups {
			t.Errorf("duplicates = %d, want %d", stats.Duplicates, wantDups)
		}
		if stats.Findings != 1 {
			t.Errorf("retained findings = %d, want 1", stats.Findings)
		}
	})

	t.Run("near-identical contexts from different URLs dedup", func(t *testing.T) {
		t.Parallel()

		body := "producto 4006381333931 descatalogado por el fabricante hace tiempo según la tienda"
		twoURLs := &mockSource{
			name: model.SourceWayback,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return []model.RawHit{
					{Source: model.SourceWayback, URL: "https://a.example.com/1", Body: body},
					{Source: model.SourceWayback, URL: "https://b.example.com/2", Body: body + " extra"},
				}, nil
			},
		}

		report := New(WithSources([]source.Searcher{twoURLs})).Scan(context.Background(), testEAN)

		if got := report.TotalFindings(); got != 1 {
			t.Errorf("total findings = %d, want 1 after overlap dedup", got)
		}
		if got := report.Stats["wayback"].Duplicates; got != 1 {
			t.Errorf("duplicates = %d, want 1", got)
		}
	})

	t.Run("failing source never aborts the scan", func(t *testing.T) {
		t.Parallel()

		broken := &mockSource{
			name: model.SourceWayback,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return nil, errors.New("index unreachable")
			},
		}
		healthy := &mockSource{
			name: model.SourceOpenFoodFacts,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return []model.RawHit{{
					Source: model.SourceOpenFoodFacts,
					URL:    "https://products.example.org/4006381333931",
					Title:  "Galletas María",
				}}, nil
			},
		}

		report := New(WithSources([]source.Searcher{broken, healthy})).Scan(context.Background(), testEAN)

		if got := report.Stats["wayback"].SearchesFailed; got != 1 {
			t.Errorf("wayback failed searches = %d, want 1", got)
		}
		if got := report.Stats["openfoodfacts"].Findings; got != 1 {
			t.Errorf("openfoodfacts findings = %d, want 1", got)
		}
		if report.TotalFindings() != 1 {
			t.Errorf("total findings = %d, want 1", report.TotalFindings())
		}
	})

	t.Run("global timeout marks the report and discards stragglers", func(t *testing.T) {
		t.Parallel()

		slow := &mockSource{
			name: model.SourceWayback,
			search: func(ctx context.Context, _ model.EAN, _ string) ([]model.RawHit, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}

		agg := New(
			WithSources([]source.Searcher{slow}),
			WithGlobalTimeout(30*time.Millisecond),
		)
		report := agg.Scan(context.Background(), testEAN)

		if !report.TimedOut {
			t.Error("TimedOut = false, want true")
		}
		if report.TotalFindings() != 0 {
			t.Errorf("total findings = %d, want 0", report.TotalFindings())
		}
	})

	t.Run("consecutive scans do not leak stats", func(t *testing.T) {
		t.Parallel()

		src := &mockSource{
			name: model.SourceOpenFoodFacts,
			search: func(context.Context, model.EAN, string) ([]model.RawHit, error) {
				return nil, nil
			},
		}

		agg := New(WithSources([]source.Searcher{src}))
		_ = agg.Scan(context.Background(), testEAN)
		report := agg.Scan(context.Background(), testEAN)

		if got := report.Stats["openfoodfacts"].SearchesAttempted; got != 1 {
			t.Errorf("attempted = %d after second scan, want 1", got)
		}
	})
}
