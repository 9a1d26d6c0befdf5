package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

var testEAN = model.MustParseEAN("4006381333931")

// countRecorder counts skip events per source for assertions.
type countRecorder struct {
	mu          sync.Mutex
	fetchFailed map[model.Source]int
	parseFailed map[model.Source]int
}

func newCountRecorder() *countRecorder {
	return &countRecorder{
		fetchFailed: map[model.Source]int{},
		parseFailed: map[model.Source]int{},
	}
}

func (r *countRecorder) FetchFailed(s model.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchFailed[s]++
}

func (r *countRecorder) ParseFailed(s model.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parseFailed[s]++
}

func newFetchClient(t *testing.T) *fetch.Client {
	t.Helper()

	client, err := fetch.NewClient(
		fetch.WithRetries(1),
		fetch.WithBackoff(time.Millisecond),
		fetch.WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestOpenFoodFacts_Search(t *testing.T) {
	t.Parallel()

	t.Run("found product yields one metadata hit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v0/product/4006381333931.json" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, `{"status":1,"product":{"product_name":"Galletas María","generic_name":"Galletas","created_t":1494028800}}`)
		}))
		defer srv.Close()

		off := NewOpenFoodFacts(newFetchClient(t), WithBaseURL(srv.URL))
		hits, err := off.Search(context.Background(), testEAN, "")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search() = %d hits, want 1", len(hits))
		}
		if hits[0].Title != "Galletas María" {
			t.Errorf("Title = %q, want product name", hits[0].Title)
		}
		if hits[0].DateHint != "2017-05-06" {
			t.Errorf("DateHint = %q, want 2017-05-06", hits[0].DateHint)
		}
		if hits[0].Body != "" {
			t.Errorf("Body = %q, want empty for metadata-only hit", hits[0].Body)
		}
		if !strings.HasSuffix(hits[0].URL, "/product/4006381333931") {
			t.Errorf("URL = %q, want product page URL", hits[0].URL)
		}
	})

	t.Run("missing product is a miss, not an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"status":0}`)
		}))
		defer srv.Close()

		hits, err := NewOpenFoodFacts(newFetchClient(t), WithBaseURL(srv.URL)).
			Search(context.Background(), testEAN, "")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() = %d hits, want 0", len(hits))
		}
	})

	t.Run("HTTP 404 is a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		hits, err := NewOpenFoodFacts(newFetchClient(t), WithBaseURL(srv.URL)).
			Search(context.Background(), testEAN, "")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() = %d hits, want 0", len(hits))
		}
	})

	t.Run("malformed JSON records a parse failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html>not json</html>")
		}))
		defer srv.Close()

		recorder := newCountRecorder()
		_, err := NewOpenFoodFacts(newFetchClient(t), WithBaseURL(srv.URL), WithStatsRecorder(recorder)).
			Search(context.Background(), testEAN, "")
		if err == nil {
			t.Fatal("Search() error = nil, want decode error")
		}
		if got := recorder.parseFailed[model.SourceOpenFoodFacts]; got != 1 {
			t.Errorf("parse failures = %d, want 1", got)
		}
	})
}

func TestWayback_Search(t *testing.T) {
	t.Parallel()

	t.Run("fetches each snapshot and skips failures", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/cdx/search/cdx", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `[["urlkey","timestamp","original","mimetype","statuscode","digest","length"],
["com,example)/","20190315000000","https://example.com/p","text/html","200","AAAA","1000"],
["com,example)/","20210601000000","https://example.com/p","text/html","200","BBBB","1000"]]`)
		})
		mux.HandleFunc("/web/", func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "20210601000000") {
				http.Error(w, "gone", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, "<html><body>archived page 4006381333931</body></html>")
		})

		recorder := newCountRecorder()
		wb := NewWayback(newFetchClient(t), WithBaseURL(srv.URL), WithStatsRecorder(recorder))
		hits, err := wb.Search(context.Background(), testEAN, "")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search() = %d hits, want 1", len(hits))
		}
		want := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
		if !hits[0].SnapshotTime.Equal(want) {
			t.Errorf("SnapshotTime = %v, want %v", hits[0].SnapshotTime, want)
		}
		if !strings.Contains(hits[0].Body, "archived page") {
			t.Errorf("Body = %q, want snapshot content", hits[0].Body)
		}
		if got := recorder.fetchFailed[model.SourceWayback]; got != 1 {
			t.Errorf("fetch failures = %d, want 1", got)
		}
	})

	t.Run("empty index is a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `[]`)
		}))
		defer srv.Close()

		hits, err := NewWayback(newFetchClient(t), WithBaseURL(srv.URL)).
			Search(context.Background(), testEAN, "")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() = %d hits, want 0", len(hits))
		}
	})

	t.Run("malformed index records a parse failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "not json at all")
		}))
		defer srv.Close()

		recorder := newCountRecorder()
		_, err := NewWayback(newFetchClient(t), WithBaseURL(srv.URL), WithStatsRecorder(recorder)).
			Search(context.Background(), testEAN, "")
		if err == nil {
			t.Fatal("Search() error = nil, want decode error")
		}
		if got := recorder.parseFailed[model.SourceWayback]; got != 1 {
			t.Errorf("parse failures = %d, want 1", got)
		}
	})
}

func TestGoogle_Search(t *testing.T) {
	t.Parallel()

	t.Run("extracts links and fetches each result", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, `<html><body>
<a href="/url?q=%s/r1&amp;sa=U">Tienda Uno</a>
<a href="https://www.google.com/imghp">internal</a>
<a href="%s/r2">Tienda Dos</a>
</body></html>`, srv.URL, srv.URL)
		})
		mux.HandleFunc("/r1", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html><body>producto 4006381333931 en stock</body></html>")
		})
		mux.HandleFunc("/r2", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		recorder := newCountRecorder()
		g := NewGoogle(newFetchClient(t), WithBaseURL(srv.URL), WithStatsRecorder(recorder))
		hits, err := g.Search(context.Background(), testEAN, `"4006381333931"`)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search() = %d hits, want 1", len(hits))
		}
		if hits[0].Title != "Tienda Uno" {
			t.Errorf("Title = %q, want anchor text", hits[0].Title)
		}
		if hits[0].Term != `"4006381333931"` {
			t.Errorf("Term = %q, want the search term", hits[0].Term)
		}
		if !strings.Contains(hits[0].Body, "en stock") {
			t.Errorf("Body = %q, want result page content", hits[0].Body)
		}
		if got := recorder.fetchFailed[model.SourceGoogle]; got != 1 {
			t.Errorf("fetch failures = %d, want 1", got)
		}
	})

	t.Run("no links is a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html><body>no results</body></html>")
		}))
		defer srv.Close()

		hits, err := NewGoogle(newFetchClient(t), WithBaseURL(srv.URL)).
			Search(context.Background(), testEAN, "term")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Search() = %d hits, want 0", len(hits))
		}
	})

	t.Run("respects the result cap", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html><body>")
			for i := 0; i < 10; i++ {
				fmt.Fprintf(w, `<a href="%s/r%d">Result %d</a>`, srv.URL, i, i)
			}
			fmt.Fprint(w, "</body></html>")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html><body>page</body></html>")
		})

		g := NewGoogle(newFetchClient(t), WithBaseURL(srv.URL), WithMaxResults(3))
		hits, err := g.Search(context.Background(), testEAN, "term")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 3 {
			t.Errorf("Search() = %d hits, want 3 (capped)", len(hits))
		}
	})
}

func TestAmazon_Search(t *testing.T) {
	t.Parallel()

	t.Run("returns the results page as one hit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/s" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, `<html><head><title>Amazon.com : 4006381333931</title></head><body>resultados 4006381333931 in stock</body></html>`)
		}))
		defer srv.Close()

		a := NewAmazon(newFetchClient(t), WithBaseURL(srv.URL))
		hits, err := a.Search(context.Background(), testEAN, "4006381333931")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search() = %d hits, want 1", len(hits))
		}
		if hits[0].Title != "Amazon.com : 4006381333931" {
			t.Errorf("Title = %q, want page title", hits[0].Title)
		}
		if hits[0].Source != model.SourceAmazon {
			t.Errorf("Source = %v, want amazon", hits[0].Source)
		}
	})

	t.Run("failed page is a unit error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "captcha", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewAmazon(newFetchClient(t), WithBaseURL(srv.URL)).
			Search(context.Background(), testEAN, "4006381333931")
		if err == nil {
			t.Error("Search() error = nil, want fetch error")
		}
	})
}

func TestAll(t *testing.T) {
	t.Parallel()

	sources := All(newFetchClient(t))
	if len(sources) != 4 {
		t.Fatalf("All() = %d sources, want 4", len(sources))
	}

	seen := map[model.Source]bool{}
	for _, s := range sources {
		seen[s.Name()] = true
	}
	for _, want := range model.Sources() {
		if !seen[want] {
			t.Errorf("All() missing source %v", want)
		}
	}
}

func TestAllWith(t *testing.T) {
	t.Parallel()

	shared := []Option{WithMaxResults(7)}
	perSource := func(name model.Source) []Option {
		if name != model.SourceGoogle {
			return nil
		}
		return []Option{
			WithMaxResults(3),
			WithHeaders(map[string]string{"Accept-Language": "es-ES"}),
		}
	}

	sources := AllWith(newFetchClient(t), shared, perSource)
	if len(sources) != 4 {
		t.Fatalf("AllWith() = %d sources, want 4", len(sources))
	}

	for _, s := range sources {
		switch src := s.(type) {
		case *Google:
			if src.maxResults != 3 {
				t.Errorf("google maxResults = %d, want per-source override 3", src.maxResults)
			}
			if src.headers["Accept-Language"] != "es-ES" {
				t.Errorf("google headers = %v, want Accept-Language", src.headers)
			}
		case *Amazon:
			if src.maxResults != 7 {
				t.Errorf("amazon maxResults = %d, want shared 7", src.maxResults)
			}
			if len(src.headers) != 0 {
				t.Errorf("amazon headers = %v, want none", src.headers)
			}
		}
	}
}
