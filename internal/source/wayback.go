package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// defaultWaybackBase serves both the CDX index and the snapshot replays.
const defaultWaybackBase = "https://web.archive.org"

// cdxTimestampLayout is the timestamp format used by the CDX index.
const cdxTimestampLayout = "20060102150405"

// Wayback queries the Internet Archive CDX index for snapshots of the
// identifier's search results page and fetches each snapshot body.
// Snapshots are the only evidence that predates the current web, which
// is exactly what the historical bucket needs.
type Wayback struct {
	client *fetch.Client
	*settings
}

// NewWayback creates the Wayback source client.
func NewWayback(client *fetch.Client, opts ...Option) *Wayback {
	s := newSettings()
	s.baseURL = defaultWaybackBase
	for _, opt := range opts {
		opt(s)
	}
	return &Wayback{client: client, settings: s}
}

// Name implements Searcher.
func (w *Wayback) Name() model.Source {
	return model.SourceWayback
}

// TermDriven implements Searcher. The index is queried once per scan
// with the identifier itself.
func (w *Wayback) TermDriven() bool {
	return false
}

// Search implements Searcher. It lists snapshots via the CDX API,
// capped by MaxSnapshots and collapsed by content digest so identical
// captures count once, then fetches each snapshot. A snapshot that
// fails to fetch is recorded and skipped; an empty index is a miss.
func (w *Wayback) Search(ctx context.Context, ean model.EAN, _ string) ([]model.RawHit, error) {
	target := "https://www.google.com/search?q=" + ean.String()
	cdxURL := fmt.Sprintf("%s/cdx/search/cdx?url=%s&output=json&filter=statuscode:200&collapse=digest&limit=%d",
		w.baseURL, url.QueryEscape(target), w.maxSnapshots)

	body, err := w.client.GetWithHeaders(ctx, cdxURL, w.headers)
	if err != nil {
		return nil, err
	}

	rows, err := parseCDX(body)
	if err != nil {
		w.recorder.ParseFailed(w.Name())
		return nil, fmt.Errorf("decode CDX response: %w", err)
	}

	hits := make([]model.RawHit, 0, len(rows))
	for _, row := range rows {
		snapshotURL := fmt.Sprintf("%s/web/%s/%s", w.baseURL, row.timestamp, row.original)

		snapshotTime, err := time.Parse(cdxTimestampLayout, row.timestamp)
		if err != nil {
			w.recorder.ParseFailed(w.Name())
			continue
		}

		snapshotBody, err := w.client.GetWithHeaders(ctx, snapshotURL, w.headers)
		if err != nil {
			w.logger.Debug("snapshot fetch failed", "url", snapshotURL, "error", err)
			w.recorder.FetchFailed(w.Name())
			continue
		}

		hits = append(hits, model.RawHit{
			Source:       w.Name(),
			URL:          snapshotURL,
			Body:         snapshotBody,
			SnapshotTime: snapshotTime.UTC(),
		})
	}
	return hits, nil
}

// cdxRow is one snapshot entry from the CDX index.
type cdxRow struct {
	timestamp string
	original  string
}

// parseCDX decodes the CDX JSON format: an array of string arrays where
// the first array names the columns.
func parseCDX(body string) ([]cdxRow, error) {
	var raw [][]string
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, nil
	}

	tsCol, origCol := -1, -1
	for i, name := range raw[0] {
		switch name {
		case "timestamp":
			tsCol = i
		case "original":
			origCol = i
		}
	}
	if tsCol < 0 || origCol < 0 {
		return nil, fmt.Errorf("CDX header missing timestamp/original columns")
	}

	rows := make([]cdxRow, 0, len(raw)-1)
	for _, record := range raw[1:] {
		if len(record) <= tsCol || len(record) <= origCol {
			continue
		}
		rows = append(rows, cdxRow{timestamp: record[tsCol], original: record[origCol]})
	}
	return rows, nil
}
