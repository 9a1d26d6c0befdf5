package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mvalverde/eanscan/internal/analyzer"
	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// defaultAmazonBase is the marketplace endpoint.
const defaultAmazonBase = "https://www.amazon.com"

// Amazon fetches the marketplace search results page for each term and
// treats it as a single document. No product pages are scraped; the
// results page alone shows whether the marketplace still lists the
// identifier.
type Amazon struct {
	client *fetch.Client
	*settings
}

// NewAmazon creates the marketplace source client.
func NewAmazon(client *fetch.Client, opts ...Option) *Amazon {
	s := newSettings()
	s.baseURL = defaultAmazonBase
	for _, opt := range opts {
		opt(s)
	}
	return &Amazon{client: client, settings: s}
}

// Name implements Searcher.
func (a *Amazon) Name() model.Source {
	return model.SourceAmazon
}

// TermDriven implements Searcher.
func (a *Amazon) TermDriven() bool {
	return true
}

// Search implements Searcher. One fetch, at most one hit. A 404 or an
// empty page is a miss.
func (a *Amazon) Search(ctx context.Context, _ model.EAN, term string) ([]model.RawHit, error) {
	searchURL := fmt.Sprintf("%s/s?k=%s", a.baseURL, url.QueryEscape(term))

	body, err := a.client.GetWithHeaders(ctx, searchURL, a.headers)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, nil
	}

	return []model.RawHit{{
		Source: a.Name(),
		URL:    searchURL,
		Title:  analyzer.ExtractTitle(body),
		Body:   body,
		Term:   term,
	}}, nil
}
