package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// defaultOpenFoodFactsBase is the Spanish-language OpenFoodFacts
// instance; product data is shared across instances, only the UI
// language differs.
const defaultOpenFoodFactsBase = "https://es.openfoodfacts.org"

// OpenFoodFacts looks the identifier up in the OpenFoodFacts product
// database. It is the only structured source: one API call, at most one
// metadata-only hit, no page scraping.
type OpenFoodFacts struct {
	client *fetch.Client
	*settings
}

// NewOpenFoodFacts creates the OpenFoodFacts source client.
func NewOpenFoodFacts(client *fetch.Client, opts ...Option) *OpenFoodFacts {
	s := newSettings()
	s.baseURL = defaultOpenFoodFactsBase
	for _, opt := range opts {
		opt(s)
	}
	return &OpenFoodFacts{client: client, settings: s}
}

// Name implements Searcher.
func (o *OpenFoodFacts) Name() model.Source {
	return model.SourceOpenFoodFacts
}

// TermDriven implements Searcher. The lookup is keyed by the identifier
// itself, so generated terms are irrelevant.
func (o *OpenFoodFacts) TermDriven() bool {
	return false
}

// productResponse is the subset of the OpenFoodFacts API response we use.
type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		GenericName string `json:"generic_name"`
		CreatedT    int64  `json:"created_t"`
	} `json:"product"`
}

// Search implements Searcher. A missing product (API status != 1 or
// HTTP 404) is an empty result, not an error.
func (o *OpenFoodFacts) Search(ctx context.Context, ean model.EAN, _ string) ([]model.RawHit, error) {
	apiURL := fmt.Sprintf("%s/api/v0/product/%s.json", o.baseURL, ean)

	body, err := o.client.GetWithHeaders(ctx, apiURL, o.headers)
	if err != nil {
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp productResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		o.recorder.ParseFailed(o.Name())
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if resp.Status != 1 {
		o.logger.Debug("product not in OpenFoodFacts", "ean", ean.String())
		return nil, nil
	}

	title := resp.Product.ProductName
	if title == "" {
		title = resp.Product.GenericName
	}

	dateHint := ""
	if resp.Product.CreatedT > 0 {
		dateHint = time.Unix(resp.Product.CreatedT, 0).UTC().Format("2006-01-02")
	}

	return []model.RawHit{{
		Source:   o.Name(),
		URL:      fmt.Sprintf("%s/product/%s", o.baseURL, ean),
		Title:    title,
		DateHint: dateHint,
	}}, nil
}
