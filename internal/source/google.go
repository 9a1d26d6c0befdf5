package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// defaultGoogleBase is the search engine endpoint.
const defaultGoogleBase = "https://www.google.com"

// Google runs one web search per generated term and eagerly fetches
// every result document.
//
// Design decision: result pages are fetched eagerly inside the search
// unit instead of queued for later. A dead result URL then costs one
// recorded skip instead of failing a whole downstream stage, and the
// unit returns fully analyzed-ready bodies.
type Google struct {
	client *fetch.Client
	*settings
}

// NewGoogle creates the search engine source client.
func NewGoogle(client *fetch.Client, opts ...Option) *Google {
	s := newSettings()
	s.baseURL = defaultGoogleBase
	for _, opt := range opts {
		opt(s)
	}
	return &Google{client: client, settings: s}
}

// Name implements Searcher.
func (g *Google) Name() model.Source {
	return model.SourceGoogle
}

// TermDriven implements Searcher.
func (g *Google) TermDriven() bool {
	return true
}

// Search implements Searcher. It fetches the results page for the term,
// extracts up to MaxResults outbound links, and fetches each linked
// document. Individual fetch failures are recorded and skipped; zero
// extracted links is a miss, not a failure.
func (g *Google) Search(ctx context.Context, _ model.EAN, term string) ([]model.RawHit, error) {
	searchURL := fmt.Sprintf("%s/search?hl=%s&q=%s&num=%d",
		g.baseURL, url.QueryEscape(g.language), url.QueryEscape(term), g.maxResults)

	page, err := g.client.GetWithHeaders(ctx, searchURL, g.headers)
	if err != nil {
		return nil, err
	}

	results := extractResults(page, g.maxResults)
	hits := make([]model.RawHit, 0, len(results))
	for _, result := range results {
		body, err := g.client.GetWithHeaders(ctx, result.link, g.headers)
		if err != nil {
			g.logger.Debug("result fetch failed", "url", result.link, "error", err)
			g.recorder.FetchFailed(g.Name())
			continue
		}
		hits = append(hits, model.RawHit{
			Source: g.Name(),
			URL:    result.link,
			Title:  result.title,
			Body:   body,
			Term:   term,
		})
	}
	return hits, nil
}

// searchResult is one outbound link extracted from a results page.
type searchResult struct {
	link  string
	title string
}

// extractResults pulls outbound result links from a search results
// page. Redirect-style hrefs ("/url?q=target") are unwrapped; links
// back into the search engine itself are dropped; duplicates collapse
// to the first occurrence.
func extractResults(page string, limit int) []searchResult {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var results []searchResult
	seen := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if link := resultLink(n); link != "" && !seen[link] {
				seen[link] = true
				results = append(results, searchResult{link: link, title: anchorText(n)})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

// resultLink returns the outbound target of an anchor, or empty string
// if the anchor does not point at an external result.
func resultLink(n *html.Node) string {
	href := ""
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}
	if href == "" {
		return ""
	}

	// Redirect-style result links: /url?q=https://target&sa=...
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("q")
	}

	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	if strings.Contains(u.Host, "google") {
		return ""
	}
	return href
}

// anchorText returns the concatenated text content of an anchor.
func anchorText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
