package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"

	"github.com/mvalverde/eanscan/internal/config"
)

// defaultBackoff is the initial delay before the first retry.
// Each subsequent retry doubles it.
const defaultBackoff = 500 * time.Millisecond

// Client is the shared HTTP client for all evidence sources.
// Each request picks the next User-Agent and the next proxy from their
// pools round-robin, so repeated queries do not present a single
// fingerprint to the queried services.
//
// Design decision: one Client is shared by every source rather than one
// per source. Rotation only spreads requests across identities if all
// traffic goes through the same counters, and a shared connection pool
// avoids redundant TLS handshakes to the same hosts.
type Client struct {
	// clients holds one *http.Client per proxy, in pool order.
	// With no proxies configured it holds a single direct client.
	clients []*http.Client

	// userAgents is the User-Agent rotation pool. Never empty.
	userAgents []string

	// uaCounter and proxyCounter drive round-robin selection.
	// They advance independently so the UA/proxy pairing shifts over time.
	uaCounter    atomic.Uint64
	proxyCounter atomic.Uint64

	// retries is the number of attempts per request.
	retries int

	// backoff is the delay before the first retry, doubled each retry.
	backoff time.Duration

	// maxBodySize caps how many bytes of a response body are read.
	maxBodySize int64

	// logger receives debug records for each attempt.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	userAgents  []string
	proxies     []string
	timeout     time.Duration
	retries     int
	backoff     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// WithUserAgents replaces the default User-Agent pool.
// An empty slice keeps the default.
func WithUserAgents(agents []string) Option {
	return func(o *options) {
		if len(agents) > 0 {
			o.userAgents = agents
		}
	}
}

// WithProxies sets the proxy rotation pool. Each entry is a URL with
// an http, https, or socks5 scheme. An empty slice means direct
// connections.
func WithProxies(proxies []string) Option {
	return func(o *options) {
		o.proxies = proxies
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithRetries sets the number of attempts per request.
func WithRetries(retries int) Option {
	return func(o *options) {
		if retries > 0 {
			o.retries = retries
		}
	}
}

// WithBackoff sets the delay before the first retry.
// Mainly useful to keep tests fast.
func WithBackoff(backoff time.Duration) Option {
	return func(o *options) {
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// WithMaxBodySize caps how many bytes of a response body are read.
// Larger responses are truncated, not failed.
func WithMaxBodySize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.maxBodySize = size
		}
	}
}

// WithLogger sets the logger for per-attempt debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewClient creates a Client with the given options.
// It returns an error if a proxy URL cannot be parsed or uses an
// unsupported scheme. The proxies are not contacted here; a dead proxy
// surfaces as fetch failures at request time.
func NewClient(opts ...Option) (*Client, error) {
	o := &options{
		userAgents:  config.DefaultUserAgents,
		timeout:     config.DefaultTimeout,
		retries:     config.DefaultRetries,
		backoff:     defaultBackoff,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		userAgents:  o.userAgents,
		retries:     o.retries,
		backoff:     o.backoff,
		maxBodySize: o.maxBodySize,
		logger:      o.logger,
	}

	if len(o.proxies) == 0 {
		c.clients = []*http.Client{newHTTPClient(nil, o.timeout)}
		return c, nil
	}

	for _, raw := range o.proxies {
		transport, err := newProxyTransport(raw)
		if err != nil {
			return nil, err
		}
		c.clients = append(c.clients, newHTTPClient(transport, o.timeout))
	}
	return c, nil
}

// newHTTPClient builds an HTTP client with the shared transport settings.
func newHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		// Limit redirects to prevent loops
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// newProxyTransport builds a transport that routes through the given
// proxy URL. http and https proxies use the standard CONNECT mechanism;
// socks5 proxies dial through a SOCKS5 dialer.
func newProxyTransport(raw string) (http.RoundTripper, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "http", "https":
		return &http.Transport{
			Proxy:               http.ProxyURL(u),
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		}, nil
	case "socks5":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer for %q: %w", raw, err)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, u.Scheme)
	}
}

// Get fetches a URL and returns the response body as a string.
// See GetWithHeaders for the retry and rotation behavior.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	return c.GetWithHeaders(ctx, rawURL, nil)
}

// GetWithHeaders fetches a URL with extra request headers.
//
// Each attempt uses the next User-Agent and proxy from the pools.
// Network errors and 5xx responses are retried with doubling backoff;
// 4xx responses fail immediately because repeating the same rejected
// request cannot succeed. The returned error is always a *Error.
func (c *Client) GetWithHeaders(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	var lastErr error
	lastStatus := 0
	backoff := c.backoff

	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &Error{URL: rawURL, StatusCode: lastStatus, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, status, err := c.do(ctx, rawURL, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		lastStatus = status

		c.logger.Debug("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt+1,
			"status", status,
			"error", err)

		// 4xx means the request itself was rejected. Retrying cannot help.
		if status >= 400 && status < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return "", &Error{URL: rawURL, StatusCode: lastStatus, Err: lastErr}
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, rawURL string, headers map[string]string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}

	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.nextClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 1024)
		return "", resp.StatusCode, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// nextUserAgent returns the next User-Agent from the pool.
// The first request always gets the first pool entry, which keeps
// rotation deterministic and testable.
func (c *Client) nextUserAgent() string {
	idx := (c.uaCounter.Add(1) - 1) % uint64(len(c.userAgents))
	return c.userAgents[idx]
}

// nextClient returns the next proxy-backed client from the pool.
func (c *Client) nextClient() *http.Client {
	idx := (c.proxyCounter.Add(1) - 1) % uint64(len(c.clients))
	return c.clients[idx]
}

// UserAgents returns the configured User-Agent pool.
func (c *Client) UserAgents() []string {
	return c.userAgents
}

// ProxyCount returns the number of proxy-backed clients in the pool.
// 1 with no proxies configured (the direct client).
func (c *Client) ProxyCount() int {
	return len(c.clients)
}
