package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrBlocked indicates the upstream answered with a server-error-class
// status, the signature of a blocked scrape.
var ErrBlocked = errors.New("blocked by upstream")

const defaultFetchTimeout = 20 * time.Second

// Fetcher performs HTTP GETs against marketplace search pages and parses the
// response markup.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher builds a fetcher with the given per-request timeout.
// A zero timeout selects the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get fetches url with the supplied header set (nil selects browser-like
// defaults) and returns the parsed document. A >=500 response maps to
// ErrBlocked; transport failures are returned wrapped.
func (f *Fetcher) Get(ctx context.Context, url string, headers http.Header) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if headers == nil {
		headers = DefaultHeaders()
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// net/http sends req.Host, not the Host header entry.
	if host := headers.Get("Host"); host != "" {
		req.Host = host
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, ErrBlocked)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// DefaultHeaders returns the browser-like header set sent when the caller
// does not supply its own.
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-IN,en-GB;q=0.9,en;q=0.8")
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}
