package scrape

import (
	"context"
	"net/http"

	"github.com/leojay-net/chatshop/pkg/domain"
)

// SiteExtractor binds one marketplace's selector schema, URL builder, and
// normalizer to a shared fetcher. All marketplaces run through the same
// extraction routine; only this configuration differs.
type SiteExtractor struct {
	source    domain.Source
	schema    Schema
	fetcher   *Fetcher
	headers   http.Header
	searchURL func(query string, page int) string
	normalize func(Item) domain.Product
}

// Source reports which marketplace this extractor queries.
func (e *SiteExtractor) Source() domain.Source {
	return e.source
}

// Fetch retrieves one search-results page and extracts its raw items.
// A nil header set selects the extractor's per-site defaults.
func (e *SiteExtractor) Fetch(ctx context.Context, query string, page int, headers http.Header) ([]Item, error) {
	if page < 1 {
		page = 1
	}
	if headers == nil {
		headers = e.headers
	}
	doc, err := e.fetcher.Get(ctx, e.searchURL(query, page), headers)
	if err != nil {
		return nil, err
	}
	return e.schema.Extract(doc), nil
}

// Normalize converts one raw item into a Product. It never fails: fields
// that do not parse degrade to absent, and only the caller decides whether
// an incomplete record is usable.
func (e *SiteExtractor) Normalize(item Item) domain.Product {
	return e.normalize(item)
}
