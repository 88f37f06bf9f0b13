// Package search fans product queries out across marketplace extractors and
// ranks the merged results.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leojay-net/chatshop/pkg/domain"
	"github.com/leojay-net/chatshop/pkg/scrape"
)

// Extractor is the per-marketplace contract the aggregator consumes.
// *scrape.SiteExtractor satisfies it.
type Extractor interface {
	Source() domain.Source
	Fetch(ctx context.Context, query string, page int, headers http.Header) ([]scrape.Item, error)
	Normalize(item scrape.Item) domain.Product
}

// Failure records one (source, page) pair that could not be fetched. The
// aggregator surfaces these for observability; they never abort a search.
type Failure struct {
	Source domain.Source `json:"source"`
	Page   int           `json:"page"`
	Err    error         `json:"-"`
}

// Error renders the failure for logs and JSON payloads.
func (f Failure) Error() string {
	return fmt.Sprintf("%s page %d: %v", f.Source, f.Page, f.Err)
}

const (
	defaultPagesPerSource = 3
	defaultFetchDelay     = 2 * time.Second
)

// Options tune aggregation behavior.
type Options struct {
	// Delay paces successive fetches in sequential mode to reduce the
	// chance of upstream blocking. Zero selects the default.
	Delay time.Duration
	// Concurrency above 1 fetches (source, page) pairs in parallel with a
	// bounded group instead of pacing sequentially. Output order is
	// unaffected.
	Concurrency int
}

// Aggregator runs one query across every configured extractor and page.
type Aggregator struct {
	extractors  []Extractor
	delay       time.Duration
	concurrency int
}

// NewAggregator builds an aggregator over the given extractors.
func NewAggregator(extractors []Extractor, opts Options) *Aggregator {
	delay := opts.Delay
	if delay <= 0 {
		delay = defaultFetchDelay
	}
	return &Aggregator{
		extractors:  extractors,
		delay:       delay,
		concurrency: opts.Concurrency,
	}
}

type pair struct {
	extractor Extractor
	page      int
}

// Search fetches up to pages result pages from each source and returns every
// successfully normalized product in (source, page) order, plus a record per
// failed pair. A failing pair never aborts the rest of the matrix.
func (a *Aggregator) Search(ctx context.Context, query string, pages int) ([]domain.Product, []Failure) {
	if pages < 1 {
		pages = defaultPagesPerSource
	}
	matrix := make([]pair, 0, len(a.extractors)*pages)
	for _, extractor := range a.extractors {
		for page := 1; page <= pages; page++ {
			matrix = append(matrix, pair{extractor: extractor, page: page})
		}
	}

	results := make([][]domain.Product, len(matrix))
	errs := make([]error, len(matrix))
	if a.concurrency > 1 {
		a.searchConcurrent(ctx, query, matrix, results, errs)
	} else {
		a.searchSequential(ctx, query, matrix, results, errs)
	}

	var products []domain.Product
	var failures []Failure
	for i, p := range matrix {
		if errs[i] != nil {
			failures = append(failures, Failure{Source: p.extractor.Source(), Page: p.page, Err: errs[i]})
			continue
		}
		products = append(products, results[i]...)
	}
	return products, failures
}

func (a *Aggregator) searchSequential(ctx context.Context, query string, matrix []pair, results [][]domain.Product, errs []error) {
	for i, p := range matrix {
		if i > 0 {
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				continue
			case <-time.After(a.delay):
			}
		}
		results[i], errs[i] = a.fetchPair(ctx, query, p)
	}
}

func (a *Aggregator) searchConcurrent(ctx context.Context, query string, matrix []pair, results [][]domain.Product, errs []error) {
	g := &errgroup.Group{}
	g.SetLimit(a.concurrency)
	for i, p := range matrix {
		i, p := i, p
		g.Go(func() error {
			results[i], errs[i] = a.fetchPair(ctx, query, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) fetchPair(ctx context.Context, query string, p pair) ([]domain.Product, error) {
	items, err := p.extractor.Fetch(ctx, query, p.page, nil)
	if err != nil {
		slog.Warn("search page failed",
			"source", p.extractor.Source(),
			"page", p.page,
			"err", err,
		)
		return nil, err
	}
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		products = append(products, p.extractor.Normalize(item))
	}
	return products, nil
}
