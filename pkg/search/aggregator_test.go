package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/leojay-net/chatshop/pkg/domain"
	"github.com/leojay-net/chatshop/pkg/scrape"
)

// fakeExtractor serves canned items per page and fails designated pages.
type fakeExtractor struct {
	source    domain.Source
	perPage   int
	failPages map[int]error
	delay     time.Duration
}

func (f *fakeExtractor) Source() domain.Source { return f.source }

func (f *fakeExtractor) Fetch(ctx context.Context, query string, page int, _ http.Header) ([]scrape.Item, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err, ok := f.failPages[page]; ok {
		return nil, err
	}
	items := make([]scrape.Item, 0, f.perPage)
	for i := 0; i < f.perPage; i++ {
		items = append(items, scrape.Item{
			Title: fmt.Sprintf("%s-%s-p%d-%d", f.source, query, page, i),
			URL:   "https://example.com/item",
			Price: "10",
		})
	}
	return items, nil
}

func (f *fakeExtractor) Normalize(item scrape.Item) domain.Product {
	price := 10.0
	return domain.Product{Title: item.Title, URL: item.URL, Price: &price, Source: f.source}
}

func TestAggregatorPartialFailureIsolation(t *testing.T) {
	blocked := fmt.Errorf("status 503: %w", scrape.ErrBlocked)
	a := NewAggregator([]Extractor{
		&fakeExtractor{source: domain.SourceAmazon, perPage: 2},
		&fakeExtractor{source: domain.SourceAliExpress, perPage: 2, failPages: map[int]error{2: blocked}},
		&fakeExtractor{source: domain.SourceJumia, perPage: 2},
	}, Options{Delay: time.Millisecond})

	products, failures := a.Search(context.Background(), "laptop", 2)

	// 3 sources x 2 pages x 2 items, minus the one failed page.
	if len(products) != 10 {
		t.Fatalf("products = %d, want 10", len(products))
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want exactly 1", len(failures))
	}
	f := failures[0]
	if f.Source != domain.SourceAliExpress || f.Page != 2 {
		t.Fatalf("failure = %s page %d, want Aliexpress page 2", f.Source, f.Page)
	}
	if !errors.Is(f.Err, scrape.ErrBlocked) {
		t.Fatalf("failure error = %v, want ErrBlocked", f.Err)
	}
}

func TestAggregatorPreservesFetchOrder(t *testing.T) {
	a := NewAggregator([]Extractor{
		&fakeExtractor{source: domain.SourceAmazon, perPage: 1},
		&fakeExtractor{source: domain.SourceJumia, perPage: 1},
	}, Options{Delay: time.Millisecond})

	products, failures := a.Search(context.Background(), "q", 2)
	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	want := []string{"Amazon-q-p1-0", "Amazon-q-p2-0", "Jumia-q-p1-0", "Jumia-q-p2-0"}
	for i, title := range want {
		if products[i].Title != title {
			t.Fatalf("position %d = %s, want %s", i, products[i].Title, title)
		}
	}
}

func TestAggregatorConcurrentOrderIndependent(t *testing.T) {
	// The slow first source must not push its results behind faster ones.
	a := NewAggregator([]Extractor{
		&fakeExtractor{source: domain.SourceAmazon, perPage: 1, delay: 30 * time.Millisecond},
		&fakeExtractor{source: domain.SourceJumia, perPage: 1},
	}, Options{Concurrency: 4})

	products, failures := a.Search(context.Background(), "q", 1)
	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	want := []string{"Amazon-q-p1-0", "Jumia-q-p1-0"}
	for i, title := range want {
		if products[i].Title != title {
			t.Fatalf("position %d = %s, want %s", i, products[i].Title, title)
		}
	}
}

func TestAggregatorConcurrentFailureIsolation(t *testing.T) {
	a := NewAggregator([]Extractor{
		&fakeExtractor{source: domain.SourceAmazon, perPage: 1, failPages: map[int]error{1: errors.New("boom")}},
		&fakeExtractor{source: domain.SourceJumia, perPage: 1},
	}, Options{Concurrency: 2})

	products, failures := a.Search(context.Background(), "q", 1)
	if len(products) != 1 || products[0].Source != domain.SourceJumia {
		t.Fatalf("products = %+v, want only Jumia", products)
	}
	if len(failures) != 1 || failures[0].Source != domain.SourceAmazon {
		t.Fatalf("failures = %+v, want Amazon page 1", failures)
	}
}
