package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leojay-net/chatshop/pkg/domain"
)

const amazonBaseURL = "https://www.amazon.in"

const amazonSchemaYAML = `
container: 'div[data-component-type="s-search-result"]'
fields:
  title:
    css: 'h2 a.a-link-normal.a-text-normal'
    type: text
  url:
    css: 'h2 a.a-link-normal.a-text-normal'
    type: link
  image:
    css: 'img.s-image'
    type: attribute
    attribute: src
  rating:
    css: 'div.a-row.a-size-small span:nth-of-type(1)'
    type: attribute
    attribute: aria-label
  number_of_ratings:
    css: 'div.a-row.a-size-small span:nth-of-type(2)'
    type: attribute
    attribute: aria-label
  price:
    css: 'span.a-price:nth-of-type(1) span.a-offscreen'
    type: text
  original_price:
    css: 'span.a-price.a-text-price span.a-offscreen'
    type: text
  discount:
    css: 'span.a-price ~ span.a-letter-space + span'
    type: text
  is_sponsored:
    css: 'span.s-label-popover-default'
    type: text
  shipping:
    css: 'div.a-row.a-size-base.a-color-secondary.s-align-children-center > span.a-color-base'
    type: text
`

// NewAmazon builds the Amazon search extractor.
func NewAmazon(fetcher *Fetcher) *SiteExtractor {
	headers := DefaultHeaders()
	headers.Set("Host", "www.amazon.com")
	return &SiteExtractor{
		source:  domain.SourceAmazon,
		schema:  MustParseSchema(amazonSchemaYAML),
		fetcher: fetcher,
		headers: headers,
		searchURL: func(query string, page int) string {
			return fmt.Sprintf("https://www.amazon.com/s?k=%s&page=%d&currency=NGN", url.QueryEscape(query), page)
		},
		normalize: normalizeAmazon,
	}
}

func normalizeAmazon(item Item) domain.Product {
	p := domain.Product{
		Title:       strings.TrimSpace(item.Title),
		URL:         absoluteURL(amazonBaseURL, item.URL),
		Image:       strings.TrimSpace(item.Image),
		IsSponsored: item.Sponsored == "Sponsored",
		Source:      domain.SourceAmazon,
	}
	// aria-label form: "4.5 out of 5 stars".
	if rating := strings.TrimSpace(strings.Replace(item.Rating, "out of 5 stars", "", 1)); rating != "" {
		p.Rating = parseLeadingFloat(rating)
	}
	p.NumberOfRatings = parseCount(item.NumberOfRatings)
	p.Price = parsePrice(item.Price)
	p.OriginalPrice = parsePrice(item.OriginalPrice)
	p.ShippingInfo = strings.TrimSpace(item.Shipping)
	return p
}
