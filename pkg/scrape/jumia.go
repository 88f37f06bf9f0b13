package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leojay-net/chatshop/pkg/domain"
)

const jumiaBaseURL = "https://www.jumia.com"

const jumiaSchemaYAML = `
container: 'article.prd'
fields:
  title:
    css: 'h3.name'
    type: text
  url:
    css: 'a.core'
    type: link
  image:
    css: 'img.img'
    type: attribute
    attribute: data-src
  rating:
    css: 'div.rev'
    type: text
  price:
    css: 'div.prc'
    type: text
  original_price:
    css: 'div.old'
    type: text
  discount:
    css: 'div.bdg._dsct._sm'
    type: text
  is_sponsored:
    css: 'div.bdg._spns'
    type: text
  shipping:
    css: 'div.shpng'
    type: text
`

// NewJumia builds the Jumia search extractor.
func NewJumia(fetcher *Fetcher) *SiteExtractor {
	return &SiteExtractor{
		source:  domain.SourceJumia,
		schema:  MustParseSchema(jumiaSchemaYAML),
		fetcher: fetcher,
		headers: DefaultHeaders(),
		searchURL: func(query string, page int) string {
			return fmt.Sprintf("https://www.jumia.com.ng/catalog/?q=%s&page=%d", url.QueryEscape(query), page)
		},
		normalize: normalizeJumia,
	}
}

func normalizeJumia(item Item) domain.Product {
	p := domain.Product{
		Title:       strings.TrimSpace(item.Title),
		URL:         absoluteURL(jumiaBaseURL, item.URL),
		Image:       strings.TrimSpace(item.Image),
		IsSponsored: item.Sponsored == "Sponsored",
		Source:      domain.SourceJumia,
	}
	// Review text form: "4.2 out of 5".
	p.Rating = parseLeadingFloat(item.Rating)
	p.NumberOfRatings = parseCount(item.NumberOfRatings)
	p.Price = parsePrice(item.Price)
	p.OriginalPrice = parsePrice(item.OriginalPrice)
	p.ShippingInfo = strings.TrimSpace(item.Shipping)
	return p
}
