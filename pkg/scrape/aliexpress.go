package scrape

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/leojay-net/chatshop/pkg/domain"
)

const aliexpressBaseURL = "https://www.aliexpress.com"

// AliExpress renders ratings as a row of progress divs, one per star. A full
// star is width:10px; a single narrower div encodes the fractional star.
const aliexpressFullStarWidth = 10.0

const aliexpressSchemaYAML = `
container: 'div.search-item-card-wrapper-gallery'
fields:
  title:
    css: 'h3.multi--titleText--nXeOvyr'
    type: text
  url:
    css: 'a.multi--container--1UZxxHY'
    type: link
  image:
    css: 'img.images--item--3XZa6xf'
    type: attribute
    attribute: src
  star_divs:
    css: 'div.multi--progress--2E4WzbQ'
    type: html
    multiple: true
  number_of_ratings:
    css: 'span.multi--trade--Ktbl2jB'
    type: text
  price:
    css: 'div.multi--price-sale--U-S0jtj'
    type: text
  original_price:
    css: 'div.multi--price-original--1zEQqOK'
    type: text
  discount:
    css: 'span.multi--discount--1Bn8G39'
    type: text
  shipping:
    css: 'span.multi--price-ship--2ZycSt0'
    type: text
  store_name:
    css: 'a.cards--storeLink--XkKUQFS'
    type: text
`

// NewAliExpress builds the AliExpress search extractor.
func NewAliExpress(fetcher *Fetcher) *SiteExtractor {
	return &SiteExtractor{
		source:  domain.SourceAliExpress,
		schema:  MustParseSchema(aliexpressSchemaYAML),
		fetcher: fetcher,
		headers: DefaultHeaders(),
		searchURL: func(query string, page int) string {
			return fmt.Sprintf("https://www.aliexpress.com/wholesale?SearchText=%s&page=%d", url.QueryEscape(query), page)
		},
		normalize: normalizeAliExpress,
	}
}

func normalizeAliExpress(item Item) domain.Product {
	p := domain.Product{
		Title:       strings.TrimSpace(item.Title),
		URL:         absoluteURL(aliexpressBaseURL, item.URL),
		Image:       absoluteURL(aliexpressBaseURL, item.Image),
		IsSponsored: item.Sponsored == "Sponsored",
		Source:      domain.SourceAliExpress,
	}
	p.Rating = ratingFromStarDivs(item.StarDivs)
	p.NumberOfRatings = parseCount(item.NumberOfRatings)
	p.Price = parsePrice(item.Price)
	p.OriginalPrice = parsePrice(item.OriginalPrice)
	p.ShippingInfo = strings.TrimSpace(item.Shipping)
	return p
}

var starWidthPattern = regexp.MustCompile(`width:([\d.]+)px`)

// ratingFromStarDivs synthesizes a 0-5 rating from star progress fragments:
// each full-width fragment counts 1.0, at most one fragment narrower than a
// full star contributes its proportional fraction, and the sum is rounded to
// one decimal place.
func ratingFromStarDivs(divs []string) *float64 {
	if len(divs) == 0 {
		return nil
	}
	fullStars := 0
	partial := 0.0
	for _, div := range divs {
		if strings.Contains(div, "width:10px") {
			fullStars++
			continue
		}
		if partial > 0 {
			continue
		}
		match := starWidthPattern.FindStringSubmatch(div)
		if match == nil {
			continue
		}
		width, err := strconv.ParseFloat(match[1], 64)
		if err != nil || width <= 0 || width >= aliexpressFullStarWidth {
			continue
		}
		partial = width / aliexpressFullStarWidth
	}
	rating := math.Round((float64(fullStars)+partial)*10) / 10
	return &rating
}
