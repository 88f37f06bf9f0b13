// Package scrape fetches marketplace search pages and extracts raw product
// fields through declarative selector schemas. Selectors are data, not code:
// supporting a new marketplace means writing a schema and a normalizer, never
// new extraction control flow.
package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// FieldType tells the extractor what to pull out of a matched element.
type FieldType string

const (
	// TypeText extracts the trimmed text content.
	TypeText FieldType = "text"
	// TypeLink extracts the href attribute.
	TypeLink FieldType = "link"
	// TypeAttribute extracts a named attribute.
	TypeAttribute FieldType = "attribute"
	// TypeHTML extracts the raw markup of each match.
	TypeHTML FieldType = "html"
)

// FieldSpec describes how one named field is pulled out of an item block.
type FieldSpec struct {
	CSS       string    `yaml:"css"`
	Type      FieldType `yaml:"type"`
	Attribute string    `yaml:"attribute,omitempty"`
	Multiple  bool      `yaml:"multiple,omitempty"`
}

// Schema is a declarative description of a search-results page: a container
// selector matching each item block plus per-field selectors within a block.
type Schema struct {
	Container string               `yaml:"container"`
	Fields    map[string]FieldSpec `yaml:"fields"`
}

// ParseSchema loads a Schema from its YAML document.
func ParseSchema(doc string) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		return Schema{}, fmt.Errorf("parse selector schema: %w", err)
	}
	if strings.TrimSpace(s.Container) == "" {
		return Schema{}, fmt.Errorf("selector schema: container selector required")
	}
	return s, nil
}

// MustParseSchema panics on a malformed schema. Schemas are compile-time
// constants, so a failure here is a programming error.
func MustParseSchema(doc string) Schema {
	s, err := ParseSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Item is one raw extraction result. Fields are plain strings exactly as they
// appear in the markup; absent selectors leave the zero value. Keeping this
// typed rather than an open map makes every normalizer exhaustive.
type Item struct {
	Title           string
	URL             string
	Image           string
	Rating          string
	NumberOfRatings string
	Price           string
	OriginalPrice   string
	Discount        string
	Sponsored       string
	Shipping        string
	StoreName       string
	StarDivs        []string
}

// Extract applies the schema to a parsed document and returns one Item per
// container match, in document order. Unknown field names in the schema are
// ignored so schemas can carry fields the Item does not model yet.
func (s Schema) Extract(doc *goquery.Document) []Item {
	var items []Item
	doc.Find(s.Container).Each(func(_ int, block *goquery.Selection) {
		var item Item
		for name, spec := range s.Fields {
			switch name {
			case "title":
				item.Title = extractOne(block, spec)
			case "url":
				item.URL = extractOne(block, spec)
			case "image":
				item.Image = extractOne(block, spec)
			case "rating":
				item.Rating = extractOne(block, spec)
			case "number_of_ratings":
				item.NumberOfRatings = extractOne(block, spec)
			case "price":
				item.Price = extractOne(block, spec)
			case "original_price":
				item.OriginalPrice = extractOne(block, spec)
			case "discount":
				item.Discount = extractOne(block, spec)
			case "is_sponsored":
				item.Sponsored = extractOne(block, spec)
			case "shipping":
				item.Shipping = extractOne(block, spec)
			case "store_name":
				item.StoreName = extractOne(block, spec)
			case "star_divs":
				item.StarDivs = extractAll(block, spec)
			}
		}
		items = append(items, item)
	})
	return items
}

func extractOne(block *goquery.Selection, spec FieldSpec) string {
	return extractValue(block.Find(spec.CSS).First(), spec)
}

func extractAll(block *goquery.Selection, spec FieldSpec) []string {
	var values []string
	block.Find(spec.CSS).Each(func(_ int, sel *goquery.Selection) {
		values = append(values, extractValue(sel, spec))
	})
	return values
}

func extractValue(sel *goquery.Selection, spec FieldSpec) string {
	if sel.Length() == 0 {
		return ""
	}
	switch spec.Type {
	case TypeLink:
		href, _ := sel.Attr("href")
		return strings.TrimSpace(href)
	case TypeAttribute:
		val, _ := sel.Attr(spec.Attribute)
		return strings.TrimSpace(val)
	case TypeHTML:
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			return ""
		}
		return markup
	default:
		return strings.TrimSpace(sel.Text())
	}
}
