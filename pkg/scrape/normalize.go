package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// parsePrice strips everything except digits and the decimal point and
// parses the remainder. Unparseable or non-positive values come back nil.
func parsePrice(raw string) *float64 {
	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return nil
	}
	return &value
}

// parseLeadingFloat parses the first whitespace-separated token as a float.
func parseLeadingFloat(raw string) *float64 {
	token := leadingToken(raw)
	if token == "" {
		return nil
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return &value
}

// parseCount parses a rating count like "1,234" or "1,000+ sold": thousands
// separators and a trailing "+" are stripped from the leading token.
func parseCount(raw string) *int {
	token := leadingToken(strings.ReplaceAll(raw, ",", ""))
	token = strings.TrimSuffix(token, "+")
	if token == "" {
		return nil
	}
	value, err := strconv.Atoi(token)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

func leadingToken(raw string) string {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// absoluteURL resolves a root-relative or protocol-relative reference against
// the marketplace's base origin. Already-absolute URLs pass through.
func absoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
