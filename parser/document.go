// Package parser extracts building complexes, flats and parking spaces from
// ndv.ru pages. Every field lookup is optional: missing markup produces a
// nil field, never a failed page.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NewDocument parses a fetched page body
func NewDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// optionalText returns the whitespace-normalized text of the first match, or nil
func optionalText(s *goquery.Selection, selector string) *string {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := normalizeWhitespace(sel.Text())
	return &text
}

// optionalAttr returns an attribute of the first match, or nil
func optionalAttr(s *goquery.Selection, selector, attr string) *string {
	value, ok := s.Find(selector).First().Attr(attr)
	if !ok {
		return nil
	}
	return &value
}

// absoluteURL prefixes site-relative links with the base URL
func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}
