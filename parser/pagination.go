package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const paginatorSelector = "a.move-to-page"

// LastPage returns the 1-based index of the last listing page and true, or
// false if the page has no paginator. The final paginator link is the
// "next" arrow, so the last page number is on the one before it.
func LastPage(doc *goquery.Document) (int, bool) {
	links := doc.Find(paginatorSelector)
	if links.Length() < 2 {
		return 0, false
	}

	text := strings.TrimSpace(links.Eq(links.Length() - 2).Text())
	last, err := strconv.Atoi(text)
	if err != nil || last < 1 {
		return 0, false
	}
	return last, true
}
