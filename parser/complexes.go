package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ndv-scraper/models"
)

// ParseComplexes extracts building complexes from a directory page
func ParseComplexes(doc *goquery.Document, baseURL string) []models.BuildingComplex {
	var complexes []models.BuildingComplex

	doc.Find("div.tile__content").Each(func(i int, s *goquery.Selection) {
		// only the first name link counts when a tile has several
		link := s.Find("a.tile__name").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		name := strings.TrimSpace(link.Text())
		location := ""
		if loc := optionalText(s, "span.tile__location"); loc != nil {
			location = *loc
		}

		complexes = append(complexes, models.BuildingComplex{
			Name: name + "(" + location + ")",
			URL:  absoluteURL(baseURL, href),
		})
	})

	return complexes
}
