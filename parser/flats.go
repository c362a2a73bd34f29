package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ndv-scraper/models"
)

// labels of the "in complex" block on a flat tile
var complexItemLabels = map[string]string{
	"корпус": "building",
	"секция": "section",
	"этаж":   "floor",
	"номер":  "number",
}

// MalformedTileError reports a flat tile whose name has no readable area or
// room count. The tile is skipped, the rest of the page is kept.
type MalformedTileError struct {
	Index int
	Name  string
	Err   error
}

func (e *MalformedTileError) Error() string {
	return fmt.Sprintf("flat tile %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *MalformedTileError) Unwrap() error { return e.Err }

// ParseFlats extracts one record per flat tile. Tiles with unreadable
// dimensions are left out and reported in the returned errors.
func ParseFlats(doc *goquery.Document) ([]models.Record, []error) {
	var records []models.Record
	var errs []error

	doc.Find("div.tile__link.js-tile-link").Each(func(i int, s *goquery.Selection) {
		record, err := parseFlatTile(s)
		if err != nil {
			errs = append(errs, &MalformedTileError{
				Index: i,
				Name:  strings.TrimSpace(s.Find("a.tile__name").First().Text()),
				Err:   err,
			})
			return
		}
		records = append(records, record)
	})

	return records, errs
}

func parseFlatTile(s *goquery.Selection) (models.Record, error) {
	listingType, rooms, area, err := extractDimensions(s)
	if err != nil {
		return models.Record{}, err
	}

	record := models.NewRecord(listingType, "")
	record.Complex = extractTileComplex(s)
	record.Phase = optionalText(s, "span.tile__row--resale_date")
	record.SetPrices(extractTilePrice(s), nil)
	record.Plan = extractTilePlan(s)
	record.Rooms = &rooms
	record.Area = &area

	items := extractComplexItems(s)
	record.Building = items["building"]
	record.Section = items["section"]
	record.Floor = items["floor"]
	record.Number = items["number"]

	return record, nil
}

// extractTileComplex returns "name(location)" of the complex a flat belongs to
func extractTileComplex(s *goquery.Selection) *string {
	name := optionalText(s, "a.tile__resale-complex--link.js_tile_complex_link")
	location := optionalText(s, "span.tile__location")
	if name == nil || location == nil {
		return nil
	}
	return models.String(*name + "(" + *location + ")")
}

func extractTilePrice(s *goquery.Selection) *int64 {
	text := optionalText(s, "span.tile__price")
	if text == nil {
		return nil
	}
	return parseTilePrice(*text)
}

func extractTilePlan(s *goquery.Selection) *string {
	style := optionalAttr(s, "div.tile__image", "data-deskstop")
	if style == nil {
		return nil
	}
	return extractPlanURL(*style)
}

// extractComplexItems reads the building/section/floor/number label pairs
func extractComplexItems(s *goquery.Selection) map[string]*string {
	result := make(map[string]*string, len(complexItemLabels))

	s.Find("div.tile__in-complex-item").Each(func(i int, item *goquery.Selection) {
		title := optionalText(item, ".tile__in-complex-title")
		value := optionalText(item, ".tile__in-complex-value")
		if title == nil || value == nil {
			return
		}
		if key, ok := complexItemLabels[strings.ToLower(*title)]; ok {
			result[key] = value
		}
	})

	return result
}

// extractDimensions derives type, room count and area from the tile name.
// Unlike every other field these are required.
func extractDimensions(s *goquery.Selection) (string, models.Rooms, float64, error) {
	name := optionalText(s, "a.tile__name")
	if name == nil {
		return "", models.Rooms{}, 0, fmt.Errorf("tile has no name")
	}

	area, err := parseArea(*name)
	if err != nil {
		return "", models.Rooms{}, 0, err
	}
	rooms, err := parseRooms(*name)
	if err != nil {
		return "", models.Rooms{}, 0, err
	}
	return listingType(*name), rooms, area, nil
}
