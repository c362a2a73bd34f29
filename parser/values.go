package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"ndv-scraper/models"
)

var (
	planURLPattern = regexp.MustCompile(`url\('(\S+)'\)`)
	digitsPattern  = regexp.MustCompile(`\d+`)
)

const (
	currencyMarker  = "руб."
	areaUnit        = "м²"
	studioMarker    = "студия"
	apartmentMarker = "апартамент"
)

// normalizeWhitespace replaces various unicode whitespace characters with
// single regular spaces
func normalizeWhitespace(text string) string {
	normalized := strings.Builder{}
	for _, r := range text {
		if unicode.IsSpace(r) {
			normalized.WriteRune(' ')
		} else {
			normalized.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(normalized.String()), " ")
}

// parseTilePrice parses a tile price of the form "2 500 000 руб.": the first
// three whitespace-separated groups are the number.
func parseTilePrice(text string) *int64 {
	fields := strings.Fields(text)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	n, err := strconv.ParseInt(strings.Join(fields, ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseRoublePrice parses a detail-page price: everything before "руб."
// with all spaces removed.
func parseRoublePrice(text string) *int64 {
	before, _, _ := strings.Cut(text, currencyMarker)
	n, err := strconv.ParseInt(strings.Join(strings.Fields(before), ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseArea parses "45,6 м²" (or a name ending in it) into 45.6
func parseArea(text string) (float64, error) {
	fields := strings.Fields(strings.ReplaceAll(text, areaUnit, ""))
	if len(fields) == 0 {
		return 0, fmt.Errorf("no area in %q", text)
	}
	raw := strings.ReplaceAll(fields[len(fields)-1], ",", ".")
	area, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid area in %q: %w", text, err)
	}
	return area, nil
}

// parseRooms reads the room count from a tile name: "Студия ..." is a
// studio, "2-комн. ..." has 2 rooms.
func parseRooms(name string) (models.Rooms, error) {
	fields := strings.Fields(name)
	if len(fields) > 0 && strings.Contains(strings.ToLower(fields[0]), studioMarker) {
		return models.StudioRooms, nil
	}
	prefix, _, _ := strings.Cut(name, "-")
	n, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return models.Rooms{}, fmt.Errorf("invalid room count in %q: %w", name, err)
	}
	return models.RoomCount(n), nil
}

// listingType tells apartments from flats by the tile name
func listingType(name string) string {
	if strings.Contains(strings.ToLower(name), apartmentMarker) {
		return models.TypeApartment
	}
	return models.TypeFlat
}

// extractPlanURL pulls the image URL out of "background-image: url('...')"
func extractPlanURL(style string) *string {
	matches := planURLPattern.FindStringSubmatch(style)
	if len(matches) < 2 {
		return nil
	}
	return &matches[1]
}

// firstNumber returns the first run of digits in text
func firstNumber(text string) (int, bool) {
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
