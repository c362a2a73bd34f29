package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"ndv-scraper/models"
)

const (
	offersButtonSelector = "a#NewBuildingComplexUpdateButton"
	parkingRowSelector   = "a.flats-table__row.table-body--row"
	settingsSelector     = "div.card__info-row.card__info-row--settings div.card__info-params__number"

	// the breadcrumb text right before <meta content="10"> holds "Машиноместо №N"
	numberMetaXPath = `//meta[@content='10']`
)

// OfferCount reads N from the "Показать N предложений" button of a parking
// page. It returns false when the button is missing or has no number.
func OfferCount(doc *goquery.Document) (int, bool) {
	text := optionalText(doc.Selection, offersButtonSelector)
	if text == nil {
		return 0, false
	}
	return firstNumber(*text)
}

// ParseParkingLinks returns absolute detail-page URLs of every parking row
func ParseParkingLinks(doc *goquery.Document, baseURL string) []string {
	var links []string
	doc.Find(parkingRowSelector).Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			links = append(links, absoluteURL(baseURL, href))
		}
	})
	return links
}

// ParseParkingDetail builds a parking record from its detail page. The
// complex is passed in since detail pages don't repeat it reliably.
func ParseParkingDetail(doc *goquery.Document, complexName string) models.Record {
	record := models.NewRecord(models.TypeParking, complexName)

	record.Number = parkingNumber(doc)
	record.Plan = optionalAttr(doc.Selection, "div#plans_layout img", "src")
	record.SetPrices(parkingPrices(doc))

	params := doc.Find(settingsSelector)
	if area := paramText(params, 0); area != nil {
		if fields := strings.Fields(*area); len(fields) > 0 {
			if value, err := parseArea(fields[0]); err == nil {
				record.Area = &value
			}
		}
	}
	record.Building = paramText(params, 1)
	record.Section = paramText(params, 2)
	record.Floor = paramText(params, 3)

	return record
}

// parkingNumber tries the breadcrumb meta first, then the page title
func parkingNumber(doc *goquery.Document) *string {
	for _, lookup := range []func(*goquery.Document) *string{numberFromMeta, numberFromTitle} {
		if number := lookup(doc); number != nil {
			return number
		}
	}
	return nil
}

func numberFromMeta(doc *goquery.Document) *string {
	if len(doc.Nodes) == 0 {
		return nil
	}
	meta, err := htmlquery.Query(doc.Nodes[0], numberMetaXPath)
	if err != nil || meta == nil {
		return nil
	}
	text := precedingText(meta)
	if text == nil {
		return nil
	}
	fields := strings.Fields(htmlquery.InnerText(text))
	if len(fields) < 2 {
		return nil
	}
	number := strings.ReplaceAll(fields[1], "№", "")
	if number == "" {
		return nil
	}
	return &number
}

// precedingText walks back in document order to the closest non-blank text node
func precedingText(n *html.Node) *html.Node {
	for {
		switch {
		case n.PrevSibling != nil:
			n = n.PrevSibling
			for n.LastChild != nil {
				n = n.LastChild
			}
		case n.Parent != nil:
			n = n.Parent
			continue
		default:
			return nil
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			return n
		}
	}
}

func numberFromTitle(doc *goquery.Document) *string {
	title := optionalText(doc.Selection, "h1.title")
	if title == nil {
		return nil
	}
	fields := strings.Fields(*title)
	if len(fields) < 3 {
		return nil
	}
	return &fields[2]
}

// parkingPrices returns (base, sale). A plain current price wins; otherwise
// the crossed-out old price is the base and the red one the sale price.
func parkingPrices(doc *goquery.Document) (*int64, *int64) {
	if current := optionalText(doc.Selection, "span.card__info-prices__price:not(.card__info-prices--red)"); current != nil {
		if base := parseRoublePrice(*current); base != nil {
			return base, nil
		}
	}

	var base, sale *int64
	if old := optionalText(doc.Selection, "span.card__info-prices__old"); old != nil {
		base = parseRoublePrice(*old)
	}
	if red := optionalText(doc.Selection, "span.card__info-prices__price.card__info-prices--red"); red != nil {
		sale = parseRoublePrice(*red)
	}
	return base, sale
}

// paramText returns the trimmed text of the i-th settings value, or nil
func paramText(params *goquery.Selection, i int) *string {
	if i >= params.Length() {
		return nil
	}
	text := strings.TrimSpace(params.Eq(i).Text())
	return &text
}
