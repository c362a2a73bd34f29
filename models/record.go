package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Listing types written into Record.Type
const (
	TypeFlat      = "flat"
	TypeApartment = "apartment"
	TypeParking   = "parking"
)

// CurrencyRUB is the currency of every price published on the site
const CurrencyRUB = "RUB"

// Record is one normalized listing (a flat, an apartment or a parking space).
// Every field is nullable and always present in the JSON encoding, so all
// records share the same key set.
type Record struct {
	Complex           *string  `json:"complex"`
	Type              *string  `json:"type"`
	Phase             *string  `json:"phase"`
	Building          *string  `json:"building"`
	Section           *string  `json:"section"`
	PriceBase         *int64   `json:"price_base"`
	PriceFinished     *int64   `json:"price_finished"`
	PriceSale         *int64   `json:"price_sale"`
	PriceFinishedSale *int64   `json:"price_finished_sale"`
	Area              *float64 `json:"area"`
	Number            *string  `json:"number"`
	NumberOnSite      *string  `json:"number_on_site"`
	Rooms             *Rooms   `json:"rooms"`
	Floor             *string  `json:"floor"`
	InSale            *bool    `json:"in_sale"`
	SaleStatus        *string  `json:"sale_status"`
	Finished          *bool    `json:"finished"`
	Currency          *string  `json:"currency"`
	Ceil              *float64 `json:"ceil"`
	Article           *string  `json:"article"`
	FinishingName     *string  `json:"finishing_name"`
	Furniture         *bool    `json:"furniture"`
	FurniturePrice    *int64   `json:"furniture_price"`
	Plan              *string  `json:"plan"`
	Feature           *string  `json:"feature"`
	View              *string  `json:"view"`
	EuroPlanning      *bool    `json:"euro_planning"`
	Sale              *bool    `json:"sale"`
	DiscountPercent   *float64 `json:"discount_percent"`
	Discount          *int64   `json:"discount"`
	Comment           *string  `json:"comment"`
}

// NewRecord returns a fresh record of the given type stamped with its complex.
// All other fields start out null.
func NewRecord(listingType, complex string) Record {
	return Record{
		Type:    String(listingType),
		Complex: String(complex),
	}
}

// RecordKeys returns the JSON keys of Record in declaration order
func RecordKeys() []string {
	t := reflect.TypeOf(Record{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		keys = append(keys, name)
	}
	return keys
}

// Values returns the record's field values in RecordKeys order, with nil
// for null fields and dereferenced values otherwise.
func (r Record) Values() []interface{} {
	v := reflect.ValueOf(r)
	values := make([]interface{}, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.IsNil() {
			values = append(values, nil)
			continue
		}
		values = append(values, f.Elem().Interface())
	}
	return values
}

// TypeName returns the listing type or an empty string
func (r Record) TypeName() string {
	if r.Type == nil {
		return ""
	}
	return *r.Type
}

// SetPrices stores base and sale prices and derives currency and discount
// fields from whichever of them are known.
func (r *Record) SetPrices(base, sale *int64) {
	r.PriceBase = base
	r.PriceSale = sale
	if base == nil && sale == nil {
		return
	}
	r.Currency = String(CurrencyRUB)
	if base != nil && sale != nil && *base > 0 && *sale <= *base {
		discount := *base - *sale
		percent := float64(discount) * 100 / float64(*base)
		percent = float64(int64(percent*100+0.5)) / 100
		r.Discount = &discount
		r.DiscountPercent = &percent
		r.Sale = Bool(true)
	}
}

// Rooms is a room count; the zero-room studio layout is encoded as "studio".
type Rooms struct {
	Count  int
	Studio bool
}

// StudioRooms is the room count of a studio
var StudioRooms = Rooms{Studio: true}

// RoomCount returns a plain room count
func RoomCount(n int) Rooms {
	return Rooms{Count: n}
}

func (r Rooms) String() string {
	if r.Studio {
		return "studio"
	}
	return strconv.Itoa(r.Count)
}

// MarshalJSON writes "studio" or the integer count
func (r Rooms) MarshalJSON() ([]byte, error) {
	if r.Studio {
		return []byte(`"studio"`), nil
	}
	return []byte(strconv.Itoa(r.Count)), nil
}

// UnmarshalJSON accepts "studio" or an integer
func (r *Rooms) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "studio" {
			return fmt.Errorf("invalid rooms value %q", s)
		}
		*r = StudioRooms
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid rooms value %s: %w", data, err)
	}
	*r = RoomCount(n)
	return nil
}

// BuildingComplex is one residential development ("ЖК") found in the directory
type BuildingComplex struct {
	Name string // display name with location, e.g. "ЖК Мегаполис(Москва, ВАО)"
	URL  string // absolute URL of the complex page
}

// String returns a pointer to s
func String(s string) *string { return &s }

// Int returns a pointer to n
func Int(n int64) *int64 { return &n }

// Float returns a pointer to f
func Float(f float64) *float64 { return &f }

// Bool returns a pointer to b
func Bool(b bool) *bool { return &b }
