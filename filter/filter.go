package filter

import (
	"ndv-scraper/config"
	"ndv-scraper/models"
)

// Filter applies filter criteria to records
type Filter struct {
	cfg   *config.FilterConfig
	types map[string]bool
}

// NewFilter creates a new Filter instance
func NewFilter(cfg *config.FilterConfig) *Filter {
	types := make(map[string]bool, len(cfg.Types))
	for _, t := range cfg.Types {
		types[t] = true
	}
	return &Filter{
		cfg:   cfg,
		types: types,
	}
}

// Active reports whether any criterion is set
func (f *Filter) Active() bool {
	return len(f.types) > 0 || f.cfg.MinPrice > 0 || f.cfg.MaxPrice > 0
}

// ApplyFilters filters records based on the configuration
func (f *Filter) ApplyFilters(records []models.Record) []models.Record {
	if !f.Active() {
		return records
	}

	filtered := make([]models.Record, 0, len(records))
	for _, record := range records {
		if f.matchesFilters(record) {
			filtered = append(filtered, record)
		}
	}

	return filtered
}

// matchesFilters checks if a record matches all filter criteria
func (f *Filter) matchesFilters(record models.Record) bool {
	if len(f.types) > 0 && !f.types[record.TypeName()] {
		return false
	}

	// Records without a readable price are kept, we can't tell either way
	price := effectivePrice(record)
	if price == nil {
		return true
	}
	if f.cfg.MinPrice > 0 && *price < f.cfg.MinPrice {
		return false
	}
	if f.cfg.MaxPrice > 0 && *price > f.cfg.MaxPrice {
		return false
	}

	return true
}

// effectivePrice is what a buyer pays: the sale price when there is one
func effectivePrice(record models.Record) *int64 {
	if record.PriceSale != nil {
		return record.PriceSale
	}
	return record.PriceBase
}
