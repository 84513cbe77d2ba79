package domain

import "time"

// DetailRecord is the normalized result of extracting one item page.
// Compatibility slices are deduplicated and sorted; years are always
// individual four-digit tokens (ranges are expanded before storage).
type DetailRecord struct {
	ItemID      ItemID            `json:"item_id"`
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Price       string            `json:"price,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	Condition   string            `json:"condition,omitempty"`
	MPN         string            `json:"mpn,omitempty"`
	Specifics   map[string]string `json:"item_specifics,omitempty"`
	Images      []string          `json:"images,omitempty"`
	CompatMakes []string          `json:"compatibility_makes,omitempty"`
	CompatYears []string          `json:"compatibility_years,omitempty"`
	ScrapedAt   time.Time         `json:"scraped_at"`
}

// ErrorRecord captures one failed item so the batch can continue.
type ErrorRecord struct {
	ItemID    ItemID    `json:"item_id"`
	URL       string    `json:"url"`
	Message   string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
