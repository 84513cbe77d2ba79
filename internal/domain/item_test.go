package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		href string
		want ItemID
	}{
		{"plain path", "/itm/123456789012", "123456789012"},
		{"absolute with query", "https://www.ebay.co.uk/itm/123456789012?hash=abc", "123456789012"},
		{"with slug segment", "/itm/ford-focus-alternator/123456789", ""},
		{"minimum length", "/itm/123456789", "123456789"},
		{"too short", "/itm/12345678", ""},
		{"not an item link", "/str/somestore?_pgn=2", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemIDFromURL(tt.href))
		})
	}
}

func TestCrawlProgressProcessedGrowsOnly(t *testing.T) {
	p := NewCrawlProgress("store")
	p.AddRecord(DetailRecord{ItemID: "111111111"})
	p.AddError(ErrorRecord{ItemID: "111111111", Message: "late error"})

	assert.Len(t, p.Records, 1)
	assert.Empty(t, p.Errors, "an item already recorded is never re-added as an error")

	p.AddError(ErrorRecord{ItemID: "222222222"})
	p.AddRecord(DetailRecord{ItemID: "222222222"})
	assert.Len(t, p.Errors, 1)
	assert.Len(t, p.Records, 1, "a failed item stays failed until a fresh run retries it")
}
