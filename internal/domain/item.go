package domain

import "regexp"

// ItemID is the stable numeric identifier of one store item. eBay item IDs
// are 9-15 digit numbers embedded in /itm/ link targets.
type ItemID string

func (id ItemID) String() string {
	return string(id)
}

var itemIDPattern = regexp.MustCompile(`/itm/(\d{9,15})`)

// ItemIDFromURL extracts an item ID from a link target. Returns "" when the
// URL does not point at an item page.
func ItemIDFromURL(href string) ItemID {
	matches := itemIDPattern.FindStringSubmatch(href)
	if len(matches) < 2 {
		return ""
	}
	return ItemID(matches[1])
}
