// Package sink flattens extracted records into tabular output. A record with
// M images explodes into M rows: the first row carries every scalar column,
// continuation rows carry only the handle and the image slot.
package sink

import (
	"regexp"
	"strconv"
	"strings"

	"ebaystore/parser/internal/domain"
)

// ShopifyColumns is the fixed output column set, stable across runs.
var ShopifyColumns = []string{
	"Handle", "Title", "Body (HTML)", "Vendor", "Type", "Tags", "Published",
	"Option1 Name", "Option1 Value", "Option2 Name", "Option2 Value",
	"Option3 Name", "Option3 Value",
	"Variant SKU", "Variant Grams", "Variant Inventory Tracker",
	"Variant Inventory Qty", "Variant Inventory Policy",
	"Variant Fulfillment Service", "Variant Price", "Variant Compare At Price",
	"Variant Requires Shipping", "Variant Taxable", "Variant Barcode",
	"Image Src", "Image Position", "Image Alt Text",
	"Gift Card", "SEO Title", "SEO Description",
	"Variant Image", "Variant Weight Unit", "Cost per item", "Status",
	"Metafield: custom.car_make [list.single_line_text_field]",
	"Metafield: custom.car_year [list.single_line_text_field]",
}

// Item-specific fields promoted into the Tags column.
var tagFields = []string{
	"Brand", "Technology", "Lighting Technology", "Bulb Type",
	"Light Colour", "Placement on Vehicle", "Voltage",
}

// OutputRow is one flat output row keyed by column name; absent columns are
// emitted empty.
type OutputRow map[string]string

var (
	slugStripPattern = regexp.MustCompile(`[^\w\s-]`)
	slugDashPattern  = regexp.MustCompile(`[-\s]+`)
)

// Handle derives a stable row-group handle: a normalized, length-capped slug
// of the title with the identifier's last four digits appended so colliding
// or missing titles still produce unique handles.
func Handle(title string, itemID domain.ItemID) string {
	slug := slugify(title)
	if slug == "" {
		slug = "item-" + string(itemID)
	}
	id := string(itemID)
	if len(id) >= 4 {
		slug = slug + "-" + id[len(id)-4:]
	}
	return slug
}

func slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = slugStripPattern.ReplaceAllString(text, "")
	text = slugDashPattern.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// Rows explodes one record into its output rows.
func Rows(r *domain.DetailRecord, vendor string) []OutputRow {
	handle := Handle(r.Title, r.ItemID)

	productType := r.Specifics["Type"]
	if productType == "" {
		productType = r.Specifics["Bulb Type"]
	}

	var tags []string
	for _, field := range tagFields {
		if v := r.Specifics[field]; v != "" {
			tags = append(tags, v)
		}
	}

	first := OutputRow{
		"Handle":                      handle,
		"Title":                       r.Title,
		"Vendor":                      vendor,
		"Type":                        productType,
		"Tags":                        strings.Join(tags, ", "),
		"Published":                   "TRUE",
		"Option1 Name":                "Title",
		"Option1 Value":               "Default Title",
		"Variant SKU":                 string(r.ItemID),
		"Variant Grams":               "0",
		"Variant Inventory Policy":    "deny",
		"Variant Fulfillment Service": "manual",
		"Variant Price":               r.Price,
		"Variant Requires Shipping":   "TRUE",
		"Variant Taxable":             "TRUE",
		"Status":                      "active",
		"Metafield: custom.car_make [list.single_line_text_field]": strings.Join(r.CompatMakes, ", "),
		"Metafield: custom.car_year [list.single_line_text_field]": strings.Join(r.CompatYears, ", "),
	}
	if len(r.Images) > 0 {
		first["Image Src"] = r.Images[0]
		first["Image Position"] = "1"
		first["Image Alt Text"] = r.Title
	}

	rows := []OutputRow{first}
	if len(r.Images) > 1 {
		for idx, img := range r.Images[1:] {
			rows = append(rows, OutputRow{
				"Handle":         handle,
				"Image Src":      img,
				"Image Position": strconv.Itoa(idx + 2),
				"Image Alt Text": r.Title,
			})
		}
	}
	return rows
}
