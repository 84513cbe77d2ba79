package client

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ebaystore/parser/internal/domain"
)

// structuredProduct is the partial record read from embedded JSON-LD product
// data, the highest-precedence extraction source.
type structuredProduct struct {
	title     string
	price     string
	currency  string
	brand     string
	condition string
	images    []string
	found     bool
}

// ParseDetail extracts a DetailRecord from one item page. Extraction sources
// are applied in order with first-non-empty precedence per field, not per
// source: JSON-LD product data, then labeled item-specifics rows, then the
// primary heading for the title. Real pages mix complete and partial
// structured data, so a missing field falls through independently.
func ParseDetail(doc *goquery.Document, itemID domain.ItemID, url string) (*domain.DetailRecord, error) {
	ld := extractStructuredData(doc)
	specs := extractItemSpecifics(doc)
	heading := strings.TrimSpace(doc.Find("h1").First().Text())

	title := firstNonEmpty(ld.title, heading)
	if title == "" && !ld.found {
		return nil, MalformedPageError{URL: url, Reason: "no structured data, no title, no fallback heading"}
	}

	record := &domain.DetailRecord{
		ItemID:    itemID,
		URL:       url,
		Title:     title,
		Price:     ld.price,
		Currency:  firstNonEmpty(ld.currency, "GBP"),
		Brand:     firstNonEmpty(ld.brand, specs["Brand"]),
		Condition: ld.condition,
		MPN:       specs["Manufacturer Part Number"],
		Specifics: specs,
		Images:    ld.images,
		ScrapedAt: time.Now(),
	}
	return record, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func extractStructuredData(doc *goquery.Document) structuredProduct {
	var result structuredProduct

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		for _, candidate := range productCandidates(data) {
			if fillFromProduct(candidate, &result) {
				return false
			}
		}
		return true
	})

	return result
}

// productCandidates flattens the shapes JSON-LD product data arrives in:
// a bare object, an array of objects, or an @graph wrapper.
func productCandidates(data any) []map[string]any {
	var out []map[string]any

	add := func(v any) {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
			if graph, ok := obj["@graph"].([]any); ok {
				for _, g := range graph {
					if gobj, ok := g.(map[string]any); ok {
						out = append(out, gobj)
					}
				}
			}
		}
	}

	if arr, ok := data.([]any); ok {
		for _, v := range arr {
			add(v)
		}
	} else {
		add(data)
	}
	return out
}

func fillFromProduct(obj map[string]any, result *structuredProduct) bool {
	if asString(obj["@type"]) != "Product" {
		return false
	}
	result.found = true
	result.title = asString(obj["name"])
	result.images = asStringList(obj["image"])

	switch brand := obj["brand"].(type) {
	case map[string]any:
		result.brand = asString(brand["name"])
	case string:
		result.brand = brand
	}

	offers := obj["offers"]
	if arr, ok := offers.([]any); ok {
		if len(arr) > 0 {
			offers = arr[0]
		} else {
			offers = nil
		}
	}
	if offer, ok := offers.(map[string]any); ok {
		result.price = asString(offer["price"])
		result.currency = asString(offer["priceCurrency"])
		cond := asString(offer["itemCondition"])
		cond = strings.TrimPrefix(cond, "https://schema.org/")
		cond = strings.TrimPrefix(cond, "http://schema.org/")
		result.condition = cond
	}
	return true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func asStringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// extractItemSpecifics reads labeled specification rows. Keys longer than 80
// characters are section headings mis-rendered as labels, not real keys.
func extractItemSpecifics(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)

	doc.Find(".ux-labels-values").Each(func(i int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find(".ux-labels-values__labels").First().Text())
		key = strings.TrimSuffix(key, ":")
		value := strings.TrimSpace(row.Find(".ux-labels-values__values").First().Text())
		if key != "" && value != "" && len(key) < 80 {
			specs[key] = value
		}
	})

	if len(specs) == 0 {
		return nil
	}
	return specs
}
