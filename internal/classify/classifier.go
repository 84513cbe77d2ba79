// Package classify assigns discovered URLs to page types. Operator-supplied
// known-URL sets take strict precedence over path-pattern heuristics, because
// ground truth overrides heuristics on sites with non-standard path
// conventions.
package classify

import (
	"fmt"
	"net/url"
	"regexp"
)

// PageType is the classification of a discovered URL.
type PageType string

const (
	Product  PageType = "product"
	Category PageType = "category"
	Other    PageType = "other"
)

// Default path-pattern tables, matched case-insensitively against URL paths.
var (
	DefaultProductPatterns = []string{
		`/product/`,
		`/products/`,
		`/p/`,
		`/item/`,
		`/items/`,
		`/dp/`,
		`/pd/`,
	}
	DefaultCategoryPatterns = []string{
		`/category/`,
		`/categories/`,
		`/cat/`,
		`/c/`,
		`/collections/`,
		`/shop/`,
		`/browse/`,
	}
)

// Classifier holds immutable pattern tables and known-URL sets, injected at
// construction.
type Classifier struct {
	knownProducts    map[string]struct{}
	knownCategories  map[string]struct{}
	productPatterns  []*regexp.Regexp
	categoryPatterns []*regexp.Regexp
}

// New builds a classifier from explicit known-URL sets and ordered pattern
// lists. Patterns are compiled case-insensitively.
func New(knownProducts, knownCategories []string, productPatterns, categoryPatterns []string) (*Classifier, error) {
	products, err := compilePatterns(productPatterns)
	if err != nil {
		return nil, fmt.Errorf("product patterns: %w", err)
	}
	categories, err := compilePatterns(categoryPatterns)
	if err != nil {
		return nil, fmt.Errorf("category patterns: %w", err)
	}

	return &Classifier{
		knownProducts:    toSet(knownProducts),
		knownCategories:  toSet(knownCategories),
		productPatterns:  products,
		categoryPatterns: categories,
	}, nil
}

// NewDefault builds a classifier with the default pattern tables.
func NewDefault(knownProducts, knownCategories []string) *Classifier {
	c, err := New(knownProducts, knownCategories, DefaultProductPatterns, DefaultCategoryPatterns)
	if err != nil {
		// Default patterns are constants; compilation cannot fail.
		panic(err)
	}
	return c
}

// Classify returns the page type of a URL. Known-set membership is checked
// on the exact URL before any pattern matching; patterns match the URL path
// only, in table order.
func (c *Classifier) Classify(rawURL string) PageType {
	if _, ok := c.knownProducts[rawURL]; ok {
		return Product
	}
	if _, ok := c.knownCategories[rawURL]; ok {
		return Category
	}

	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
	}

	for _, pattern := range c.productPatterns {
		if pattern.MatchString(path) {
			return Product
		}
	}
	for _, pattern := range c.categoryPatterns {
		if pattern.MatchString(path) {
			return Category
		}
	}
	return Other
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func toSet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}
