package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebaystore/parser/internal/classify"
	"ebaystore/parser/internal/config"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func testCrawler(t *testing.T, fetcher *fakeFetcher, cfg config.CrawlConfig) *Crawler {
	t.Helper()
	if cfg.Domain == "" {
		cfg.Domain = "shop.example.com"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	if cfg.ScrapeType == "" {
		cfg.ScrapeType = "all"
	}
	c, err := NewCrawler(fetcher, classify.NewDefault(nil, nil), nil, cfg)
	require.NoError(t, err)
	return c
}

func TestCrawlFollowsSameDomainLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/": `<html><head><title>Home</title></head><body>
			<a href="/products/widget">widget</a>
			<a href="https://shop.example.com/about">about</a>
			<a href="https://elsewhere.example.org/page">external</a>
			<a href="/cart">cart</a>
			<a href="/manual.pdf">manual</a>
			<a href="#section">anchor</a>
			<a href="mailto:x@example.com">mail</a>
		</body></html>`,
		"https://shop.example.com/products/widget": `<html><head><title>Widget</title></head><body></body></html>`,
		"https://shop.example.com/about":           `<html><head><title>About</title></head><body></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.PagesCrawled)
	urls := make(map[string]classify.PageType)
	for _, p := range result.Pages {
		urls[p.URL] = p.Type
	}
	assert.Equal(t, classify.Product, urls["https://shop.example.com/products/widget"])
	assert.Equal(t, classify.Other, urls["https://shop.example.com/about"])
	assert.NotContains(t, urls, "https://elsewhere.example.org/page")
	assert.NotContains(t, urls, "https://shop.example.com/cart")
	assert.NotContains(t, urls, "https://shop.example.com/manual.pdf")
}

func TestCrawlNeverRefetchesSeenURLs(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/": `<html><head><title>A</title></head><body>
			<a href="/next">next</a></body></html>`,
		"https://shop.example.com/next": `<html><head><title>B</title></head><body>
			<a href="/">back</a><a href="/next">self</a></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{Concurrency: 1})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PagesCrawled)
	assert.Len(t, fetcher.fetched, 2)
}

func TestCrawlPageBudgetStopsScheduling(t *testing.T) {
	pages := map[string]string{}
	var links strings.Builder
	for i := 0; i < 20; i++ {
		url := fmt.Sprintf("https://shop.example.com/page-%d", i)
		fmt.Fprintf(&links, `<a href="/page-%d">p</a>`, i)
		pages[url] = `<html><head><title>Leaf</title></head><body></body></html>`
	}
	pages["https://shop.example.com/"] = `<html><head><title>Hub</title></head><body>` +
		links.String() + `</body></html>`

	fetcher := &fakeFetcher{pages: pages}
	c := testCrawler(t, fetcher, config.CrawlConfig{MaxPages: 5, Concurrency: 2})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, result.PagesCrawled, "budget bounds scheduled pages, in-flight work drains")
}

func TestCrawlFetchErrorRecorded(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/": `<html><head><title>Home</title></head><body>
			<a href="/missing">gone</a></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{Concurrency: 1})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PagesCrawled)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "https://shop.example.com/missing", result.Errors[0].URL)
}

func TestCrawlMergesImageRegistry(t *testing.T) {
	shared := `<img src="/shared.jpg" alt="Shared">`
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/": `<html><head><title>A</title></head><body>` + shared +
			`<a href="/two">two</a></body></html>`,
		"https://shop.example.com/two": `<html><head><title>B</title></head><body>` + shared +
			`<img src="/only-here.jpg" alt=""></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{Concurrency: 1})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Images, 2)
	sharedRef := result.Images["https://shop.example.com/shared.jpg"]
	require.NotNil(t, sharedRef)
	assert.Len(t, sharedRef.FoundOn, 2, "a shared image keeps one registry entry listing both pages")
}

func TestCrawlScrapeTypeFiltersFollowedLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/": `<html><head><title>Home</title></head><body>
			<a href="/products/widget">widget</a>
			<a href="/blog/news-post">post</a>
		</body></html>`,
		"https://shop.example.com/products/widget": `<html><head><title>W</title></head><body></body></html>`,
		"https://shop.example.com/blog/news-post":  `<html><head><title>P</title></head><body></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{ScrapeType: "product", Concurrency: 1})
	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	urls := make(map[string]struct{})
	for _, p := range result.Pages {
		urls[p.URL] = struct{}{}
	}
	assert.Contains(t, urls, "https://shop.example.com/products/widget")
	assert.NotContains(t, urls, "https://shop.example.com/blog/news-post")
}

func TestCrawlSeedsJoinTheFrontier(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/":       `<html><head><title>Root</title></head><body></body></html>`,
		"https://shop.example.com/seeded": `<html><head><title>Seeded</title></head><body></body></html>`,
	}}

	c := testCrawler(t, fetcher, config.CrawlConfig{Concurrency: 1})
	result, err := c.Run(context.Background(), []string{"https://shop.example.com/seeded"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.PagesCrawled)
}
