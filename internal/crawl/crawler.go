// Package crawl implements the breadth-first link-following mode: an
// explicit frontier of pending URLs consumed by a bounded worker pool.
// Completions push newly discovered links back onto the frontier; a shared
// seen set prevents re-enqueueing and a global page budget stops scheduling
// while letting in-flight fetches drain.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"ebaystore/parser/internal/classify"
	"ebaystore/parser/internal/client"
	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/metrics"
	"ebaystore/parser/internal/sink"
)

const (
	frontierBuffer    = 4096
	classifyCacheSize = 8192
	progressLogEvery  = 50
)

// PageRecord is one crawled page with its classification and images.
type PageRecord struct {
	URL    string
	Title  string
	Type   classify.PageType
	Images []sink.ImageRef
}

// CrawlError records a page that failed to fetch.
type CrawlError struct {
	URL       string
	Message   string
	Timestamp time.Time
}

// Result is the accumulated outcome of one crawl.
type Result struct {
	Pages        []PageRecord
	Images       map[string]*sink.ImageRef
	Errors       []CrawlError
	PagesCrawled int
}

// Crawler walks a site breadth-first from its root and the seed URLs.
type Crawler struct {
	fetcher    client.PageFetcher
	classifier *classify.Classifier
	classCache *lru.Cache[string, classify.PageType]
	cfg        config.CrawlConfig
	metrics    *metrics.Metrics

	frontier chan string
	pending  sync.WaitGroup

	mu        sync.Mutex
	seen      map[string]struct{}
	scheduled int
	pages     []PageRecord
	images    map[string]*sink.ImageRef
	errors    []CrawlError
}

func NewCrawler(fetcher client.PageFetcher, classifier *classify.Classifier, m *metrics.Metrics, cfg config.CrawlConfig) (*Crawler, error) {
	cache, err := lru.New[string, classify.PageType](classifyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create classification cache: %w", err)
	}
	return &Crawler{
		fetcher:    fetcher,
		classifier: classifier,
		classCache: cache,
		cfg:        cfg,
		metrics:    m,
		seen:       make(map[string]struct{}),
		images:     make(map[string]*sink.ImageRef),
	}, nil
}

// Run crawls until the frontier drains or the page budget is exhausted.
func (c *Crawler) Run(ctx context.Context, seeds []string) (*Result, error) {
	c.frontier = make(chan string, frontierBuffer)

	c.enqueue("https://" + c.cfg.Domain + "/")
	for _, seed := range seeds {
		c.enqueue(seed)
	}

	// The frontier closes once every scheduled URL has been processed.
	go func() {
		c.pending.Wait()
		close(c.frontier)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.Concurrency; i++ {
		g.Go(func() error {
			// Each concurrent slot enforces its own minimum inter-request delay.
			rl := newSlotLimiter(c.cfg.DelaySeconds)
			for url := range c.frontier {
				if gctx.Err() == nil {
					rl.Take()
					c.process(gctx, url)
				}
				c.pending.Done()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	result := &Result{
		Pages:        c.pages,
		Images:       c.images,
		Errors:       c.errors,
		PagesCrawled: len(c.pages),
	}
	log.Infof("✅ Crawl complete: %d pages, %d unique images, %d errors",
		result.PagesCrawled, len(result.Images), len(result.Errors))
	return result, nil
}

func newSlotLimiter(delaySeconds float64) ratelimit.Limiter {
	if delaySeconds <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(1, ratelimit.Per(time.Duration(delaySeconds*float64(time.Second))))
}

// enqueue schedules a URL unless it was already seen or the page budget is
// spent. Dropping on a full frontier keeps workers from deadlocking on their
// own discoveries.
func (c *Crawler) enqueue(url string) {
	c.mu.Lock()
	if _, ok := c.seen[url]; ok {
		c.mu.Unlock()
		return
	}
	if c.cfg.MaxPages > 0 && c.scheduled >= c.cfg.MaxPages {
		c.mu.Unlock()
		return
	}
	c.seen[url] = struct{}{}
	c.scheduled++
	c.mu.Unlock()

	c.pending.Add(1)
	select {
	case c.frontier <- url:
	default:
		c.pending.Done()
		log.Warnf("Frontier full, dropping %s", url)
	}
}

func (c *Crawler) process(ctx context.Context, url string) {
	doc, err := c.fetcher.FetchPage(ctx, url)
	if err != nil {
		c.metrics.IncError(client.ErrorLabel(err))
		c.mu.Lock()
		c.errors = append(c.errors, CrawlError{URL: url, Message: err.Error(), Timestamp: time.Now()})
		c.mu.Unlock()
		log.Errorf("❌ %s: %v", url, err)
		return
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	pageType := c.classify(url)
	images := extractImages(doc, url)
	links := extractLinks(doc, url, c.cfg.Domain)

	c.mu.Lock()
	record := PageRecord{URL: url, Title: title, Type: pageType, Images: images}
	c.pages = append(c.pages, record)
	for _, img := range images {
		if existing, ok := c.images[img.Src]; ok {
			existing.FoundOn = append(existing.FoundOn, url)
		} else {
			c.images[img.Src] = &sink.ImageRef{Src: img.Src, Alt: img.Alt, FoundOn: []string{url}}
		}
	}
	crawled := len(c.pages)
	c.mu.Unlock()

	log.Infof("Crawled [%s]: %s - %d images", pageType, url, len(images))
	if crawled%progressLogEvery == 0 {
		log.Infof("📊 Progress: %d pages crawled", crawled)
	}

	for _, link := range links {
		if c.shouldFollow(link) {
			c.enqueue(link)
		}
	}
}

// classify memoizes classification per URL; the classifier itself is pure.
func (c *Crawler) classify(url string) classify.PageType {
	if cached, ok := c.classCache.Get(url); ok {
		return cached
	}
	pageType := c.classifier.Classify(url)
	c.classCache.Add(url, pageType)
	return pageType
}

func (c *Crawler) shouldFollow(url string) bool {
	patterns, ok := followPatterns[c.cfg.ScrapeType]
	if !ok || len(patterns) == 0 {
		return true // "all" follows every same-domain link
	}
	for _, p := range patterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}
