package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"

	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/domain"
	"ebaystore/parser/internal/metrics"
)

// EbayClient discovers store items and extracts their detail pages.
type EbayClient interface {
	CollectItemIDs(ctx context.Context, store string) ([]domain.ItemID, error)
	GetItem(ctx context.Context, itemID domain.ItemID) (*domain.DetailRecord, error)
}

// PageFetcher fetches and parses a single page. The link-following crawler
// shares this with the item-driven client.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*goquery.Document, error)
}

// Page titles that mark an anti-automation interstitial rather than content.
var blockedTitleMarkers = []string{
	"security",
	"pardon our interruption",
	"challenge",
}

type ebayClient struct {
	rl          ratelimit.Limiter
	cfg         config.EbayConfig
	baseURL     string
	httpClient  *resty.Client
	metrics     *metrics.Metrics
	blockedWait time.Duration
}

// NewEbayClient builds a rate-limited HTTP client for the target store.
func NewEbayClient(cfg config.EbayConfig, m *metrics.Metrics) EbayClient {
	httpClient := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-GB,en;q=0.5")

	return &ebayClient{
		rl:          newLimiter(cfg.DelaySeconds),
		cfg:         cfg,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		metrics:     m,
		blockedWait: time.Duration(cfg.BlockedWaitSecs) * time.Second,
	}
}

// NewPageFetcher builds a fetcher for the link-following crawler. Pacing is
// left to the caller's worker slots, so the fetcher itself is unthrottled.
func NewPageFetcher(timeoutSeconds, blockedWaitSeconds int, m *metrics.Metrics) PageFetcher {
	httpClient := resty.New().
		SetTimeout(time.Duration(timeoutSeconds)*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return &ebayClient{
		rl:          ratelimit.NewUnlimited(),
		httpClient:  httpClient,
		metrics:     m,
		blockedWait: time.Duration(blockedWaitSeconds) * time.Second,
	}
}

// newLimiter enforces a fixed inter-request delay. The pacing is deliberate
// politeness, not adaptive backoff.
func newLimiter(delaySeconds float64) ratelimit.Limiter {
	if delaySeconds <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(1, ratelimit.Per(time.Duration(delaySeconds*float64(time.Second))))
}

func (c *ebayClient) GetItem(ctx context.Context, itemID domain.ItemID) (*domain.DetailRecord, error) {
	url := fmt.Sprintf("%s/itm/%s", c.baseURL, itemID)

	doc, err := c.FetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	record, err := ParseDetail(doc, itemID, url)
	if err != nil {
		return nil, err
	}

	if c.cfg.CompatMode != config.CompatSkip {
		pager := &httpCompatPager{client: c, itemID: itemID, current: doc}
		compat := ExtractCompat(ctx, pager, c.cfg.CompatMode)
		record.CompatMakes = compat.Makes
		record.CompatYears = compat.Years
	}

	log.Debugf("Extracted item %s: %q (%d images)", itemID, record.Title, len(record.Images))
	return record, nil
}

// FetchPage fetches a URL and parses it, with a single bounded re-check when
// the page title matches a blocking interstitial marker.
func (c *ebayClient) FetchPage(ctx context.Context, url string) (*goquery.Document, error) {
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	if !isBlockedPage(doc) {
		return doc, nil
	}

	log.Warnf("Blocking interstitial on %s, re-checking once in %v", url, c.blockedWait)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.blockedWait):
	}

	doc, err = c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	if isBlockedPage(doc) {
		c.metrics.IncError("blocked_page")
		return nil, BlockedPageError{URL: url}
	}
	return doc, nil
}

func (c *ebayClient) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	c.rl.Take()

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	c.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		if isTimeout(err) {
			c.metrics.IncError("fetch_timeout")
			return nil, FetchTimeoutError{URL: url, Err: err}
		}
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error fetching %s: %d %s", url, resp.StatusCode(), resp.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	c.metrics.IncPage()
	return doc, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isBlockedPage(doc *goquery.Document) bool {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if title == "" {
		return false
	}
	for _, marker := range blockedTitleMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}
