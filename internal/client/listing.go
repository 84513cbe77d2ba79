package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"ebaystore/parser/internal/domain"
)

// CollectItemIDs walks the paginated store listing and returns the sorted
// union of every item ID discovered. The walk stops when a page yields no
// items (end of catalog) or no items that were not already seen (pagination
// wrapped or stalled). A fetch failure aborts the whole walk: the listing is
// small enough that partial-listing tolerance is not worth the ambiguity.
func (c *ebayClient) CollectItemIDs(ctx context.Context, store string) ([]domain.ItemID, error) {
	seen := make(map[domain.ItemID]struct{})

	for pageNum := 1; ; pageNum++ {
		url := fmt.Sprintf("%s/str/%s?_pgn=%d&_ipg=%d", c.baseURL, store, pageNum, c.cfg.ItemsPerPage)

		doc, err := c.FetchPage(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch listing page %d: %w", pageNum, err)
		}

		pageIDs := extractListingIDs(doc)
		if len(pageIDs) == 0 {
			log.Infof("📄 Page %d: no items - end of store", pageNum)
			break
		}

		newCount := 0
		for _, id := range pageIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				newCount++
			}
		}
		log.Infof("📄 Page %d: %d items (%d new, %d total)", pageNum, len(pageIDs), newCount, len(seen))

		if newCount == 0 {
			break
		}
	}

	ids := make([]domain.ItemID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// extractListingIDs pulls item IDs from every link on a listing page,
// deduplicated within the page.
func extractListingIDs(doc *goquery.Document) []domain.ItemID {
	seen := make(map[domain.ItemID]struct{})
	var ids []domain.ItemID

	doc.Find("a[href]").Each(func(i int, link *goquery.Selection) {
		href, exists := link.Attr("href")
		if !exists {
			return
		}
		id := domain.ItemIDFromURL(href)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})

	return ids
}
