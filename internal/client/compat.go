package client

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/domain"
)

// CompatPager renders the independently paginated compatibility sub-table
// embedded in a detail page. Current returns the sub-page already visible on
// the detail page; Activate renders a specific sub-page of the control.
type CompatPager interface {
	Current(ctx context.Context) (*goquery.Document, error)
	Activate(ctx context.Context, page int) (*goquery.Document, error)
}

// CompatResult is the outcome of compatibility extraction. TableFound
// distinguishes "compatibility exists but is empty" from "no compatibility
// table at all"; both yield empty sets.
type CompatResult struct {
	TableFound  bool
	Makes       []string
	Years       []string
	TotalPages  int
	PagesServed int
	Truncated   bool
}

const compatProgressInterval = 20

var (
	yearRangePattern  = regexp.MustCompile(`^(\d{4})\s*[-–]\s*(\d{4})`)
	yearPrefixPattern = regexp.MustCompile(`^\d{4}`)
)

// ExpandYears expands a raw year cell into individual year tokens. A range
// like "2009-2015" (hyphen or en-dash) becomes every year in the range; text
// starting with four digits yields those four digits; any other non-empty
// text passes through as a literal token.
func ExpandYears(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if m := yearRangePattern.FindStringSubmatch(text); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		var out []string
		for y := from; y <= to; y++ {
			out = append(out, strconv.Itoa(y))
		}
		return out
	}
	if yearPrefixPattern.MatchString(text) {
		return []string{text[:4]}
	}
	return []string{text}
}

// ExtractCompat reads the compatibility sub-table in sampled mode (first
// visible sub-page only) or exhaustive mode (every sub-page of the control).
// Sub-page failures truncate the result; they never fail the record.
func ExtractCompat(ctx context.Context, pager CompatPager, mode string) *CompatResult {
	result := &CompatResult{}

	doc, err := pager.Current(ctx)
	if err != nil {
		log.Warnf("Compatibility extraction skipped: %v", err)
		return result
	}

	first := parseCompatPage(doc)
	if !first.exists {
		return result
	}
	result.TableFound = true
	result.TotalPages = first.totalPages
	if !first.hasTable {
		return result
	}

	makes := append([]string(nil), first.makes...)
	var years []string
	for _, y := range first.years {
		years = append(years, ExpandYears(y)...)
	}
	result.PagesServed = 1

	switch {
	case mode == config.CompatExhaustive && first.totalPages > 1:
		for pg := 2; pg <= first.totalPages; pg++ {
			if ctx.Err() != nil {
				break
			}
			pageDoc, err := pager.Activate(ctx, pg)
			if err != nil {
				log.Warnf("Compatibility sub-page %d failed: %v", pg, err)
				break
			}
			page := parseCompatPage(pageDoc)
			if len(page.makes) == 0 && len(page.years) == 0 {
				// Zero rows could be end of data or a desynced control;
				// neither interpretation is safe to assume.
				log.Warnf("Compatibility sub-page %d of %d yielded no rows, stopping traversal", pg, first.totalPages)
				break
			}
			makes = append(makes, page.makes...)
			for _, y := range page.years {
				years = append(years, ExpandYears(y)...)
			}
			result.PagesServed++

			if pg%compatProgressInterval == 0 {
				log.Infof("🚗 Compatibility sub-page %d/%d: %d makes, %d years so far",
					pg, first.totalPages, len(dedupSorted(makes)), len(dedupSorted(years)))
			}
		}
		if result.PagesServed < result.TotalPages {
			desync := PaginationDesyncError{Reported: result.TotalPages, Served: result.PagesServed}
			log.Warnf("⚠️ %v", desync)
			result.Truncated = true
		}
	case first.totalPages > 1:
		log.Debugf("Compatibility sampled: sub-page 1 of %d only", first.totalPages)
	}

	result.Makes = dedupSorted(makes)
	result.Years = dedupSorted(years)
	return result
}

type compatPage struct {
	exists     bool
	hasTable   bool
	totalPages int
	makes      []string
	years      []string
}

func parseCompatPage(doc *goquery.Document) compatPage {
	var page compatPage

	wrapper := doc.Find("#d-motors-compatibility-table").First()
	if wrapper.Length() == 0 {
		return page
	}
	page.exists = true

	// Total page count comes from the highest-numbered pagination label,
	// falling back to the button count when the label is unparsable.
	buttons := wrapper.Find("button.pagination__item")
	if buttons.Length() > 0 {
		last := strings.TrimSpace(buttons.Last().Text())
		if n, err := strconv.Atoi(last); err == nil && n > 0 {
			page.totalPages = n
		} else {
			page.totalPages = buttons.Length()
		}
	}

	table := wrapper.Find("table").First()
	if table.Length() == 0 {
		return page
	}
	page.hasTable = true

	makeIdx, yearIdx := -1, -1
	table.Find("thead th, thead td").Each(func(i int, th *goquery.Selection) {
		switch strings.ToLower(strings.TrimSpace(th.Text())) {
		case "make":
			makeIdx = i
		case "year":
			yearIdx = i
		}
	})

	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		rows = table.Find("tr")
	}
	rows.Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if makeIdx >= 0 && makeIdx < cells.Length() {
			text := strings.TrimSpace(cells.Eq(makeIdx).Text())
			if text != "" && strings.ToLower(text) != "make" {
				page.makes = append(page.makes, text)
			}
		}
		if yearIdx >= 0 && yearIdx < cells.Length() {
			text := strings.TrimSpace(cells.Eq(yearIdx).Text())
			if text != "" && strings.ToLower(text) != "year" {
				page.years = append(page.years, text)
			}
		}
	})

	return page
}

// dedupSorted deduplicates with case-sensitive exact matching and sorts for
// deterministic output.
func dedupSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// httpCompatPager serves sub-pages of the compatibility control over HTTP.
// The first sub-page is the one already rendered on the detail page.
type httpCompatPager struct {
	client  *ebayClient
	itemID  domain.ItemID
	current *goquery.Document
}

func (p *httpCompatPager) Current(ctx context.Context) (*goquery.Document, error) {
	return p.current, nil
}

func (p *httpCompatPager) Activate(ctx context.Context, page int) (*goquery.Document, error) {
	url := fmt.Sprintf("%s/itm/%s?module=FITMENTS&page=%d", p.client.baseURL, p.itemID, page)
	return p.client.FetchPage(ctx, url)
}
