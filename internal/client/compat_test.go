package client

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebaystore/parser/internal/config"
)

func TestExpandYears(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single year", "2015", []string{"2015"}},
		{"hyphen range", "2009-2012", []string{"2009", "2010", "2011", "2012"}},
		{"en-dash range", "2015–2016", []string{"2015", "2016"}},
		{"range with spaces", "2010 - 2012", []string{"2010", "2011", "2012"}},
		{"year with suffix", "2012 Model", []string{"2012"}},
		{"non-year literal", "All Years", []string{"All Years"}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"reversed range", "2015-2009", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandYears(tt.in))
		})
	}
}

func compatPageHTML(totalPages int, rows [][2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="d-motors-compatibility-table">`)
	if totalPages > 1 {
		b.WriteString(`<div class="pagination">`)
		for i := 1; i <= totalPages; i++ {
			fmt.Fprintf(&b, `<button class="pagination__item">%d</button>`, i)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`<table><thead><tr><th>Make</th><th>Model</th><th>Year</th></tr></thead><tbody>`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>Any</td><td>%s</td></tr>`, row[0], row[1])
	}
	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

type fakeCompatPager struct {
	pages     map[int]string
	activated []int
	activate  func(page int) (string, error)
}

func (p *fakeCompatPager) Current(ctx context.Context) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.pages[1]))
}

func (p *fakeCompatPager) Activate(ctx context.Context, page int) (*goquery.Document, error) {
	p.activated = append(p.activated, page)
	if p.activate != nil {
		html, err := p.activate(page)
		if err != nil {
			return nil, err
		}
		return goquery.NewDocumentFromReader(strings.NewReader(html))
	}
	return goquery.NewDocumentFromReader(strings.NewReader(p.pages[page]))
}

func TestExtractCompatNoTable(t *testing.T) {
	pager := &fakeCompatPager{pages: map[int]string{1: `<html><body><h1>Item</h1></body></html>`}}

	result := ExtractCompat(context.Background(), pager, config.CompatExhaustive)

	assert.False(t, result.TableFound)
	assert.Empty(t, result.Makes)
	assert.Empty(t, result.Years)
	assert.Empty(t, pager.activated)
}

func TestExtractCompatEmptyTable(t *testing.T) {
	pager := &fakeCompatPager{pages: map[int]string{1: compatPageHTML(1, nil)}}

	result := ExtractCompat(context.Background(), pager, config.CompatExhaustive)

	assert.True(t, result.TableFound)
	assert.Empty(t, result.Makes)
	assert.Empty(t, result.Years)
}

func TestExtractCompatSampledReadsFirstPageOnly(t *testing.T) {
	pager := &fakeCompatPager{pages: map[int]string{
		1: compatPageHTML(3, [][2]string{{"Ford", "2009-2011"}, {"Vauxhall", "2015"}}),
		2: compatPageHTML(3, [][2]string{{"BMW", "2018"}}),
	}}

	result := ExtractCompat(context.Background(), pager, config.CompatSampled)

	assert.Equal(t, []string{"Ford", "Vauxhall"}, result.Makes)
	assert.Equal(t, []string{"2009", "2010", "2011", "2015"}, result.Years)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 1, result.PagesServed)
	assert.Empty(t, pager.activated, "sampled mode must not activate sub-pages")
}

func TestExtractCompatExhaustiveWalksAllPages(t *testing.T) {
	pager := &fakeCompatPager{pages: map[int]string{
		1: compatPageHTML(3, [][2]string{{"Ford", "2009-2010"}}),
		2: compatPageHTML(3, [][2]string{{"BMW", "2010"}}),
		3: compatPageHTML(3, [][2]string{{"Audi", "2011"}, {"Ford", "2012"}}),
	}}

	result := ExtractCompat(context.Background(), pager, config.CompatExhaustive)

	assert.Equal(t, []int{2, 3}, pager.activated)
	assert.Equal(t, []string{"Audi", "BMW", "Ford"}, result.Makes)
	assert.Equal(t, []string{"2009", "2010", "2011", "2012"}, result.Years)
	assert.Equal(t, 3, result.PagesServed)
	assert.False(t, result.Truncated)
}

func TestExtractCompatStopsOnEmptySubPage(t *testing.T) {
	pager := &fakeCompatPager{pages: map[int]string{
		1: compatPageHTML(4, [][2]string{{"Ford", "2009"}}),
		2: compatPageHTML(4, nil),
		3: compatPageHTML(4, [][2]string{{"BMW", "2010"}}),
	}}

	result := ExtractCompat(context.Background(), pager, config.CompatExhaustive)

	assert.Equal(t, []int{2}, pager.activated, "traversal must stop at the first empty sub-page")
	assert.Equal(t, []string{"Ford"}, result.Makes)
	assert.True(t, result.Truncated)
	assert.Equal(t, 1, result.PagesServed)
}

func TestExtractCompatSubPageFailureTruncates(t *testing.T) {
	pager := &fakeCompatPager{
		pages: map[int]string{1: compatPageHTML(3, [][2]string{{"Ford", "2009"}})},
		activate: func(page int) (string, error) {
			if page == 2 {
				return compatPageHTML(3, [][2]string{{"BMW", "2010"}}), nil
			}
			return "", fmt.Errorf("sub-page %d unavailable", page)
		},
	}

	result := ExtractCompat(context.Background(), pager, config.CompatExhaustive)

	assert.Equal(t, []string{"BMW", "Ford"}, result.Makes)
	assert.Equal(t, []string{"2009", "2010"}, result.Years)
	assert.Equal(t, 2, result.PagesServed)
	assert.True(t, result.Truncated)
}

func TestParseCompatPageButtonCountFallback(t *testing.T) {
	html := `<html><body><div id="d-motors-compatibility-table">
		<button class="pagination__item">Next</button>
		<button class="pagination__item">Last</button>
		<table><thead><tr><th>Make</th><th>Year</th></tr></thead>
		<tbody><tr><td>Ford</td><td>2009</td></tr></tbody></table>
	</div></body></html>`

	page := parseCompatPage(docFromHTML(t, html))

	assert.Equal(t, 2, page.totalPages)
	assert.Equal(t, []string{"Ford"}, page.makes)
}

func TestParseCompatPageSkipsHeaderEchoCells(t *testing.T) {
	html := `<html><body><div id="d-motors-compatibility-table">
		<table><thead><tr><th>Make</th><th>Year</th></tr></thead>
		<tbody>
			<tr><td>Make</td><td>Year</td></tr>
			<tr><td>Ford</td><td>2009</td></tr>
		</tbody></table>
	</div></body></html>`

	page := parseCompatPage(docFromHTML(t, html))

	assert.Equal(t, []string{"Ford"}, page.makes)
	assert.Equal(t, []string{"2009"}, page.years)
}
