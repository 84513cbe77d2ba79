package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"ebaystore/parser/internal/domain"
)

// CSVWriter writes exploded product rows to a Shopify-style import CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	vendor string
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename, vendor string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(ShopifyColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{file: f, writer: writer, vendor: vendor}, nil
}

// Write explodes each record into rows and appends them to the output.
func (cw *CSVWriter) Write(records []domain.DetailRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for i := range records {
		for _, row := range Rows(&records[i], cw.vendor) {
			values := make([]string, len(ShopifyColumns))
			for c, column := range ShopifyColumns {
				values[c] = row[column]
			}
			if err := cw.writer.Write(values); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return cw.file.Close()
}

// PageRow is one crawled page with the images found on it.
type PageRow struct {
	PageURL   string
	PageTitle string
	Images    []ImageRef
}

// ImageRef is one discovered image and the pages it was found on.
type ImageRef struct {
	Src     string
	Alt     string
	FoundOn []string
}

// WritePagesCSV writes crawled pages with one image per row; page columns
// appear only on the first row of each page's group.
func WritePagesCSV(filename string, pages []PageRow) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create pages csv: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"page_url", "page_title", "image_url", "image_alt"}); err != nil {
		return fmt.Errorf("write pages csv header: %w", err)
	}

	for _, page := range pages {
		if len(page.Images) == 0 {
			if err := writer.Write([]string{page.PageURL, page.PageTitle, "", ""}); err != nil {
				return fmt.Errorf("write pages csv record: %w", err)
			}
			continue
		}
		for i, img := range page.Images {
			url, title := "", ""
			if i == 0 {
				url, title = page.PageURL, page.PageTitle
			}
			if err := writer.Write([]string{url, title, img.Src, img.Alt}); err != nil {
				return fmt.Errorf("write pages csv record: %w", err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteUniqueImagesCSV writes the deduplicated image registry sorted by URL.
func WriteUniqueImagesCSV(filename string, images map[string]*ImageRef) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create images csv: %w", err)
	}
	defer f.Close()

	urls := make([]string, 0, len(images))
	for u := range images {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"src", "alt", "pages_found_on", "page_count"}); err != nil {
		return fmt.Errorf("write images csv header: %w", err)
	}
	for _, u := range urls {
		img := images[u]
		row := []string{u, img.Alt, strings.Join(img.FoundOn, "; "), strconv.Itoa(len(img.FoundOn))}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write images csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
