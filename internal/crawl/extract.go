package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ebaystore/parser/internal/sink"
)

var followPatterns = map[string][]*regexp.Regexp{
	"product": {
		regexp.MustCompile(`(?i)/products?/`),
		regexp.MustCompile(`(?i)/item/`),
		regexp.MustCompile(`(?i)/p/`),
	},
	"category": {
		regexp.MustCompile(`(?i)/collections?/`),
		regexp.MustCompile(`(?i)/categor(y|ies)/`),
		regexp.MustCompile(`(?i)/shop/`),
		regexp.MustCompile(`(?i)/c/`),
	},
	"blog": {
		regexp.MustCompile(`(?i)/blogs?/`),
		regexp.MustCompile(`(?i)/news/`),
		regexp.MustCompile(`(?i)/articles?/`),
		regexp.MustCompile(`(?i)/posts?/`),
	},
}

var linkDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/cart`),
	regexp.MustCompile(`(?i)/checkout`),
	regexp.MustCompile(`(?i)/account`),
	regexp.MustCompile(`(?i)/login`),
	regexp.MustCompile(`(?i)/signin`),
	regexp.MustCompile(`(?i)/wishlist`),
	regexp.MustCompile(`(?i)[?&]add-to-cart=`),
}

var imageExcludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)logo`),
	regexp.MustCompile(`(?i)icon`),
	regexp.MustCompile(`(?i)sprite`),
	regexp.MustCompile(`(?i)placeholder`),
	regexp.MustCompile(`(?i)loading`),
	regexp.MustCompile(`(?i)spinner`),
	regexp.MustCompile(`(?i)badge`),
	regexp.MustCompile(`(?i)pixel\.`),
	regexp.MustCompile(`(?i)tracking`),
	regexp.MustCompile(`(?i)1x1`),
	regexp.MustCompile(`(?i)blank\.`),
	regexp.MustCompile(`(?i)\.svg(\?|$)`),
}

var skipExtensions = map[string]struct{}{
	".pdf": {}, ".zip": {}, ".gz": {}, ".doc": {}, ".docx": {},
	".xls": {}, ".xlsx": {}, ".mp3": {}, ".mp4": {}, ".avi": {},
	".mov": {}, ".exe": {}, ".dmg": {}, ".jpg": {}, ".jpeg": {},
	".png": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".ico": {},
	".css": {}, ".js": {}, ".xml": {}, ".rss": {},
}

var backgroundImagePattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// lazy-load attributes checked in order after plain src
var imageSrcAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// extractLinks returns normalized same-domain links worth scheduling.
func extractLinks(doc *goquery.Document, pageURL, domain string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if !sameDomain(resolved, domain) {
			return
		}
		if hasSkippedExtension(resolved) {
			return
		}
		for _, deny := range linkDenyPatterns {
			if deny.MatchString(resolved) {
				return
			}
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})
	return links
}

// extractImages collects content images from img tags (including lazy-load
// attributes) and inline background-image styles, skipping chrome assets.
func extractImages(doc *goquery.Document, pageURL string) []sink.ImageRef {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var images []sink.ImageRef

	add := func(src, alt string) {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved := resolveURL(base, src)
		if resolved == "" {
			return
		}
		for _, exclude := range imageExcludePatterns {
			if exclude.MatchString(resolved) {
				return
			}
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		images = append(images, sink.ImageRef{Src: resolved, Alt: alt})
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		alt, _ := sel.Attr("alt")
		for _, attr := range imageSrcAttrs {
			if src, ok := sel.Attr(attr); ok && strings.TrimSpace(src) != "" {
				add(src, strings.TrimSpace(alt))
				return
			}
		}
	})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		if !strings.Contains(style, "background") {
			return
		}
		for _, match := range backgroundImagePattern.FindAllStringSubmatch(style, -1) {
			add(match[1], "")
		}
	})

	return images
}

// resolveURL absolutizes href against base and strips fragments.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// sameDomain matches the crawl domain with and without a www prefix.
func sameDomain(rawURL, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	return host == domain || host == "www."+domain
}

func hasSkippedExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if _, ok := skipExtensions[path[idx:]]; ok {
			return true
		}
	}
	return false
}
