package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	listingIDRegex = regexp.MustCompile(`id-?(\d+)`)
	digitsRegex    = regexp.MustCompile(`\d+`)
)

// ListingLinks returns the hrefs of the listing cards on a results page, in
// document order. Cards without a link are skipped.
func ListingLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	doc.Find(SelListingLink).Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			links = append(links, strings.TrimSpace(href))
		}
	})
	return links, nil
}

// PageCount returns the highest page number offered by the pagination
// buttons, or 0 when the page has none.
func PageCount(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	highest := 0
	doc.Find(SelPageButton).Each(func(i int, s *goquery.Selection) {
		if v, ok := s.Attr("data-page"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > highest {
				highest = n
			}
		}
	})
	return highest
}

// Resolve turns a listing href into an absolute URL against base.
func Resolve(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// ListingID pulls the numeric listing id out of a detail-page URL, e.g.
// ".../casa-3-quartos-id-2712345678/" gives "2712345678". Returns "" when the
// path carries no number.
func ListingID(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if m := listingIDRegex.FindAllStringSubmatch(path, -1); len(m) > 0 {
		return m[len(m)-1][1]
	}
	if all := digitsRegex.FindAllString(path, -1); len(all) > 0 {
		return all[len(all)-1]
	}
	return ""
}
