package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"houses_scraper/models"
)

var (
	currencyRegex = regexp.MustCompile(`R\$\s*`)
	newlineRegex  = regexp.MustCompile(`\s*[\r\n]+\s*`)
)

// Fields is the raw data pulled from one detail page.
type Fields struct {
	Title           string
	Price           string
	AdditionalPrice []string
	Address         string
	Properties      []string
	ListingType     string
	Images          []string
	Description     string
	PublishedAt     string

	// Missing lists the scalar fields that fell back to models.Undefined.
	Missing []string
}

// Apply copies the extracted fields onto a listing.
func (f *Fields) Apply(l *models.Listing) {
	l.Title = f.Title
	l.Price = f.Price
	l.AdditionalPrice = f.AdditionalPrice
	l.Address = f.Address
	l.Properties = f.Properties
	l.ListingType = f.ListingType
	l.Images = f.Images
	l.Description = f.Description
	l.PublishedAt = f.PublishedAt
}

type scalarField struct {
	name     string
	selector string
	dst      func(*Fields) *string
}

type listField struct {
	name     string
	selector string
	attr     string
	dst      func(*Fields) *[]string
}

var scalarFields = []scalarField{
	{"title", SelTitle, func(f *Fields) *string { return &f.Title }},
	{"price", SelPrice, func(f *Fields) *string { return &f.Price }},
	{"address", SelAddress, func(f *Fields) *string { return &f.Address }},
	{"listing_type", SelBusinessType, func(f *Fields) *string { return &f.ListingType }},
	{"description", SelDescription, func(f *Fields) *string { return &f.Description }},
	{"published_at", SelPublishedAt, func(f *Fields) *string { return &f.PublishedAt }},
}

var listFields = []listField{
	{"additional_price", SelAdditionalPrice, "", func(f *Fields) *[]string { return &f.AdditionalPrice }},
	{"properties", SelAmenity, "", func(f *Fields) *[]string { return &f.Properties }},
	{"images", SelImage, "srcset", func(f *Fields) *[]string { return &f.Images }},
}

// Listing extracts every known field from a detail page. A selector that
// matches nothing leaves models.Undefined (scalars) or an empty slice (lists);
// only unparseable HTML is an error.
func Listing(html string) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	f := &Fields{}
	for _, sf := range scalarFields {
		value, ok := isolate(func() (string, bool) { return One(doc.Selection, sf.selector) })
		if !ok {
			value = models.Undefined
			f.Missing = append(f.Missing, sf.name)
		}
		*sf.dst(f) = value
	}
	for _, lf := range listFields {
		values, _ := isolate(func() ([]string, bool) {
			if lf.attr != "" {
				return ManyAttr(doc.Selection, lf.selector, lf.attr), true
			}
			return Many(doc.Selection, lf.selector), true
		})
		if values == nil {
			values = []string{}
		}
		*lf.dst(f) = values
	}
	return f, nil
}

// isolate runs one field's extraction so a failure there leaves the field at
// its default instead of losing the whole listing.
func isolate[T any](fn func() (T, bool)) (value T, ok bool) {
	defer func() {
		if recover() != nil {
			var zero T
			value, ok = zero, false
		}
	}()
	return fn()
}

// One returns the normalized text of the first element matching selector.
func One(s *goquery.Selection, selector string) (string, bool) {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return Normalize(innerText(sel)), true
}

// Many returns the normalized text of every element matching selector.
func Many(s *goquery.Selection, selector string) []string {
	out := []string{}
	s.Find(selector).Each(func(i int, el *goquery.Selection) {
		out = append(out, Normalize(innerText(el)))
	})
	return out
}

// ManyAttr returns the normalized attribute of every matching element that has it.
func ManyAttr(s *goquery.Selection, selector, attr string) []string {
	out := []string{}
	s.Find(selector).Each(func(i int, el *goquery.Selection) {
		if v, ok := el.Attr(attr); ok && v != "" {
			out = append(out, Normalize(v))
		}
	})
	return out
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "section": true, "article": true,
}

// innerText renders the selection's text the way a browser lays it out:
// <br> and block boundaries become newlines.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch name := goquery.NodeName(c); {
			case name == "#text":
				b.WriteString(c.Text())
			case name == "br":
				b.WriteString("\n")
			case name == "script" || name == "style":
			case blockElements[name]:
				b.WriteString("\n")
				walk(c)
				b.WriteString("\n")
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return b.String()
}

// Normalize strips the currency prefix and non-breaking spaces, folds
// newlines into single spaces and trims the result.
func Normalize(text string) string {
	text = currencyRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\u00a0", "")
	text = newlineRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
