package search

import (
	"fmt"
	"strconv"
	"strings"
)

// URL builds the search-results URL for the given 1-based page.
//
// Path segments follow the location chain and are skipped as soon as a parent
// is missing. The page number is a query parameter (only past page 1) and the
// remaining filters go in the fragment, which is left off when empty.
func (f *Filter) URL(page int) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(f.BaseURL, "/"))

	if slug := listingTypeSlugs[f.ListingType]; slug != "" {
		b.WriteString("/" + slug)
		if f.State != "" {
			b.WriteString("/" + f.State)
			if f.Country != "" {
				b.WriteString("/" + f.Country)
				if f.Region != "" {
					b.WriteString("/" + f.Region)
				}
			}
		}
	}

	if page > 1 {
		b.WriteString("?pagina=" + strconv.Itoa(page))
	}

	if fragment := f.fragment(); fragment != "" {
		b.WriteString("#" + fragment)
	}
	return b.String()
}

func (f *Filter) fragment() string {
	var flags []string
	if f.Rooms > 0 {
		flags = append(flags, fmt.Sprintf("quartos=%d", f.Rooms))
	}
	if f.MinPrice > 0 {
		flags = append(flags, fmt.Sprintf("preco-desde=%d", f.MinPrice))
	}
	if f.MaxPrice > 0 {
		flags = append(flags, fmt.Sprintf("preco-ate=%d", f.MaxPrice))
	}
	if slug := sortSlugs[f.Sort]; slug != "" {
		flags = append(flags, "ordenar-por="+slug)
	}
	if len(f.PropertyTypes) > 0 {
		types := make([]string, 0, len(f.PropertyTypes))
		for _, pt := range f.PropertyTypes {
			if slug := propertyTypeSlugs[pt]; slug != "" {
				types = append(types, slug)
			}
		}
		if len(types) > 0 {
			flags = append(flags, "tipos="+strings.Join(types, ","))
		}
	}
	return strings.Join(flags, "&")
}

// Cursor walks the result pages of one run. Limit is fixed when the cursor is
// created; Page only moves forward through Advance.
type Cursor struct {
	filter *Filter
	Limit  int
	Page   int
}

func NewCursor(filter *Filter, limit int) *Cursor {
	if limit < 1 {
		limit = 1
	}
	return &Cursor{filter: filter, Limit: limit, Page: 1}
}

// URL returns the URL of the current page.
func (c *Cursor) URL() string {
	return c.filter.URL(c.Page)
}

// Advance moves to the next page and returns its URL.
func (c *Cursor) Advance() string {
	c.Page++
	return c.URL()
}

// Last reports whether the current page is the final one the run asked for.
func (c *Cursor) Last() bool {
	return c.Page >= c.Limit
}
