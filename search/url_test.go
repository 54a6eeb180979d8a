package search

import (
	"strings"
	"testing"
)

func TestURL_RentSaoPaulo(t *testing.T) {
	f := DefaultFilter()
	f.State = "sp"
	f.Country = "sao-paulo"
	f.Rooms = 2

	got := f.URL(1)
	path, fragment, ok := strings.Cut(got, "#")
	if !ok {
		t.Fatalf("expected a fragment in %s", got)
	}
	if !strings.HasSuffix(path, "/aluguel/sp/sao-paulo") {
		t.Fatalf("unexpected path %s", path)
	}
	if !strings.Contains(fragment, "quartos=2") {
		t.Fatalf("expected quartos=2 in fragment %s", fragment)
	}
}

func TestURL_FullFilter(t *testing.T) {
	f := Filter{
		BaseURL:       "https://www.vivareal.com.br/",
		ListingType:   ListingSale,
		State:         "sp",
		Country:       "sao-paulo",
		Region:        "zona-sul",
		Rooms:         3,
		MinPrice:      500,
		MaxPrice:      1100,
		Sort:          SortPriceDesc,
		PropertyTypes: []PropertyType{PropertyHouse, PropertyApartment},
	}

	want := "https://www.vivareal.com.br/venda/sp/sao-paulo/zona-sul?pagina=3" +
		"#quartos=3&preco-desde=500&preco-ate=1100&ordenar-por=preco:DESC" +
		"&tipos=casa_residencial,apartamento_residencial"
	if got := f.URL(3); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestURL_HierarchyStopsAtMissingParent(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "no listing type drops location",
			filter: Filter{BaseURL: DefaultBaseURL, State: "sp", Country: "sao-paulo"},
			want:   DefaultBaseURL,
		},
		{
			name:   "region without country",
			filter: Filter{BaseURL: DefaultBaseURL, ListingType: ListingRent, State: "sp", Region: "zona-sul"},
			want:   DefaultBaseURL + "/aluguel/sp",
		},
		{
			name:   "country without state",
			filter: Filter{BaseURL: DefaultBaseURL, ListingType: ListingLaunch, Country: "sao-paulo", Region: "zona-sul"},
			want:   DefaultBaseURL + "/imoveis-lancamento",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.URL(1); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestURL_OmitsUnsetQueryFlags(t *testing.T) {
	f := Filter{BaseURL: DefaultBaseURL, ListingType: ListingRent}
	got := f.URL(1)
	if strings.Contains(got, "#") || strings.Contains(got, "?") {
		t.Fatalf("expected no query or fragment, got %s", got)
	}

	f.MaxPrice = 3000
	got = f.URL(1)
	for _, unwanted := range []string{"quartos", "preco-desde", "ordenar-por", "tipos"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("unexpected %s in %s", unwanted, got)
		}
	}
	if !strings.HasSuffix(got, "#preco-ate=3000") {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestURL_Deterministic(t *testing.T) {
	f := DefaultFilter()
	f.State = "sp"
	f.MinPrice = 1000
	f.PropertyTypes = []PropertyType{PropertyFlat, PropertyKitnet}

	first := f.URL(2)
	for i := 0; i < 10; i++ {
		if got := f.URL(2); got != first {
			t.Fatalf("url changed between calls: %s vs %s", first, got)
		}
	}
}

func TestCursor_AdvanceAndLast(t *testing.T) {
	f := DefaultFilter()
	c := NewCursor(&f, 3)

	if c.Page != 1 || strings.Contains(c.URL(), "pagina") {
		t.Fatalf("cursor should start on page 1, got %d (%s)", c.Page, c.URL())
	}
	if c.Last() {
		t.Fatalf("page 1 of 3 is not the last")
	}

	if got := c.Advance(); !strings.Contains(got, "?pagina=2") {
		t.Fatalf("expected page 2 url, got %s", got)
	}
	c.Advance()
	if c.Page != 3 || !c.Last() {
		t.Fatalf("expected last page 3, got %d", c.Page)
	}
	if c.Limit != 3 {
		t.Fatalf("limit must not move, got %d", c.Limit)
	}
}

func TestNewCursor_ClampsLimit(t *testing.T) {
	f := DefaultFilter()
	if c := NewCursor(&f, 0); c.Limit != 1 {
		t.Fatalf("expected limit 1, got %d", c.Limit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Filter)
		wantErr string
	}{
		{"defaults", func(f *Filter) {}, ""},
		{"max below min", func(f *Filter) { f.MinPrice, f.MaxPrice = 2000, 1000 }, "below min_price"},
		{"max only", func(f *Filter) { f.MaxPrice = 1000 }, ""},
		{"negative rooms", func(f *Filter) { f.Rooms = -1 }, "rooms"},
		{"bad listing type", func(f *Filter) { f.ListingType = "lease" }, "listing_type"},
		{"bad sort", func(f *Filter) { f.Sort = "cheapest" }, "sort"},
		{"bad property type", func(f *Filter) { f.PropertyTypes = []PropertyType{"castle"} }, "property type"},
		{"empty base url", func(f *Filter) { f.BaseURL = "" }, "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilter()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
