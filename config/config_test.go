package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"houses_scraper/search"
)

const validSearch = `
contact:
  name: Jose Felipe Santos
  email: jose.felipe@example.com
  phone: "11999999999"
state: sp
country: sao-paulo
rooms: 2
page_limit: 3
`

func TestParseSearch_Defaults(t *testing.T) {
	sc, err := ParseSearch([]byte(validSearch))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if sc.ListingType != search.ListingRent {
		t.Fatalf("expected default listing type rent, got %s", sc.ListingType)
	}
	if sc.Sort != search.SortTotalPriceAsc {
		t.Fatalf("expected default sort, got %s", sc.Sort)
	}
	if len(sc.PropertyTypes) != 1 || sc.PropertyTypes[0] != search.PropertyHouse {
		t.Fatalf("expected default property types [house], got %v", sc.PropertyTypes)
	}
	if sc.BaseURL != search.DefaultBaseURL {
		t.Fatalf("expected default base url, got %s", sc.BaseURL)
	}
	if sc.PageLimit != 3 || sc.Rooms != 2 || sc.State != "sp" || sc.Country != "sao-paulo" {
		t.Fatalf("unexpected search config %+v", sc)
	}
	if sc.Region != "" {
		t.Fatalf("region should be unset, got %q", sc.Region)
	}
	if !sc.ShouldSubmitContact() {
		t.Fatalf("contact submission should default to on")
	}
	if err := sc.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestParseSearch_Overrides(t *testing.T) {
	sc, err := ParseSearch([]byte(validSearch + `
listing_type: sale
sort: price_desc
property_types: [apartment, flat]
submit_contact: false
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if sc.ListingType != search.ListingSale || sc.Sort != search.SortPriceDesc {
		t.Fatalf("unexpected overrides %+v", sc.Filter)
	}
	if len(sc.PropertyTypes) != 2 || sc.PropertyTypes[1] != search.PropertyFlat {
		t.Fatalf("unexpected property types %v", sc.PropertyTypes)
	}
	if sc.ShouldSubmitContact() {
		t.Fatalf("contact submission should be off")
	}
}

func TestSearchValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		field string
	}{
		{"max below min", "min_price: 3000\nmax_price: 1000\n", "search"},
		{"page limit", "page_limit: 0\n", "page_limit"},
		{"unknown type", "listing_type: lease\n", "search"},
	}

	// yaml.v3 rejects duplicate keys, so the cases start without page_limit.
	base := strings.Replace(validSearch, "page_limit: 3\n", "", 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseSearch([]byte(base + tt.extra))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			err = sc.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestSearchValidate_ContactRequired(t *testing.T) {
	sc, err := ParseSearch([]byte("state: sp\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var verr *ValidationError
	if err := sc.Validate(); !errors.As(err, &verr) || verr.Field != "contact.name" {
		t.Fatalf("expected contact.name error, got %v", err)
	}

	sc.Contact.Name = "Jose"
	sc.Contact.Email = "not-an-email"
	sc.Contact.Phone = "11999999999"
	if err := sc.Validate(); !errors.As(err, &verr) || verr.Field != "contact.email" {
		t.Fatalf("expected contact.email error, got %v", err)
	}
}

func TestLoad_FromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")
	if err := os.WriteFile(path, []byte(validSearch), 0644); err != nil {
		t.Fatalf("write search file: %v", err)
	}

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "test.db"))
	t.Setenv("FETCHER", "http")
	t.Setenv("SCRAPE_DELAY_MS", "250")
	t.Setenv("SCRAPE_INTERVAL", "6h")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Scraper.Fetcher != "http" || cfg.Scraper.Headless {
		t.Fatalf("unexpected scraper config %+v", cfg.Scraper)
	}
	if cfg.Scraper.Delay != 250*time.Millisecond {
		t.Fatalf("expected 250ms delay, got %s", cfg.Scraper.Delay)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("expected 6h interval, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Search.PageLimit != 3 {
		t.Fatalf("expected page limit 3, got %d", cfg.Search.PageLimit)
	}
	if cfg.S3.Enabled() {
		t.Fatalf("s3 should be disabled without a bucket")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.yaml")
	if err := os.WriteFile(path, []byte(validSearch), 0644); err != nil {
		t.Fatalf("write search file: %v", err)
	}
	t.Setenv("DB_DRIVER", "mongo")

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "DB_DRIVER" {
		t.Fatalf("expected DB_DRIVER validation error, got %v", err)
	}
}
