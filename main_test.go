package main

import (
	"errors"
	"fmt"
	"testing"

	"houses_scraper/config"
	"houses_scraper/scraper"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&config.ValidationError{Field: "contact.name", Err: errors.New("is required")}, exitConfig},
		{fmt.Errorf("load: %w", &config.ValidationError{Field: "FETCHER"}), exitConfig},
		{&scraper.PageFetchError{Page: 2, URL: "u", Err: errors.New("timeout")}, exitPageFetch},
		{errors.New("boom"), exitFailure},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMaskConnectionString(t *testing.T) {
	got := maskConnectionString("postgres://scraper:s3cret@db:5432/houses")
	if got != "postgres://scraper:****@db:5432/houses" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := maskConnectionString("scraper.db"); got != "scraper.db" {
		t.Fatalf("expected plain paths to pass through, got %q", got)
	}
}
