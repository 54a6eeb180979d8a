package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"houses_scraper/models"
)

// ErrNotFound is returned by Get when no listing has the URL.
var ErrNotFound = errors.New("listing not found")

// Store persists listings keyed by URL, plus the run history.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	// Replace deletes any row with the listing's URL and inserts the listing
	// in one transaction. It reports whether a row was replaced.
	Replace(ctx context.Context, l *models.Listing) (bool, error)
	Get(ctx context.Context, url string) (*models.Listing, error)
	Count(ctx context.Context) (int, error)

	CreateRun(ctx context.Context, run *models.ScrapeRun) error
	UpdateRun(ctx context.Context, run *models.ScrapeRun) error
	Log(ctx context.Context, runID *uuid.UUID, level models.LogLevel, source, message string) error

	Close() error
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func decodeList(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	json.Unmarshal([]byte(raw), &out)
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// transportColumns flattens the optional transport metadata into nullable
// column values.
func transportColumns(t *models.Transport) (status *int, reason, clientIP, serverIP *string) {
	if t == nil {
		return nil, nil, nil, nil
	}
	return &t.StatusCode, &t.Reason, &t.ClientIP, &t.ServerIP
}

func transportFrom(status *int, reason, clientIP, serverIP *string) *models.Transport {
	if status == nil {
		return nil
	}
	t := &models.Transport{StatusCode: *status}
	if reason != nil {
		t.Reason = *reason
	}
	if clientIP != nil {
		t.ClientIP = *clientIP
	}
	if serverIP != nil {
		t.ServerIP = *serverIP
	}
	return t
}
