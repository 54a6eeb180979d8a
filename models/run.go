package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

type ScrapeRun struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at" db:"finished_at"`
	Status           RunStatus  `json:"status" db:"status"`
	PageLimit        int        `json:"page_limit" db:"page_limit"`
	PagesFetched     int        `json:"pages_fetched" db:"pages_fetched"`
	ListingsFound    int        `json:"listings_found" db:"listings_found"`
	ListingsNew      int        `json:"listings_new" db:"listings_new"`
	ListingsReplaced int        `json:"listings_replaced" db:"listings_replaced"`
	ListingsFailed   int        `json:"listings_failed" db:"listings_failed"`
	ErrorsCount      int        `json:"errors_count" db:"errors_count"`
}

// Duration returns how long the run took, or how long it has been running.
func (r *ScrapeRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
