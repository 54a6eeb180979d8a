package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"houses_scraper/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		price TEXT,
		additional_price JSONB NOT NULL DEFAULT '[]',
		address TEXT,
		properties JSONB NOT NULL DEFAULT '[]',
		listing_type TEXT,
		images JSONB NOT NULL DEFAULT '[]',
		description TEXT,
		published_at TEXT,
		contacts JSONB NOT NULL DEFAULT '[]',
		status_code INTEGER,
		reason TEXT,
		client_ip TEXT,
		server_ip TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		page_limit INTEGER NOT NULL DEFAULT 1,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		listings_found INTEGER NOT NULL DEFAULT 0,
		listings_new INTEGER NOT NULL DEFAULT 0,
		listings_replaced INTEGER NOT NULL DEFAULT 0,
		listings_failed INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID REFERENCES scrape_runs(id) ON DELETE CASCADE,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		level TEXT NOT NULL,
		source TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE url = $1)`, url).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) Replace(ctx context.Context, l *models.Listing) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM listings WHERE url = $1`, l.URL)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", l.URL, err)
	}

	status, reason, clientIP, serverIP := transportColumns(l.Transport)
	query := `
		INSERT INTO listings (url, title, price, additional_price, address, properties,
			listing_type, images, description, published_at, contacts,
			status_code, reason, client_ip, server_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		l.URL, l.Title, l.Price, nonNil(l.AdditionalPrice), l.Address, nonNil(l.Properties),
		l.ListingType, nonNil(l.Images), l.Description, l.PublishedAt, nonNil(l.Contacts),
		status, reason, clientIP, serverIP,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", l.URL, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Get(ctx context.Context, url string) (*models.Listing, error) {
	query := `
		SELECT id, url, title, price, additional_price, address, properties, listing_type,
			images, description, published_at, contacts,
			status_code, reason, client_ip, server_ip, created_at
		FROM listings WHERE url = $1`

	var (
		l                          models.Listing
		status                     *int
		reason, clientIP, serverIP *string
	)
	err := s.pool.QueryRow(ctx, query, url).Scan(
		&l.ID, &l.URL, &l.Title, &l.Price, &l.AdditionalPrice, &l.Address, &l.Properties, &l.ListingType,
		&l.Images, &l.Description, &l.PublishedAt, &l.Contacts,
		&status, &reason, &clientIP, &serverIP, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.Transport = transportFrom(status, reason, clientIP, serverIP)
	return &l, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	return count, err
}

// =============================================================================
// Scrape Runs
// =============================================================================

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ScrapeRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_runs (id, started_at, status, page_limit)
		VALUES ($1, $2, $3, $4)`,
		run.ID, run.StartedAt, string(run.Status), run.PageLimit)
	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		UPDATE scrape_runs SET
			finished_at = $2, status = $3, pages_fetched = $4, listings_found = $5,
			listings_new = $6, listings_replaced = $7, listings_failed = $8, errors_count = $9
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, string(run.Status), run.PagesFetched, run.ListingsFound,
		run.ListingsNew, run.ListingsReplaced, run.ListingsFailed, run.ErrorsCount,
	)
	return err
}

// =============================================================================
// Scrape Logs
// =============================================================================

func (s *PostgresStore) Log(ctx context.Context, runID *uuid.UUID, level models.LogLevel, source, message string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_logs (run_id, timestamp, level, source, message)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, time.Now(), string(level), source, message)
	return err
}
