package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"houses_scraper/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		price TEXT,
		additional_price JSON,
		address TEXT,
		properties JSON,
		listing_type TEXT,
		images JSON,
		description TEXT,
		published_at TEXT,
		contacts JSON,
		status_code INTEGER,
		reason TEXT,
		client_ip TEXT,
		server_ip TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		page_limit INTEGER,
		pages_fetched INTEGER,
		listings_found INTEGER,
		listings_new INTEGER,
		listings_replaced INTEGER,
		listings_failed INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		timestamp DATETIME,
		level TEXT,
		source TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE url = ?)`, url).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) Replace(ctx context.Context, l *models.Listing) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE url = ?`, l.URL)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", l.URL, err)
	}
	deleted, _ := res.RowsAffected()

	status, reason, clientIP, serverIP := transportColumns(l.Transport)
	var createdAt any
	err = tx.QueryRowContext(ctx, `
		INSERT INTO listings (url, title, price, additional_price, address, properties,
			listing_type, images, description, published_at, contacts,
			status_code, reason, client_ip, server_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		l.URL, l.Title, l.Price, encodeList(l.AdditionalPrice), l.Address, encodeList(l.Properties),
		l.ListingType, encodeList(l.Images), l.Description, l.PublishedAt, encodeList(l.Contacts),
		status, reason, clientIP, serverIP).Scan(&l.ID, &createdAt)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", l.URL, err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	l.CreatedAt, err = sqliteTime(createdAt)
	if err != nil {
		return false, fmt.Errorf("read created_at of %s: %w", l.URL, err)
	}
	return deleted > 0, nil
}

// sqliteTime reads a CURRENT_TIMESTAMP value. RETURNING columns carry no
// declared type, so the driver may hand back the raw text.
func sqliteTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.DateTime, t)
	case []byte:
		return time.Parse(time.DateTime, string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp %T", v)
	}
}

func (s *SQLiteStore) Get(ctx context.Context, url string) (*models.Listing, error) {
	var (
		l                                        models.Listing
		additional, properties, images, contacts string
		status                                   *int
		reason, clientIP, serverIP               *string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, price, additional_price, address, properties, listing_type,
			images, description, published_at, contacts,
			status_code, reason, client_ip, server_ip, created_at
		FROM listings WHERE url = ?`, url).Scan(
		&l.ID, &l.URL, &l.Title, &l.Price, &additional, &l.Address, &properties, &l.ListingType,
		&images, &l.Description, &l.PublishedAt, &contacts,
		&status, &reason, &clientIP, &serverIP, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l.AdditionalPrice = decodeList(additional)
	l.Properties = decodeList(properties)
	l.Images = decodeList(images)
	l.Contacts = decodeList(contacts)
	l.Transport = transportFrom(status, reason, clientIP, serverIP)
	return &l, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.ScrapeRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_runs (id, started_at, status, page_limit, pages_fetched, listings_found,
			listings_new, listings_replaced, listings_failed, errors_count)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, 0)`,
		run.ID.String(), run.StartedAt, run.Status, run.PageLimit)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs SET finished_at = ?, status = ?, pages_fetched = ?, listings_found = ?,
			listings_new = ?, listings_replaced = ?, listings_failed = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesFetched, run.ListingsFound,
		run.ListingsNew, run.ListingsReplaced, run.ListingsFailed, run.ErrorsCount, run.ID.String())
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, runID *uuid.UUID, level models.LogLevel, source, message string) error {
	var id any
	if runID != nil {
		id = runID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_logs (run_id, timestamp, level, source, message)
		VALUES (?, ?, ?, ?, ?)`,
		id, time.Now(), level, source, message)
	return err
}

// GetRun loads a recorded run.
func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	var (
		run   models.ScrapeRun
		rawID string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, page_limit, pages_fetched, listings_found,
			listings_new, listings_replaced, listings_failed, errors_count
		FROM scrape_runs WHERE id = ?`, id.String()).Scan(
		&rawID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.PageLimit, &run.PagesFetched,
		&run.ListingsFound, &run.ListingsNew, &run.ListingsReplaced, &run.ListingsFailed, &run.ErrorsCount)
	if err != nil {
		return nil, err
	}
	run.ID, err = uuid.Parse(rawID)
	return &run, err
}

// LogCount returns the number of log lines recorded for a run.
func (s *SQLiteStore) LogCount(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scrape_logs WHERE run_id = ?`, runID.String()).Scan(&count)
	return count, err
}
