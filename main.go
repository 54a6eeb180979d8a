package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"houses_scraper/config"
	"houses_scraper/fetch"
	"houses_scraper/httputil"
	"houses_scraper/logging"
	"houses_scraper/models"
	"houses_scraper/scheduler"
	"houses_scraper/scraper"
	"houses_scraper/storage"
	"houses_scraper/views"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitPageFetch = 3
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run scrape once and exit")
	searchPath = flag.String("search", "", "Search config file (default $SEARCH_CONFIG or "+config.DefaultSearchPath+")")
	pages      = flag.Int("pages", 0, "Override page_limit from the search config")
	fetcherArg = flag.String("fetcher", "", "Override FETCHER (browser, chrome or http)")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*searchPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitCode(err)
	}
	if *pages > 0 {
		cfg.Search.PageLimit = *pages
	}
	if *fetcherArg != "" {
		cfg.Scraper.Fetcher = *fetcherArg
		if err := cfg.Validate(); err != nil {
			log.Printf("Invalid flags: %v", err)
			return exitCode(err)
		}
	}

	logger, logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
		logger = log.Default()
	} else {
		defer logFile.Close()
	}
	reporter := logging.ToLogger(logger)

	logger.Printf("Starting houses_scraper (fetcher=%s, db=%s, pages=%d)",
		cfg.Scraper.Fetcher, cfg.Database.Driver, cfg.Search.PageLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Printf("Failed to open store: %v", err)
		return exitFailure
	}
	defer store.Close()

	var uploader scraper.ScreenshotUploader
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			logger.Printf("Failed to set up S3 uploads: %v", err)
			return exitFailure
		}
		uploader = s3
		logger.Printf("Uploading screenshots to s3://%s", cfg.S3.Bucket)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		logger.Printf("Failed to start %s fetcher: %v", cfg.Scraper.Fetcher, err)
		return exitFailure
	}
	defer fetcher.Close()

	console := views.NewConsole(os.Stdout, 100)
	driver := scraper.NewDriver(fetcher, store, console, reporter, scraper.Options{
		Filter:        cfg.Search.Filter,
		PageLimit:     cfg.Search.PageLimit,
		Contact:       cfg.Search.Contact,
		SubmitContact: cfg.Search.ShouldSubmitContact(),
		ScreenshotDir: cfg.Scraper.ScreenshotDir,
		Uploader:      uploader,
		Delay:         cfg.Scraper.Delay,
		Jitter:        cfg.Scraper.Jitter,
	})

	job := func(ctx context.Context) error {
		result, err := driver.Run(ctx)
		if result != nil {
			console.RenderSummary(result.Run)
		}
		return err
	}

	if *scrapeNow {
		logger.Println("Running scrape...")
		if err := job(ctx); err != nil {
			logger.Printf("Scrape failed: %v", err)
			return exitCode(err)
		}
		logger.Println("Scrape complete!")
		return exitOK
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, job, reporter)
	if err := sched.Start(ctx); err != nil {
		logger.Printf("Failed to start scheduler: %v (set SCRAPE_CRON or SCRAPE_INTERVAL, or pass -scrape)", err)
		return exitConfig
	}

	reporter(models.LogLevelInfo, "main", "daemon running, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Println("Shutting down...")
	sched.Stop()
	logger.Println("Goodbye!")
	return exitOK
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		logger.Printf("Connected to Postgres: %s", maskConnectionString(cfg.URL))
		return store, nil
	default:
		store, err := storage.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Printf("SQLite database: %s", cfg.Path)
		return store, nil
	}
}

func newFetcher(cfg *config.Config) (fetch.Fetcher, error) {
	opts := fetch.Options{
		Headless:    cfg.Scraper.Headless,
		UserDataDir: cfg.Scraper.BrowserDataDir,
		ProxyURL:    cfg.Proxy.URL,
		UserAgent:   httputil.UserAgent(),
	}

	switch cfg.Scraper.Fetcher {
	case "chrome":
		return fetch.NewChromeFetcher(opts)
	case "http":
		return fetch.NewHTTPFetcher(httputil.NewScrapingClient(cfg.Proxy), opts), nil
	case "browser":
		return fetch.NewBrowserFetcher(opts)
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Scraper.Fetcher)
	}
}

func exitCode(err error) int {
	var cfgErr *config.ValidationError
	var pageErr *scraper.PageFetchError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &pageErr):
		return exitPageFetch
	default:
		return exitFailure
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
