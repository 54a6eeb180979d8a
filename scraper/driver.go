package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"houses_scraper/extract"
	"houses_scraper/fetch"
	"houses_scraper/logging"
	"houses_scraper/models"
	"houses_scraper/search"
	"houses_scraper/storage"
)

const sourceDriver = "driver"

// Options configure one crawl.
type Options struct {
	Filter        search.Filter
	PageLimit     int
	Contact       models.ContactForm
	SubmitContact bool
	ScreenshotDir string
	Uploader      ScreenshotUploader
	Delay         time.Duration
	Jitter        time.Duration
}

// Renderer shows emitted listings to the operator.
type Renderer interface {
	Render(l *models.Listing)
}

type RendererFunc func(l *models.Listing)

func (f RendererFunc) Render(l *models.Listing) { f(l) }

// PageFetchError ends a run: a results page could not be loaded.
type PageFetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("fetch results page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// Result is everything one run produced.
type Result struct {
	Run      *models.ScrapeRun
	Pages    []models.PageResult
	Listings []*models.Listing
}

// Driver walks the paginated search results, dereferences every listing,
// persists it and hands it to the renderer.
type Driver struct {
	fetcher fetch.Fetcher
	store   storage.Store
	render  Renderer
	log     logging.LogFunc
	opts    Options
}

func NewDriver(fetcher fetch.Fetcher, store storage.Store, render Renderer, log logging.LogFunc, opts Options) *Driver {
	if render == nil {
		render = RendererFunc(func(*models.Listing) {})
	}
	if log == nil {
		log = logging.NoOp
	}
	if opts.Filter.BaseURL == "" {
		opts.Filter.BaseURL = search.DefaultBaseURL
	}
	return &Driver{fetcher: fetcher, store: store, render: render, log: log, opts: opts}
}

// Run performs one crawl and records it in the store. The returned Result
// holds whatever was gathered even when err is non-nil.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	// Bookkeeping must land even when ctx is cancelled mid-run.
	bg := context.WithoutCancel(ctx)

	run := &models.ScrapeRun{
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
		PageLimit: max(d.opts.PageLimit, 1),
	}
	if err := d.store.CreateRun(bg, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	runID := run.ID
	var logFailed sync.Once
	log := logging.Tee(d.log, func(level models.LogLevel, source, message string) {
		if err := d.store.Log(bg, &runID, level, source, message); err != nil {
			logFailed.Do(func() {
				d.log.Logf(models.LogLevelWarn, sourceDriver, "run %s: storing log entries failed: %v", runID, err)
			})
		}
	})

	pacer := NewPacer(d.opts.Delay, d.opts.Jitter)
	deref := NewDereferencer(d.fetcher, pacer, d.opts, log)
	result := &Result{Run: run}

	log.Logf(models.LogLevelInfo, sourceDriver, "run %s started, up to %d pages", run.ID, run.PageLimit)
	err := d.crawl(ctx, bg, result, pacer, deref, log)

	now := time.Now()
	run.FinishedAt = &now
	run.ListingsFailed = deref.Failed()
	switch {
	case err == nil:
		run.Status = models.RunStatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Status = models.RunStatusCancelled
	default:
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		log.Logf(models.LogLevelError, sourceDriver, "%v", err)
	}

	log.Logf(models.LogLevelInfo, sourceDriver,
		"run %s %s in %s: %d pages, %d listings (%d new, %d replaced, %d failed)",
		run.ID, run.Status, run.Duration().Round(time.Second), run.PagesFetched,
		run.ListingsFound, run.ListingsNew, run.ListingsReplaced, run.ListingsFailed)

	if uerr := d.store.UpdateRun(bg, run); uerr != nil {
		d.log.Logf(models.LogLevelError, sourceDriver, "update run %s: %v", run.ID, uerr)
	}
	return result, err
}

func (d *Driver) crawl(ctx, bg context.Context, result *Result, pacer *Pacer, deref *Dereferencer, log logging.LogFunc) error {
	run := result.Run
	cursor := search.NewCursor(&d.opts.Filter, run.PageLimit)
	url := cursor.URL()
	sitePages := 0

	for {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		log.Logf(models.LogLevelInfo, sourceDriver, "page %d/%d: %s", cursor.Page, cursor.Limit, url)
		doc, err := d.fetcher.Fetch(ctx, url, extract.SelResultsList)
		if err != nil {
			if ctx.Err() != nil {
				fetch.ReleaseFailed(err)
				return ctx.Err()
			}
			d.diagnose(cursor.Page, err, log)
			return &PageFetchError{Page: cursor.Page, URL: url, Err: err}
		}
		html := doc.HTML
		page := models.PageResult{
			URL:       url,
			Page:      cursor.Page,
			Transport: doc.Transport,
			HTML:      html,
			FetchedAt: time.Now(),
		}
		doc.Release()
		run.PagesFetched++

		links, _ := extract.ListingLinks(html)
		for _, href := range links {
			if abs, err := extract.Resolve(d.opts.Filter.BaseURL, href); err == nil {
				page.ListingURLs = append(page.ListingURLs, abs)
			}
		}
		if len(links) == 0 {
			log.Logf(models.LogLevelWarn, sourceDriver, "page %d has no listings", cursor.Page)
		}
		if n := extract.PageCount(html); n > sitePages {
			sitePages = n
		}

		for listing := range deref.Dereference(ctx, html) {
			run.ListingsFound++
			d.persist(bg, run, listing, log)
			d.render.Render(listing)
			result.Listings = append(result.Listings, listing)
		}
		result.Pages = append(result.Pages, page)

		if err := ctx.Err(); err != nil {
			return err
		}
		if cursor.Last() {
			return nil
		}
		if sitePages > 0 && cursor.Page >= sitePages {
			log.Logf(models.LogLevelInfo, sourceDriver, "site has no pages after %d", cursor.Page)
			return nil
		}
		url = cursor.Advance()
	}
}

func (d *Driver) persist(ctx context.Context, run *models.ScrapeRun, l *models.Listing, log logging.LogFunc) {
	exists, err := d.store.Exists(ctx, l.URL)
	if err != nil {
		run.ErrorsCount++
		log.Logf(models.LogLevelError, sourceDriver, "lookup %s: %v", l.URL, err)
		return
	}
	if exists {
		log.Logf(models.LogLevelInfo, sourceDriver, "replacing %s", l.URL)
	}

	replaced, err := d.store.Replace(ctx, l)
	if err != nil {
		run.ErrorsCount++
		log.Logf(models.LogLevelError, sourceDriver, "save %s: %v", l.URL, err)
		return
	}
	if replaced {
		run.ListingsReplaced++
	} else {
		run.ListingsNew++
	}
}

// diagnose saves what the failing results page looked like: a screenshot
// when the engine has a live page, the served HTML otherwise.
func (d *Driver) diagnose(page int, err error, log logging.LogFunc) {
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.Doc == nil || d.opts.ScreenshotDir == "" {
		fetch.ReleaseFailed(err)
		return
	}
	defer se.Doc.Release()

	base := filepath.Join(d.opts.ScreenshotDir, fmt.Sprintf("page-%d", page))
	if se.Doc.Interactive() {
		if serr := se.Doc.Screenshot(base + ".png"); serr == nil {
			log.Logf(models.LogLevelInfo, sourceDriver, "saved %s.png", base)
			return
		}
	}

	if mkErr := os.MkdirAll(d.opts.ScreenshotDir, 0755); mkErr != nil {
		return
	}
	if werr := os.WriteFile(base+".html", []byte(se.Doc.HTML), 0644); werr == nil {
		log.Logf(models.LogLevelInfo, sourceDriver, "saved %s.html", base)
	}
}
