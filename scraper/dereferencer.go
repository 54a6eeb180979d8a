package scraper

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"

	"github.com/google/uuid"
	"houses_scraper/extract"
	"houses_scraper/fetch"
	"houses_scraper/logging"
	"houses_scraper/models"
)

const sourceDereferencer = "dereferencer"

// ScreenshotUploader copies a saved screenshot somewhere durable and returns
// where it ended up.
type ScreenshotUploader interface {
	UploadScreenshot(ctx context.Context, localPath string) (string, error)
}

// Dereferencer turns a results page into listing records by visiting every
// linked detail page. It remembers what it already emitted, so one instance
// must serve exactly one run.
type Dereferencer struct {
	fetcher  fetch.Fetcher
	pacer    *Pacer
	opts     Options
	uploader ScreenshotUploader
	log      logging.LogFunc

	seen   map[string]struct{}
	failed map[string]struct{}
}

func NewDereferencer(fetcher fetch.Fetcher, pacer *Pacer, opts Options, log logging.LogFunc) *Dereferencer {
	if log == nil {
		log = logging.NoOp
	}
	return &Dereferencer{
		fetcher:  fetcher,
		pacer:    pacer,
		opts:     opts,
		uploader: opts.Uploader,
		log:      log,
		seen:     make(map[string]struct{}),
		failed:   make(map[string]struct{}),
	}
}

// Failed returns how many distinct listings could not be fetched or parsed so
// far. A listing that fails on several pages counts once.
func (d *Dereferencer) Failed() int {
	return len(d.failed)
}

// Dereference lazily yields one listing per link on the results page, in
// document order. Links already emitted earlier in the run are skipped and a
// listing whose detail page cannot be loaded is logged and left out.
// Cancellation is observed before each listing.
func (d *Dereferencer) Dereference(ctx context.Context, pageHTML string) iter.Seq[*models.Listing] {
	return func(yield func(*models.Listing) bool) {
		links, err := extract.ListingLinks(pageHTML)
		if err != nil {
			d.log.Logf(models.LogLevelError, sourceDereferencer, "parse results page: %v", err)
			return
		}

		for _, href := range links {
			if ctx.Err() != nil {
				return
			}

			url, err := extract.Resolve(d.opts.Filter.BaseURL, href)
			if err != nil {
				d.failed[href] = struct{}{}
				d.log.Logf(models.LogLevelWarn, sourceDereferencer, "skip link %q: %v", href, err)
				continue
			}
			if _, ok := d.seen[url]; ok {
				d.log.Logf(models.LogLevelDebug, sourceDereferencer, "already emitted %s", url)
				continue
			}

			listing, err := d.dereference(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				d.failed[url] = struct{}{}
				d.log.Logf(models.LogLevelWarn, sourceDereferencer, "skip %s: %v", url, err)
				continue
			}

			d.seen[url] = struct{}{}
			delete(d.failed, url)
			if !yield(listing) {
				return
			}
		}
	}
}

func (d *Dereferencer) dereference(ctx context.Context, url string) (*models.Listing, error) {
	if err := d.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	doc, err := d.fetcher.Fetch(ctx, url, "")
	if err != nil {
		fetch.ReleaseFailed(err)
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer doc.Release()

	fields, err := extract.Listing(doc.HTML)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	listing := &models.Listing{URL: url, Contacts: []string{}}
	fields.Apply(listing)
	transport := doc.Transport
	listing.Transport = &transport

	if len(fields.Missing) > 0 {
		d.log.Logf(models.LogLevelDebug, sourceDereferencer, "%s: no match for %v", url, fields.Missing)
	}

	if !doc.Interactive() {
		return listing, nil
	}

	d.screenshot(ctx, doc, url)

	if d.opts.SubmitContact {
		contacts, err := doc.SubmitContact(ctx, d.opts.Contact)
		if err != nil {
			d.log.Logf(models.LogLevelWarn, sourceDereferencer, "contact form on %s: %v", url, err)
		} else {
			listing.Contacts = contacts
		}
	}

	return listing, nil
}

func (d *Dereferencer) screenshot(ctx context.Context, doc *fetch.Document, url string) {
	if d.opts.ScreenshotDir == "" {
		return
	}

	id := extract.ListingID(url)
	if id == "" {
		id = uuid.NewString()
	}
	path := filepath.Join(d.opts.ScreenshotDir, id+".png")

	if err := doc.Screenshot(path); err != nil {
		d.log.Logf(models.LogLevelWarn, sourceDereferencer, "screenshot of %s: %v", url, err)
		return
	}

	if d.uploader == nil {
		return
	}
	location, err := d.uploader.UploadScreenshot(ctx, path)
	if err != nil {
		d.log.Logf(models.LogLevelWarn, sourceDereferencer, "upload %s: %v", path, err)
		return
	}
	d.log.Logf(models.LogLevelDebug, sourceDereferencer, "screenshot of %s at %s", url, location)
}
