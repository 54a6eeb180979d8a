package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"houses_scraper/fetch"
	"houses_scraper/models"
	"houses_scraper/storage"
)

const testBase = "https://www.vivareal.com.br"

func resultsPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="results-list">`)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<article class="property-card__container"><a class="property-card__content-link" href="%s">card</a></article>`, h)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func detailPage(title string) string {
	return `<html><body><h1 class="description__title">` + title + `</h1>` +
		`<p class="price-info-value">R$ 1.000</p></body></html>`
}

// fakeFetcher serves canned pages keyed by URL and records every request.
type fakeFetcher struct {
	mu          sync.Mutex
	pages       map[string]string
	errs        map[string]error
	interactive bool
	contacts    []string
	contactErr  error
	calls       []string
	screenshots []string
	onFetch     func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, waitFor string) (*fetch.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, url)
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(url)
	}

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, &fetch.StatusError{URL: url, Status: 404, Reason: "Not Found"}
	}

	transport := models.Transport{StatusCode: 200, Reason: "OK", ServerIP: "10.0.0.1"}
	var session fetch.Session
	if f.interactive {
		session = &fakeSession{f: f}
	}
	return fetch.NewDocument(url, html, transport, session), nil
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) count(url string) int {
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

type fakeSession struct{ f *fakeFetcher }

func (s *fakeSession) Screenshot(path string) error {
	s.f.screenshots = append(s.f.screenshots, path)
	return nil
}

func (s *fakeSession) SubmitContact(ctx context.Context, form models.ContactForm) ([]string, error) {
	if s.f.contactErr != nil {
		return nil, s.f.contactErr
	}
	return s.f.contacts, nil
}

func (s *fakeSession) Release() error { return nil }

// memStore is an in-memory storage.Store.
type memStore struct {
	mu       sync.Mutex
	rows     map[string]*models.Listing
	runs     map[uuid.UUID]models.ScrapeRun
	logs     []string
	failURLs map[string]bool
	logErr   error
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*models.Listing{}, runs: map[uuid.UUID]models.ScrapeRun{}, failURLs: map[string]bool{}}
}

var _ storage.Store = (*memStore)(nil)

func (s *memStore) Exists(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[url]
	return ok, nil
}

func (s *memStore) Replace(ctx context.Context, l *models.Listing) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failURLs[l.URL] {
		return false, errors.New("disk full")
	}
	_, existed := s.rows[l.URL]
	delete(s.rows, l.URL)
	s.nextID++
	cp := *l
	cp.ID = s.nextID
	s.rows[l.URL] = &cp
	return existed, nil
}

func (s *memStore) Get(ctx context.Context, url string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[url]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return l, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *memStore) CreateRun(ctx context.Context, run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = uuid.New()
	s.runs[run.ID] = *run
	return nil
}

func (s *memStore) UpdateRun(ctx context.Context, run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *memStore) Log(ctx context.Context, runID *uuid.UUID, level models.LogLevel, source, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, fmt.Sprintf("[%s] %s: %s", level, source, message))
	return nil
}

func (s *memStore) Close() error { return nil }
