package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"houses_scraper/extract"
	"houses_scraper/httputil"
	"houses_scraper/models"
)

var (
	// ErrNotInteractive is returned by documents fetched without a live page.
	ErrNotInteractive = errors.New("document is not interactive")
	// ErrNoContactForm means the detail page has no usable lead form.
	ErrNoContactForm = errors.New("contact form not found")
	// ErrNoConfirmation means the form was submitted but no confirmation panel appeared.
	ErrNoConfirmation = errors.New("contact confirmation not shown")
)

const (
	navigationTimeout = 60 * time.Second
	waitTimeout       = 30 * time.Second
	settleDelay       = time.Second
	formTimeout       = 5 * time.Second
	modalTimeout      = 3 * time.Second
)

// Fetcher loads a URL and hands back its rendered HTML plus whatever the
// engine could observe about the transport.
type Fetcher interface {
	// Fetch navigates to url. When waitFor is set, interactive engines wait
	// for that selector to become visible; a wait timeout is not an error.
	Fetch(ctx context.Context, url, waitFor string) (*Document, error)
	Close() error
}

// Session is the live page behind an interactive Document.
type Session interface {
	Screenshot(path string) error
	SubmitContact(ctx context.Context, form models.ContactForm) ([]string, error)
	Release() error
}

// Document is one fetched page.
type Document struct {
	URL       string
	HTML      string
	Transport models.Transport
	session   Session
}

func NewDocument(url, html string, transport models.Transport, session Session) *Document {
	return &Document{URL: url, HTML: html, Transport: transport, session: session}
}

func (d *Document) Interactive() bool {
	return d.session != nil
}

func (d *Document) Screenshot(path string) error {
	if d.session == nil {
		return ErrNotInteractive
	}
	return d.session.Screenshot(path)
}

// SubmitContact fills and submits the lead form and returns the phone numbers
// revealed by the confirmation panel.
func (d *Document) SubmitContact(ctx context.Context, form models.ContactForm) ([]string, error) {
	if d.session == nil {
		return nil, ErrNotInteractive
	}
	return d.session.SubmitContact(ctx, form)
}

// Release closes the underlying page. Safe to call on static documents.
func (d *Document) Release() error {
	if d.session == nil {
		return nil
	}
	s := d.session
	d.session = nil
	return s.Release()
}

// StatusError is returned when the server answered with an error status.
// Doc, when set, is the page as served; the receiver must release it.
type StatusError struct {
	URL    string
	Status int
	Reason string
	Doc    *Document
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.URL, e.Status, e.Reason)
}

// ReleaseFailed releases the document carried by a StatusError, if any.
func ReleaseFailed(err error) {
	var se *StatusError
	if errors.As(err, &se) && se.Doc != nil {
		se.Doc.Release()
	}
}

func statusError(doc *Document) *StatusError {
	return &StatusError{URL: doc.URL, Status: doc.Transport.StatusCode, Reason: doc.Transport.Reason, Doc: doc}
}

// ContactSelectors locate the lead form and its confirmation panel.
type ContactSelectors struct {
	Form   string
	Submit string
	Modal  string
}

func DefaultContactSelectors() ContactSelectors {
	return ContactSelectors{
		Form:   extract.SelContactForm,
		Submit: extract.SelContactSubmit,
		Modal:  extract.SelContactModal,
	}
}

// Options are shared by the engines; zero values fall back to defaults.
type Options struct {
	Headless    bool
	UserDataDir string
	ProxyURL    string
	UserAgent   string
	Contact     ContactSelectors
}

func (o Options) userAgent() string {
	if o.UserAgent == "" {
		return httputil.UserAgent()
	}
	return o.UserAgent
}

func (o Options) contact() ContactSelectors {
	if o.Contact.Form == "" {
		return DefaultContactSelectors()
	}
	return o.Contact
}

// phones keeps the tel: links of the confirmation panel, in order.
func phones(hrefs []string) []string {
	out := []string{}
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "tel:") {
			continue
		}
		if p := strings.TrimSpace(strings.TrimPrefix(href, "tel:")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hostOf(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// pause sleeps unless ctx is done first.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
