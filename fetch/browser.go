package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"houses_scraper/models"
)

var browserArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
	"--no-sandbox",
}

// BrowserFetcher drives Chromium through playwright. Each Fetch opens a new
// page that stays alive until the Document is released.
type BrowserFetcher struct {
	opts    Options
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func NewBrowserFetcher(opts Options) (*BrowserFetcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	f := &BrowserFetcher{opts: opts, pw: pw}

	var proxy *playwright.Proxy
	if opts.ProxyURL != "" {
		proxy = &playwright.Proxy{Server: opts.ProxyURL}
	}
	viewport := &playwright.Size{Width: 1920, Height: 1080}

	if opts.UserDataDir != "" {
		dir, _ := filepath.Abs(opts.UserDataDir)
		f.context, err = pw.Chromium.LaunchPersistentContext(dir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  playwright.Bool(opts.Headless),
			Args:      browserArgs,
			Proxy:     proxy,
			UserAgent: playwright.String(opts.userAgent()),
			Viewport:  viewport,
		})
	} else {
		f.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			Args:     browserArgs,
			Proxy:    proxy,
		})
		if err == nil {
			f.context, err = f.browser.NewContext(playwright.BrowserNewContextOptions{
				UserAgent: playwright.String(opts.userAgent()),
				Viewport:  viewport,
			})
		}
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return f, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url, waitFor string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	page, err := f.context.NewPage()
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	var transport models.Transport
	if resp != nil {
		transport.StatusCode = resp.Status()
		transport.Reason = resp.StatusText()
		if addr, err := resp.ServerAddr(); err == nil && addr != nil {
			transport.ServerIP = addr.IpAddress
		}
	}
	session := &browserSession{page: page, sel: f.opts.contact()}
	if transport.StatusCode >= 400 {
		html, _ := page.Content()
		return nil, statusError(NewDocument(url, html, transport, session))
	}

	if waitFor != "" {
		page.Locator(waitFor).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(waitTimeout.Milliseconds())),
		})
	} else if err := pause(ctx, settleDelay); err != nil {
		page.Close()
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("read content of %s: %w", url, err)
	}

	return NewDocument(url, html, transport, session), nil
}

func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.context != nil {
		f.context.Close()
		f.context = nil
	}
	if f.browser != nil {
		f.browser.Close()
		f.browser = nil
	}
	if f.pw != nil {
		err := f.pw.Stop()
		f.pw = nil
		return err
	}
	return nil
}

type browserSession struct {
	page playwright.Page
	sel  ContactSelectors
}

func (s *browserSession) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)})
	return err
}

func (s *browserSession) SubmitContact(ctx context.Context, form models.ContactForm) ([]string, error) {
	formLoc := s.page.Locator(s.sel.Form).First()
	if err := formLoc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(formTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContactForm, err)
	}

	inputs := formLoc.Locator("input")
	if n, err := inputs.Count(); err != nil || n < 3 {
		return nil, fmt.Errorf("%w: expected 3 inputs, found %d", ErrNoContactForm, n)
	}

	for i, value := range []string{form.Name, form.Email, form.Phone} {
		if err := humanPause(ctx, 500); err != nil {
			return nil, err
		}
		if err := inputs.Nth(i).Fill(value); err != nil {
			return nil, fmt.Errorf("fill contact input %d: %w", i, err)
		}
	}

	if err := humanPause(ctx, 1000); err != nil {
		return nil, err
	}
	if err := s.page.Locator(s.sel.Submit).First().Click(); err != nil {
		return nil, fmt.Errorf("submit contact form: %w", err)
	}

	modal := s.page.Locator(s.sel.Modal).First()
	if err := modal.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(modalTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConfirmation, err)
	}

	links, err := modal.Locator("a").All()
	if err != nil {
		return nil, fmt.Errorf("read contact links: %w", err)
	}
	hrefs := make([]string, 0, len(links))
	for _, l := range links {
		if href, err := l.GetAttribute("href"); err == nil {
			hrefs = append(hrefs, href)
		}
	}
	return phones(hrefs), nil
}

func (s *browserSession) Release() error {
	return s.page.Close()
}

// humanPause waits around baseMs, give or take a quarter.
func humanPause(ctx context.Context, baseMs int) error {
	jitter := baseMs / 4
	delay := baseMs - jitter + rand.Intn(2*jitter+1)
	return pause(ctx, time.Duration(delay)*time.Millisecond)
}
