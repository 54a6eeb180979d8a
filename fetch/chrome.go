package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"houses_scraper/models"
)

// ChromeFetcher is the chromedp engine. Each Fetch opens a tab that lives
// until the Document is released.
type ChromeFetcher struct {
	opts         Options
	cancelAlloc  context.CancelFunc
	browserCtx   context.Context
	cancelBrowse context.CancelFunc
}

func NewChromeFetcher(opts Options) (*ChromeFetcher, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.userAgent()),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyURL))
	}
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so a missing binary fails before the first page.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	return &ChromeFetcher{
		opts:         opts,
		cancelAlloc:  cancelAlloc,
		browserCtx:   browserCtx,
		cancelBrowse: cancelBrowse,
	}, nil
}

func (f *ChromeFetcher) Fetch(ctx context.Context, url, waitFor string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	stop := context.AfterFunc(ctx, cancelTab)
	session := &chromeSession{ctx: tabCtx, cancel: cancelTab, stop: stop, sel: f.opts.contact()}

	navCtx, cancelNav := context.WithTimeout(tabCtx, navigationTimeout)
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	cancelNav()
	if err != nil {
		session.Release()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	var transport models.Transport
	if resp != nil {
		transport.StatusCode = int(resp.Status)
		transport.Reason = resp.StatusText
		transport.ServerIP = resp.RemoteIPAddress
	}
	if transport.StatusCode >= 400 {
		var html string
		chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
		return nil, statusError(NewDocument(url, html, transport, session))
	}

	if waitFor != "" {
		waitCtx, cancelWait := context.WithTimeout(tabCtx, waitTimeout)
		chromedp.Run(waitCtx, chromedp.WaitVisible(waitFor, chromedp.ByQuery))
		cancelWait()
	} else if err := pause(ctx, settleDelay); err != nil {
		session.Release()
		return nil, err
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		session.Release()
		return nil, fmt.Errorf("read content of %s: %w", url, err)
	}

	return NewDocument(url, html, transport, session), nil
}

func (f *ChromeFetcher) Close() error {
	f.cancelBrowse()
	f.cancelAlloc()
	return nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	sel    ContactSelectors
}

func (s *chromeSession) Screenshot(path string) error {
	var buf []byte
	if err := chromedp.Run(s.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func (s *chromeSession) SubmitContact(ctx context.Context, form models.ContactForm) ([]string, error) {
	formCtx, cancel := context.WithTimeout(s.ctx, formTimeout)
	var inputs []*cdp.Node
	err := chromedp.Run(formCtx,
		chromedp.WaitVisible(s.sel.Form, chromedp.ByQuery),
		chromedp.Nodes(s.sel.Form+" input", &inputs, chromedp.ByQueryAll),
	)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContactForm, err)
	}
	if len(inputs) < 3 {
		return nil, fmt.Errorf("%w: expected 3 inputs, found %d", ErrNoContactForm, len(inputs))
	}

	for i, value := range []string{form.Name, form.Email, form.Phone} {
		if err := humanPause(ctx, 500); err != nil {
			return nil, err
		}
		if err := chromedp.Run(s.ctx, chromedp.SendKeys([]cdp.NodeID{inputs[i].NodeID}, value, chromedp.ByNodeID)); err != nil {
			return nil, fmt.Errorf("fill contact input %d: %w", i, err)
		}
	}

	if err := humanPause(ctx, 1000); err != nil {
		return nil, err
	}
	if err := chromedp.Run(s.ctx, chromedp.Click(s.sel.Submit, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("submit contact form: %w", err)
	}

	modalCtx, cancelModal := context.WithTimeout(s.ctx, modalTimeout)
	defer cancelModal()
	if err := chromedp.Run(modalCtx, chromedp.WaitVisible(s.sel.Modal, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConfirmation, err)
	}

	var attrs []map[string]string
	if err := chromedp.Run(modalCtx, chromedp.AttributesAll(s.sel.Modal+" a", &attrs, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("read contact links: %w", err)
	}
	hrefs := make([]string, 0, len(attrs))
	for _, a := range attrs {
		hrefs = append(hrefs, a["href"])
	}
	return phones(hrefs), nil
}

func (s *chromeSession) Release() error {
	s.stop()
	s.cancel()
	return nil
}
