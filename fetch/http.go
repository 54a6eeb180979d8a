package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"

	"houses_scraper/models"
)

const maxBodySize = 10 << 20

// HTTPFetcher issues plain GET requests. Its documents are static: no
// screenshots, no contact form.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(client *http.Client, opts Options) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, userAgent: opts.userAgent()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, _ string) (*Document, error) {
	var (
		mu       sync.Mutex
		clientIP string
		serverIP string
	)
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			mu.Lock()
			defer mu.Unlock()
			clientIP = hostOf(info.Conn.LocalAddr().String())
			serverIP = hostOf(info.Conn.RemoteAddr().String())
		},
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	mu.Lock()
	transport := models.Transport{
		StatusCode: resp.StatusCode,
		Reason:     strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		ClientIP:   clientIP,
		ServerIP:   serverIP,
	}
	mu.Unlock()

	doc := NewDocument(url, string(body), transport, nil)
	if resp.StatusCode >= 400 {
		return nil, statusError(doc)
	}
	return doc, nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
