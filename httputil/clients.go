package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"houses_scraper/config"
)

const (
	scrapingTimeout = 20 * time.Second
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// UserAgent is the desktop browser identity sent by every engine.
func UserAgent() string { return userAgent }

// NewScrapingClient returns the client used against the listing site. It goes
// through PROXY_URL when set and follows redirects, since listing links are
// often redirected to their canonical slug.
func NewScrapingClient(proxyCfg config.ProxyConfig) *http.Client {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
		IdleConnTimeout:   90 * time.Second,
	}
	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Timeout:   scrapingTimeout,
		Transport: transport,
	}
}
