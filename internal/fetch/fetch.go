// Package fetch pulls article pages and reduces them to visible text for
// re-extraction. Known paywall domains are refused before any request is
// issued: their login/teaser markup would corrupt extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrPaywalled marks a URL on the paywall deny-list. Policy, not a
// transient failure.
var ErrPaywalled = errors.New("fetch: paywalled domain")

// Domains whose pages serve login or teaser markup to anonymous clients.
var defaultPaywallDomains = []string{
	"nytimes.com",
	"wsj.com",
	"washingtonpost.com",
	"bloomberg.com",
	"ft.com",
	"economist.com",
	"newyorker.com",
	"theathletic.com",
	"latimes.com",
	"bostonglobe.com",
	"theatlantic.com",
	"wired.com",
}

var collapseWS = regexp.MustCompile(`\s+`)

// minReadableText is the point below which a readability result is
// assumed to be boilerplate and the goquery fallback runs instead.
const minReadableText = 200

// Fetcher retrieves pages with a bounded timeout.
type Fetcher struct {
	hc       *http.Client
	paywalls []string
}

// New builds a fetcher with the default paywall deny-list.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		hc:       &http.Client{Timeout: timeout},
		paywalls: defaultPaywallDomains,
	}
}

// Paywalled reports whether the URL's host is on the deny-list. The
// resolver checks this before deciding to escalate; FetchText checks it
// again so a caller can never slip a denied URL through.
func (f *Fetcher) Paywalled(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range f.paywalls {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// FetchText GETs the page and strips it to plain visible text.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if f.Paywalled(rawURL) {
		return "", fmt.Errorf("%w: %s", ErrPaywalled, rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	// Readability first; it drops navigation and chrome far better than a
	// raw text walk. Fall back to a stripped body when it comes up short.
	if html, err := doc.Html(); err == nil {
		if article, err := readability.FromReader(strings.NewReader(html), parsed); err == nil {
			if text := tidy(article.TextContent); len(text) >= minReadableText {
				return text, nil
			}
		}
	}

	doc.Find("script, style, noscript, iframe, header, footer, nav, aside").Remove()
	text := tidy(doc.Find("body").Text())
	if text == "" {
		return "", errors.New("fetch: page yielded no text")
	}
	return text, nil
}

func tidy(s string) string {
	return strings.TrimSpace(collapseWS.ReplaceAllString(s, " "))
}
