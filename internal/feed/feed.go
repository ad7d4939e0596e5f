// Package feed retrieves the assortment document and product images over
// HTTP. It does not parse records or write anything to disk.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/matheuskafuri/alccalc/internal/config"
)

var (
	// ErrNetwork covers transport failures, timeouts and non-200 responses.
	ErrNetwork = errors.New("network error")
	// ErrNotFound means the product page carries no image link.
	ErrNotFound = errors.New("image not found")
)

const userAgent = "alccalc/1.0"

// Fetcher performs single-attempt GETs against the configured endpoints.
type Fetcher struct {
	client       *http.Client
	feedURL      string
	imageBaseURL string
	marker       string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: cfg.FetchTimeoutDuration()},
		feedURL:      cfg.FeedURL,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		marker:       cfg.ImageMarker,
	}
}

// Fetch downloads the raw assortment document.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	return f.get(ctx, f.feedURL)
}

// FetchImage looks up the product page for id and downloads the image the
// page links to through an anchor carrying the configured marker.
func (f *Fetcher) FetchImage(ctx context.Context, id string) ([]byte, error) {
	pageURL := f.imageBaseURL + "/" + url.PathEscape(id)
	page, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("reading product page %s: %v: %w", pageURL, err, ErrNetwork)
	}

	href := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range s.Nodes[0].Attr {
			if attr.Key != "href" && strings.Contains(attr.Val, f.marker) {
				href, _ = s.Attr("href")
				return false
			}
		}
		return true
	})
	if href == "" {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %v: %w", err, ErrNetwork)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("product %s: bad image link %q: %w", id, href, ErrNotFound)
	}
	return f.get(ctx, base.ResolveReference(ref).String())
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %v: %w", rawURL, err, ErrNetwork)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %v: %w", rawURL, err, ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d: %w", rawURL, resp.StatusCode, ErrNetwork)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", rawURL, err, ErrNetwork)
	}
	return body, nil
}
