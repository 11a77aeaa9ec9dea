package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"

	"suumo_crawler/config"
)

const maxPageBytes = 10 << 20

// PageFetcher GETs HTML pages with browser-like headers and returns UTF-8 text
type PageFetcher struct {
	client *http.Client
	site   config.SiteConfig
}

func NewPageFetcher(client *http.Client, site config.SiteConfig) *PageFetcher {
	return &PageFetcher{client: client, site: site}
}

func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	SetSiteHeaders(req, f.site)
	req.Header.Set("Accept", f.site.Accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status code %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	enc, name, _ := charset.DetermineEncoding(body, resp.Header.Get("Content-Type"))
	if name == "utf-8" {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, enc.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", fmt.Errorf("decode %s body: %w", name, err)
	}
	return buf.String(), nil
}

// SetSiteHeaders applies the shared User-Agent and language headers
func SetSiteHeaders(req *http.Request, site config.SiteConfig) {
	ua := site.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if site.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", site.AcceptLanguage)
	}
}
