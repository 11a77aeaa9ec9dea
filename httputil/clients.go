package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"suumo_crawler/config"
)

type Clients struct {
	Pages  *http.Client // search-result HTML, proxied when configured
	Images *http.Client // photo downloads
}

func NewClients(site config.SiteConfig, media config.MediaConfig) *Clients {
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}
	if site.ProxyURL != "" {
		if proxyURL, err := url.Parse(site.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	pageTimeout := site.Timeout
	if pageTimeout <= 0 {
		pageTimeout = 30 * time.Second
	}
	imageTimeout := media.Timeout
	if imageTimeout <= 0 {
		imageTimeout = 30 * time.Second
	}

	return &Clients{
		Pages:  &http.Client{Timeout: pageTimeout, Transport: transport},
		Images: &http.Client{Timeout: imageTimeout, Transport: transport},
	}
}
