package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"suumo_crawler/config"
)

func testSite() config.SiteConfig {
	return config.SiteConfig{
		UserAgent:      "test-agent",
		Accept:         "text/html",
		AcceptLanguage: "ja",
	}
}

func TestFetch_UTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		assert.Equal(t, "ja", r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>渋谷</body></html>"))
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), testSite())
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "渋谷")
}

func TestFetch_ShiftJIS(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().String("<html><body>賃貸マンション</body></html>")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=Shift_JIS")
		w.Write([]byte(encoded))
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), testSite())
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "賃貸マンション")
}

func TestFetch_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), testSite())
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClients_Proxy(t *testing.T) {
	c := NewClients(config.SiteConfig{ProxyURL: "http://127.0.0.1:8080"}, config.MediaConfig{})
	require.NotNil(t, c.Pages)
	tr, ok := c.Pages.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.Proxy)
	assert.Equal(t, c.Pages.Transport, c.Images.Transport)
}
