package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suumo_crawler/config"
	"suumo_crawler/models"
	"suumo_crawler/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type fixture struct {
	ingester *Ingester
	store    *storage.MemoryStore
	blobs    *storage.LocalBlobStore
	server   *httptest.Server
	tmpDir   string
	owner    models.PhotoOwner
	headers  http.Header
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{tmpDir: t.TempDir()}
	t.Setenv("TMPDIR", f.tmpDir)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.headers = r.Header.Clone()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	f.blobs = blobs
	f.store = storage.NewMemoryStore()
	f.owner = models.PhotoOwner{Kind: models.OwnerBuilding, ID: uuid.New()}

	site := config.SiteConfig{BaseURL: "https://suumo.jp", UserAgent: "test-agent"}
	f.ingester = NewIngester(f.server.Client(), blobs, f.store, site, 1024, zerolog.Nop())
	return f
}

func (f *fixture) leftoverTempFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.tmpDir, "suumo-photo-*"))
	require.NoError(t, err)
	return matches
}

func (f *fixture) storedBlobs(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(f.blobs.Path(""), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func servePNG(contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		} else {
			w.Header()["Content-Type"] = nil
		}
		w.Write(pngBytes)
	}
}

func TestDownloadAndAttach_Success(t *testing.T) {
	f := newFixture(t, servePNG("image/png"))
	url := f.server.URL + "/gazo/100000000001_gw.png?w=640"

	ok := f.ingester.DownloadAndAttach(context.Background(), url, f.owner, models.PhotoTypeExterior, 2, url)
	require.True(t, ok)

	photos := f.store.Photos()
	require.Len(t, photos, 1)
	p := photos[0]
	assert.Equal(t, f.owner, p.Owner)
	assert.Equal(t, "100000000001_gw.png", p.Filename)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, int64(len(pngBytes)), p.ByteSize)
	assert.Equal(t, models.PhotoTypeExterior, p.PhotoType)
	assert.Equal(t, 2, p.DisplayOrder)
	assert.Equal(t, url, p.SourceURL)
	assert.True(t, strings.HasPrefix(p.BlobKey, "buildings/"+f.owner.ID.String()+"/"))

	data, err := os.ReadFile(f.blobs.Path(p.BlobKey))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	assert.Equal(t, "test-agent", f.headers.Get("User-Agent"))
	assert.Equal(t, "https://suumo.jp/", f.headers.Get("Referer"))
	assert.Contains(t, f.headers.Get("Accept"), "image/")
	assert.Empty(t, f.leftoverTempFiles(t))
}

func TestDownloadAndAttach_SniffBeatsExtension(t *testing.T) {
	f := newFixture(t, servePNG("image/jpeg"))
	url := f.server.URL + "/photo.jpg"

	require.True(t, f.ingester.DownloadAndAttach(context.Background(), url, f.owner, models.PhotoTypeInterior, 0, url))
	assert.Equal(t, "image/png", f.store.Photos()[0].ContentType)
}

func TestDownloadAndAttach_FallbackFilename(t *testing.T) {
	f := newFixture(t, servePNG("image/png"))
	url := f.server.URL + "/"

	require.True(t, f.ingester.DownloadAndAttach(context.Background(), url, f.owner, models.PhotoTypeInterior, 0, url))
	name := f.store.Photos()[0].Filename
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, name)
}

func TestDownloadAndAttach_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"html content type", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		}},
		{"too large", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(bytes.Repeat([]byte{1}, 4096))
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.handler)
			url := f.server.URL + "/x.png"
			ok := f.ingester.DownloadAndAttach(context.Background(), url, f.owner, models.PhotoTypeExterior, 0, url)
			assert.False(t, ok)
			assert.Empty(t, f.store.Photos())
			assert.Empty(t, f.leftoverTempFiles(t))
		})
	}
}

func TestDownloadAndAttachErr_DuplicateReported(t *testing.T) {
	f := newFixture(t, servePNG("image/png"))
	url := f.server.URL + "/a.png"
	ctx := context.Background()

	require.NoError(t, f.ingester.DownloadAndAttachErr(ctx, url, f.owner, models.PhotoTypeExterior, 0, url))
	err := f.ingester.DownloadAndAttachErr(ctx, url, f.owner, models.PhotoTypeExterior, 0, url)
	assert.ErrorIs(t, err, storage.ErrDuplicatePhoto)
	assert.Len(t, f.store.Photos(), 1)

	blobs := f.storedBlobs(t)
	require.Len(t, blobs, 1, "the rejected upload is removed again")
	assert.Equal(t, f.blobs.Path(f.store.Photos()[0].BlobKey), blobs[0])
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://img01.suumo.com/front/gazo/fr/bukken/001/100000000001_gw.jpg", "100000000001_gw.jpg"},
		{"https://example.com/a/photo%20one.png?x=1", "photo_one.png"},
		{"https://example.com/a/写真.jpg", "jpg"},
		{"https://example.com/", ""},
		{"https://example.com/...", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeFilename(tt.input))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	ct, sniffed, err := detectContentType(bytes.NewReader([]byte("\xFF\xD8\xFF\xE0rest")), "x.png")
	require.NoError(t, err)
	assert.True(t, sniffed)
	assert.Equal(t, "image/jpeg", ct)

	ct, sniffed, err = detectContentType(bytes.NewReader([]byte("????")), "x.webp")
	require.NoError(t, err)
	assert.False(t, sniffed)
	assert.Equal(t, "image/webp", ct)

	ct, _, err = detectContentType(bytes.NewReader([]byte("????")), "x")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
}
