// Package media downloads listing photos and attaches them to buildings and rooms.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"suumo_crawler/config"
	"suumo_crawler/httputil"
	"suumo_crawler/models"
	"suumo_crawler/storage"
)

const defaultMaxBytes = 20 << 20

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PhotoAttacher persists photo metadata under its owner
type PhotoAttacher interface {
	AttachPhoto(ctx context.Context, p *models.Photo) error
}

// Ingester downloads one image, stores its bytes and records a Photo.
// It does not check for duplicates; callers skip source URLs already attached.
type Ingester struct {
	client   *http.Client
	blobs    storage.BlobStore
	photos   PhotoAttacher
	site     config.SiteConfig
	maxBytes int64
	log      zerolog.Logger
}

func NewIngester(client *http.Client, blobs storage.BlobStore, photos PhotoAttacher, site config.SiteConfig, maxBytes int64, log zerolog.Logger) *Ingester {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Ingester{
		client:   client,
		blobs:    blobs,
		photos:   photos,
		site:     site,
		maxBytes: maxBytes,
		log:      log,
	}
}

// DownloadAndAttach reports whether the photo was stored. Failures are logged, never returned.
func (in *Ingester) DownloadAndAttach(ctx context.Context, imageURL string, owner models.PhotoOwner, photoType models.PhotoType, displayOrder int, sourceURL string) bool {
	return in.DownloadAndAttachErr(ctx, imageURL, owner, photoType, displayOrder, sourceURL) == nil
}

// DownloadAndAttachErr is DownloadAndAttach with the failure cause, for run reports
func (in *Ingester) DownloadAndAttachErr(ctx context.Context, imageURL string, owner models.PhotoOwner, photoType models.PhotoType, displayOrder int, sourceURL string) error {
	photo, err := in.ingest(ctx, imageURL, owner, photoType, displayOrder, sourceURL)
	if err != nil {
		in.log.Warn().Err(err).Str("url", imageURL).Str("owner", owner.String()).Msg("Image ingest failed")
		return err
	}
	in.log.Debug().Str("url", imageURL).Str("blob_key", photo.BlobKey).Int64("bytes", photo.ByteSize).Msg("Image attached")
	return nil
}

func (in *Ingester) ingest(ctx context.Context, imageURL string, owner models.PhotoOwner, photoType models.PhotoType, displayOrder int, sourceURL string) (*models.Photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httputil.SetSiteHeaders(req, in.site)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	if in.site.BaseURL != "" {
		req.Header.Set("Referer", strings.TrimSuffix(in.site.BaseURL, "/")+"/")
	}

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download status: %d", resp.StatusCode)
	}
	headerType := resp.Header.Get("Content-Type")
	if headerType != "" && !strings.HasPrefix(strings.ToLower(headerType), "image/") {
		return nil, fmt.Errorf("not an image: %s", headerType)
	}

	tmp, err := os.CreateTemp("", "suumo-photo-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, io.LimitReader(resp.Body, in.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if size == 0 {
		return nil, errors.New("empty image body")
	}
	if size > in.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", in.maxBytes)
	}

	filename := SafeFilename(imageURL)
	contentType, sniffed, err := detectContentType(tmp, filename)
	if err != nil {
		return nil, err
	}
	if headerType == "" && !sniffed {
		return nil, errors.New("not an image: no content type and unrecognised bytes")
	}
	if filename == "" {
		filename = uuid.NewString() + extensionFor(contentType)
	} else if path.Ext(filename) == "" {
		filename += extensionFor(contentType)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	key := BlobKey(owner, filename)
	if err := in.blobs.Upload(ctx, key, tmp, contentType); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	photo := &models.Photo{
		Owner:        owner,
		BlobKey:      key,
		Filename:     filename,
		ContentType:  contentType,
		ByteSize:     size,
		PhotoType:    photoType,
		DisplayOrder: displayOrder,
		SourceURL:    sourceURL,
	}
	if err := in.photos.AttachPhoto(ctx, photo); err != nil {
		// the row was never written, so nothing references the blob
		if derr := in.blobs.Delete(ctx, key); derr != nil {
			in.log.Warn().Err(derr).Str("blob_key", key).Msg("Orphaned blob not removed")
		}
		return nil, fmt.Errorf("attach photo: %w", err)
	}
	return photo, nil
}

// BlobKey places a photo under its owner with a random prefix so equal filenames never collide
func BlobKey(owner models.PhotoOwner, filename string) string {
	return fmt.Sprintf("%ss/%s/%s-%s", owner.Kind, owner.ID, uuid.NewString()[:8], filename)
}

// SafeFilename returns the sanitized basename of the URL path, or "" when
// nothing usable remains.
func SafeFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._-")
	if base == "" || !strings.ContainsAny(base, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
		return ""
	}
	if len(base) > 100 {
		ext := path.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		base = base[:100-len(ext)] + ext
	}
	return base
}
