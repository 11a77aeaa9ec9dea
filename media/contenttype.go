package media

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// detectContentType sniffs the first 512 bytes, then falls back to the
// filename extension, then to image/jpeg. sniffed is false when the bytes
// alone did not identify an image.
func detectContentType(r io.ReadSeeker, filename string) (contentType string, sniffed bool, err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", false, fmt.Errorf("rewind temp file: %w", err)
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false, fmt.Errorf("sniff content: %w", err)
	}

	if ct := http.DetectContentType(head[:n]); strings.HasPrefix(ct, "image/") {
		return ct, true, nil
	}
	if ct, ok := extensionTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct, false, nil
	}
	return "image/jpeg", false, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
