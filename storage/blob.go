// Package storage holds the blob store used for issue photos.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// BlobStore uploads bytes and resolves the stored reference to a URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, ref string) (string, error)
}

// IssueImageKey names an uploaded photo issues/<unix-millis>_<filename>.
func IssueImageKey(now time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = "image"
	}
	return fmt.Sprintf("issues/%d_%s", now.UnixMilli(), name)
}
