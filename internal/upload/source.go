// Package upload validates and materializes user-supplied images before
// they reach object storage. A Source is either bytes sent with the
// request (LocalSource) or an http(s) URL fetched by the server
// (RemoteSource); callers pick the variant once and then only use the
// Source interface.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/radif/gallery/internal/apperr"
)

// MaxUploadBytes caps every upload regardless of origin.
const MaxUploadBytes = 2 << 20

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Source is one upload origin.
type Source interface {
	// Validate rejects the source before any bytes are written locally.
	Validate(ctx context.Context) error
	// OriginalName is the file name the caller supplied or the URL implies.
	OriginalName() string
	// Materialize writes the source bytes to dst.
	Materialize(ctx context.Context, dst io.Writer) error
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func errTooLarge() error {
	return apperr.Params("file must not exceed %d MB", MaxUploadBytes>>20)
}

// WithTempFile creates a temporary file in dir (os.TempDir when empty), runs
// fn with it, and removes the file on every exit path, including panics.
func WithTempFile(dir string, fn func(f *os.File) error) (err error) {
	f, err := os.CreateTemp(dir, "gallery-upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = fmt.Errorf("remove temp file: %w", rmErr)
		}
	}()

	return fn(f)
}
