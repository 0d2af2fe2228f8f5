package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/radif/gallery/internal/apperr"
)

// LocalSource is an image sent in the request body.
type LocalSource struct {
	Filename string
	Data     []byte
}

// Validate checks the size cap and the extension allow-list.
func (s *LocalSource) Validate(_ context.Context) error {
	if len(s.Data) == 0 {
		return apperr.Params("upload file must not be empty")
	}
	if len(s.Data) > MaxUploadBytes {
		return errTooLarge()
	}
	if !allowedExtensions[Extension(s.Filename)] {
		return apperr.Params("unsupported file type")
	}
	return nil
}

// OriginalName returns the base name of the uploaded file.
func (s *LocalSource) OriginalName() string {
	return filepath.Base(s.Filename)
}

// Materialize copies the uploaded bytes to dst.
func (s *LocalSource) Materialize(_ context.Context, dst io.Writer) error {
	if _, err := dst.Write(s.Data); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}
