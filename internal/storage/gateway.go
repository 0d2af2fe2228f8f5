package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/radif/gallery/internal/apperr"
)

const (
	// Images at or below this size are served as-is without a thumbnail.
	thumbnailMinBytes = 20 << 10
	thumbnailEdge     = 256
	thumbnailSuffix   = "_thumbnail.jpg"

	// MaxPixels bounds width*height so a small, highly compressed file
	// cannot expand into a huge bitmap.
	MaxPixels = 40_000_000
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Object describes a stored image and the metadata derived from it.
type Object struct {
	Key          string
	URL          string
	ThumbnailKey string
	ThumbnailURL string
	Width        int
	Height       int
	Format       string
	SizeBytes    int64
	// Color is the average colour as #rrggbb.
	Color string
}

// Gateway stores images on a Backend and runs the processing pipeline
// (dimensions, format, average colour, thumbnail) on the way in.
type Gateway struct {
	backend Backend
	log     *zap.Logger
}

// NewGateway wraps backend with image processing.
func NewGateway(backend Backend, log *zap.Logger) *Gateway {
	return &Gateway{backend: backend, log: log}
}

// Put decodes the image in file, uploads it under key, and uploads a JPEG
// thumbnail next to it when the original is large enough to need one.
// A failed thumbnail upload is logged and leaves ThumbnailURL empty.
func (g *Gateway) Put(ctx context.Context, key string, file *os.File) (*Object, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, apperr.Params("file is not a supported image")
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, apperr.Params("unsupported image format %q", format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, apperr.Params("image is %dx%d, at most %d pixels are allowed", cfg.Width, cfg.Height, MaxPixels)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, apperr.Params("file is not a valid %s image", format)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	if err := g.backend.Upload(ctx, key, file, stat.Size(), contentType); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	obj := &Object{
		Key:       key,
		URL:       g.backend.PublicURL(key),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: stat.Size(),
		Color:     averageColor(img),
	}

	if stat.Size() > thumbnailMinBytes {
		thumbKey := strings.TrimSuffix(key, pathExt(key)) + thumbnailSuffix
		if err := g.putThumbnail(ctx, thumbKey, img); err != nil {
			g.log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
		} else {
			obj.ThumbnailKey = thumbKey
			obj.ThumbnailURL = g.backend.PublicURL(thumbKey)
		}
	}

	return obj, nil
}

// Delete removes the object stored under key.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	return g.backend.Delete(ctx, key)
}

// KeyFromURL maps a public URL produced by this gateway back to its object key.
func (g *Gateway) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, g.backend.PublicURL(""))
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (g *Gateway) putThumbnail(ctx context.Context, key string, img image.Image) error {
	thumb := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return g.backend.Upload(ctx, key, &buf, int64(buf.Len()), "image/jpeg")
}

// averageColor box-filters the image down to a single pixel.
func averageColor(img image.Image) string {
	px := imaging.Resize(img, 1, 1, imaging.Box).NRGBAAt(0, 0)
	return fmt.Sprintf("#%02x%02x%02x", px.R, px.G, px.B)
}

func pathExt(key string) string {
	slash := strings.LastIndex(key, "/")
	dot := strings.LastIndex(key, ".")
	if dot <= slash {
		return ""
	}
	return key[dot:]
}
