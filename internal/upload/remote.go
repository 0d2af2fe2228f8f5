package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/radif/gallery/internal/apperr"
)

const (
	// HeadTimeout bounds the HEAD request made during validation.
	HeadTimeout = 5 * time.Second
	// DefaultFetchTimeout bounds the GET made during materialization.
	DefaultFetchTimeout = 30 * time.Second
)

// RemoteSource is an image the server downloads from an http(s) URL.
type RemoteSource struct {
	URL          string
	Client       *http.Client
	FetchTimeout time.Duration
}

// NewRemoteSource returns a RemoteSource using client, or
// http.DefaultClient when client is nil.
func NewRemoteSource(rawURL string, client *http.Client) *RemoteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteSource{
		URL:          strings.TrimSpace(rawURL),
		Client:       client,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// Validate requires an absolute http(s) URL and checks it with HEAD. The
// check only rejects on what the server discloses: a 200 response whose
// Content-Type is not an allowed image type, or whose Content-Length is
// malformed or over the cap. Unreachable hosts, non-200 answers, and
// missing headers are inconclusive and pass; Materialize enforces the cap
// on the bytes actually received.
func (s *RemoteSource) Validate(ctx context.Context) error {
	if s.URL == "" {
		return apperr.Params("file url must not be empty")
	}
	u, err := url.Parse(s.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperr.Params("invalid file url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperr.Params("only HTTP or HTTPS file urls are supported")
	}

	return s.checkHead(ctx)
}

func (s *RemoteSource) checkHead(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HeadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.URL, nil)
	if err != nil {
		return nil
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !allowedContentTypes[strings.ToLower(mediaType)] {
			return apperr.Params("unsupported file type")
		}
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		size, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			return apperr.Params("invalid file size")
		}
		if size > MaxUploadBytes {
			return errTooLarge()
		}
	} else if resp.ContentLength > MaxUploadBytes {
		return errTooLarge()
	}

	return nil
}

// OriginalName returns the last path segment of the URL.
func (s *RemoteSource) OriginalName() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "remote"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "remote"
	}
	return base
}

// Materialize downloads the URL into dst, failing once more than
// MaxUploadBytes arrive.
func (s *RemoteSource) Materialize(ctx context.Context, dst io.Writer) error {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %d", s.URL, resp.StatusCode)
	}

	n, err := io.Copy(dst, io.LimitReader(resp.Body, MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("download %s: %w", s.URL, err)
	}
	if n > MaxUploadBytes {
		return errTooLarge()
	}
	return nil
}
