package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/upload"
)

const (
	// MaxHarvestCount caps the images ingested by one harvest call.
	MaxHarvestCount     = 30
	defaultHarvestCount = 10

	searchTimeout    = 10 * time.Second
	maxSearchPage    = 4 << 20
	DefaultSearchURL = "https://cn.bing.com/images/async?q=%s&mmasync=1"
)

// Finder returns candidate image URLs for a search text.
type Finder interface {
	Find(ctx context.Context, text string) ([]string, error)
}

// SearchPageFinder scrapes image URLs from an image search results page.
// URLTemplate holds one %s for the escaped query.
type SearchPageFinder struct {
	URLTemplate string
	Client      *http.Client
}

// NewSearchPageFinder creates a SearchPageFinder. An empty template uses
// DefaultSearchURL and a nil client uses http.DefaultClient.
func NewSearchPageFinder(urlTemplate string, client *http.Client) *SearchPageFinder {
	if urlTemplate == "" {
		urlTemplate = DefaultSearchURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SearchPageFinder{URLTemplate: urlTemplate, Client: client}
}

// Find fetches the results page for text and returns the src of every
// result thumbnail with its query string removed.
func (f *SearchPageFinder) Find(ctx context.Context, text string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(f.URLTemplate, url.QueryEscape(text)), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch search page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch search page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxSearchPage))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	results := doc.Find(".dgControl").First()
	if results.Length() == 0 {
		return nil, fmt.Errorf("search page has no result list")
	}

	var urls []string
	results.Find("img.mimg").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		if i := strings.IndexByte(src, '?'); i >= 0 {
			src = src[:i]
		}
		urls = append(urls, src)
	})
	return urls, nil
}

// HarvestRequest asks for up to Count images matching SearchText.
type HarvestRequest struct {
	SearchText string `json:"searchText" validate:"required,max=64"           example:"mountains"`
	Count      int    `json:"count"      validate:"omitempty,gte=1,lte=30"    example:"10"`
	// NamePrefix names the assets NamePrefix1, NamePrefix2, ...; empty uses SearchText.
	NamePrefix string `json:"namePrefix" validate:"max=100"`
}

// Harvest searches for images and ingests each result as a public asset
// of the caller. Results that fail to download or validate are skipped.
// Administrators only. It returns the number of assets created.
func (s *Service) Harvest(ctx context.Context, req HarvestRequest, caller identity.Caller) (int, error) {
	if !caller.Admin {
		return 0, apperr.Auth("only administrators can harvest images")
	}
	text := strings.TrimSpace(req.SearchText)
	if text == "" {
		return 0, apperr.Params("searchText is required")
	}
	count := req.Count
	switch {
	case count == 0:
		count = defaultHarvestCount
	case count < 0 || count > MaxHarvestCount:
		return 0, apperr.Params("count must be between 1 and %d", MaxHarvestCount)
	}
	prefix := strings.TrimSpace(req.NamePrefix)
	if prefix == "" {
		prefix = text
	}
	if s.finder == nil {
		return 0, apperr.Operation("image search is not configured")
	}

	urls, err := s.finder.Find(ctx, text)
	if err != nil {
		return 0, apperr.System(err, "failed to fetch search results")
	}

	created := 0
	for _, u := range urls {
		if created >= count {
			break
		}
		src := upload.NewRemoteSource(u, s.client)
		if s.fetchTimeout > 0 {
			src.FetchTimeout = s.fetchTimeout
		}
		name := fmt.Sprintf("%s%d", prefix, created+1)
		if _, err := s.Ingest(ctx, src, IngestRequest{Name: name}, caller); err != nil {
			s.log.Warn("harvested image skipped", zap.String("url", u), zap.Error(err))
			continue
		}
		created++
	}

	s.log.Info("harvest finished",
		zap.String("search_text", text),
		zap.Int("found", len(urls)),
		zap.Int("created", created),
	)
	return created, nil
}
