// Package catalog serves paginated asset listings behind a two-tier cache.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 20

	keyPrefix = "gallery:catalog:page:"
)

// Filter is a listing request. After normalize it is canonical: equal
// filters marshal to identical JSON and therefore share a cache key.
type Filter struct {
	SpaceID      *int64     `json:"spaceId,omitempty"`
	SearchText   string     `json:"searchText,omitempty"`
	Name         string     `json:"name,omitempty"`
	Introduction string     `json:"introduction,omitempty"`
	Category     string     `json:"category,omitempty"`
	Format       string     `json:"format,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	ReviewStatus string     `json:"reviewStatus,omitempty"`
	ReviewerID   string     `json:"reviewerId,omitempty"`
	OwnerID      string     `json:"ownerId,omitempty"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	EditedFrom   *time.Time `json:"editedFrom,omitempty"`
	EditedTo     *time.Time `json:"editedTo,omitempty"`
	SortField    string     `json:"sortField,omitempty"`
	SortOrder    string     `json:"sortOrder,omitempty" example:"descend"`
	Current      int        `json:"current"             example:"1"`
	PageSize     int        `json:"pageSize"            example:"10"`
	// PublicOnly is set by the service, never by callers.
	PublicOnly bool `json:"publicOnly,omitempty" swaggerignore:"true"`
}

func (f Filter) normalize() (Filter, error) {
	f.SearchText = strings.TrimSpace(f.SearchText)
	f.Name = strings.TrimSpace(f.Name)
	f.Introduction = strings.TrimSpace(f.Introduction)
	f.Category = strings.TrimSpace(f.Category)
	f.Format = strings.ToLower(strings.TrimSpace(f.Format))
	f.ReviewStatus = strings.ToUpper(strings.TrimSpace(f.ReviewStatus))
	f.ReviewerID = strings.TrimSpace(f.ReviewerID)
	f.OwnerID = strings.TrimSpace(f.OwnerID)
	f.SortField = strings.TrimSpace(f.SortField)
	f.SortOrder = strings.ToLower(strings.TrimSpace(f.SortOrder))
	f.Tags = asset.NormalizeTags(f.Tags)
	if len(f.Tags) == 0 {
		f.Tags = nil
	}
	if f.EditedFrom != nil {
		t := f.EditedFrom.UTC()
		f.EditedFrom = &t
	}
	if f.EditedTo != nil {
		t := f.EditedTo.UTC()
		f.EditedTo = &t
	}

	if f.Current < 1 {
		f.Current = 1
	}
	switch {
	case f.PageSize == 0:
		f.PageSize = DefaultPageSize
	case f.PageSize < 0:
		return f, apperr.Params("pageSize must be positive")
	case f.PageSize > MaxPageSize:
		return f, apperr.Params("pageSize must not exceed %d", MaxPageSize)
	}

	switch f.SortOrder {
	case "", "descend":
		f.SortOrder = "descend"
	case "ascend":
	default:
		return f, apperr.Params("sortOrder must be ascend or descend")
	}
	if f.SortField == "" {
		f.SortField = "createdAt"
	}
	if !asset.SortableField(f.SortField) {
		return f, apperr.Params("cannot sort by %q", f.SortField)
	}
	if f.ReviewStatus != "" && !asset.ReviewStatus(f.ReviewStatus).Valid() {
		return f, apperr.Params("unknown review status %q", f.ReviewStatus)
	}
	if f.SpaceID != nil && *f.SpaceID <= 0 {
		return f, apperr.Params("invalid spaceId")
	}
	return f, nil
}

func (f Filter) cacheKey() (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode filter: %w", err)
	}
	sum := sha256.Sum256(raw)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

func (f Filter) query() asset.Query {
	return asset.Query{
		OwnerID:      f.OwnerID,
		SpaceID:      f.SpaceID,
		PublicOnly:   f.PublicOnly,
		SearchText:   f.SearchText,
		Name:         f.Name,
		Introduction: f.Introduction,
		Category:     f.Category,
		Format:       f.Format,
		Tags:         f.Tags,
		ReviewStatus: asset.ReviewStatus(f.ReviewStatus),
		ReviewerID:   f.ReviewerID,
		Width:        f.Width,
		Height:       f.Height,
		EditedFrom:   f.EditedFrom,
		EditedTo:     f.EditedTo,
		SortField:    f.SortField,
		Descending:   f.SortOrder == "descend",
		Offset:       uint64(f.Current-1) * uint64(f.PageSize),
		Limit:        uint64(f.PageSize),
	}
}

// Page is one page of a listing.
type Page struct {
	Records []*asset.Asset `json:"records"`
	Total   int64          `json:"total"`
	Current int            `json:"current"`
	Size    int            `json:"size"`
	Pages   int64          `json:"pages"`
}

func newPage(records []*asset.Asset, total int64, f Filter) *Page {
	if records == nil {
		records = []*asset.Asset{}
	}
	size := int64(f.PageSize)
	return &Page{
		Records: records,
		Total:   total,
		Current: f.Current,
		Size:    f.PageSize,
		Pages:   (total + size - 1) / size,
	}
}
