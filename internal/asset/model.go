// Package asset ingests, edits, reviews, and deletes gallery images.
package asset

import (
	"math"
	"sort"
	"strings"
	"time"
)

// ReviewStatus is the moderation state of an asset.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewPass     ReviewStatus = "PASS"
	ReviewRejected ReviewStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewPass, ReviewRejected:
		return true
	}
	return false
}

const adminReviewMessage = "auto-approved by administrator"

// Asset is one stored image and its metadata.
type Asset struct {
	ID            int64        `json:"id"`
	OwnerID       string       `json:"ownerId"`
	SpaceID       *int64       `json:"spaceId,omitempty"`
	URL           string       `json:"url"`
	ThumbnailURL  *string      `json:"thumbnailUrl,omitempty"`
	Name          string       `json:"name"`
	Introduction  string       `json:"introduction"`
	Category      string       `json:"category"`
	Tags          []string     `json:"tags"`
	Width         int          `json:"width"`
	Height        int          `json:"height"`
	Scale         float64      `json:"scale"`
	SizeBytes     int64        `json:"sizeBytes"`
	Format        string       `json:"format"`
	Color         *string      `json:"color,omitempty"`
	ReviewStatus  ReviewStatus `json:"reviewStatus"`
	ReviewerID    *string      `json:"reviewerId,omitempty"`
	ReviewMessage *string      `json:"reviewMessage,omitempty"`
	ReviewedAt    *time.Time   `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	EditedAt      time.Time    `json:"editedAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// IsPublic reports whether the asset belongs to its owner's public gallery
// rather than a space.
func (a *Asset) IsPublic() bool {
	return a.SpaceID == nil
}

// applyReview sets the moderation fields for a write by reviewerID.
// Administrators are approved on the spot; everyone else goes back to review.
func (a *Asset) applyReview(reviewerID string, admin bool, now time.Time) {
	if admin {
		msg := adminReviewMessage
		a.ReviewStatus = ReviewPass
		a.ReviewerID = &reviewerID
		a.ReviewMessage = &msg
		a.ReviewedAt = &now
		return
	}
	a.ReviewStatus = ReviewPending
	a.ReviewerID = nil
	a.ReviewMessage = nil
	a.ReviewedAt = nil
}

// NormalizeTags trims, drops blanks, dedupes, and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func scaleOf(width, height int) float64 {
	if height == 0 {
		return 0
	}
	return math.Round(float64(width)/float64(height)*100) / 100
}

// IngestRequest carries the optional targets of an upload.
type IngestRequest struct {
	// SpaceID stores the asset in a space; nil stores it publicly.
	SpaceID *int64
	// AssetID replaces the image of an existing asset.
	AssetID *int64
	// Name overrides the name derived from the file.
	Name string
}

// EditRequest changes asset metadata. Nil fields are left unchanged.
type EditRequest struct {
	ID           int64    `json:"-"`
	Name         *string  `json:"name"         validate:"omitempty,min=1,max=128"`
	Introduction *string  `json:"introduction" validate:"omitempty,max=1024"`
	Category     *string  `json:"category"     validate:"omitempty,max=64"`
	Tags         []string `json:"tags"         validate:"omitempty,max=20,dive,max=32"`
}

// ReviewRequest is an administrator's moderation decision.
type ReviewRequest struct {
	ID      int64        `json:"-"`
	Status  ReviewStatus `json:"status"  validate:"required"`
	Message string       `json:"message" validate:"max=512"`
}

// TagCategories lists the suggested tags and categories offered to editors.
type TagCategories struct {
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

var tagCategories = TagCategories{
	Tags:       []string{"popular", "funny", "life", "hd", "art", "campus", "background", "resume", "creative"},
	Categories: []string{"template", "e-commerce", "meme", "material", "poster"},
}

// SuggestedTagCategories returns the suggested tags and categories.
func SuggestedTagCategories() TagCategories {
	return TagCategories{
		Tags:       append([]string(nil), tagCategories.Tags...),
		Categories: append([]string(nil), tagCategories.Categories...),
	}
}

// Query selects assets for listing. Zero values do not filter.
type Query struct {
	OwnerID      string
	SpaceID      *int64
	PublicOnly   bool
	SearchText   string
	Name         string
	Introduction string
	Category     string
	Format       string
	Tags         []string
	ReviewStatus ReviewStatus
	ReviewerID   string
	Width        int
	Height       int
	EditedFrom   *time.Time
	EditedTo     *time.Time
	SortField    string
	Descending   bool
	Offset       uint64
	Limit        uint64
}
