// Package space manages per-owner storage scopes and their quota ledger.
package space

import (
	"strings"
	"time"

	"github.com/radif/gallery/internal/apperr"
)

// Level is a scope tier that decides its default quotas.
type Level string

const (
	LevelCommon       Level = "COMMON"
	LevelProfessional Level = "PROFESSIONAL"
	LevelFlagship     Level = "FLAGSHIP"
)

const mib = int64(1) << 20

// LevelInfo describes a level and its default quotas.
type LevelInfo struct {
	Value    Level  `json:"value"    example:"COMMON"`
	Text     string `json:"text"     example:"Common"`
	MaxCount int64  `json:"maxCount" example:"100"`
	MaxSize  int64  `json:"maxSize"  example:"104857600"`
}

var levels = []LevelInfo{
	{Value: LevelCommon, Text: "Common", MaxCount: 100, MaxSize: 100 * mib},
	{Value: LevelProfessional, Text: "Professional", MaxCount: 1000, MaxSize: 1000 * mib},
	{Value: LevelFlagship, Text: "Flagship", MaxCount: 10000, MaxSize: 10000 * mib},
}

// Levels lists every level in ascending order.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levels))
	copy(out, levels)
	return out
}

// ParseLevel looks a level up by name, case-insensitively.
func ParseLevel(s string) (LevelInfo, bool) {
	for _, l := range levels {
		if strings.EqualFold(string(l.Value), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return LevelInfo{}, false
}

// Space is a quota-bounded container for one owner's assets.
type Space struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Name       string    `json:"name"`
	Level      Level     `json:"level"`
	MaxCount   int64     `json:"maxCount"`
	MaxSize    int64     `json:"maxSize"`
	TotalCount int64     `json:"totalCount"`
	TotalSize  int64     `json:"totalSize"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Admit is the admission pre-check run before any bytes are stored. The
// ledger repeats the same condition atomically when the usage is recorded.
func (s *Space) Admit() error {
	if s.TotalCount >= s.MaxCount {
		return apperr.Capacity("space item limit reached")
	}
	if s.TotalSize > s.MaxSize {
		return apperr.Capacity("space storage limit reached")
	}
	return nil
}

// CreateRequest is the input for creating a space.
type CreateRequest struct {
	Name  string `json:"name"  validate:"max=30" example:"My photos"`
	Level string `json:"level" example:"COMMON"`
}

// UpdateRequest edits a space. Nil fields are left unchanged; a level
// change resets quotas to the level defaults unless they are given too.
type UpdateRequest struct {
	ID       int64   `json:"-"`
	Name     *string `json:"name"     validate:"omitempty,max=30"`
	Level    *string `json:"level"`
	MaxCount *int64  `json:"maxCount" validate:"omitempty,gte=0"`
	MaxSize  *int64  `json:"maxSize"  validate:"omitempty,gte=0"`
}
