// Package similarity ranks a space's assets by closeness to a colour.
package similarity

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/space"
)

// DefaultK is the number of assets returned when the caller does not ask
// for a specific count.
const DefaultK = 12

// Store loads the assets of a space that have a colour.
type Store interface {
	ListColoredBySpace(ctx context.Context, spaceID int64) ([]*asset.Asset, error)
}

// SpaceAuthorizer checks that a caller owns a space.
type SpaceAuthorizer interface {
	Authorize(ctx context.Context, id int64, caller identity.Caller) (*space.Space, error)
}

// Ranker answers colour similarity searches.
type Ranker struct {
	store  Store
	spaces SpaceAuthorizer
	log    *zap.Logger
}

// NewRanker creates a Ranker.
func NewRanker(store Store, spaces SpaceAuthorizer, log *zap.Logger) *Ranker {
	return &Ranker{store: store, spaces: spaces, log: log}
}

// RankByColor returns up to k assets of spaceID ordered by perceptual
// distance to hex, closest first. k <= 0 means DefaultK.
func (r *Ranker) RankByColor(ctx context.Context, spaceID int64, hex string, k int, caller identity.Caller) ([]*asset.Asset, error) {
	if spaceID <= 0 {
		return nil, apperr.Params("spaceId is required")
	}
	target, err := ParseColor(hex)
	if err != nil {
		return nil, apperr.Params("invalid color %q", hex)
	}
	if k <= 0 {
		k = DefaultK
	}
	if _, err := r.spaces.Authorize(ctx, spaceID, caller); err != nil {
		return nil, err
	}

	assets, err := r.store.ListColoredBySpace(ctx, spaceID)
	if err != nil {
		return nil, apperr.System(err, "failed to load assets")
	}
	return Rank(assets, target, k), nil
}

// Rank sorts assets by CIELAB distance to target and returns the first k.
// Assets without a parseable colour sort after every coloured one and keep
// their relative order.
func Rank(assets []*asset.Asset, target colorful.Color, k int) []*asset.Asset {
	type scored struct {
		a    *asset.Asset
		dist float64
	}
	ranked := make([]scored, 0, len(assets))
	for _, a := range assets {
		dist := math.Inf(1)
		if a.Color != nil {
			if c, err := ParseColor(*a.Color); err == nil {
				dist = c.DistanceLab(target)
			}
		}
		ranked = append(ranked, scored{a: a, dist: dist})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]*asset.Asset, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.a)
	}
	return out
}

// ParseColor accepts #rrggbb, rrggbb, and 0x-prefixed values whose leading
// zeros were dropped (0xff is #0000ff).
func ParseColor(s string) (colorful.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "0x"):
		s = strings.TrimPrefix(s, "0x")
		if len(s) < 6 {
			s = strings.Repeat("0", 6-len(s)) + s
		}
	case strings.HasPrefix(s, "#"):
		s = strings.TrimPrefix(s, "#")
	}
	return colorful.Hex("#" + s)
}
