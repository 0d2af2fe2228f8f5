// Package batch applies one metadata edit to many assets of a space.
package batch

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/metrics"
	"github.com/radif/gallery/internal/space"
)

const (
	// ChunkSize is the number of assets written per transaction.
	ChunkSize = 100

	// Placeholder in a name rule is replaced by the asset's sequence number.
	Placeholder = "{n}"
)

// Mutation is the edit applied to every target. Empty fields are left as
// they are.
type Mutation struct {
	Category string
	Tags     []string
	// NameRule renames targets, e.g. "img-{n}" gives img-1, img-2, ...
	NameRule string
}

// Store loads and persists batch targets.
type Store interface {
	ListBySpaceIDs(ctx context.Context, spaceID int64, ids []int64) ([]*asset.Asset, error)
	UpdateMetadataBatch(ctx context.Context, assets []*asset.Asset) error
}

// SpaceAuthorizer checks that a caller owns a space.
type SpaceAuthorizer interface {
	Authorize(ctx context.Context, id int64, caller identity.Caller) (*space.Space, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Executor runs batch edits with a bounded number of concurrent chunks.
type Executor struct {
	store   Store
	spaces  SpaceAuthorizer
	tx      txRunner
	workers int
	log     *zap.Logger
}

// NewExecutor creates an Executor that writes at most workers chunks at once.
func NewExecutor(store Store, spaces SpaceAuthorizer, tx txRunner, workers int, log *zap.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{store: store, spaces: spaces, tx: tx, workers: workers, log: log}
}

// Apply edits the assets among ids that belong to spaceID. Ids outside the
// space are skipped. Chunks commit independently: Apply waits for all of
// them and returns the first failure, leaving committed chunks in place.
// It returns the number of assets that were targeted.
func (e *Executor) Apply(ctx context.Context, spaceID int64, ids []int64, m Mutation, caller identity.Caller) (int, error) {
	if spaceID <= 0 {
		return 0, apperr.Params("spaceId is required")
	}
	if len(ids) == 0 {
		return 0, apperr.Params("ids must not be empty")
	}
	m.Category = strings.TrimSpace(m.Category)
	m.NameRule = strings.TrimSpace(m.NameRule)
	m.Tags = asset.NormalizeTags(m.Tags)
	if m.NameRule != "" && !strings.Contains(m.NameRule, Placeholder) {
		return 0, apperr.Params("nameRule must contain %s", Placeholder)
	}

	if _, err := e.spaces.Authorize(ctx, spaceID, caller); err != nil {
		return 0, err
	}

	targets, err := e.store.ListBySpaceIDs(ctx, spaceID, ids)
	if err != nil {
		return 0, apperr.System(err, "failed to load assets")
	}
	if len(targets) == 0 {
		return 0, nil
	}

	var (
		seq atomic.Int64
		g   errgroup.Group
	)
	g.SetLimit(e.workers)
	for start := 0; start < len(targets); start += ChunkSize {
		chunk := targets[start:min(start+ChunkSize, len(targets))]
		g.Go(func() error {
			return e.applyChunk(ctx, chunk, m, &seq)
		})
	}
	if err := g.Wait(); err != nil {
		return len(targets), apperr.Wrap(err, "batch edit failed")
	}

	e.log.Info("batch edit applied",
		zap.Int64("space_id", spaceID),
		zap.Int("assets", len(targets)),
		zap.String("user_id", caller.ID),
	)
	return len(targets), nil
}

func (e *Executor) applyChunk(ctx context.Context, chunk []*asset.Asset, m Mutation, seq *atomic.Int64) error {
	for _, a := range chunk {
		if m.Category != "" {
			a.Category = m.Category
		}
		if len(m.Tags) > 0 {
			a.Tags = m.Tags
		}
		if m.NameRule != "" {
			n := seq.Add(1)
			a.Name = strings.ReplaceAll(m.NameRule, Placeholder, strconv.FormatInt(n, 10))
		}
	}

	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		return e.store.UpdateMetadataBatch(ctx, chunk)
	})
	if err != nil {
		metrics.BatchChunks.WithLabelValues("failed").Inc()
		e.log.Error("batch chunk failed",
			zap.Int64("first_asset_id", chunk[0].ID),
			zap.Int("size", len(chunk)),
			zap.Error(err),
		)
		return err
	}
	metrics.BatchChunks.WithLabelValues("committed").Inc()
	return nil
}
