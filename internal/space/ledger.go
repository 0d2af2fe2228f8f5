package space

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
)

// usageStore is the persistence surface the ledger needs.
type usageStore interface {
	GetByID(ctx context.Context, id int64) (*Space, error)
	AddUsage(ctx context.Context, id, deltaBytes, deltaCount int64) (bool, error)
	SubtractUsage(ctx context.Context, id, deltaBytes, deltaCount int64) (int64, int64, error)
	Recount(ctx context.Context, id int64) (*Space, error)
}

// Ledger applies relative usage deltas to space counters. Deltas are
// computed in SQL so concurrent writers never overwrite each other. Callers
// run Reserve and Release inside the same transaction as the asset write
// they account for.
type Ledger struct {
	store usageStore
	log   *zap.Logger
}

// NewLedger creates a Ledger over store.
func NewLedger(store usageStore, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Reserve adds deltaBytes and deltaCount to the space when it still has
// room. A full space yields a capacity error, a missing one NotFound.
func (l *Ledger) Reserve(ctx context.Context, spaceID, deltaBytes, deltaCount int64) error {
	ok, err := l.store.AddUsage(ctx, spaceID, deltaBytes, deltaCount)
	if err != nil {
		return apperr.System(err, "failed to update space usage")
	}
	if ok {
		return nil
	}

	if _, err := l.store.GetByID(ctx, spaceID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("space %d not found", spaceID)
		}
		return apperr.System(err, "failed to update space usage")
	}
	return apperr.Capacity("space quota exceeded")
}

// Release subtracts deltaBytes and deltaCount from the space. Totals are
// not clamped; a negative result is logged as drift for Reconcile to fix.
func (l *Ledger) Release(ctx context.Context, spaceID, deltaBytes, deltaCount int64) error {
	size, count, err := l.store.SubtractUsage(ctx, spaceID, deltaBytes, deltaCount)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("space %d not found", spaceID)
	}
	if err != nil {
		return apperr.System(err, "failed to update space usage")
	}

	if size < 0 || count < 0 {
		l.log.Warn("quota drift",
			zap.Int64("space_id", spaceID),
			zap.Int64("total_size", size),
			zap.Int64("total_count", count),
		)
	}
	return nil
}

// Reconcile recomputes the space counters from the assets it holds.
func (l *Ledger) Reconcile(ctx context.Context, spaceID int64) (*Space, error) {
	s, err := l.store.Recount(ctx, spaceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("space %d not found", spaceID)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to reconcile space usage")
	}
	return s, nil
}
