package space

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/identity"
)

const defaultSpaceName = "Default space"

// Store is the persistence surface of the space service.
type Store interface {
	usageStore
	GetByOwner(ctx context.Context, ownerID string) (*Space, error)
	ExistsForOwner(ctx context.Context, ownerID string) (bool, error)
	Create(ctx context.Context, s *Space) (*Space, error)
	Update(ctx context.Context, s *Space) (*Space, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service contains the business logic for spaces.
type Service struct {
	store  Store
	tx     txRunner
	ledger *Ledger
	locks  *lockRegistry
	log    *zap.Logger
}

// NewService creates a new space Service.
func NewService(store Store, tx txRunner, ledger *Ledger, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		tx:     tx,
		ledger: ledger,
		locks:  newLockRegistry(),
		log:    log,
	}
}

// Create makes the caller's space. Each owner gets at most one: creation is
// serialized per owner in process, and the unique index on owner_id rejects
// duplicates that race across processes.
func (s *Service) Create(ctx context.Context, req CreateRequest, caller identity.Caller) (*Space, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultSpaceName
	}
	if len([]rune(name)) > 30 {
		return nil, apperr.Params("space name is too long")
	}

	level := LevelCommon
	if req.Level != "" {
		info, ok := ParseLevel(req.Level)
		if !ok {
			return nil, apperr.Params("unknown space level %q", req.Level)
		}
		level = info.Value
	}
	if level != LevelCommon && !caller.Admin {
		return nil, apperr.Auth("only administrators can create a %s space", level)
	}
	info, _ := ParseLevel(string(level))

	sp := &Space{
		OwnerID:  caller.ID,
		Name:     name,
		Level:    level,
		MaxCount: info.MaxCount,
		MaxSize:  info.MaxSize,
	}

	unlock := s.locks.Lock(caller.ID)
	defer unlock()

	var created *Space
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.store.ExistsForOwner(ctx, caller.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyExists
		}
		created, err = s.store.Create(ctx, sp)
		return err
	})
	if errors.Is(err, ErrAlreadyExists) {
		return nil, apperr.Operation("each user can only create one space")
	}
	if err != nil {
		return nil, apperr.System(err, "failed to create space")
	}

	s.log.Info("space created",
		zap.Int64("space_id", created.ID),
		zap.String("owner_id", created.OwnerID),
		zap.String("level", string(created.Level)),
	)
	return created, nil
}

// GetByID loads a space without an ownership check.
func (s *Service) GetByID(ctx context.Context, id int64) (*Space, error) {
	sp, err := s.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("space %d not found", id)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to load space")
	}
	return sp, nil
}

// Authorize loads a space and checks that caller owns it.
func (s *Service) Authorize(ctx context.Context, id int64, caller identity.Caller) (*Space, error) {
	sp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID != caller.ID {
		return nil, apperr.Auth("no permission for space %d", id)
	}
	return sp, nil
}

// Get returns a space visible to its owner or an administrator.
func (s *Service) Get(ctx context.Context, id int64, caller identity.Caller) (*Space, error) {
	sp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(sp.OwnerID) {
		return nil, apperr.Auth("no permission for space %d", id)
	}
	return sp, nil
}

// Mine returns the caller's own space.
func (s *Service) Mine(ctx context.Context, caller identity.Caller) (*Space, error) {
	sp, err := s.store.GetByOwner(ctx, caller.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("no space for current user")
	}
	if err != nil {
		return nil, apperr.System(err, "failed to load space")
	}
	return sp, nil
}

// Update edits a space. Administrators only.
func (s *Service) Update(ctx context.Context, req UpdateRequest, caller identity.Caller) (*Space, error) {
	if !caller.Admin {
		return nil, apperr.Auth("only administrators can edit spaces")
	}

	sp, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Params("space name must not be empty")
		}
		if len([]rune(name)) > 30 {
			return nil, apperr.Params("space name is too long")
		}
		sp.Name = name
	}
	if req.Level != nil {
		info, ok := ParseLevel(*req.Level)
		if !ok {
			return nil, apperr.Params("unknown space level %q", *req.Level)
		}
		sp.Level = info.Value
		sp.MaxCount = info.MaxCount
		sp.MaxSize = info.MaxSize
	}
	if req.MaxCount != nil {
		if *req.MaxCount < 0 {
			return nil, apperr.Params("maxCount must not be negative")
		}
		sp.MaxCount = *req.MaxCount
	}
	if req.MaxSize != nil {
		if *req.MaxSize < 0 {
			return nil, apperr.Params("maxSize must not be negative")
		}
		sp.MaxSize = *req.MaxSize
	}

	updated, err := s.store.Update(ctx, sp)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("space %d not found", req.ID)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to update space")
	}
	return updated, nil
}

// Levels lists the available space levels.
func (s *Service) Levels() []LevelInfo {
	return Levels()
}

// Reconcile recomputes a space's usage counters. Administrators only.
func (s *Service) Reconcile(ctx context.Context, id int64, caller identity.Caller) (*Space, error) {
	if !caller.Admin {
		return nil, apperr.Auth("only administrators can reconcile spaces")
	}
	before, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.ledger.Reconcile(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.TotalCount != after.TotalCount || before.TotalSize != after.TotalSize {
		s.log.Info("space usage reconciled",
			zap.Int64("space_id", id),
			zap.Int64("count_before", before.TotalCount),
			zap.Int64("count_after", after.TotalCount),
			zap.Int64("size_before", before.TotalSize),
			zap.Int64("size_after", after.TotalSize),
		)
	}
	return after, nil
}
