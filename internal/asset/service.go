package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/metrics"
	"github.com/radif/gallery/internal/space"
	"github.com/radif/gallery/internal/storage"
	"github.com/radif/gallery/internal/upload"
	"github.com/radif/gallery/internal/worker"
)

// Store is the persistence surface of the asset service.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Asset, error)
	Insert(ctx context.Context, a *Asset) (*Asset, error)
	Update(ctx context.Context, a *Asset) (*Asset, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountByURL(ctx context.Context, url string) (int64, error)
}

// Spaces resolves space ids. Errors carry apperr kinds.
type Spaces interface {
	GetByID(ctx context.Context, id int64) (*space.Space, error)
}

// Quota records usage deltas on the transaction carried by ctx.
type Quota interface {
	Reserve(ctx context.Context, spaceID, deltaBytes, deltaCount int64) error
	Release(ctx context.Context, spaceID, deltaBytes, deltaCount int64) error
}

// Objects stores image bytes.
type Objects interface {
	Put(ctx context.Context, key string, file *os.File) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// Scheduler runs background tasks.
type Scheduler interface {
	Submit(t worker.Task) bool
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service coordinates uploads, metadata edits, review, and deletion.
type Service struct {
	store   Store
	spaces  Spaces
	quota   Quota
	objects Objects
	tx      txRunner
	cleanup Scheduler
	tempDir string
	log     *zap.Logger
	now     func() time.Time

	finder       Finder
	client       *http.Client
	fetchTimeout time.Duration
}

// Deps groups the collaborators of Service.
type Deps struct {
	Store   Store
	Spaces  Spaces
	Quota   Quota
	Objects Objects
	Tx      txRunner
	Cleanup Scheduler
	// TempDir holds materialized uploads; empty means os.TempDir.
	TempDir string
	Log     *zap.Logger

	// Finder, Client and FetchTimeout serve Harvest. A nil Finder disables it.
	Finder       Finder
	Client       *http.Client
	FetchTimeout time.Duration
}

// NewService creates a new asset Service.
func NewService(d Deps) *Service {
	return &Service{
		store:   d.Store,
		spaces:  d.Spaces,
		quota:   d.Quota,
		objects: d.Objects,
		tx:      d.Tx,
		cleanup: d.Cleanup,
		tempDir: d.TempDir,
		log:     d.Log,
		now:     time.Now,

		finder:       d.Finder,
		client:       d.Client,
		fetchTimeout: d.FetchTimeout,
	}
}

// Ingest stores the image behind src and records it as a new asset, or as
// the new image of req.AssetID. Space usage is updated in the same
// transaction as the asset row.
func (s *Service) Ingest(ctx context.Context, src upload.Source, req IngestRequest, caller identity.Caller) (a *Asset, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
		}
		metrics.Ingests.WithLabelValues(outcome).Inc()
	}()

	if src == nil {
		return nil, apperr.Params("image source is required")
	}

	spaceID := req.SpaceID
	if spaceID != nil {
		sp, err := s.spaces.GetByID(ctx, *spaceID)
		if err != nil {
			return nil, err
		}
		if sp.OwnerID != caller.ID {
			return nil, apperr.Auth("no permission for space %d", sp.ID)
		}
		if err := sp.Admit(); err != nil {
			return nil, err
		}
	}

	var old *Asset
	if req.AssetID != nil {
		old, err = s.load(ctx, *req.AssetID)
		if err != nil {
			return nil, err
		}
		if !caller.CanManage(old.OwnerID) {
			return nil, apperr.Auth("no permission for asset %d", old.ID)
		}
		if spaceID == nil {
			spaceID = old.SpaceID
		} else if old.SpaceID != nil && *old.SpaceID != *spaceID {
			return nil, apperr.Params("asset %d belongs to a different space", old.ID)
		}
	}

	ownerID := caller.ID
	if old != nil {
		ownerID = old.OwnerID
	}
	prefix := "owner/" + ownerID
	if spaceID != nil {
		prefix = fmt.Sprintf("scope/%d", *spaceID)
	}

	if err := src.Validate(ctx); err != nil {
		return nil, apperr.Wrap(err, "failed to validate image source")
	}

	var obj *storage.Object
	err = upload.WithTempFile(s.tempDir, func(f *os.File) error {
		if err := src.Materialize(ctx, f); err != nil {
			return err
		}
		ext, err := extensionFor(src.OriginalName(), f)
		if err != nil {
			return err
		}
		obj, err = s.objects.Put(ctx, s.objectKey(prefix, ext), f)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to upload image")
	}

	now := s.now()
	a = &Asset{
		OwnerID:      ownerID,
		SpaceID:      spaceID,
		URL:          obj.URL,
		ThumbnailURL: optional(obj.ThumbnailURL),
		Name:         assetName(req.Name, src.OriginalName()),
		Width:        obj.Width,
		Height:       obj.Height,
		Scale:        scaleOf(obj.Width, obj.Height),
		SizeBytes:    obj.SizeBytes,
		Format:       obj.Format,
		Color:        optional(obj.Color),
		Tags:         []string{},
	}
	if old != nil {
		a.ID = old.ID
		a.Introduction = old.Introduction
		a.Category = old.Category
		a.Tags = old.Tags
		a.EditedAt = now
	}
	a.applyReview(caller.ID, caller.Admin, now)

	var saved *Asset
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if old == nil {
			saved, err = s.store.Insert(ctx, a)
		} else {
			saved, err = s.store.Update(ctx, a)
		}
		if err != nil {
			return err
		}
		if old != nil && old.SpaceID != nil {
			if err := s.quota.Release(ctx, *old.SpaceID, old.SizeBytes, 1); err != nil {
				return err
			}
		}
		if spaceID != nil {
			return s.quota.Reserve(ctx, *spaceID, a.SizeBytes, 1)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("asset not saved, scheduling orphaned object cleanup",
			zap.String("key", obj.Key),
			zap.String("url", obj.URL),
			zap.Error(err),
		)
		s.scheduleCleanup(obj.URL, obj.ThumbnailURL)
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("asset %d not found", a.ID)
		}
		return nil, apperr.Wrap(err, "failed to save image")
	}

	if old != nil {
		s.scheduleCleanup(old.URL, deref(old.ThumbnailURL))
	}

	metrics.IngestedBytes.Add(float64(saved.SizeBytes))
	s.log.Info("asset ingested",
		zap.Int64("asset_id", saved.ID),
		zap.String("owner_id", saved.OwnerID),
		zap.String("key", obj.Key),
		zap.Int64("size_bytes", saved.SizeBytes),
		zap.Bool("replaced", old != nil),
	)
	return saved, nil
}

// Delete removes an asset, returns its usage to the space, and schedules
// the removal of objects no other asset references.
func (s *Service) Delete(ctx context.Context, id int64, caller identity.Caller) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeWrite(a, caller); err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deleted, err := s.store.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		if a.SpaceID != nil {
			return s.quota.Release(ctx, *a.SpaceID, a.SizeBytes, 1)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("asset %d not found", id)
	}
	if err != nil {
		return apperr.Wrap(err, "failed to delete asset")
	}

	s.scheduleCleanup(a.URL, deref(a.ThumbnailURL))
	s.log.Info("asset deleted", zap.Int64("asset_id", id), zap.String("caller", caller.ID))
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Asset, error) {
	a, err := s.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("asset %d not found", id)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to load asset")
	}
	return a, nil
}

// authorizeWrite allows the owner, or an administrator for public assets.
// Space assets are private to the space owner.
func authorizeWrite(a *Asset, caller identity.Caller) error {
	if a.IsPublic() {
		if !caller.CanManage(a.OwnerID) {
			return apperr.Auth("no permission for asset %d", a.ID)
		}
		return nil
	}
	if a.OwnerID != caller.ID {
		return apperr.Auth("no permission for asset %d", a.ID)
	}
	return nil
}

func (s *Service) objectKey(prefix, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%s/%s_%s.%s", prefix, s.now().Format("2006-01-02"), random, ext)
}

var sniffedExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// extensionFor takes the extension from name, or sniffs the content of f
// when name has no usable one.
func extensionFor(name string, f *os.File) (string, error) {
	switch ext := upload.Extension(name); ext {
	case "png", "jpg", "jpeg", "webp":
		return ext, nil
	}

	head := make([]byte, 512)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload header: %w", err)
	}
	ext, ok := sniffedExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", apperr.Params("unsupported file type")
	}
	return ext, nil
}

func assetName(override, original string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	base := filepath.Base(original)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
