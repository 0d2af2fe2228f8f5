package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/metrics"
	"github.com/radif/gallery/internal/space"
)

// Lister runs asset queries.
type Lister interface {
	List(ctx context.Context, q asset.Query) ([]*asset.Asset, int64, error)
}

// SpaceAuthorizer checks that a caller owns a space.
type SpaceAuthorizer interface {
	Authorize(ctx context.Context, id int64, caller identity.Caller) (*space.Space, error)
}

// fillTimeout bounds a shared cache fill.
const fillTimeout = 15 * time.Second

// Options sizes the process-local cache tier.
type Options struct {
	LocalSize int
	LocalTTL  time.Duration
}

// Service answers listing queries. The cached path checks a process-local
// LRU, then the shared Remote, then the store, and fills both tiers on the
// way out. Writes do not invalidate: cached pages go stale for at most the
// tier TTLs.
type Service struct {
	store  Lister
	spaces SpaceAuthorizer
	local  *expirable.LRU[string, []byte]
	remote Remote
	group  singleflight.Group
	ttl    func() time.Duration
	log    *zap.Logger
}

// NewService creates a catalog Service. remote may be nil to run with the
// local tier only.
func NewService(store Lister, spaces SpaceAuthorizer, remote Remote, opts Options, log *zap.Logger) *Service {
	if opts.LocalSize <= 0 {
		opts.LocalSize = 10000
	}
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = 5 * time.Minute
	}
	return &Service{
		store:  store,
		spaces: spaces,
		local:  expirable.NewLRU[string, []byte](opts.LocalSize, nil, opts.LocalTTL),
		remote: remote,
		ttl:    jitteredTTL,
		log:    log,
	}
}

// ListPage returns one page straight from the store.
func (s *Service) ListPage(ctx context.Context, f Filter, caller identity.Caller) (*Page, error) {
	f, err := s.prepare(ctx, f, caller)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, f)
}

// ListPageCached returns the JSON encoding of one page, served from cache
// when possible. Concurrent misses on one key share a single store query.
func (s *Service) ListPageCached(ctx context.Context, f Filter, caller identity.Caller) ([]byte, error) {
	f, err := s.prepare(ctx, f, caller)
	if err != nil {
		return nil, err
	}
	key, err := f.cacheKey()
	if err != nil {
		return nil, apperr.System(err, "failed to list assets")
	}

	if data, ok := s.local.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("local").Inc()
		return data, nil
	}

	if s.remote != nil {
		data, err := s.remote.Get(ctx, key)
		switch {
		case err == nil:
			metrics.CacheLookups.WithLabelValues("remote").Inc()
			s.local.Add(key, data)
			return data, nil
		case !errors.Is(err, ErrMiss):
			s.log.Warn("remote cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// The fill serves every caller coalesced on key, so one caller
		// going away must not cancel it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		page, err := s.fetch(ctx, f)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(page)
		if err != nil {
			return nil, apperr.System(err, "failed to encode page")
		}
		metrics.CacheLookups.WithLabelValues("store").Inc()

		if s.remote != nil {
			if err := s.remote.Set(ctx, key, data, s.ttl()); err != nil {
				s.log.Warn("remote cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		s.local.Add(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// ListAll lists every asset without the public-gallery restrictions.
// Administrators only; never cached.
func (s *Service) ListAll(ctx context.Context, f Filter, caller identity.Caller) (*Page, error) {
	if !caller.Admin {
		return nil, apperr.Auth("only administrators can list all assets")
	}
	f.PublicOnly = false
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, f)
}

// prepare normalizes f and applies visibility rules: a space listing needs
// the space owner; anything else is the public gallery of approved assets.
func (s *Service) prepare(ctx context.Context, f Filter, caller identity.Caller) (Filter, error) {
	f, err := f.normalize()
	if err != nil {
		return f, err
	}
	if f.SpaceID != nil {
		if _, err := s.spaces.Authorize(ctx, *f.SpaceID, caller); err != nil {
			return f, err
		}
		f.PublicOnly = false
		return f, nil
	}
	f.PublicOnly = true
	f.ReviewStatus = string(asset.ReviewPass)
	return f, nil
}

func (s *Service) fetch(ctx context.Context, f Filter) (*Page, error) {
	records, total, err := s.store.List(ctx, f.query())
	if err != nil {
		return nil, apperr.System(err, "failed to list assets")
	}
	return newPage(records, total, f), nil
}
