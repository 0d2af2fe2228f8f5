package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/space"
)

// countingLister returns a fixed result set and records every query.
type countingLister struct {
	calls   atomic.Int64
	records []*asset.Asset
	gate    chan struct{}

	mu   sync.Mutex
	last asset.Query
}

func (l *countingLister) List(ctx context.Context, q asset.Query) ([]*asset.Asset, int64, error) {
	l.calls.Add(1)
	l.mu.Lock()
	l.last = q
	l.mu.Unlock()
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	return l.records, int64(len(l.records)), nil
}

func (l *countingLister) lastQuery() asset.Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// ownerSpaces authorizes callers whose ID matches the space owner.
type ownerSpaces map[int64]string

func (s ownerSpaces) Authorize(_ context.Context, id int64, caller identity.Caller) (*space.Space, error) {
	owner, ok := s[id]
	if !ok {
		return nil, apperr.NotFound("space not found")
	}
	if owner != caller.ID {
		return nil, apperr.Auth("no access to this space")
	}
	return &space.Space{ID: id, OwnerID: owner}, nil
}

type memRemote struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    []time.Duration
	failGet error
}

func newMemRemote() *memRemote {
	return &memRemote{data: make(map[string][]byte)}
}

func (r *memRemote) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	v, ok := r.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (r *memRemote) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
	r.ttls = append(r.ttls, ttl)
	return nil
}

func (r *memRemote) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

var errRemoteDown = errors.New("connection refused")
