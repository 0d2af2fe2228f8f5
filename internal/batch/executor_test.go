package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/space"
)

type memStore struct {
	mu     sync.Mutex
	assets map[int64]asset.Asset
	// failOn makes any batch containing this id fail.
	failOn int64
	writes int
}

func newMemStore() *memStore {
	return &memStore{assets: make(map[int64]asset.Asset)}
}

func (m *memStore) add(id, spaceID int64) {
	sid := spaceID
	m.assets[id] = asset.Asset{ID: id, SpaceID: &sid, Name: fmt.Sprintf("orig-%d", id), Category: "meme"}
}

func (m *memStore) ListBySpaceIDs(_ context.Context, spaceID int64, ids []int64) ([]*asset.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*asset.Asset
	for _, id := range ids {
		a, ok := m.assets[id]
		if !ok || a.SpaceID == nil || *a.SpaceID != spaceID {
			continue
		}
		out = append(out, &a)
	}
	slices.SortFunc(out, func(a, b *asset.Asset) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStore) UpdateMetadataBatch(_ context.Context, assets []*asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range assets {
		if a.ID == m.failOn {
			return errors.New("deadlock detected")
		}
	}
	for _, a := range assets {
		m.assets[a.ID] = *a
	}
	m.writes++
	return nil
}

func (m *memStore) get(id int64) asset.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[id]
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

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

var owner = identity.Caller{ID: "u1"}

func newTestExecutor(store *memStore) *Executor {
	return NewExecutor(store, ownerSpaces{1: "u1", 2: "u2"}, passthroughTx{}, 4, zap.NewNop())
}

func TestApplyNamesAreContiguous(t *testing.T) {
	store := newMemStore()
	ids := make([]int64, 0, 250)
	for id := int64(1); id <= 250; id++ {
		store.add(id, 1)
		ids = append(ids, id)
	}
	exec := newTestExecutor(store)

	n, err := exec.Apply(context.Background(), 1, ids, Mutation{
		Category: " poster ",
		Tags:     []string{"hd", "art", "hd"},
		NameRule: "img-{n}",
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, 3, store.writes, "one write per chunk of 100")

	names := make([]string, 0, 250)
	for id := int64(1); id <= 250; id++ {
		a := store.get(id)
		names = append(names, a.Name)
		assert.Equal(t, "poster", a.Category)
		assert.Equal(t, []string{"art", "hd"}, a.Tags)
	}
	want := make([]string, 0, 250)
	for i := 1; i <= 250; i++ {
		want = append(want, fmt.Sprintf("img-%d", i))
	}
	assert.ElementsMatch(t, want, names)
}

func TestApplySkipsForeignAssets(t *testing.T) {
	store := newMemStore()
	store.add(1, 1)
	store.add(2, 2)
	exec := newTestExecutor(store)

	n, err := exec.Apply(context.Background(), 1, []int64{1, 2, 3}, Mutation{NameRule: "x{n}"}, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x1", store.get(1).Name)
	assert.Equal(t, "orig-2", store.get(2).Name)
}

func TestApplyEmptyMutationFieldsKeepValues(t *testing.T) {
	store := newMemStore()
	store.add(1, 1)
	exec := newTestExecutor(store)

	_, err := exec.Apply(context.Background(), 1, []int64{1}, Mutation{Tags: []string{"life"}}, owner)
	require.NoError(t, err)
	a := store.get(1)
	assert.Equal(t, "orig-1", a.Name)
	assert.Equal(t, "meme", a.Category)
	assert.Equal(t, []string{"life"}, a.Tags)
}

func TestApplyChunkFailureKeepsOtherChunks(t *testing.T) {
	store := newMemStore()
	ids := make([]int64, 0, 250)
	for id := int64(1); id <= 250; id++ {
		store.add(id, 1)
		ids = append(ids, id)
	}
	store.failOn = 150
	exec := newTestExecutor(store)

	_, err := exec.Apply(context.Background(), 1, ids, Mutation{Category: "poster"}, owner)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSystem, apperr.KindOf(err))

	assert.Equal(t, "poster", store.get(1).Category)
	assert.Equal(t, "meme", store.get(150).Category)
	assert.Equal(t, "meme", store.get(101).Category)
	assert.Equal(t, "poster", store.get(250).Category)
}

func TestApplyValidation(t *testing.T) {
	store := newMemStore()
	store.add(1, 1)
	exec := newTestExecutor(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		spaceID int64
		ids     []int64
		m       Mutation
		caller  identity.Caller
		kind    apperr.Kind
	}{
		{name: "no space", ids: []int64{1}, caller: owner, kind: apperr.KindParams},
		{name: "no ids", spaceID: 1, caller: owner, kind: apperr.KindParams},
		{name: "rule without placeholder", spaceID: 1, ids: []int64{1}, m: Mutation{NameRule: "img"}, caller: owner, kind: apperr.KindParams},
		{name: "not the owner", spaceID: 1, ids: []int64{1}, caller: identity.Caller{ID: "u2"}, kind: apperr.KindAuth},
		{name: "admin is not the owner", spaceID: 1, ids: []int64{1}, caller: identity.Caller{ID: "root", Admin: true}, kind: apperr.KindAuth},
		{name: "missing space", spaceID: 9, ids: []int64{1}, caller: owner, kind: apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Apply(ctx, tt.spaceID, tt.ids, tt.m, tt.caller)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Zero(t, store.writes)
}
