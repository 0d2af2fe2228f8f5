package asset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/space"
	"github.com/radif/gallery/internal/storage"
	"github.com/radif/gallery/internal/worker"
)

// memDB holds assets and spaces. WithinTx snapshots both and restores the
// snapshot when the unit of work fails, like a database rollback.
type memDB struct {
	mu     sync.Mutex
	nextID int64
	assets map[int64]Asset
	spaces map[int64]space.Space

	failInsert  error
	failReserve error
}

func newMemDB() *memDB {
	return &memDB{assets: make(map[int64]Asset), spaces: make(map[int64]space.Space)}
}

func (m *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	assets := make(map[int64]Asset, len(m.assets))
	for k, v := range m.assets {
		assets[k] = v
	}
	spaces := make(map[int64]space.Space, len(m.spaces))
	for k, v := range m.spaces {
		spaces[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.assets, m.spaces = assets, spaces
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) addSpace(sp space.Space) *space.Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sp.ID = m.nextID
	m.spaces[sp.ID] = sp
	return &sp
}

func (m *memDB) space(id int64) space.Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spaces[id]
}

func (m *memDB) assetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assets)
}

// Store

func (m *memDB) GetByID(_ context.Context, id int64) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memDB) Insert(_ context.Context, a *Asset) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return nil, m.failInsert
	}
	m.nextID++
	cp := *a
	cp.ID = m.nextID
	m.assets[cp.ID] = cp
	return &cp, nil
}

func (m *memDB) Update(_ context.Context, a *Asset) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[a.ID]; !ok {
		return nil, ErrNotFound
	}
	cp := *a
	m.assets[a.ID] = cp
	return &cp, nil
}

func (m *memDB) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[id]; !ok {
		return false, nil
	}
	delete(m.assets, id)
	return true, nil
}

func (m *memDB) CountByURL(_ context.Context, url string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.assets {
		if a.URL == url || (a.ThumbnailURL != nil && *a.ThumbnailURL == url) {
			n++
		}
	}
	return n, nil
}

// Spaces and Quota

type memSpaces struct{ db *memDB }

func (s memSpaces) GetByID(_ context.Context, id int64) (*space.Space, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sp, ok := s.db.spaces[id]
	if !ok {
		return nil, apperr.NotFound("space %d not found", id)
	}
	return &sp, nil
}

type memQuota struct{ db *memDB }

func (q memQuota) Reserve(_ context.Context, id, deltaBytes, deltaCount int64) error {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if q.db.failReserve != nil {
		return q.db.failReserve
	}
	sp, ok := q.db.spaces[id]
	if !ok {
		return apperr.NotFound("space %d not found", id)
	}
	if sp.TotalCount >= sp.MaxCount || sp.TotalSize > sp.MaxSize {
		return apperr.Capacity("space quota exceeded")
	}
	sp.TotalSize += deltaBytes
	sp.TotalCount += deltaCount
	q.db.spaces[id] = sp
	return nil
}

func (q memQuota) Release(_ context.Context, id, deltaBytes, deltaCount int64) error {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	sp, ok := q.db.spaces[id]
	if !ok {
		return apperr.NotFound("space %d not found", id)
	}
	sp.TotalSize -= deltaBytes
	sp.TotalCount -= deltaCount
	q.db.spaces[id] = sp
	return nil
}

// inlineScheduler runs tasks synchronously on Submit.
type inlineScheduler struct {
	mu   sync.Mutex
	errs []error
}

func (s *inlineScheduler) Submit(t worker.Task) bool {
	if err := t.Run(context.Background()); err != nil {
		s.mu.Lock()
		s.errs = append(s.errs, err)
		s.mu.Unlock()
	}
	return true
}

type fixture struct {
	db      *memDB
	backend *storage.MemoryBackend
	svc     *Service
	sched   *inlineScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	backend := storage.NewMemoryBackend("http://cdn.test/gallery")
	sched := &inlineScheduler{}
	svc := NewService(Deps{
		Store:   db,
		Spaces:  memSpaces{db},
		Quota:   memQuota{db},
		Objects: storage.NewGateway(backend, zap.NewNop()),
		Tx:      db,
		Cleanup: sched,
		TempDir: t.TempDir(),
		Log:     zap.NewNop(),
	})
	return &fixture{db: db, backend: backend, svc: svc, sched: sched}
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
