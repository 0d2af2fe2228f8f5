package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radif/gallery/internal/apperr"
)

func TestCacheKeyIsCanonical(t *testing.T) {
	a, err := Filter{Tags: []string{"art", "hd"}, Name: " cat ", SortOrder: "DESCEND"}.normalize()
	require.NoError(t, err)
	b, err := Filter{Tags: []string{"hd", "art", "hd"}, Name: "cat", Current: -4}.normalize()
	require.NoError(t, err)

	ka, err := a.cacheKey()
	require.NoError(t, err)
	kb, err := b.cacheKey()
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.True(t, strings.HasPrefix(ka, keyPrefix))
	assert.Len(t, strings.TrimPrefix(ka, keyPrefix), 64)

	c, err := Filter{Tags: []string{"art"}}.normalize()
	require.NoError(t, err)
	kc, err := c.cacheKey()
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)
}

func TestNormalize(t *testing.T) {
	zero := int64(0)
	tests := []struct {
		name string
		in   Filter
		kind apperr.Kind
	}{
		{name: "defaults", in: Filter{}},
		{name: "max page size", in: Filter{PageSize: MaxPageSize}},
		{name: "page size too large", in: Filter{PageSize: MaxPageSize + 1}, kind: apperr.KindParams},
		{name: "negative page size", in: Filter{PageSize: -1}, kind: apperr.KindParams},
		{name: "bad sort order", in: Filter{SortOrder: "sideways"}, kind: apperr.KindParams},
		{name: "unsortable field", in: Filter{SortField: "url"}, kind: apperr.KindParams},
		{name: "unknown review status", in: Filter{ReviewStatus: "maybe"}, kind: apperr.KindParams},
		{name: "zero space id", in: Filter{SpaceID: &zero}, kind: apperr.KindParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.normalize()
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestNormalizeDefaultsAndTimes(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)

	f, err := Filter{EditedFrom: &from}.normalize()
	require.NoError(t, err)
	assert.Equal(t, 1, f.Current)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, "descend", f.SortOrder)
	assert.Equal(t, "createdAt", f.SortField)
	assert.Equal(t, time.UTC, f.EditedFrom.Location())
	assert.True(t, f.EditedFrom.Equal(from))
}

func TestNewPage(t *testing.T) {
	p := newPage(nil, 21, Filter{Current: 2, PageSize: 10})
	assert.NotNil(t, p.Records)
	assert.EqualValues(t, 3, p.Pages)
	assert.Equal(t, 2, p.Current)
	assert.Equal(t, 10, p.Size)
}
