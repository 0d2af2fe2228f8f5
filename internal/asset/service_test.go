package asset

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/identity"
	"github.com/radif/gallery/internal/space"
	"github.com/radif/gallery/internal/upload"
)

var (
	user  = identity.Caller{ID: "u1"}
	other = identity.Caller{ID: "u2"}
	admin = identity.Caller{ID: "root", Admin: true}
	red   = color.NRGBA{R: 0xff, A: 0xff}
)

func localPNG(t *testing.T, name string) *upload.LocalSource {
	return &upload.LocalSource{Filename: name, Data: pngBytes(t, 8, 4, red)}
}

func ptr[T any](v T) *T { return &v }

func TestIngestNilSource(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), nil, IngestRequest{}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))
}

func TestIngestPublicByUserIsPending(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Ingest(context.Background(), localPNG(t, "holiday.png"), IngestRequest{}, user)
	require.NoError(t, err)

	assert.Equal(t, "u1", a.OwnerID)
	assert.Nil(t, a.SpaceID)
	assert.Equal(t, "holiday", a.Name)
	assert.Equal(t, ReviewPending, a.ReviewStatus)
	assert.Nil(t, a.ReviewerID)
	assert.Equal(t, 8, a.Width)
	assert.Equal(t, 4, a.Height)
	assert.Equal(t, 2.0, a.Scale)
	assert.Equal(t, "png", a.Format)
	require.NotNil(t, a.Color)
	assert.Equal(t, "#ff0000", *a.Color)
	assert.True(t, strings.HasPrefix(a.URL, "http://cdn.test/gallery/owner/u1/"), a.URL)
	assert.True(t, strings.HasSuffix(a.URL, ".png"), a.URL)
	assert.Equal(t, 1, f.backend.Len())
}

func TestIngestByAdminIsApproved(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Ingest(context.Background(), localPNG(t, "x.png"), IngestRequest{Name: " Sunset "}, admin)
	require.NoError(t, err)

	assert.Equal(t, "Sunset", a.Name)
	assert.Equal(t, ReviewPass, a.ReviewStatus)
	require.NotNil(t, a.ReviewerID)
	assert.Equal(t, "root", *a.ReviewerID)
	require.NotNil(t, a.ReviewMessage)
	assert.Equal(t, adminReviewMessage, *a.ReviewMessage)
	assert.NotNil(t, a.ReviewedAt)
}

func TestIngestRejectsInvalidUpload(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), &upload.LocalSource{Filename: "a.png", Data: make([]byte, 3<<20)}, IngestRequest{}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	_, err = f.svc.Ingest(context.Background(), &upload.LocalSource{Filename: "a.gif", Data: []byte("GIF89a")}, IngestRequest{}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	_, err = f.svc.Ingest(context.Background(), &upload.LocalSource{Filename: "a.png", Data: []byte("not an image")}, IngestRequest{}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	_, err = f.svc.Ingest(context.Background(), &upload.LocalSource{Filename: "a.png", Data: []byte("GIF89a\x01\x00\x01\x00")}, IngestRequest{}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	assert.Zero(t, f.backend.Len())
	assert.Zero(t, f.db.assetCount())
}

func TestIngestIntoSpaceReservesQuota(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})

	a, err := f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, user)
	require.NoError(t, err)

	assert.Equal(t, sp.ID, *a.SpaceID)
	assert.Contains(t, a.URL, "/scope/")
	got := f.db.space(sp.ID)
	assert.Equal(t, int64(1), got.TotalCount)
	assert.Equal(t, a.SizeBytes, got.TotalSize)
}

func TestIngestSpaceChecks(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 1, MaxSize: 1 << 20})
	full := f.db.addSpace(space.Space{OwnerID: "u2", MaxCount: 1, MaxSize: 1 << 20, TotalCount: 1})

	_, err := f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: ptr(int64(999))}, user)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, other)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	_, err = f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: &full.ID}, other)
	assert.True(t, apperr.Is(err, apperr.KindOperation))
	assert.ErrorIs(t, err, apperr.ErrCapacity)

	assert.Zero(t, f.backend.Len())
}

func TestIngestIsAtomicWithQuota(t *testing.T) {
	t.Run("insert fails", func(t *testing.T) {
		f := newFixture(t)
		sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
		f.db.failInsert = errors.New("connection reset")

		_, err := f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, user)
		assert.True(t, apperr.Is(err, apperr.KindSystem))

		got := f.db.space(sp.ID)
		assert.Zero(t, got.TotalCount)
		assert.Zero(t, got.TotalSize)
		assert.Zero(t, f.backend.Len(), "orphaned object is cleaned up")
	})

	t.Run("reserve fails", func(t *testing.T) {
		f := newFixture(t)
		sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
		f.db.failReserve = apperr.Capacity("space quota exceeded")

		_, err := f.svc.Ingest(context.Background(), localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, user)
		assert.ErrorIs(t, err, apperr.ErrCapacity)

		assert.Zero(t, f.db.assetCount(), "asset row rolled back")
		assert.Zero(t, f.db.space(sp.ID).TotalCount)
		assert.Zero(t, f.backend.Len())
	})
}

func TestIngestReplaceImage(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 1, MaxSize: 1 << 20})
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, user)
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, EditRequest{ID: first.ID, Tags: []string{"cat"}}, user)
	require.NoError(t, err)

	big := &upload.LocalSource{Filename: "b.png", Data: pngBytes(t, 64, 64, red)}
	replaced, err := f.svc.Ingest(ctx, big, IngestRequest{AssetID: &first.ID}, user)
	require.NoError(t, err, "a full space still accepts a replacement")

	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, sp.ID, *replaced.SpaceID)
	assert.Equal(t, []string{"cat"}, replaced.Tags)
	assert.NotEqual(t, first.URL, replaced.URL)

	got := f.db.space(sp.ID)
	assert.Equal(t, int64(1), got.TotalCount)
	assert.Equal(t, replaced.SizeBytes, got.TotalSize)
	assert.Equal(t, 1, f.backend.Len(), "old object removed")

	otherSpace := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
	_, err = f.svc.Ingest(ctx, localPNG(t, "c.png"), IngestRequest{AssetID: &first.ID, SpaceID: &otherSpace.ID}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	_, err = f.svc.Ingest(ctx, localPNG(t, "c.png"), IngestRequest{AssetID: ptr(int64(12345))}, user)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Ingest(ctx, localPNG(t, "c.png"), IngestRequest{AssetID: &first.ID}, other)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestDeleteIsSymmetric(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
	ctx := context.Background()

	a, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{SpaceID: &sp.ID}, user)
	require.NoError(t, err)
	before := f.db.space(sp.ID)
	require.Equal(t, int64(1), before.TotalCount)

	require.NoError(t, f.svc.Delete(ctx, a.ID, user))

	after := f.db.space(sp.ID)
	assert.Zero(t, after.TotalCount)
	assert.Zero(t, after.TotalSize)
	assert.Zero(t, f.backend.Len())
	assert.Empty(t, f.sched.errs)

	err = f.svc.Delete(ctx, a.ID, user)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Zero(t, f.db.space(sp.ID).TotalCount)
}

func TestDeleteAuthorization(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
	ctx := context.Background()

	public, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{}, user)
	require.NoError(t, err)
	scoped, err := f.svc.Ingest(ctx, localPNG(t, "b.png"), IngestRequest{SpaceID: &sp.ID}, user)
	require.NoError(t, err)

	assert.True(t, apperr.Is(f.svc.Delete(ctx, public.ID, other), apperr.KindAuth))
	assert.True(t, apperr.Is(f.svc.Delete(ctx, scoped.ID, admin), apperr.KindAuth))
	assert.NoError(t, f.svc.Delete(ctx, public.ID, admin))
	assert.NoError(t, f.svc.Delete(ctx, scoped.ID, user))
}

func TestDeleteKeepsSharedObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{}, user)
	require.NoError(t, err)
	twin := *a
	_, err = f.db.Insert(ctx, &twin)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, a.ID, user))
	assert.Equal(t, 1, f.backend.Len(), "object still referenced by the twin")
}

func TestEditReviewState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{}, admin)
	require.NoError(t, err)
	require.Equal(t, ReviewPass, a.ReviewStatus)

	edited, err := f.svc.Edit(ctx, EditRequest{ID: a.ID, Tags: []string{"b", " a", "b", ""}, Category: ptr("poster")}, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, edited.Tags)
	assert.Equal(t, "poster", edited.Category)
	assert.Equal(t, ReviewPass, edited.ReviewStatus)

	mine, err := f.svc.Ingest(ctx, localPNG(t, "m.png"), IngestRequest{}, user)
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, ReviewRequest{ID: mine.ID, Status: ReviewPass}, admin)
	require.NoError(t, err)

	edited, err = f.svc.Edit(ctx, EditRequest{ID: mine.ID, Name: ptr("renamed")}, user)
	require.NoError(t, err)
	assert.Equal(t, "renamed", edited.Name)
	assert.Equal(t, ReviewPending, edited.ReviewStatus)
	assert.Nil(t, edited.ReviewerID)

	_, err = f.svc.Edit(ctx, EditRequest{ID: mine.ID, Name: ptr("  ")}, user)
	assert.True(t, apperr.Is(err, apperr.KindParams))
	_, err = f.svc.Edit(ctx, EditRequest{ID: mine.ID, Name: ptr("x")}, other)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{}, user)
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, ReviewRequest{ID: a.ID, Status: ReviewPass}, user)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	_, err = f.svc.Review(ctx, ReviewRequest{ID: a.ID, Status: ReviewPending}, admin)
	assert.True(t, apperr.Is(err, apperr.KindParams))

	reviewed, err := f.svc.Review(ctx, ReviewRequest{ID: a.ID, Status: ReviewRejected, Message: "blurry"}, admin)
	require.NoError(t, err)
	assert.Equal(t, ReviewRejected, reviewed.ReviewStatus)
	assert.Equal(t, "root", *reviewed.ReviewerID)
	assert.Equal(t, "blurry", *reviewed.ReviewMessage)

	_, err = f.svc.Review(ctx, ReviewRequest{ID: a.ID, Status: ReviewRejected}, admin)
	assert.True(t, apperr.Is(err, apperr.KindOperation))

	_, err = f.svc.Review(ctx, ReviewRequest{ID: 999, Status: ReviewPass}, admin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	sp := f.db.addSpace(space.Space{OwnerID: "u1", MaxCount: 10, MaxSize: 1 << 20})
	ctx := context.Background()

	pending, err := f.svc.Ingest(ctx, localPNG(t, "a.png"), IngestRequest{}, user)
	require.NoError(t, err)
	approved, err := f.svc.Ingest(ctx, localPNG(t, "b.png"), IngestRequest{}, admin)
	require.NoError(t, err)
	scoped, err := f.svc.Ingest(ctx, localPNG(t, "c.png"), IngestRequest{SpaceID: &sp.ID}, user)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, approved.ID, other)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, pending.ID, other)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	_, err = f.svc.Get(ctx, pending.ID, admin)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, scoped.ID, admin)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	_, err = f.svc.Get(ctx, scoped.ID, user)
	assert.NoError(t, err)
}
