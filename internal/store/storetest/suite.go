// Package storetest holds a compliance suite run against every EventStore
// driver. Implementations provide a clean, isolated store from makeStore.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/store"
)

func strptr(s string) *string { return &s }

// Run exercises the full EventStore contract.
func Run(t *testing.T, makeStore func(t *testing.T) store.EventStore) {
	t.Helper()

	t.Run("CreateRoundTrip", func(t *testing.T) { testCreateRoundTrip(t, makeStore(t)) })
	t.Run("TimestampNormalization", func(t *testing.T) { testTimestampNormalization(t, makeStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, makeStore(t)) })
	t.Run("PartialUpdate", func(t *testing.T) { testPartialUpdate(t, makeStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, makeStore(t)) })
	t.Run("DeleteLastOrdering", func(t *testing.T) { testDeleteLastOrdering(t, makeStore(t)) })
	t.Run("LastByType", func(t *testing.T) { testLastByType(t, makeStore(t)) })
	t.Run("PaginationCompleteness", func(t *testing.T) { testPaginationCompleteness(t, makeStore(t)) })
	t.Run("TypeFilter", func(t *testing.T) { testTypeFilter(t, makeStore(t)) })
	t.Run("WindowBoundsInclusive", func(t *testing.T) { testWindowBoundsInclusive(t, makeStore(t)) })
	t.Run("MalformedCursorIgnored", func(t *testing.T) { testMalformedCursorIgnored(t, makeStore(t)) })
	t.Run("LimitClamping", func(t *testing.T) { testLimitClamping(t, makeStore(t)) })
	t.Run("CountSinceWindows", func(t *testing.T) { testCountSinceWindows(t, makeStore(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, makeStore(t)) })
}

func mustCreate(t *testing.T, s store.EventStore, e *model.Event) *model.Event {
	t.Helper()
	out, err := s.Create(context.Background(), e)
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	return out
}

func testCreateRoundTrip(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	in := &model.Event{
		Type:     "feeding",
		Notes:    strptr("bottle, 120ml"),
		Tags:     []string{"a", "b"},
		Metadata: map[string]interface{}{"k": "v"},
	}
	created := mustCreate(t, s, in)
	require.False(t, created.Timestamp.IsZero())
	assert.Equal(t, time.UTC, created.Timestamp.Location())

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "feeding", got.Type)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "bottle, 120ml", *got.Notes)
	assert.Equal(t, []string{"a", "b"}, got.Tags, "tag order must survive the round trip")
	assert.Equal(t, map[string]interface{}{"k": "v"}, got.Metadata)

	// repeated reads without intervening writes are identical
	again, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func testTimestampNormalization(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	zone := time.FixedZone("CEST", 2*3600)
	local := time.Date(2025, 3, 1, 14, 30, 0, 0, zone)

	created := mustCreate(t, s, &model.Event{Type: "nappy", Timestamp: local})
	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
	assert.True(t, got.Timestamp.Equal(local), "offset input converts to the same instant in UTC")
	assert.Equal(t, 12, got.Timestamp.Hour())
}

func testGetNotFound(t *testing.T, s store.EventStore) {
	_, err := s.Get(context.Background(), "3f0c6a2e-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.False(t, errors.Is(err, model.ErrStorageUnavailable))
}

func testPartialUpdate(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	created := mustCreate(t, s, &model.Event{
		Type:  "nappy",
		Notes: strptr("initial"),
		Tags:  []string{"wet"},
	})

	updated, err := s.Update(ctx, created.ID, model.EventPatch{Notes: strptr("updated")})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "updated", *updated.Notes)
	assert.Equal(t, "nappy", updated.Type, "unspecified fields stay unchanged")
	assert.Equal(t, []string{"wet"}, updated.Tags)
	assert.True(t, updated.Timestamp.Equal(created.Timestamp))

	// explicitly setting a field to empty is distinct from omitting it
	empty := []string{}
	cleared, err := s.Update(ctx, created.ID, model.EventPatch{Tags: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)
	require.NotNil(t, cleared.Notes)
	assert.Equal(t, "updated", *cleared.Notes)

	// empty patch is a no-op returning the current row
	same, err := s.Update(ctx, created.ID, model.EventPatch{})
	require.NoError(t, err)
	assert.Equal(t, cleared, same)

	// update never creates
	_, err = s.Update(ctx, "3f0c6a2e-0000-4000-8000-000000000001", model.EventPatch{Notes: strptr("x")})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func testDelete(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	created := mustCreate(t, s, &model.Event{Type: "nappy", Notes: strptr("initial")})

	ok, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	ok, err = s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second delete reports nothing removed")
}

func testDeleteLastOrdering(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	const n = 4
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		e := mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: base.Add(time.Duration(i) * time.Minute)})
		ids[i] = e.ID
	}

	// each call removes the current most-recent row
	for i := n - 1; i >= 0; i-- {
		last, err := s.Last(ctx, "feeding")
		require.NoError(t, err)
		assert.Equal(t, ids[i], last.ID, "Last and DeleteLast must agree on the candidate")

		ok, err := s.DeleteLast(ctx, "feeding")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = s.Get(ctx, ids[i])
		assert.True(t, errors.Is(err, model.ErrNotFound))
	}

	ok, err := s.DeleteLast(ctx, "feeding")
	require.NoError(t, err)
	assert.False(t, ok, "delete-last on an empty set reports false")
}

func testLastByType(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: base.Add(3 * time.Hour)})
	nappy := mustCreate(t, s, &model.Event{Type: "nappy", Timestamp: base.Add(2 * time.Hour)})
	mustCreate(t, s, &model.Event{Type: "nappy", Timestamp: base})

	got, err := s.Last(ctx, "nappy")
	require.NoError(t, err)
	assert.Equal(t, nappy.ID, got.ID)

	// no filter returns the newest row overall
	any, err := s.Last(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "feeding", any.Type)

	_, err = s.Last(ctx, "sleep")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	// delete-last with a filter only touches matching rows
	ok, err := s.DeleteLast(ctx, "nappy")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.Get(ctx, nappy.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func testPaginationCompleteness(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	const k = 7
	want := make(map[string]bool, k)
	for i := 0; i < k; i++ {
		e := mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: base.Add(time.Duration(i) * time.Minute)})
		want[e.ID] = false
	}

	for _, desc := range []bool{true, false} {
		for id := range want {
			want[id] = false
		}
		var prev *time.Time
		cursor := ""
		pages := 0
		for {
			page, err := s.List(ctx, model.ListEventsRequest{Limit: 3, Cursor: cursor, SortDesc: desc})
			require.NoError(t, err)
			if len(page.Items) == 0 {
				assert.Empty(t, page.NextCursor)
				break
			}
			for _, e := range page.Items {
				assert.False(t, want[e.ID], "event %s visited twice", e.ID)
				want[e.ID] = true
				if prev != nil {
					if desc {
						assert.True(t, e.Timestamp.Before(*prev))
					} else {
						assert.True(t, e.Timestamp.After(*prev))
					}
				}
				ts := e.Timestamp
				prev = &ts
			}
			require.NotEmpty(t, page.NextCursor)
			cursor = page.NextCursor
			pages++
			require.LessOrEqual(t, pages, k, "cursor chain did not terminate")
		}
		for id, seen := range want {
			assert.True(t, seen, "event %s skipped (desc=%v)", id, desc)
		}
	}
}

func testTypeFilter(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustCreate(t, s, &model.Event{Type: "nappy"})
		mustCreate(t, s, &model.Event{Type: "feeding"})
	}
	page, err := s.List(ctx, model.ListEventsRequest{Type: "nappy", Limit: 100, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	for _, e := range page.Items {
		assert.Equal(t, "nappy", e.Type)
	}
}

func testWindowBoundsInclusive(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}

	since := base.Add(1 * time.Hour)
	until := base.Add(3 * time.Hour)
	page, err := s.List(ctx, model.ListEventsRequest{Since: &since, Until: &until, Limit: 100, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 3, "both window bounds are inclusive")
	for _, e := range page.Items {
		assert.False(t, e.Timestamp.Before(since))
		assert.False(t, e.Timestamp.After(until))
	}
}

func testMalformedCursorIgnored(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustCreate(t, s, &model.Event{Type: "feeding"})
	}
	plain, err := s.List(ctx, model.ListEventsRequest{Limit: 100, SortDesc: true})
	require.NoError(t, err)

	garbled, err := s.List(ctx, model.ListEventsRequest{Limit: 100, Cursor: "not-a-timestamp", SortDesc: true})
	require.NoError(t, err, "a malformed cursor must not fail the request")
	assert.Equal(t, len(plain.Items), len(garbled.Items))
}

func testLimitClamping(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustCreate(t, s, &model.Event{Type: "feeding"})
	}
	page, err := s.List(ctx, model.ListEventsRequest{Limit: 0, SortDesc: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1, "limit below 1 is raised to 1")

	page, err = s.List(ctx, model.ListEventsRequest{Limit: -5, SortDesc: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = s.List(ctx, model.ListEventsRequest{Limit: 99999, SortDesc: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func testCountSinceWindows(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: now.Add(-30 * time.Minute)})
	mustCreate(t, s, &model.Event{Type: "feeding", Timestamp: now.Add(-2 * time.Hour)})
	mustCreate(t, s, &model.Event{Type: "nappy", Timestamp: now.Add(-10 * 24 * time.Hour)})

	for _, c := range []struct {
		window time.Duration
		want   int64
	}{
		{time.Hour, 1},
		{7 * 24 * time.Hour, 2},
		{30 * 24 * time.Hour, 3},
	} {
		n, err := s.CountSince(ctx, now.Add(-c.window), "")
		require.NoError(t, err)
		assert.Equal(t, c.want, n, fmt.Sprintf("window %s", c.window))
	}

	n, err := s.CountSince(ctx, now.Add(-30*24*time.Hour), "nappy")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testDeleteAll(t *testing.T, s store.EventStore) {
	ctx := context.Background()
	types := []string{"feeding", "nappy", "feeding", "sleep", "nappy"}
	for _, typ := range types {
		mustCreate(t, s, &model.Event{Type: typ})
	}
	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(types)), n)

	page, err := s.List(ctx, model.ListEventsRequest{Limit: 100, SortDesc: true})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
