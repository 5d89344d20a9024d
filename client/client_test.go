package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylog/babylog/internal/api"
	"github.com/babylog/babylog/internal/config"
	"github.com/babylog/babylog/internal/store/sqlite"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "babylog.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Bootstrap(context.Background(), db))
	st := sqlite.NewWithDB(db)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(api.NewRouter(cfg, st))
	t.Cleanup(srv.Close)
	return srv
}

func strPtr(s string) *string { return &s }

func TestClientRoundTrip(t *testing.T) {
	srv := newTestServer(t, &config.Config{ResetEnabled: true})
	c := New(srv.URL, "")
	ctx := context.Background()

	created, err := c.LogEvent(ctx, "feeding", EventInput{Notes: strPtr("90ml")})
	require.NoError(t, err)
	assert.Equal(t, "feeding", created.Type)
	assert.NotEmpty(t, created.ID)

	got, err := c.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "90ml", *got.Notes)

	last, err := c.Last(ctx, "feeding")
	require.NoError(t, err)
	assert.Equal(t, created.ID, last.Data["id"])
	assert.NotEmpty(t, last.Human)

	stats, err := c.Stats(ctx, "24h", "feeding")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
	assert.Equal(t, "24h", stats.Period)

	updated, err := c.UpdateEvent(ctx, created.ID, EventInput{Notes: strPtr("120ml")})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "120ml", *updated.Notes)

	require.NoError(t, c.DeleteEvent(ctx, created.ID))
	_, err = c.GetEvent(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientListPagination(t *testing.T) {
	srv := newTestServer(t, &config.Config{})
	c := New(srv.URL, "")
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		_, err := c.LogEvent(ctx, "sleep", EventInput{Ts: &ts})
		require.NoError(t, err)
	}

	page, err := c.ListEvents(ctx, ListOptions{Type: "sleep", Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := c.ListEvents(ctx, ListOptions{Type: "sleep", Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
}

func TestClientNotFound(t *testing.T) {
	srv := newTestServer(t, &config.Config{})
	c := New(srv.URL, "")

	_, err := c.Last(context.Background(), "bath")
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.DeleteLast(context.Background(), "bath")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientSendsAPIKey(t *testing.T) {
	cfg := &config.Config{APIKey: "sekret"}
	srv := newTestServer(t, cfg)

	unauthorized := New(srv.URL, "wrong")
	_, err := unauthorized.ListEvents(context.Background(), ListOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	authorized := New(srv.URL, "sekret")
	_, err = authorized.ListEvents(context.Background(), ListOptions{})
	assert.NoError(t, err)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer flaky.Close()

	c := New(flaky.URL, "")
	healthy, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, healthy)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientReset(t *testing.T) {
	srv := newTestServer(t, &config.Config{ResetEnabled: true})
	c := New(srv.URL, "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.LogEvent(ctx, "diaper", EventInput{})
		require.NoError(t, err)
	}

	deleted, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = c.Reset(ctx)
	require.NoError(t, err)
}

func TestClientResetForbidden(t *testing.T) {
	srv := newTestServer(t, &config.Config{})
	c := New(srv.URL, "")

	_, err := c.Reset(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
