package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/store"
)

// fakeStore records the CountSince window and serves a canned last event.
type fakeStore struct {
	store.EventStore

	lastEvent  *model.Event
	countSince time.Time
	count      int64
	countErr   error
}

func (f *fakeStore) Last(ctx context.Context, eventType string) (*model.Event, error) {
	if f.lastEvent == nil {
		return nil, model.ErrNotFound
	}
	return f.lastEvent, nil
}

func (f *fakeStore) CountSince(ctx context.Context, since time.Time, eventType string) (int64, error) {
	f.countSince = since
	return f.count, f.countErr
}

func TestCreateEventRequiresType(t *testing.T) {
	svc := NewEventService(&fakeStore{})
	_, err := svc.CreateEvent(context.Background(), &model.Event{})
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestEventStatsComputesWindow(t *testing.T) {
	fs := &fakeStore{count: 3}
	svc := NewEventService(fs)

	before := time.Now().UTC()
	stats, err := svc.EventStats(context.Background(), "24h", "")
	after := time.Now().UTC()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)

	// since == now - 24h, within the call's execution bounds
	assert.False(t, fs.countSince.Before(before.Add(-24*time.Hour)))
	assert.False(t, fs.countSince.After(after.Add(-24*time.Hour)))
}

func TestEventStatsPropagatesInvalidPeriod(t *testing.T) {
	svc := NewEventService(&fakeStore{})
	_, err := svc.EventStats(context.Background(), "0h", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidPeriod))
}

func TestEventStatsPropagatesStorageFailure(t *testing.T) {
	fs := &fakeStore{countErr: model.ErrStorageUnavailable}
	svc := NewEventService(fs)
	_, err := svc.EventStats(context.Background(), "1h", "")
	assert.True(t, errors.Is(err, model.ErrStorageUnavailable))
}

func TestGetLastEventShapesResponse(t *testing.T) {
	notes := "bottle"
	fs := &fakeStore{lastEvent: &model.Event{
		ID:        "abc",
		Timestamp: time.Now().UTC().Add(-5 * time.Minute),
		Type:      "feeding",
		Notes:     &notes,
		Tags:      []string{"night"},
	}}
	svc := NewEventService(fs)

	out, err := svc.GetLastEvent(context.Background(), "feeding")
	require.NoError(t, err)
	assert.Equal(t, "5m ago", out.Human)
	assert.Equal(t, "feeding", out.Data["type"])
	assert.Equal(t, "abc", out.Data["id"])
}

func TestGetLastEventNotFound(t *testing.T) {
	svc := NewEventService(&fakeStore{})
	_, err := svc.GetLastEvent(context.Background(), "feeding")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
