package services

import (
	"context"
	"fmt"
	"time"

	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/period"
	"github.com/babylog/babylog/internal/store"
)

// EventService orchestrates event use cases on top of the store and shapes
// responses for the HTTP boundary.
type EventService struct {
	store store.EventStore
}

func NewEventService(s store.EventStore) *EventService {
	return &EventService{store: s}
}

func (s *EventService) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("%w: type is required", model.ErrValidation)
	}
	return s.store.Create(ctx, e)
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.store.Get(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, req model.ListEventsRequest) (*model.EventPage, error) {
	return s.store.List(ctx, req)
}

func (s *EventService) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	return s.store.Update(ctx, id, patch)
}

func (s *EventService) DeleteEvent(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

func (s *EventService) DeleteLastEvent(ctx context.Context, eventType string) (bool, error) {
	return s.store.DeleteLast(ctx, eventType)
}

// DeleteAllEvents wipes the store. Feature-flag gating is the caller's
// responsibility.
func (s *EventService) DeleteAllEvents(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

// LastEvent is the most recent event matching the optional type filter,
// shaped for display.
type LastEvent struct {
	Timestamp time.Time              `json:"ts"`
	Human     string                 `json:"human"`
	Data      map[string]interface{} `json:"data"`
}

func (s *EventService) GetLastEvent(ctx context.Context, eventType string) (*LastEvent, error) {
	e, err := s.store.Last(ctx, eventType)
	if err != nil {
		return nil, err
	}
	return &LastEvent{
		Timestamp: e.Timestamp,
		Human:     period.HumanDelta(e.Timestamp),
		Data: map[string]interface{}{
			"id":       e.ID,
			"type":     e.Type,
			"notes":    e.Notes,
			"tags":     e.Tags,
			"metadata": e.Metadata,
		},
	}, nil
}

// EventStats counts events inside the lookback window encoded by the period
// token ("24h", "7d"). model.ErrInvalidPeriod propagates unwrapped so the
// boundary can map it to a client error.
func (s *EventService) EventStats(ctx context.Context, periodToken, eventType string) (*model.Stats, error) {
	window, err := period.Parse(periodToken)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().Add(-window)
	count, err := s.store.CountSince(ctx, since, eventType)
	if err != nil {
		return nil, err
	}
	return &model.Stats{Count: count}, nil
}
