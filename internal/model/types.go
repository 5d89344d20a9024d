package model

import "time"

// Event is a single logged occurrence (feed, nappy change, etc.).
// Timestamp is always UTC after creation; Type is a free-form category
// label ("feeding", "nappy") not validated at the store layer.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"ts"`
	Type      string                 `json:"type"`
	Notes     *string                `json:"notes,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventPatch carries a partial update. A nil field means "leave unchanged";
// a non-nil pointer to an empty value means "set to empty".
type EventPatch struct {
	Timestamp *time.Time              `json:"ts,omitempty"`
	Type      *string                 `json:"type,omitempty"`
	Notes     *string                 `json:"notes,omitempty"`
	Tags      *[]string               `json:"tags,omitempty"`
	Metadata  *map[string]interface{} `json:"metadata,omitempty"`
}

// ListEventsRequest captures filters for listing events.
type ListEventsRequest struct {
	Type  string
	Since *time.Time
	Until *time.Time
	Limit int
	// Cursor is the timestamp of the last item of the previous page,
	// RFC3339-encoded. A malformed cursor is ignored rather than rejected.
	// The cursor keys on timestamp alone, so rows sharing the exact boundary
	// timestamp can be skipped or duplicated across pages.
	Cursor   string
	SortDesc bool
}

// EventPage is one page of a listing plus the continuation cursor.
// NextCursor is empty when the page is empty.
type EventPage struct {
	Items      []*Event `json:"items"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Stats is the aggregate answer for a lookback window.
type Stats struct {
	Count int64 `json:"count"`
}
