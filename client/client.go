// Package client is a small SDK for the babylog REST API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the server reports no matching event.
var ErrNotFound = errors.New("not found")

// APIError carries a non-2xx response that is not a plain not-found.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Event mirrors the server's event wire shape.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"ts"`
	Type      string                 `json:"type"`
	Notes     *string                `json:"notes,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventPage is one page of a listing.
type EventPage struct {
	Items      []*Event `json:"items"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// LastEvent is the most recent event of a type, with a human-readable age.
type LastEvent struct {
	Timestamp time.Time              `json:"ts"`
	Human     string                 `json:"human"`
	Data      map[string]interface{} `json:"data"`
}

// Stats is the aggregation response.
type Stats struct {
	Period string                 `json:"period"`
	Count  int64                  `json:"count"`
	Extras map[string]interface{} `json:"extras,omitempty"`
}

// EventInput is the create/patch body. Nil fields are omitted.
type EventInput struct {
	Ts       *string                 `json:"ts,omitempty"`
	Type     *string                 `json:"type,omitempty"`
	Notes    *string                 `json:"notes,omitempty"`
	Tags     *[]string               `json:"tags,omitempty"`
	Metadata *map[string]interface{} `json:"metadata,omitempty"`
}

// ListOptions filters and pages a listing.
type ListOptions struct {
	Type   string
	From   string
	To     string
	Limit  int
	Cursor string
	Sort   string
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client talks to a babylog API server.
type Client struct {
	http *resty.Client
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRetryCount overrides the default retry count.
func WithRetryCount(n int) Option {
	return func(c *Client) { c.http.SetRetryCount(n) }
}

// New constructs a Client. An empty apiKey sends no auth header.
// Transient failures (network errors, 5xx) retry with linear backoff.
func New(baseURL, apiKey string, opts ...Option) *Client {
	h := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			return 150 * time.Millisecond * time.Duration(r.Request.Attempt), nil
		})
	if apiKey != "" {
		h.SetHeader("x-api-key", apiKey)
	}

	c := &Client{http: h}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	env, _ := resp.Error().(*errorEnvelope)
	msg := resp.String()
	if env != nil && env.Message != "" {
		msg = env.Message
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
}

// Health reports whether the server considers itself healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	resp, err := c.req(ctx).SetResult(&out).Get("/v1/health")
	if err != nil {
		return false, err
	}
	if err := checkStatus(resp); err != nil {
		return false, err
	}
	return out.Status == "healthy", nil
}

// CreateEvent creates an event; in.Type is required.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	var out Event
	resp, err := c.req(ctx).SetBody(in).SetResult(&out).Post("/v1/events")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogEvent creates an event of the given type via the typed shortcut route.
func (c *Client) LogEvent(ctx context.Context, eventType string, in EventInput) (*Event, error) {
	var out Event
	resp, err := c.req(ctx).
		SetPathParam("type", eventType).
		SetBody(in).
		SetResult(&out).
		Post("/v1/event/{type}")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	var out Event
	resp, err := c.req(ctx).SetPathParam("id", id).SetResult(&out).Get("/v1/events/{id}")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns one page of events.
func (c *Client) ListEvents(ctx context.Context, opts ListOptions) (*EventPage, error) {
	r := c.req(ctx)
	if opts.Type != "" {
		r.SetQueryParam("type", opts.Type)
	}
	if opts.From != "" {
		r.SetQueryParam("from", opts.From)
	}
	if opts.To != "" {
		r.SetQueryParam("to", opts.To)
	}
	if opts.Limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		r.SetQueryParam("cursor", opts.Cursor)
	}
	if opts.Sort != "" {
		r.SetQueryParam("sort", opts.Sort)
	}

	var out EventPage
	resp, err := r.SetResult(&out).Get("/v1/events")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent applies a partial update and returns the updated event.
func (c *Client) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	var out Event
	resp, err := c.req(ctx).SetPathParam("id", id).SetBody(in).SetResult(&out).Patch("/v1/events/{id}")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent deletes one event by id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	resp, err := c.req(ctx).SetPathParam("id", id).Delete("/v1/events/{id}")
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

// Last returns the most recent event of the given type.
func (c *Client) Last(ctx context.Context, eventType string) (*LastEvent, error) {
	var out LastEvent
	resp, err := c.req(ctx).
		SetPathParam("type", eventType).
		SetResult(&out).
		Get("/v1/event/{type}/last")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLast deletes the most recent event of the given type.
func (c *Client) DeleteLast(ctx context.Context, eventType string) error {
	resp, err := c.req(ctx).SetPathParam("type", eventType).Delete("/v1/event/{type}/last")
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

// Stats counts events inside the lookback window, e.g. "24h" or "7d".
func (c *Client) Stats(ctx context.Context, periodToken, eventType string) (*Stats, error) {
	r := c.req(ctx)
	if periodToken != "" {
		r.SetQueryParam("period", periodToken)
	}
	if eventType != "" {
		r.SetQueryParam("type", eventType)
	}

	var out Stats
	resp, err := r.SetResult(&out).Get("/v1/stats/events")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset wipes all events. The server must run with reset enabled.
func (c *Client) Reset(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	resp, err := c.req(ctx).SetResult(&out).Post("/v1/admin/reset")
	if err != nil {
		return 0, err
	}
	if err := checkStatus(resp); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}
