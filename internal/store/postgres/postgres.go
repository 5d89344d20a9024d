package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id       UUID PRIMARY KEY,
    ts       TIMESTAMPTZ NOT NULL,
    type     TEXT NOT NULL,
    notes    TEXT,
    tags     JSONB,
    metadata JSONB
);
CREATE INDEX IF NOT EXISTS events_ts_id_idx ON events (ts DESC, id DESC);
CREATE INDEX IF NOT EXISTS events_type_ts_idx ON events (type, ts DESC);
`

// Bootstrap ensures the events schema exists.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// NewWithDB constructs a Postgres event store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.EventStore { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *pgStore) Close() error                   { return s.db.Close() }

func (s *pgStore) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	out := *e
	out.ID = uuid.New().String()
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	} else {
		out.Timestamp = out.Timestamp.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO events (id, ts, type, notes, tags, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, out.ID, out.Timestamp, out.Type, out.Notes, marshalJSON(out.Tags != nil, out.Tags), marshalJSON(out.Metadata != nil, out.Metadata))
	if err != nil {
		return nil, storageErr(err)
	}
	return &out, nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, ts, type, notes, tags, metadata FROM events WHERE id=$1
    `, id)
	return scanEvent(row)
}

func (s *pgStore) List(ctx context.Context, req model.ListEventsRequest) (*model.EventPage, error) {
	var sb strings.Builder
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT id, ts, type, notes, tags, metadata FROM events WHERE 1=1`)
	if req.Type != "" {
		sb.WriteString(" AND type=" + arg(req.Type))
	}
	if req.Since != nil {
		sb.WriteString(" AND ts>=" + arg(req.Since.UTC()))
	}
	if req.Until != nil {
		sb.WriteString(" AND ts<=" + arg(req.Until.UTC()))
	}
	if cur := store.DecodeCursor(req.Cursor); cur != nil {
		if req.SortDesc {
			sb.WriteString(" AND ts<" + arg(*cur))
		} else {
			sb.WriteString(" AND ts>" + arg(*cur))
		}
	}
	if req.SortDesc {
		sb.WriteString(" ORDER BY ts DESC, id DESC")
	} else {
		sb.WriteString(" ORDER BY ts ASC, id ASC")
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d", store.ClampLimit(req.Limit)))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = rows.Close() }()

	page := &model.EventPage{Items: []*model.Event{}}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = store.EncodeCursor(page.Items[n-1].Timestamp)
	}
	return page, nil
}

func (s *pgStore) Last(ctx context.Context, eventType string) (*model.Event, error) {
	q := `SELECT id, ts, type, notes, tags, metadata FROM events`
	var args []interface{}
	if eventType != "" {
		q += ` WHERE type=$1`
		args = append(args, eventType)
	}
	q += ` ORDER BY ts DESC, id DESC LIMIT 1`
	return scanEvent(s.db.QueryRowContext(ctx, q, args...))
}

func (s *pgStore) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.Timestamp != nil {
		set("ts", patch.Timestamp.UTC())
	}
	if patch.Type != nil {
		set("type", *patch.Type)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Tags != nil {
		set("tags", marshalJSON(true, *patch.Tags))
	}
	if patch.Metadata != nil {
		set("metadata", marshalJSON(true, *patch.Metadata))
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE events SET %s WHERE id=$%d RETURNING id, ts, type, notes, tags, metadata`,
		strings.Join(sets, ", "), len(args))
	return scanEvent(s.db.QueryRowContext(ctx, q, args...))
}

func (s *pgStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

// DeleteLast identifies and removes the most recent matching row in one
// statement, so concurrent callers cannot both delete the same candidate.
func (s *pgStore) DeleteLast(ctx context.Context, eventType string) (bool, error) {
	q := `DELETE FROM events WHERE id = (
            SELECT id FROM events`
	var args []interface{}
	if eventType != "" {
		q += ` WHERE type=$1`
		args = append(args, eventType)
	}
	q += ` ORDER BY ts DESC, id DESC LIMIT 1)`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

func (s *pgStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *pgStore) CountSince(ctx context.Context, since time.Time, eventType string) (int64, error) {
	q := `SELECT count(*) FROM events WHERE ts>=$1`
	args := []interface{}{since.UTC()}
	if eventType != "" {
		q += ` AND type=$2`
		args = append(args, eventType)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// helpers

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var ts time.Time
	var tags, meta []byte
	if err := row.Scan(&e.ID, &ts, &e.Type, &e.Notes, &tags, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storageErr(err)
	}
	e.Timestamp = ts.UTC()
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &e.Tags)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &e.Metadata)
	}
	return &e, nil
}

func marshalJSON(present bool, v interface{}) interface{} {
	if !present {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
}
