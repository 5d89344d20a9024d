package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/store"
)

// timeFormat is a fixed-width UTC layout so that lexicographic ordering of
// the stored text matches chronological ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
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
    id       TEXT PRIMARY KEY,
    ts       TEXT NOT NULL,
    type     TEXT NOT NULL,
    notes    TEXT,
    tags     TEXT,
    metadata TEXT
);
CREATE INDEX IF NOT EXISTS events_ts_id_idx ON events (ts DESC, id DESC);
CREATE INDEX IF NOT EXISTS events_type_ts_idx ON events (type, ts DESC);
`

// Bootstrap ensures the events schema exists.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// NewWithDB constructs a SQLite event store backed by an existing connection.
func NewWithDB(db *sql.DB) store.EventStore { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqliteStore) Close() error                   { return s.db.Close() }

func (s *sqliteStore) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	out := *e
	out.ID = uuid.New().String()
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	} else {
		out.Timestamp = out.Timestamp.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO events (id, ts, type, notes, tags, metadata)
        VALUES (?,?,?,?,?,?)
    `, out.ID, out.Timestamp.Format(timeFormat), out.Type, out.Notes,
		marshalJSON(out.Tags != nil, out.Tags), marshalJSON(out.Metadata != nil, out.Metadata))
	if err != nil {
		return nil, storageErr(err)
	}
	return &out, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, ts, type, notes, tags, metadata FROM events WHERE id=?
    `, id)
	return scanEvent(row)
}

func (s *sqliteStore) List(ctx context.Context, req model.ListEventsRequest) (*model.EventPage, error) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString(`SELECT id, ts, type, notes, tags, metadata FROM events WHERE 1=1`)
	if req.Type != "" {
		sb.WriteString(" AND type=?")
		args = append(args, req.Type)
	}
	if req.Since != nil {
		sb.WriteString(" AND ts>=?")
		args = append(args, req.Since.UTC().Format(timeFormat))
	}
	if req.Until != nil {
		sb.WriteString(" AND ts<=?")
		args = append(args, req.Until.UTC().Format(timeFormat))
	}
	if cur := store.DecodeCursor(req.Cursor); cur != nil {
		if req.SortDesc {
			sb.WriteString(" AND ts<?")
		} else {
			sb.WriteString(" AND ts>?")
		}
		args = append(args, cur.Format(timeFormat))
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

func (s *sqliteStore) Last(ctx context.Context, eventType string) (*model.Event, error) {
	q := `SELECT id, ts, type, notes, tags, metadata FROM events`
	var args []interface{}
	if eventType != "" {
		q += ` WHERE type=?`
		args = append(args, eventType)
	}
	q += ` ORDER BY ts DESC, id DESC LIMIT 1`
	return scanEvent(s.db.QueryRowContext(ctx, q, args...))
}

func (s *sqliteStore) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	var sets []string
	var args []interface{}
	if patch.Timestamp != nil {
		sets = append(sets, "ts=?")
		args = append(args, patch.Timestamp.UTC().Format(timeFormat))
	}
	if patch.Type != nil {
		sets = append(sets, "type=?")
		args = append(args, *patch.Type)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes=?")
		args = append(args, *patch.Notes)
	}
	if patch.Tags != nil {
		sets = append(sets, "tags=?")
		args = append(args, marshalJSON(true, *patch.Tags))
	}
	if patch.Metadata != nil {
		sets = append(sets, "metadata=?")
		args = append(args, marshalJSON(true, *patch.Metadata))
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE events SET %s WHERE id=? RETURNING id, ts, type, notes, tags, metadata`,
		strings.Join(sets, ", "))
	return scanEvent(s.db.QueryRowContext(ctx, q, args...))
}

func (s *sqliteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id=?`, id)
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
func (s *sqliteStore) DeleteLast(ctx context.Context, eventType string) (bool, error) {
	q := `DELETE FROM events WHERE id = (
            SELECT id FROM events`
	var args []interface{}
	if eventType != "" {
		q += ` WHERE type=?`
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

func (s *sqliteStore) DeleteAll(ctx context.Context) (int64, error) {
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

func (s *sqliteStore) CountSince(ctx context.Context, since time.Time, eventType string) (int64, error) {
	q := `SELECT count(*) FROM events WHERE ts>=?`
	args := []interface{}{since.UTC().Format(timeFormat)}
	if eventType != "" {
		q += ` AND type=?`
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
	var ts string
	var tags, meta sql.NullString
	if err := row.Scan(&e.ID, &ts, &e.Type, &e.Notes, &tags, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storageErr(err)
	}
	t, err := time.Parse(timeFormat, ts)
	if err != nil {
		return nil, storageErr(err)
	}
	e.Timestamp = t.UTC()
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &e.Tags)
	}
	if meta.Valid && meta.String != "" {
		_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
	}
	return &e, nil
}

func marshalJSON(present bool, v interface{}) interface{} {
	if !present {
		return nil
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
}
