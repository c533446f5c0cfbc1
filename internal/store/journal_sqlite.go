package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const journalSchemaVersion = "1"

type sqliteJournal struct {
	db *sql.DB
	id string
}

func openSQLiteJournal(ctx context.Context, path string) (*sqliteJournal, error) {
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout helps avoid "database is locked" flakiness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateJournal(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	id, err := ensureMetaUUID(ctx, db, "journal_id")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteJournal{db: db, id: id}, nil
}

func migrateJournal(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			view_id TEXT NOT NULL,
			describe TEXT NOT NULL,
			partial INTEGER NOT NULL DEFAULT 0,
			issued_at_unixms INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_issued ON events(issued_at_unixms, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);`,
		`CREATE TABLE IF NOT EXISTS event_documents (
			event_id TEXT NOT NULL REFERENCES events(event_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			document_id TEXT NOT NULL,
			PRIMARY KEY(event_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_event_documents_doc ON event_documents(document_id);`,
		`INSERT OR IGNORE INTO meta(k, v) VALUES('schema_version', '` + journalSchemaVersion + `');`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func ensureMetaUUID(ctx context.Context, db *sql.DB, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty meta key")
	}
	var v string
	err := db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, key).Scan(&v)
	if err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, key, id); err != nil {
		return "", err
	}
	return id, nil
}

func (j *sqliteJournal) Backend() JournalBackend { return JournalBackendSQLite }
func (j *sqliteJournal) Close() error            { return j.db.Close() }

// ID is the journal's stable identity, generated when the database was created.
func (j *sqliteJournal) ID() string { return j.id }

func (j *sqliteJournal) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, ev := range events {
		if err := ev.validate(); err != nil {
			return err
		}
		ev = ev.normalize(now)
		partial := 0
		if ev.Partial {
			partial = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events(event_id, run_id, seq, type, view_id, describe, partial, issued_at_unixms, created_at_unixms)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.EventID, ev.RunID, ev.Seq, ev.Type, ev.ViewID, ev.Describe, partial,
			ev.IssuedAt.UnixMilli(), now.UnixMilli(),
		); err != nil {
			return err
		}
		for i, doc := range ev.DocumentIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_documents(event_id, position, document_id) VALUES(?, ?, ?)`,
				ev.EventID, i, doc,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (j *sqliteJournal) List(ctx context.Context, q Query) ([]Event, error) {
	query := `SELECT event_id, run_id, seq, type, view_id, describe, partial, issued_at_unixms FROM events`
	var (
		where []string
		args  []any
	)
	if q.RunID != "" {
		where = append(where, `run_id = ?`)
		args = append(args, q.RunID)
	}
	if q.DocumentID != "" {
		where = append(where, `event_id IN (SELECT event_id FROM event_documents WHERE document_id = ?)`)
		args = append(args, q.DocumentID)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY issued_at_unixms, seq, event_id`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []Event
	for rows.Next() {
		var (
			ev       Event
			partial  int
			issuedMs int64
		)
		if err := rows.Scan(&ev.EventID, &ev.RunID, &ev.Seq, &ev.Type, &ev.ViewID, &ev.Describe, &partial, &issuedMs); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ev.Partial = partial != 0
		ev.IssuedAt = time.UnixMilli(issuedMs).UTC()
		out = append(out, ev)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out = applyLimit(out, q.Limit)

	for i := range out {
		docs, err := j.documents(ctx, out[i].EventID)
		if err != nil {
			return nil, err
		}
		out[i].DocumentIDs = docs
	}
	return out, nil
}

func (j *sqliteJournal) documents(ctx context.Context, eventID string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT document_id FROM event_documents WHERE event_id = ? ORDER BY position`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
