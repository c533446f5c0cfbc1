package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Journal backend selection.
//
// Default: JSONL file (journal.jsonl) in the journal directory.
// Opt-in: set GRIDFORM_JOURNAL=sqlite, or journalBackend in config.json, to use SQLite.
const envJournalBackend = "GRIDFORM_JOURNAL"

type JournalBackend string

const (
	JournalBackendJSONL  JournalBackend = "jsonl"
	JournalBackendSQLite JournalBackend = "sqlite"
)

const (
	journalJSONLFile  = "journal.jsonl"
	journalSQLiteFile = "journal.sqlite"
)

func ParseJournalBackend(s string) (JournalBackend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(JournalBackendJSONL):
		return JournalBackendJSONL, nil
	case string(JournalBackendSQLite):
		return JournalBackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown journal backend %q (want jsonl|sqlite)", s)
	}
}

// Event is one dispatched action as recorded in the journal.
type Event struct {
	EventID string `json:"eventId"`
	RunID   string `json:"runId"`
	Seq     int64  `json:"seq"`

	// Type is edit.invoke, edit.undo or edit.redo.
	Type        string   `json:"type"`
	ViewID      string   `json:"viewId"`
	DocumentIDs []string `json:"documentIds"`
	Describe    string   `json:"describe"`
	Partial     bool     `json:"partial,omitempty"`

	IssuedAt time.Time `json:"issuedAt"`
}

func (e Event) validate() error {
	if strings.TrimSpace(e.RunID) == "" {
		return formatErrEventContract("missing run id")
	}
	if strings.TrimSpace(e.Type) == "" {
		return formatErrEventContract("missing type")
	}
	if !strings.HasPrefix(e.Type, "edit.") {
		return formatErrEventContract("unexpected type %q", e.Type)
	}
	if strings.TrimSpace(e.ViewID) == "" {
		return formatErrEventContract("missing view id")
	}
	return nil
}

func formatErrEventContract(msg string, args ...any) error {
	return fmt.Errorf("event contract: "+msg, args...)
}

// normalize fills in the event id and timestamp when the caller left them out.
func (e Event) normalize(now time.Time) Event {
	if strings.TrimSpace(e.EventID) == "" {
		e.EventID = uuid.NewString()
	}
	if e.IssuedAt.IsZero() {
		e.IssuedAt = now
	}
	e.IssuedAt = e.IssuedAt.UTC()
	if e.DocumentIDs == nil {
		e.DocumentIDs = []string{}
	}
	return e
}

// Query filters List. Zero values match everything; Limit keeps the most recent
// events.
type Query struct {
	DocumentID string
	RunID      string
	Limit      int
}

func (q Query) matches(e Event) bool {
	if q.RunID != "" && e.RunID != q.RunID {
		return false
	}
	if q.DocumentID == "" {
		return true
	}
	for _, id := range e.DocumentIDs {
		if id == q.DocumentID {
			return true
		}
	}
	return false
}

// Journal is a durable, append-only log of dispatched edits.
type Journal interface {
	Append(ctx context.Context, events ...Event) error
	List(ctx context.Context, q Query) ([]Event, error)
	Backend() JournalBackend
	Close() error
}

// ResolveJournalBackend picks a backend: GRIDFORM_JOURNAL wins, then the configured
// value; otherwise an existing SQLite journal in dir is reused, and JSONL is the default.
func ResolveJournalBackend(dir, configured string) JournalBackend {
	for _, v := range []string{os.Getenv(envJournalBackend), configured} {
		if b, err := ParseJournalBackend(v); err == nil {
			return b
		}
	}
	if _, err := os.Stat(filepath.Join(dir, journalSQLiteFile)); err == nil {
		return JournalBackendSQLite
	}
	return JournalBackendJSONL
}

// OpenJournal opens (creating if needed) the journal in dir.
func OpenJournal(ctx context.Context, dir string, backend JournalBackend) (Journal, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("open journal: missing directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	switch backend {
	case JournalBackendSQLite:
		return openSQLiteJournal(ctx, filepath.Join(dir, journalSQLiteFile))
	case JournalBackendJSONL, "":
		return &jsonlJournal{path: filepath.Join(dir, journalJSONLFile)}, nil
	default:
		return nil, fmt.Errorf("open journal: unknown backend %q", backend)
	}
}

// sortEvents orders by issue time, then sequence, then id.
func sortEvents(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if !a.IssuedAt.Equal(b.IssuedAt) {
			return a.IssuedAt.Before(b.IssuedAt)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.EventID < b.EventID
	})
}

func applyLimit(evs []Event, limit int) []Event {
	if limit > 0 && len(evs) > limit {
		evs = evs[len(evs)-limit:]
	}
	if evs == nil {
		evs = []Event{}
	}
	return evs
}
