package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withEnv(t *testing.T, k, v string, fn func()) {
	t.Helper()
	old, had := os.LookupEnv(k)
	if err := os.Setenv(k, v); err != nil {
		t.Fatalf("setenv %s: %v", k, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(k, old)
		} else {
			_ = os.Unsetenv(k)
		}
	})
	fn()
}

func sampleEvents(base time.Time) []Event {
	return []Event{
		{RunID: "run-a", Seq: 1, Type: "edit.invoke", ViewID: "v1", DocumentIDs: []string{"form"}, Describe: "insert row 2", IssuedAt: base},
		{RunID: "run-a", Seq: 2, Type: "edit.invoke", ViewID: "v1", DocumentIDs: []string{"form", "panel"}, Describe: "move ok", IssuedAt: base.Add(time.Second)},
		{RunID: "run-a", Seq: 3, Type: "edit.undo", ViewID: "v2", DocumentIDs: []string{"form", "panel"}, Describe: "move ok", Partial: true, IssuedAt: base.Add(2 * time.Second)},
		{RunID: "run-b", Seq: 1, Type: "edit.invoke", ViewID: "v1", DocumentIDs: []string{"other"}, Describe: "trim rows", IssuedAt: base.Add(3 * time.Second)},
	}
}

func TestJournal_AppendAndList(t *testing.T) {
	for _, backend := range []JournalBackend{JournalBackendJSONL, JournalBackendSQLite} {
		backend := backend
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			j, err := OpenJournal(ctx, dir, backend)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer j.Close()
			if j.Backend() != backend {
				t.Fatalf("expected backend %q, got %q", backend, j.Backend())
			}

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			evs := sampleEvents(base)
			if err := j.Append(ctx, evs[:2]...); err != nil {
				t.Fatalf("append 1: %v", err)
			}
			if err := j.Append(ctx, evs[2:]...); err != nil {
				t.Fatalf("append 2: %v", err)
			}

			all, err := j.List(ctx, Query{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("expected 4 events, got %d", len(all))
			}
			for i, ev := range all {
				if ev.EventID == "" {
					t.Fatalf("event %d: expected generated id", i)
				}
				if !ev.IssuedAt.Equal(evs[i].IssuedAt) {
					t.Fatalf("event %d: issuedAt %v, want %v", i, ev.IssuedAt, evs[i].IssuedAt)
				}
			}
			if !all[2].Partial || all[2].Type != "edit.undo" {
				t.Fatalf("unexpected third event: %+v", all[2])
			}
			if got := all[1].DocumentIDs; len(got) != 2 || got[0] != "form" || got[1] != "panel" {
				t.Fatalf("unexpected document ids: %v", got)
			}

			byDoc, err := j.List(ctx, Query{DocumentID: "panel"})
			if err != nil {
				t.Fatalf("list by doc: %v", err)
			}
			if len(byDoc) != 2 {
				t.Fatalf("expected 2 panel events, got %d", len(byDoc))
			}

			last, err := j.List(ctx, Query{RunID: "run-a", Limit: 1})
			if err != nil {
				t.Fatalf("list limited: %v", err)
			}
			if len(last) != 1 || last[0].Seq != 3 {
				t.Fatalf("expected the latest run-a event, got %+v", last)
			}
		})
	}
}

func TestJournal_RejectsBrokenContract(t *testing.T) {
	j, err := OpenJournal(context.Background(), t.TempDir(), JournalBackendJSONL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tests := []Event{
		{Type: "edit.invoke", ViewID: "v"},
		{RunID: "r", ViewID: "v"},
		{RunID: "r", Type: "item.create", ViewID: "v"},
		{RunID: "r", Type: "edit.redo"},
	}
	for i, ev := range tests {
		if err := j.Append(context.Background(), ev); err == nil {
			t.Fatalf("case %d: expected contract error", i)
		}
	}
}

func TestJournal_SQLiteKeepsIdentityAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, err := openSQLiteJournal(ctx, filepath.Join(dir, journalSQLiteFile))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := first.ID()
	_ = first.Close()

	second, err := openSQLiteJournal(ctx, filepath.Join(dir, journalSQLiteFile))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if id == "" || second.ID() != id {
		t.Fatalf("expected stable journal id, got %q then %q", id, second.ID())
	}
}

func TestResolveJournalBackend(t *testing.T) {
	withEnv(t, envJournalBackend, "", func() {
		dir := t.TempDir()
		if got := ResolveJournalBackend(dir, ""); got != JournalBackendJSONL {
			t.Fatalf("expected default %q, got %q", JournalBackendJSONL, got)
		}
		if got := ResolveJournalBackend(dir, "sqlite"); got != JournalBackendSQLite {
			t.Fatalf("expected configured %q, got %q", JournalBackendSQLite, got)
		}
		if err := os.WriteFile(filepath.Join(dir, journalSQLiteFile), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if got := ResolveJournalBackend(dir, ""); got != JournalBackendSQLite {
			t.Fatalf("expected detected %q, got %q", JournalBackendSQLite, got)
		}
	})
	withEnv(t, envJournalBackend, "jsonl", func() {
		if got := ResolveJournalBackend(t.TempDir(), "sqlite"); got != JournalBackendJSONL {
			t.Fatalf("expected env override %q, got %q", JournalBackendJSONL, got)
		}
	})
}
