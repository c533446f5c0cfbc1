package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type jsonlJournal struct {
	path string
}

func (j *jsonlJournal) Backend() JournalBackend { return JournalBackendJSONL }
func (j *jsonlJournal) Close() error            { return nil }

func (j *jsonlJournal) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var buf bytes.Buffer
	for _, ev := range events {
		if err := ev.validate(); err != nil {
			return err
		}
		line, err := json.Marshal(ev.normalize(now))
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Close()
}

func (j *jsonlJournal) List(ctx context.Context, q Query) ([]Event, error) {
	evs, err := readJournalLines(j.path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Event
	for _, ev := range evs {
		if q.matches(ev) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return applyLimit(out, q.Limit), nil
}

func readJournalLines(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var out []Event
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Event{}
	}
	return out, nil
}
