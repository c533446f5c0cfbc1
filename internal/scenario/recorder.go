package scenario

import (
	"time"

	"gridform/internal/dispatch"
	"gridform/internal/store"
)

// recorder turns dispatched changes into journal events.
type recorder struct {
	runID string
	now   func() time.Time
	seq   int64
	evs   []store.Event
}

var _ dispatch.Observer = (*recorder)(nil)

func newRecorder(runID string, now func() time.Time) *recorder {
	return &recorder{runID: runID, now: now}
}

func (r *recorder) Changed(c dispatch.Change) error {
	r.seq++
	r.evs = append(r.evs, store.Event{
		RunID:       r.runID,
		Seq:         r.seq,
		Type:        string(c.Kind),
		ViewID:      c.View,
		DocumentIDs: append([]string(nil), c.Targets...),
		Describe:    c.Edit.Describe(),
		Partial:     c.Partial,
		IssuedAt:    r.now().UTC(),
	})
	return nil
}

func (r *recorder) events() []store.Event {
	return append([]store.Event(nil), r.evs...)
}
