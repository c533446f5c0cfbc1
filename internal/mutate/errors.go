package mutate

import (
	"errors"
	"fmt"
)

var (
	// ErrCannotUndo is returned when Undo is called on an edit that has no inverse
	// in its current state: not yet applied, or irreversible by nature.
	ErrCannotUndo = errors.New("edit cannot be undone")
	ErrCannotRedo = errors.New("edit cannot be redone")

	// ErrAlreadyCaptured signals a second attempt to take a once-only snapshot.
	ErrAlreadyCaptured = errors.New("pre-state already captured")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
