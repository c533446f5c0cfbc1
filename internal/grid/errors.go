package grid

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange      = errors.New("index out of range")
	ErrLastRow         = errors.New("cannot remove the last row")
	ErrLastColumn      = errors.New("cannot remove the last column")
	ErrGroupedRemoval  = errors.New("track still belongs to a resize group")
	ErrOverlap         = errors.New("constraints overlap a non-empty component")
	ErrNotResident     = errors.New("component is not in the document")
	ErrAlreadyResident = errors.New("component is already in the document")
	ErrAlreadyOwned    = errors.New("document is already nested in another document")
	ErrCycle           = errors.New("nesting would create a cycle")
	ErrBadConstraints  = errors.New("invalid constraints")
	ErrUnknownDocument = errors.New("unknown document")
)

// InvariantError reports a structural invariant found broken by Validate.
type InvariantError struct {
	DocumentID string
	Detail     string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("document %s: invariant violated: %s", e.DocumentID, e.Detail)
}
