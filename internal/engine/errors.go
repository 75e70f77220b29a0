package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidMove rejects a whole batch. Index is the position of the offending
// action in the batch, or -1 when the batch as a whole is refused.
type InvalidMove struct {
	Index  int
	Action Action
	Reason string
}

func (e *InvalidMove) Error() string {
	if e.Index < 0 {
		return "invalid move: " + e.Reason
	}
	return fmt.Sprintf("invalid move #%d %s: %s", e.Index, e.Action, e.Reason)
}

// MalformedSetup rejects an assassin designation.
type MalformedSetup struct {
	Reason string
}

func (e *MalformedSetup) Error() string { return "malformed setup: " + e.Reason }

// ErrInternalInconsistency marks a broken engine invariant. It indicates a bug,
// never a player mistake.
var ErrInternalInconsistency = errors.New("internal inconsistency")

func inconsistent(format string, args ...any) error {
	return errors.Wrapf(ErrInternalInconsistency, format, args...)
}

func refuse(reason string) *InvalidMove {
	return &InvalidMove{Index: -1, Reason: reason}
}
