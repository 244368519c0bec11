package agent

import (
	"errors"
	"fmt"
)

// StateError reports an operation attempted in the wrong agent state.
type StateError struct {
	Current  State
	Expected State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot run agent from state %s (expected %s)", e.Current, e.Expected)
}

// ErrToolCallRequired is returned by Act when the tool-choice mode demands a
// tool call and the model produced none.
var ErrToolCallRequired = errors.New("tool calls required but none provided")
