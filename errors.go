package troupe

import (
	"errors"
	"fmt"
)

// ErrUnknownPersona is returned when an operation references a persona ID
// that was never registered with the engine.
var ErrUnknownPersona = errors.New("unknown persona")

// ErrUnknownEvent is returned by RecordCompletion / Abandon when the event
// has no staged side effects (already committed, abandoned, or expired).
var ErrUnknownEvent = errors.New("unknown event")

// ConfigError marks a persona or framework definition the engine cannot
// use. It is fatal for that one persona only; other personas keep running.
type ConfigError struct {
	PersonaID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("persona %q config: %s", e.PersonaID, e.Reason)
}

// StateCorruption reports a persisted record that failed to deserialize.
// The engine recovers by resetting that single record to its default
// state; the error is logged, never propagated as fatal.
type StateCorruption struct {
	Namespace string
	Key       string
	Err       error
}

func (e *StateCorruption) Error() string {
	return fmt.Sprintf("corrupt state record %s/%s: %v", e.Namespace, e.Key, e.Err)
}

func (e *StateCorruption) Unwrap() error { return e.Err }
