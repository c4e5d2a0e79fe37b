package api

import "fmt"

// TransportError is a network, status or decoding failure on start/poll/act.
type TransportError struct {
	Op     string // start | poll | act
	Status int    // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("engine %s: http %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ActionError means the engine refused an action. Message is the engine's
// own explanation and is meant to be shown to the player as is.
type ActionError struct {
	Action  string
	Status  int
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q rejected: %s", e.Action, e.Message)
}
