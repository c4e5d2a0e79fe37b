package loop

import (
	"github.com/google/uuid"

	"truco-table/client/effects"
	"truco-table/client/snapshot"
	"truco-table/client/view"
)

// State of the request cycle.
type State string

const (
	Idle             State = "idle"
	Polling          State = "polling"
	AwaitingResponse State = "awaiting_response"
)

// ClientState is everything the client remembers between polls of one game.
// It is reset on every start and never persisted.
type ClientState struct {
	Session      uuid.UUID
	TargetScore  int
	LastSnapshot *snapshot.Snapshot
	// Cursor is how many log entries have been turned into events. It never
	// exceeds len(LastSnapshot.Log).
	Cursor    int
	LastPhase snapshot.Phase // empty until the first successful poll
}

// Screen is the published, read-only picture of the client. It is what the
// HTTP surface serves and the console prints.
type Screen struct {
	Session   string          `json:"session,omitempty"`
	State     State           `json:"state"`
	Started   bool            `json:"started"`
	View      view.Model      `json:"view"`
	Overlay   effects.Overlay `json:"overlay"`
	Cursor    int             `json:"cursor"`
	LastPhase snapshot.Phase  `json:"last_phase,omitempty"`
	Polls     int             `json:"polls"`
	LastError string          `json:"last_error,omitempty"`
	Tally     Tally           `json:"tally"`
}
