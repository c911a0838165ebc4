package engine

import (
	"encoding/json"
	"fmt"

	"sco-server/internal/action"
	"sco-server/internal/resource"
	"sco-server/internal/state"
	"sco-server/internal/validation"
)

type Phase string

const (
	PhaseOpen      Phase = "open"
	PhaseResolving Phase = "resolving"
	PhaseResolved  Phase = "resolved"
)

type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// LogEntry records what happened to one submitted action.
type LogEntry struct {
	Turn      int
	PlayerID  string
	Action    action.Action
	Outcome   Outcome
	Reason    string
	Violation *validation.Violation
}

type logEntryJSON struct {
	Turn      int                   `json:"turn"`
	PlayerID  string                `json:"player"`
	Action    json.RawMessage       `json:"action"`
	Outcome   Outcome               `json:"outcome"`
	Reason    string                `json:"reason,omitempty"`
	Violation *validation.Violation `json:"violation,omitempty"`
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	raw, err := action.Marshal(e.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(logEntryJSON{
		Turn: e.Turn, PlayerID: e.PlayerID, Action: raw,
		Outcome: e.Outcome, Reason: e.Reason, Violation: e.Violation,
	})
}

func (e *LogEntry) UnmarshalJSON(raw []byte) error {
	var wire logEntryJSON
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	a, err := action.Decode(wire.Action)
	if err != nil {
		return fmt.Errorf("log entry action: %w", err)
	}
	*e = LogEntry{
		Turn: wire.Turn, PlayerID: wire.PlayerID, Action: a,
		Outcome: wire.Outcome, Reason: wire.Reason, Violation: wire.Violation,
	}
	return nil
}

// Record is everything an engine needs to resume: the committed state, the
// batches submitted for the open turn and the log of earlier turns.
type Record struct {
	Turn    int
	State   *state.GameState
	Pending map[string][]action.Action
	Log     []LogEntry
}

func (r Record) clone() Record {
	out := Record{
		Turn:    r.Turn,
		Pending: make(map[string][]action.Action, len(r.Pending)),
		Log:     append([]LogEntry(nil), r.Log...),
	}
	if r.State != nil {
		out.State = r.State.Clone()
	}
	for id, batch := range r.Pending {
		out.Pending[id] = action.CloneAll(batch)
	}
	return out
}

// Result summarises one resolution.
type Result struct {
	Turn     int        `json:"turn"`
	Entries  []LogEntry `json:"entries"`
	Applied  int        `json:"applied"`
	Rejected int        `json:"rejected"`
	Defeated []string   `json:"defeated,omitempty"`
}

// Projection is what a player's pending batch would leave them with if the
// turn were resolved now against the current state, ignoring other players.
type Projection struct {
	Turn       int             `json:"turn"`
	Player     state.Player    `json:"player"`
	Income     resource.Amount `json:"income"`
	Entries    []LogEntry      `json:"entries"`
	Violations int             `json:"violations"`
}
