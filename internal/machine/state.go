package machine

import "time"

// LinkStatus describes the serial link feeding the bridge. It lets clients
// tell a quiet controller apart from a dead one.
type LinkStatus string

const (
	LinkConnecting LinkStatus = "connecting"
	LinkUp         LinkStatus = "up"
	LinkDown       LinkStatus = "down"
	LinkDisabled   LinkStatus = "disabled"
)

// MachineState is an immutable copy of the controller state as served on
// /status. Field names on the wire match what the dashboard polls for.
type MachineState struct {
	MachineEnabled bool     `json:"machineEnabled"`
	BeamBroken     bool     `json:"beamBroken"`
	RecentKeys     []string `json:"lastKeys"`
	// LastKeyPressed is the newest entry of RecentKeys, or nil before any key.
	LastKeyPressed *string    `json:"lastKeyPressed"`
	UpdatedAt      time.Time  `json:"updatedAt,omitzero"`
	Link           LinkStatus `json:"link"`
}

// DefaultState is the state served before any line has been ingested.
func DefaultState() MachineState {
	return MachineState{
		RecentKeys: []string{},
		Link:       LinkConnecting,
	}
}
