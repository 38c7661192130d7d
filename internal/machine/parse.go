package machine

import "strings"

// Markers printed by the controller firmware.
const (
	MarkerMachineEnabled  = "MACHINE ENABLED!"
	MarkerMachineDisabled = "MACHINE DISABLED!"
	MarkerBeamBroken      = "Beam Broken!"
	MarkerBeamRestored    = "Beam Restored!"
	MarkerKeyPressed      = "Key Pressed:"
)

// MutationKind identifies which field of MachineState a Mutation touches.
type MutationKind int

const (
	NoMutation MutationKind = iota
	SetMachineEnabled
	SetBeamBroken
	PushKey
)

func (k MutationKind) String() string {
	switch k {
	case SetMachineEnabled:
		return "set_machine_enabled"
	case SetBeamBroken:
		return "set_beam_broken"
	case PushKey:
		return "push_key"
	default:
		return "none"
	}
}

// Mutation is a single field update decoded from one controller line.
// Flag carries the value for the boolean kinds and Key the token for PushKey.
type Mutation struct {
	Kind MutationKind
	Flag bool
	Key  string
}

// IsNoop reports whether the mutation leaves state untouched.
func (m Mutation) IsNoop() bool {
	return m.Kind == NoMutation
}

// ParseLine classifies a line against the controller markers. The first
// matching marker wins, so a line carrying both the enabled and disabled
// markers enables the machine. Unrecognised or malformed lines yield a no-op.
func ParseLine(line string) Mutation {
	line = strings.TrimSpace(line)
	switch {
	case strings.Contains(line, MarkerMachineEnabled):
		return Mutation{Kind: SetMachineEnabled, Flag: true}
	case strings.Contains(line, MarkerMachineDisabled):
		return Mutation{Kind: SetMachineEnabled, Flag: false}
	case strings.Contains(line, MarkerBeamBroken):
		return Mutation{Kind: SetBeamBroken, Flag: true}
	case strings.Contains(line, MarkerBeamRestored):
		return Mutation{Kind: SetBeamBroken, Flag: false}
	case strings.Contains(line, MarkerKeyPressed):
		return parseKey(line)
	}
	return Mutation{}
}

// parseKey expects exactly one colon. "Key Pressed: 7" pushes "7"; lines with
// extra colons or nothing after the colon are dropped.
func parseKey(line string) Mutation {
	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		return Mutation{}
	}
	key := strings.TrimSpace(parts[1])
	if key == "" {
		return Mutation{}
	}
	return Mutation{Kind: PushKey, Key: key}
}
