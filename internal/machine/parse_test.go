package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Mutation
	}{
		{"enabled", "MACHINE ENABLED!", Mutation{Kind: SetMachineEnabled, Flag: true}},
		{"enabled with noise", ">> MACHINE ENABLED! (armed)", Mutation{Kind: SetMachineEnabled, Flag: true}},
		{"disabled", "MACHINE DISABLED!", Mutation{Kind: SetMachineEnabled, Flag: false}},
		{"beam broken", "Beam Broken!", Mutation{Kind: SetBeamBroken, Flag: true}},
		{"beam restored", "Beam Restored!", Mutation{Kind: SetBeamBroken, Flag: false}},
		{"key", "Key Pressed: 7", Mutation{Kind: PushKey, Key: "7"}},
		{"key untrimmed", "  Key Pressed:   #  \r", Mutation{Kind: PushKey, Key: "#"}},
		{"key without value", "Key Pressed:", Mutation{}},
		{"key with blank value", "Key Pressed:    ", Mutation{}},
		{"key with extra colon", "Key Pressed: 1:2", Mutation{}},
		{"unknown diagnostic", "Laser calibrated at 512", Mutation{}},
		{"empty", "", Mutation{}},
		{"case sensitive", "machine enabled!", Mutation{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLine(tc.in))
		})
	}
}

func TestParseLine_FirstMatchWins(t *testing.T) {
	cases := []struct {
		in   string
		want Mutation
	}{
		{"MACHINE DISABLED! MACHINE ENABLED!", Mutation{Kind: SetMachineEnabled, Flag: true}},
		{"MACHINE ENABLED! Beam Broken!", Mutation{Kind: SetMachineEnabled, Flag: true}},
		{"MACHINE DISABLED! Beam Broken!", Mutation{Kind: SetMachineEnabled, Flag: false}},
		{"Beam Restored! Beam Broken!", Mutation{Kind: SetBeamBroken, Flag: true}},
		{"Beam Broken! Key Pressed: 5", Mutation{Kind: SetBeamBroken, Flag: true}},
		{"Beam Restored! Key Pressed: 5", Mutation{Kind: SetBeamBroken, Flag: false}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseLine(tc.in), "ParseLine(%q)", tc.in)
	}
}

func TestMutation_IsNoop(t *testing.T) {
	assert.True(t, Mutation{}.IsNoop())
	assert.False(t, ParseLine("Beam Broken!").IsNoop())
	assert.Equal(t, "none", NoMutation.String())
	assert.Equal(t, "push_key", PushKey.String())
	assert.Equal(t, "set_beam_broken", SetBeamBroken.String())
	assert.Equal(t, "set_machine_enabled", SetMachineEnabled.String())
}
