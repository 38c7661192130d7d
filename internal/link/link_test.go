package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tripwire/internal/machine"
	"github.com/banshee-data/tripwire/internal/monitoring"
	"github.com/banshee-data/tripwire/internal/serialmux"
	"github.com/banshee-data/tripwire/internal/timeutil"
)

func newBridge(clock timeutil.Clock) *machine.Bridge {
	return machine.NewBridge(machine.BridgeConfig{Clock: clock})
}

func TestSupervise_NoPort(t *testing.T) {
	b := newBridge(nil)
	err := Supervise(context.Background(), b, Config{})
	assert.ErrorIs(t, err, ErrNoPort)
	assert.Equal(t, machine.LinkDown, b.Link())
}

func TestSupervise_OpenFailureFreezesState(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	b := newBridge(clock)
	boom := errors.New("no such device")
	factory := &serialmux.MockSerialPortFactory{Error: boom}

	err := Supervise(context.Background(), b, Config{Path: "COM8", Factory: factory, Clock: clock})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, factory.Calls())

	got := b.Snapshot()
	assert.Equal(t, machine.LinkDown, got.Link)
	assert.False(t, got.MachineEnabled)
	assert.Empty(t, got.RecentKeys)
}

func TestSupervise_ReadsUntilEOF(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	b := newBridge(clock)

	port := serialmux.NewTestableSerialPort()
	port.AddReadData([]byte("MACHINE ENABLED!\r\nBeam Broken!\r\nKey Pressed: 7\r\n"))
	factory := serialmux.NewMockSerialPortFactory(port)
	tap := serialmux.NewTap()
	_, raw := tap.Subscribe()

	opts := serialmux.PortOptions{BaudRate: 9600, ReadTimeout: time.Second}
	err := Supervise(context.Background(), b, Config{
		Path:        "/dev/ttyACM0",
		Options:     opts,
		Factory:     factory,
		Tap:         tap,
		SettleDelay: DefaultSettleDelay,
		Clock:       clock,
	})
	require.NoError(t, err)

	got := b.Snapshot()
	assert.True(t, got.MachineEnabled)
	assert.True(t, got.BeamBroken)
	assert.Equal(t, []string{"7"}, got.RecentKeys)
	assert.Equal(t, machine.LinkDown, got.Link)

	assert.True(t, port.IsClosed(), "port must be released after the loop ends")
	assert.Equal(t, opts, factory.LastCall().Options)
	assert.Len(t, raw, 3)

	waits := clock.Waits()
	require.NotEmpty(t, waits)
	assert.Equal(t, DefaultSettleDelay, waits[0])
}

func TestSupervise_Reopens(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	defer func() { monitoring.Logf = original }()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	b := newBridge(clock)
	factory := &serialmux.MockSerialPortFactory{Error: errors.New("busy")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, b, Config{Path: "COM8", Factory: factory, Clock: clock, ReopenInterval: 5 * time.Second})
	}()

	require.Eventually(t, func() bool { return factory.Calls() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Supervise did not stop after cancellation")
	}
}

func TestSupervise_NoSettleDelay(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	b := newBridge(clock)
	port := serialmux.NewTestableSerialPort()
	port.AddReadData([]byte("Beam Broken!\n"))

	err := Supervise(context.Background(), b, Config{
		Path:    "/dev/ttyUSB0",
		Factory: serialmux.NewMockSerialPortFactory(port),
		Clock:   clock,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{machine.DefaultPollInterval}, clock.Waits())
}
