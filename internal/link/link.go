// Package link keeps the controller's serial connection feeding a bridge:
// it opens the port, runs the ingestion loop and, when configured, reopens
// the port after the link drops.
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/tripwire/internal/machine"
	"github.com/banshee-data/tripwire/internal/monitoring"
	"github.com/banshee-data/tripwire/internal/serialmux"
	"github.com/banshee-data/tripwire/internal/timeutil"
)

// DefaultSettleDelay is the recommended wait after opening the port. Opening
// the port resets most Arduino boards, and the bootloader swallows early input.
const DefaultSettleDelay = 2 * time.Second

// ErrNoPort is returned when Supervise is started without a port path.
var ErrNoPort = errors.New("no serial port configured")

// Config describes how to reach the controller.
type Config struct {
	Path    string
	Options serialmux.PortOptions
	Factory serialmux.SerialPortFactory // defaults to the real factory
	Tap     *serialmux.Tap              // optional raw-line tap

	// SettleDelay is waited after each successful open. Zero skips the wait;
	// callers wanting the usual reset pause pass DefaultSettleDelay.
	SettleDelay time.Duration
	// ReopenInterval > 0 reopens the port that long after a failure.
	// Zero lets the loop end on the first failure and freezes the state.
	ReopenInterval time.Duration

	Clock timeutil.Clock
}

// Supervise opens the port and runs the bridge's ingestion loop over it.
// Without a reopen interval it returns after the first open failure or link
// loss, leaving the bridge serving its last state. It returns ctx.Err() when
// cancelled.
func Supervise(ctx context.Context, bridge *machine.Bridge, config Config) error {
	if config.Path == "" {
		bridge.SetLink(machine.LinkDown)
		return ErrNoPort
	}
	factory := config.Factory
	if factory == nil {
		factory = serialmux.NewRealSerialPortFactory()
	}
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	for attempt := 1; ; attempt++ {
		err := runOnce(ctx, bridge, factory, clock, config)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if config.ReopenInterval <= 0 {
			return err
		}
		monitoring.Logf("serial link on %s lost (attempt %d), reopening in %s", config.Path, attempt, config.ReopenInterval)
		if err := timeutil.Wait(ctx, clock, config.ReopenInterval); err != nil {
			return err
		}
	}
}

func runOnce(ctx context.Context, bridge *machine.Bridge, factory serialmux.SerialPortFactory, clock timeutil.Clock, config Config) error {
	bridge.SetLink(machine.LinkConnecting)

	port, err := factory.Open(config.Path, config.Options)
	if err != nil {
		bridge.SetLink(machine.LinkDown)
		monitoring.Logf("ERROR: could not open serial port %s: %v", config.Path, err)
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	monitoring.Logf("opened serial port %s (%s)", config.Path, config.Options)

	src := serialmux.NewPortLineSource(port, config.Tap)
	defer src.Close()

	if config.SettleDelay > 0 {
		if err := timeutil.Wait(ctx, clock, config.SettleDelay); err != nil {
			return err
		}
	}
	return bridge.Run(ctx, src)
}
