package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/tripwire/internal/monitoring"
	"github.com/banshee-data/tripwire/internal/timeutil"
)

// DefaultPollInterval is the pause between line reads. 50ms keeps keypad
// feedback snappy while bounding CPU use; the controller emits a few lines per
// second at most.
const DefaultPollInterval = 50 * time.Millisecond

// LineSource yields decoded text lines from the controller. NextLine returns
// io.EOF when the source is exhausted and any other error when the link has
// failed for good.
type LineSource interface {
	NextLine(ctx context.Context) (string, error)
}

// BridgeConfig configures a Bridge. Zero values select defaults.
type BridgeConfig struct {
	Clock        timeutil.Clock
	PollInterval time.Duration
	KeyCapacity  int
}

// Bridge owns the shared MachineState. Run is the single writer; any number
// of goroutines may call Snapshot concurrently.
type Bridge struct {
	clock        timeutil.Clock
	pollInterval time.Duration

	mu         sync.Mutex
	enabled    bool
	beamBroken bool
	keys       *KeyRing
	updatedAt  time.Time
	link       LinkStatus
}

// NewBridge returns a bridge holding the default state.
func NewBridge(config BridgeConfig) *Bridge {
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Bridge{
		clock:        clock,
		pollInterval: pollInterval,
		keys:         NewKeyRing(config.KeyCapacity),
		link:         LinkConnecting,
	}
}

// Ingest parses line and applies the resulting mutation atomically with
// respect to Snapshot. It reports whether the line was applied: any
// recognised line is, even one repeating the current value, and moves
// UpdatedAt forward as a sign the controller is alive.
func (b *Bridge) Ingest(line string) bool {
	m := ParseLine(line)
	if m.IsNoop() {
		return false
	}
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch m.Kind {
	case SetMachineEnabled:
		b.enabled = m.Flag
	case SetBeamBroken:
		b.beamBroken = m.Flag
	case PushKey:
		b.keys.Push(m.Key)
	}
	b.updatedAt = now
	return true
}

// Snapshot returns a deep copy of the current state.
func (b *Bridge) Snapshot() MachineState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := MachineState{
		MachineEnabled: b.enabled,
		BeamBroken:     b.beamBroken,
		RecentKeys:     b.keys.Keys(),
		UpdatedAt:      b.updatedAt,
		Link:           b.link,
	}
	if last, ok := b.keys.Last(); ok {
		s.LastKeyPressed = &last
	}
	return s
}

// SetLink records the serial link status.
func (b *Bridge) SetLink(status LinkStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.link = status
}

// Link returns the recorded serial link status.
func (b *Bridge) Link() LinkStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.link
}

// Run is the ingestion loop. It reads a line, applies it, then waits the poll
// interval before asking for the next one. It returns nil when the source
// reports io.EOF, ctx.Err() on cancellation and the wrapped source error on a
// link failure. In every case but cancellation the link is marked down and the
// last state stays readable.
func (b *Bridge) Run(ctx context.Context, src LineSource) error {
	b.SetLink(LinkUp)
	for {
		line, err := src.NextLine(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			b.SetLink(LinkDown)
			if errors.Is(err, io.EOF) {
				monitoring.Logf("line source closed, serving last known state")
				return nil
			}
			monitoring.Logf("line source failed, serving last known state: %v", err)
			return fmt.Errorf("failed to read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line != "" {
			monitoring.Debugf("[serial] %s", line)
			b.Ingest(line)
		}

		if err := timeutil.Wait(ctx, b.clock, b.pollInterval); err != nil {
			return err
		}
	}
}
