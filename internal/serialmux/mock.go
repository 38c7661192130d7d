package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/tripwire/internal/timeutil"
)

// ScriptedLineSource replays a fixed list of lines. It backs dev mode, where a
// fixture file stands in for the controller, and the bridge tests.
type ScriptedLineSource struct {
	mu    sync.Mutex
	lines []string
	next  int

	// Loop restarts from the first line instead of ending with Err.
	Loop bool
	// Interval paces lines; zero returns them as fast as they are asked for.
	Interval time.Duration
	// Err is returned once the script is exhausted. Defaults to io.EOF.
	Err error
	// Clock drives Interval. Defaults to the real clock.
	Clock timeutil.Clock
}

// NewScriptedLineSource returns a source that yields lines in order.
func NewScriptedLineSource(lines ...string) *ScriptedLineSource {
	return &ScriptedLineSource{lines: lines}
}

// LoadFixture reads a newline-separated fixture file into a looping source.
func LoadFixture(path string, interval time.Duration) (*ScriptedLineSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = DecodeLine([]byte(line)); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("fixture file has no lines: " + path)
	}
	src := NewScriptedLineSource(lines...)
	src.Loop = true
	src.Interval = interval
	return src, nil
}

// NextLine implements the bridge's line source contract.
func (s *ScriptedLineSource) NextLine(ctx context.Context) (string, error) {
	if s.Interval > 0 {
		clock := s.Clock
		if clock == nil {
			clock = timeutil.RealClock{}
		}
		if err := timeutil.Wait(ctx, clock, s.Interval); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.lines) {
		if !s.Loop || len(s.lines) == 0 {
			if s.Err != nil {
				return "", s.Err
			}
			return "", io.EOF
		}
		s.next = 0
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// It provides fine-grained control over reads, errors, and latency.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// ReadError is returned once the read buffer is drained, if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	// IdleReads is the number of (0, nil) reads to return before serving
	// data, mimicking a port that times out while the controller is silent.
	IdleReads int

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read reads from the read buffer, optionally simulating timeouts and errors.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.IdleReads > 0 {
		t.IdleReads--
		return 0, nil
	}

	if t.BlockReads {
		for !t.Closed && t.ReadBuffer.Len() == 0 && t.ReadError == nil {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	if t.ReadBuffer.Len() == 0 {
		if t.ReadError != nil {
			return 0, t.ReadError
		}
		return 0, io.EOF
	}

	return t.ReadBuffer.Read(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast() // Wake up any blocked readers

	return t.CloseError
}

var _ TimeoutSerialPorter = (*TestableSerialPort)(nil)

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

// Fail makes reads return err once buffered data is drained.
func (t *TestableSerialPort) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadError = err
	t.readCond.Broadcast()
}

// IsClosed reports whether Close was called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Closed
}

// MockSerialPortFactory implements SerialPortFactory for testing.
type MockSerialPortFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port SerialPorter

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path    string
	Options PortOptions
}

// NewMockSerialPortFactory creates a new MockSerialPortFactory.
func NewMockSerialPortFactory(port SerialPorter) *MockSerialPortFactory {
	return &MockSerialPortFactory{Port: port}
}

// Open returns the configured port or error.
func (f *MockSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Options: opts})

	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}

// Calls returns the number of Open calls so far.
func (f *MockSerialPortFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.OpenCalls)
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockSerialPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	call := f.OpenCalls[len(f.OpenCalls)-1]
	return &call
}
