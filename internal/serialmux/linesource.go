package serialmux

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/tripwire/internal/monitoring"
)

// ErrSourceClosed is returned by a line source after Close.
var ErrSourceClosed = errors.New("line source closed")

// maxLineLength bounds a single line. Longer runs of bytes, usually noise at
// the wrong baud rate, are dropped up to the next newline.
const maxLineLength = 4096

// PortLineSource reads newline-delimited text from a serial port. A single
// goroutine owns the port reads; NextLine hands lines over a channel so a
// caller can give up on a read via its context without losing the port.
type PortLineSource struct {
	port SerialPorter
	tap  *Tap

	startOnce sync.Once
	closeOnce sync.Once
	lines     chan string
	done      chan struct{}

	errMu   sync.Mutex
	scanErr error
}

// NewPortLineSource wraps port. Raw lines are published to tap when it is not
// nil.
func NewPortLineSource(port SerialPorter, tap *Tap) *PortLineSource {
	return &PortLineSource{
		port:  port,
		tap:   tap,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

// NextLine returns the next non-blank decoded line. It returns io.EOF when the
// port reaches end of stream, the read error when the port fails and
// ErrSourceClosed once Close has been called.
func (s *PortLineSource) NextLine(ctx context.Context) (string, error) {
	s.startOnce.Do(func() { go s.scan() })

	select {
	case <-s.done:
		return "", ErrSourceClosed
	default:
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrSourceClosed
	case line, ok := <-s.lines:
		if !ok {
			select {
			case <-s.done:
				return "", ErrSourceClosed
			default:
			}
			return "", s.err()
		}
		return line, nil
	}
}

// Close stops the reader goroutine and closes the port.
func (s *PortLineSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.port.Close()
	})
	return err
}

func (s *PortLineSource) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.scanErr
}

func (s *PortLineSource) scan() {
	defer close(s.lines)

	r := bufio.NewReaderSize(&patientReader{r: s.port, done: s.done}, maxLineLength)
	dropping := false
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !dropping {
				monitoring.Logf("dropping serial line longer than %d bytes", maxLineLength)
			}
			dropping = true
			continue
		}
		if dropping {
			// chunk is the tail of the overlong line
			dropping = false
		} else if !s.emit(chunk) {
			return
		}

		if err != nil {
			s.errMu.Lock()
			s.scanErr = err
			s.errMu.Unlock()
			return
		}
	}
}

// emit delivers one raw line. It returns false once the source is closed.
func (s *PortLineSource) emit(raw []byte) bool {
	line := DecodeLine(raw)
	if line == "" {
		return true
	}
	if s.tap != nil {
		s.tap.Publish(line)
	}
	select {
	case s.lines <- line:
		return true
	case <-s.done:
		return false
	}
}

// DecodeLine converts raw serial bytes into a trimmed UTF-8 string. Invalid
// byte sequences, common while a port settles after reset, become U+FFFD.
func DecodeLine(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
}

// patientReader retries reads that time out with no data. Serial ports opened
// with a read timeout return (0, nil) when idle, which bufio.Reader would
// eventually reject with io.ErrNoProgress.
type patientReader struct {
	r    io.Reader
	done <-chan struct{}
}

func (p *patientReader) Read(b []byte) (int, error) {
	for {
		n, err := p.r.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		select {
		case <-p.done:
			return 0, ErrSourceClosed
		default:
		}
	}
}
