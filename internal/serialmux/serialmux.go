// Package serialmux provides the serial side of the bridge: opening the
// controller's port, turning its byte stream into decoded lines, and a tap
// that lets debugging clients watch the raw traffic.
package serialmux

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"tailscale.com/tsweb"
)

// tapBuffer is the per-subscriber channel depth. Slow subscribers drop lines
// rather than stall the reader.
const tapBuffer = 16

// Tap fans raw serial lines out to any number of subscribers.
type Tap struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

// NewTap returns an empty tap.
func NewTap() *Tap {
	return &Tap{subscribers: make(map[string]chan string)}
}

// Subscribe creates a new channel for receiving raw lines. The ID is used to
// unsubscribe. After Close the returned channel is already closed.
func (t *Tap) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, tapBuffer)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		close(ch)
		return id, ch
	}
	t.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (t *Tap) Unsubscribe(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subscribers[id]; ok {
		close(ch)
		delete(t.subscribers, id)
	}
}

// Publish offers line to every subscriber without blocking.
func (t *Tap) Publish(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subscribers {
		select {
		case ch <- line:
		default:
			// if the channel is full skip so as not to block the reader
		}
	}
}

// Subscribers returns the number of active subscribers.
func (t *Tap) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Close closes all subscriber channels.
func (t *Tap) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closing = true
	for id, ch := range t.subscribers {
		close(ch)
		delete(t.subscribers, id)
	}
}

// AttachAdminRoutes mounts the live tail of raw serial lines under /debug/.
// These routes are accessible only over localhost or Tailscale.
func (t *Tap) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.Handle("serial-tail", "live tail of raw serial lines (SSE)", http.HandlerFunc(t.serveTail))
}

// serveTail streams lines as Server-Sent Events until the client goes away or
// the tap closes.
func (t *Tap) serveTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := t.Subscribe()
	defer t.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
