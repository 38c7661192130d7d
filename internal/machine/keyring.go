package machine

import "github.com/eapache/queue"

// KeyCapacity is the number of key presses retained, matching the four-digit
// PIN display on the dashboard.
const KeyCapacity = 4

// KeyRing is a fixed-capacity FIFO of key tokens. Pushing past capacity
// evicts the oldest key. It is not safe for concurrent use; Bridge guards it.
type KeyRing struct {
	q        *queue.Queue
	capacity int
}

// NewKeyRing returns an empty ring. Non-positive capacities fall back to
// KeyCapacity.
func NewKeyRing(capacity int) *KeyRing {
	if capacity <= 0 {
		capacity = KeyCapacity
	}
	return &KeyRing{q: queue.New(), capacity: capacity}
}

// Push appends key at the tail and drops from the head while over capacity.
func (r *KeyRing) Push(key string) {
	r.q.Add(key)
	for r.q.Length() > r.capacity {
		r.q.Remove()
	}
}

// Len returns the number of keys held.
func (r *KeyRing) Len() int {
	return r.q.Length()
}

// Cap returns the ring capacity.
func (r *KeyRing) Cap() int {
	return r.capacity
}

// Keys copies the ring contents, oldest first. The result is never nil.
func (r *KeyRing) Keys() []string {
	keys := make([]string, r.q.Length())
	for i := range keys {
		keys[i] = r.q.Get(i).(string)
	}
	return keys
}

// Last returns the most recently pushed key.
func (r *KeyRing) Last() (string, bool) {
	n := r.q.Length()
	if n == 0 {
		return "", false
	}
	return r.q.Get(n - 1).(string), true
}
