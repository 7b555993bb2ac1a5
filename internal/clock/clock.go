// Package clock implements the Lamport logical clock shared by the request
// channel and the broadcast listener.
package clock

import "sync"

// Lamport is a mutex-guarded logical clock. The zero value starts at 0 and
// is ready to use.
type Lamport struct {
	mu    sync.Mutex
	value int64
}

// New returns a clock starting at 0.
func New() *Lamport {
	return &Lamport{}
}

// Tick advances the clock for an outgoing request and returns the value to
// stamp on it.
func (c *Lamport) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value++
	return c.value
}

// Observe merges a clock value received from a peer: max(local, recv) + 1.
// It returns the new local value.
func (c *Lamport) Observe(recv int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if recv > c.value {
		c.value = recv
	}
	c.value++
	return c.value
}

// Value returns the current clock without advancing it.
func (c *Lamport) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
