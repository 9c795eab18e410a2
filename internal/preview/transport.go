package preview

import (
	"sync"
	"time"
)

// ClockTransport is a Transport whose position advances with wall-clock time
// while started. It stands in for a real media element on the server side,
// where preview state is mirrored rather than decoded.
type ClockTransport struct {
	mu      sync.Mutex
	base    float64
	started time.Time
	running bool
	now     func() time.Time
}

// NewClockTransport creates a stopped transport at position 0.
func NewClockTransport() *ClockTransport {
	return &ClockTransport{now: time.Now}
}

// Position implements Transport.
func (c *ClockTransport) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.base
	}
	return c.base + c.now().Sub(c.started).Seconds()
}

// SetPosition implements Transport.
func (c *ClockTransport) SetPosition(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.started = c.now()
}

// Start implements Transport.
func (c *ClockTransport) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.started = c.now()
	c.running = true
}

// Stop implements Transport.
func (c *ClockTransport) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.base += c.now().Sub(c.started).Seconds()
	c.running = false
}
