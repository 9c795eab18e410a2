// Package preview implements bounded preview playback: a playback cursor
// confined to a committed time range, auto-pausing and rewinding at the end
// boundary, never advancing past it.
package preview

import (
	"errors"
	"sync"
	"time"

	"github.com/framepick/framepick-api/internal/timeline"
)

// ErrNotAttached is returned when playback is controlled before Attach.
var ErrNotAttached = errors.New("preview: no transport attached")

// DefaultMonitorInterval is the poll granularity of the boundary monitor.
const DefaultMonitorInterval = 100 * time.Millisecond

// Transport is the playback primitive the player drives: a media element
// position that can be read, set, and started or stopped.
type Transport interface {
	// Position returns the current playback position in seconds.
	Position() float64
	// SetPosition moves the cursor.
	SetPosition(t float64)
	// Start begins advancing the position.
	Start()
	// Stop halts advancement, leaving the position unchanged.
	Stop()
}

// State is a snapshot of the preview playback.
type State struct {
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// Player keeps playback of an attached transport inside [Start, End). A
// monitor goroutine polls the transport and, when the position reaches the
// end boundary, pauses and rewinds to the start without resuming.
type Player struct {
	monitorInterval time.Duration

	mu         sync.Mutex
	transport  Transport
	rng        timeline.TimeRange
	playing    bool
	generation uint64
	stopCh     chan struct{}
}

// NewPlayer creates a Player with the default monitor interval.
func NewPlayer() *Player {
	return &Player{monitorInterval: DefaultMonitorInterval}
}

// NewPlayerWithInterval creates a Player with a custom monitor poll interval,
// mainly for tests.
func NewPlayerWithInterval(d time.Duration) *Player {
	if d <= 0 {
		d = DefaultMonitorInterval
	}
	return &Player{monitorInterval: d}
}

// Attach binds the player to a transport and range, cursor at Start, paused.
// Re-attaching invalidates any in-flight monitor from a previous range.
func (p *Player) Attach(t Transport, rng timeline.TimeRange) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.invalidateLocked()
	p.transport = t
	p.rng = rng
	p.playing = false
	if t != nil {
		t.Stop()
		t.SetPosition(rng.Start)
	}
}

// Detach releases the transport and stops the monitor.
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateLocked()
	if p.transport != nil {
		p.transport.Stop()
	}
	p.transport = nil
	p.playing = false
}

// Range returns the attached time range.
func (p *Player) Range() timeline.TimeRange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng
}

// Play starts playback. If the cursor sits outside [Start, End) it is reset
// to Start first. The boundary monitor runs until pause or re-attach.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport == nil {
		return ErrNotAttached
	}
	if p.playing {
		return nil
	}

	pos := p.transport.Position()
	if !p.rng.Contains(pos) {
		p.transport.SetPosition(p.rng.Start)
	}
	p.transport.Start()
	p.playing = true

	p.generation++
	p.stopCh = make(chan struct{})
	go p.monitor(p.generation, p.stopCh, p.transport)
	return nil
}

// Pause stops playback, leaving the position unchanged.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport == nil {
		return ErrNotAttached
	}
	p.invalidateLocked()
	p.transport.Stop()
	p.playing = false
	return nil
}

// Seek moves the cursor to t clamped into [Start, End].
func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport == nil {
		return ErrNotAttached
	}
	p.transport.SetPosition(p.rng.Clamp(t))
	return nil
}

// Snapshot returns the current playback state. The reported position never
// exceeds the end boundary: a transport caught mid-overrun is clamped here
// and rewound by the monitor.
func (p *Player) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State{Playing: p.playing}
	if p.transport != nil {
		st.Position = p.rng.Clamp(p.transport.Position())
	} else {
		st.Position = p.rng.Start
	}
	return st
}

// invalidateLocked stops the running monitor. Callers hold p.mu.
func (p *Player) invalidateLocked() {
	p.generation++
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

// monitor polls the transport and enforces the end boundary: on
// position >= End it pauses and rewinds to Start. It never auto-resumes.
func (p *Player) monitor(gen uint64, stop <-chan struct{}, t Transport) {
	ticker := time.NewTicker(p.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.generation != gen || !p.playing {
				p.mu.Unlock()
				return
			}
			if t.Position() >= p.rng.End {
				t.Stop()
				t.SetPosition(p.rng.Start)
				p.playing = false
				p.invalidateLocked()
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}
	}
}
