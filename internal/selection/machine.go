// Package selection implements the pointer-driven selection state machine
// for the frame timeline. The machine is platform-independent: a UI binding
// translates native pointer events into PointerEvent values and feeds them
// to Handle, which returns the resulting Action. All state mutation happens
// synchronously inside Handle, so there is no locking and no data race.
package selection

import "errors"

// ErrSelectionIncomplete is returned when a commit is attempted while the
// selection has null bounds. The selection remains idle.
var ErrSelectionIncomplete = errors.New("selection: incomplete: no bounds set")

// Mode is the drag state of the selection.
type Mode int

const (
	// ModeIdle means no drag is in progress.
	ModeIdle Mode = iota
	// ModeDraggingNew means a fresh click-drag is extending a new range.
	ModeDraggingNew
	// ModeDraggingStartMarker means the start marker handle is being dragged.
	ModeDraggingStartMarker
	// ModeDraggingEndMarker means the end marker handle is being dragged.
	ModeDraggingEndMarker
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDraggingNew:
		return "dragging-new"
	case ModeDraggingStartMarker:
		return "dragging-start-marker"
	case ModeDraggingEndMarker:
		return "dragging-end-marker"
	default:
		return "unknown"
	}
}

// EventKind classifies a pointer event.
type EventKind int

const (
	// PointerDown is a press on a frame or marker handle.
	PointerDown EventKind = iota
	// PointerEnter is the pointer moving over a frame.
	PointerEnter
	// PointerUp is a release anywhere, including leaving the document.
	PointerUp
)

// Target identifies what the pointer landed on.
type Target int

const (
	// TargetFrame is a thumbnail frame on the timeline strip.
	TargetFrame Target = iota
	// TargetStartMarker is the start marker handle.
	TargetStartMarker
	// TargetEndMarker is the end marker handle.
	TargetEndMarker
)

// PointerEvent is a platform-neutral pointer event. Index is the frame index
// under the pointer; it is ignored for PointerUp.
type PointerEvent struct {
	Kind   EventKind
	Target Target
	Index  int
	Ctrl   bool
	Shift  bool
}

// Range is a normalized frame-index range with Start <= End.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Action is what a handled event asks the binding to do. Committed is set
// when a selection was finalized and should be projected into a time range.
// SeekIndex is set when a plain click asks both preview media elements to
// seek to that frame's time.
type Action struct {
	Committed *Range
	SeekIndex *int
}

// Machine tracks the in-progress and committed frame-index selection over
// pointer gestures. Raw start/end may be inverted transiently during a drag;
// normalization to [min,max] happens only at commit.
type Machine struct {
	frameCount int

	mode   Mode
	anchor int
	start  int
	end    int
	// hasBounds tracks whether start/end hold real indices; the zero values
	// are otherwise indistinguishable from a selection at frame 0.
	hasBounds bool
	// moved distinguishes a click from a drag: it flips once a pointer-enter
	// lands on a different frame during dragging-new.
	moved bool
}

// NewMachine creates a selection machine over a timeline of frameCount
// frames. The machine starts idle with no bounds.
func NewMachine(frameCount int) *Machine {
	return &Machine{frameCount: frameCount, anchor: -1}
}

// Reset clears all selection state, typically after a new timeline build.
func (m *Machine) Reset(frameCount int) {
	m.frameCount = frameCount
	m.mode = ModeIdle
	m.anchor = -1
	m.hasBounds = false
	m.moved = false
	m.start, m.end = 0, 0
}

// Mode returns the current drag mode.
func (m *Machine) Mode() Mode { return m.mode }

// Bounds returns the raw (possibly inverted) start and end indices and
// whether they are set.
func (m *Machine) Bounds() (start, end int, ok bool) {
	return m.start, m.end, m.hasBounds
}

// Normalized returns the committed [min,max] range, or
// ErrSelectionIncomplete when no bounds are set.
func (m *Machine) Normalized() (Range, error) {
	if !m.hasBounds {
		return Range{}, ErrSelectionIncomplete
	}
	lo, hi := m.start, m.end
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Start: lo, End: hi}, nil
}

// Handle applies one pointer event and returns the resulting action.
// Repeated pointer-enter events on the same frame produce no observable
// change, so rapid event streams are safe to forward unfiltered.
func (m *Machine) Handle(ev PointerEvent) Action {
	if m.frameCount == 0 {
		return Action{}
	}

	switch ev.Kind {
	case PointerDown:
		return m.handleDown(ev)
	case PointerEnter:
		m.handleEnter(ev)
		return Action{}
	case PointerUp:
		return m.handleUp()
	default:
		return Action{}
	}
}

func (m *Machine) handleDown(ev PointerEvent) Action {
	idx := m.clamp(ev.Index)

	// Marker-drag takes priority over modifier clicks: a press on a handle
	// always starts a marker drag, modifiers ignored.
	if m.mode == ModeIdle && ev.Target == TargetStartMarker && m.hasBounds {
		m.mode = ModeDraggingStartMarker
		m.moved = false
		return Action{}
	}
	if m.mode == ModeIdle && ev.Target == TargetEndMarker && m.hasBounds {
		m.mode = ModeDraggingEndMarker
		m.moved = false
		return Action{}
	}

	if ev.Ctrl {
		// Immediate commit, no drag phase.
		m.start = idx
		if !m.hasBounds {
			m.end = idx
		}
		m.hasBounds = true
		m.mode = ModeIdle
		r, _ := m.Normalized()
		return Action{Committed: &r}
	}

	if ev.Shift {
		// Extend requires a prior start; without one this is a no-op.
		if !m.hasBounds {
			return Action{}
		}
		m.end = idx
		m.mode = ModeIdle
		r, _ := m.Normalized()
		return Action{Committed: &r}
	}

	if m.mode != ModeIdle {
		return Action{}
	}

	m.mode = ModeDraggingNew
	m.anchor = idx
	m.start = idx
	m.end = idx
	m.hasBounds = true
	m.moved = false
	return Action{}
}

func (m *Machine) handleEnter(ev PointerEvent) {
	idx := m.clamp(ev.Index)

	switch m.mode {
	case ModeDraggingNew:
		if idx != m.end {
			m.end = idx
			m.moved = true
		}
	case ModeDraggingStartMarker:
		m.start = idx
	case ModeDraggingEndMarker:
		m.end = idx
	case ModeIdle:
		// Hover outside a drag changes nothing.
	}
}

func (m *Machine) handleUp() Action {
	if m.mode == ModeIdle {
		return Action{}
	}

	wasNew := m.mode == ModeDraggingNew
	moved := m.moved
	m.mode = ModeIdle
	m.moved = false

	if !m.hasBounds {
		return Action{}
	}

	r, err := m.Normalized()
	if err != nil {
		return Action{}
	}

	act := Action{Committed: &r}
	if wasNew && !moved {
		// A press-and-release on one frame is a plain click: commit the
		// single-frame range and seek the preview media to that frame.
		seek := m.anchor
		act.SeekIndex = &seek
	}
	return act
}

// clamp restricts an index to [0, frameCount-1]. Dragging below the minimum
// or above the maximum sticks to the boundary frame.
func (m *Machine) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= m.frameCount {
		return m.frameCount - 1
	}
	return i
}
