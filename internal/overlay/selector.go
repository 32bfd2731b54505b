// Package overlay implements the region-select interaction behind the
// full-screen capture overlay, independent of any UI toolkit.
//
// A Selector is driven by pointer and key events from its owning window:
//
//	Idle --Press--> Dragging --Release(area>0)--> Idle (+ select callback)
//	                Dragging --Release(area=0)--> Idle
//	                Dragging --Cancel--> Cancelled --> Idle (+ cancel callback)
//
// After a successful selection the Selector is finished and ignores further
// events; the overlay builds a new one for each activation.
package overlay

import (
	"github.com/hpungsan/grabtext/internal/capture"
)

// State is the selector's interaction state.
type State int

const (
	Idle State = iota
	Dragging
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Selection is the transient drag state: where the drag started and where
// the pointer is now. It only exists while Dragging.
type Selection struct {
	Anchor  capture.Point
	Current capture.Point
}

// Box returns the normalized rectangle spanned by the selection.
func (s Selection) Box() capture.Box {
	return capture.BoxFromPoints(s.Anchor, s.Current)
}

// Selector owns the drag state for one overlay activation. It is not safe
// for concurrent use; all calls come from the UI goroutine.
type Selector struct {
	state    State
	sel      Selection
	finished bool

	onSelect func(capture.Box)
	onCancel func()
}

// NewSelector creates an idle selector. onSelect receives the box of a
// completed drag with positive area; onCancel is called when the user backs
// out. Either callback may be nil.
func NewSelector(onSelect func(capture.Box), onCancel func()) *Selector {
	return &Selector{
		onSelect: onSelect,
		onCancel: onCancel,
	}
}

// State returns the current interaction state.
func (s *Selector) State() State {
	return s.state
}

// Selection returns the live selection while Dragging.
func (s *Selector) Selection() (Selection, bool) {
	if s.state != Dragging {
		return Selection{}, false
	}
	return s.sel, true
}

// Press starts a drag at p. It returns false if the event was ignored.
func (s *Selector) Press(p capture.Point) bool {
	if s.finished || s.state != Idle {
		return false
	}
	s.state = Dragging
	s.sel = Selection{Anchor: p, Current: p}
	return true
}

// Move updates the live rectangle and returns it for redraw.
func (s *Selector) Move(p capture.Point) (capture.Box, bool) {
	if s.state != Dragging {
		return capture.Box{}, false
	}
	s.sel.Current = p
	return s.sel.Box(), true
}

// Release ends the drag at p. The box spans the anchor and p as
// (min x, min y, max x, max y). A box with zero width or height is
// discarded: the selector returns to Idle and onSelect is not called.
func (s *Selector) Release(p capture.Point) (capture.Box, bool) {
	if s.state != Dragging {
		return capture.Box{}, false
	}
	s.sel.Current = p
	box := s.sel.Box()
	s.state = Idle
	s.sel = Selection{}

	if box.Empty() {
		return box, false
	}

	s.finished = true
	if s.onSelect != nil {
		s.onSelect(box)
	}
	return box, true
}

// Cancel abandons any drag in progress without producing a box. Called for
// Escape or a secondary click. From Idle it still notifies onCancel so the
// overlay can dismiss itself.
func (s *Selector) Cancel() {
	if s.finished {
		return
	}
	if s.state == Dragging {
		s.state = Cancelled
		s.sel = Selection{}
	}
	if s.onCancel != nil {
		s.onCancel()
	}
	s.state = Idle
}
