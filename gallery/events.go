package gallery

import "math"

// Event is one UI input fed to Navigator.Handle.
type Event interface {
	event()
}

// Target identifies what a click landed on.
type Target int

const (
	TargetThumbnail Target = iota
	TargetImage
	TargetBackdrop
	TargetClose
	TargetNext
	TargetPrev
)

// Click is a pointer click. Index is used for TargetThumbnail only.
type Click struct {
	Target Target
	Index  int
}

// Keys handled while the lightbox is open.
const (
	KeyEscape     = "Escape"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// KeyPress is a keyboard key, named as in KeyboardEvent.key.
type KeyPress struct {
	Key string
}

// DragMove is an incremental pointer drag.
type DragMove struct {
	DX, DY float64
}

// DragEnd is a released drag with its total travel and release velocity
// in pixels per millisecond.
type DragEnd struct {
	DX, DY float64
	VX, VY float64
}

// PinchUpdate is a pinch or wheel zoom step around Origin.
type PinchUpdate struct {
	Delta  float64
	Origin Point
}

// Pinch converts a two-pointer move into a zoom step. The relative change in
// spread between the pointers, scaled by the current zoom, becomes Delta;
// their midpoint minus center becomes Origin. prev is the spread before the
// move; a non-positive spread on either side yields a zero step.
func Pinch(zoom, prev float64, a, b, center Point) PinchUpdate {
	origin := Point{X: (a.X+b.X)/2 - center.X, Y: (a.Y+b.Y)/2 - center.Y}
	cur := Spread(a, b)
	if prev <= 0 || cur <= 0 {
		return PinchUpdate{Origin: origin}
	}
	return PinchUpdate{Delta: zoom * (cur/prev - 1), Origin: origin}
}

// Spread is the distance between two pointers.
func Spread(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DoubleTap is a double tap or double click on the image.
type DoubleTap struct{}

// SlideChangeNotify reports that the carousel moved to Index on its own.
type SlideChangeNotify struct {
	Index int
}

func (Click) event()             {}
func (KeyPress) event()          {}
func (DragMove) event()          {}
func (DragEnd) event()           {}
func (PinchUpdate) event()       {}
func (DoubleTap) event()         {}
func (SlideChangeNotify) event() {}

// Handle applies one event and returns the resulting state. Events that do
// not apply to the current state are ignored.
func (n *Navigator) Handle(ev Event) State {
	if !n.state.IsOpen() {
		if c, ok := ev.(Click); ok && c.Target == TargetThumbnail {
			n.Open(c.Index)
		}
		return n.state
	}

	switch e := ev.(type) {
	case Click:
		switch e.Target {
		case TargetBackdrop, TargetClose:
			n.Close()
		case TargetNext:
			n.Next()
		case TargetPrev:
			n.Prev()
		case TargetThumbnail:
			n.GoTo(e.Index)
		}
	case KeyPress:
		switch e.Key {
		case KeyEscape:
			n.Close()
		case KeyArrowRight:
			n.Next()
		case KeyArrowLeft:
			n.Prev()
		}
	case DragMove:
		n.Pan(e.DX, e.DY)
	case DragEnd:
		if n.isSwipe(e) {
			if e.VX < 0 {
				n.Next()
			} else {
				n.Prev()
			}
		}
	case PinchUpdate:
		n.Zoom(e.Delta, e.Origin)
	case DoubleTap:
		n.ToggleZoom()
	case SlideChangeNotify:
		n.GoTo(e.Index)
	}
	return n.state
}

// Peek returns the state Handle(ev) would produce without applying it and
// without running listener or scroll-lock hooks.
func (n *Navigator) Peek(ev Event) State {
	tmp := Navigator{
		count:         n.count,
		swipeVelocity: n.swipeVelocity,
		state:         n.state,
		scrollLocked:  n.scrollLocked,
	}
	return tmp.Handle(ev)
}
