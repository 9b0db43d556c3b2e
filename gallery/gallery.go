// Package gallery implements the lightbox navigator for an ordered image
// sequence.
//
// A Navigator is either Closed or Open on one image with a zoom level and a
// pan offset. Every input (clicks, keys, drags, pinches, double taps and
// carousel notifications) goes through Handle, so tie-breaks such as swipe
// versus pan are decided in one place. A Navigator is owned by a single UI
// component and is not safe for concurrent use.
package gallery

import "math"

// None is the selected index of a closed navigator.
const None = -1

const (
	// MinZoom is the unzoomed scale; pan is meaningless at this level.
	MinZoom = 1.0
	// MaxZoom caps pinch and wheel zoom.
	MaxZoom = 4.0
	// ToggleZoomLevel is the scale a double tap zooms to.
	ToggleZoomLevel = 2.0
	// DefaultSwipeVelocity is the minimum horizontal release velocity, in
	// pixels per millisecond, that turns a drag into navigation.
	DefaultSwipeVelocity = 0.3
)

// Point is a 2D offset in CSS pixels, relative to the image center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is a snapshot of the navigator.
type State struct {
	Selected int     `json:"selected"`
	Zoom     float64 `json:"zoom"`
	Pan      Point   `json:"pan"`
}

// IsOpen reports whether the lightbox is showing an image.
func (s State) IsOpen() bool {
	return s.Selected != None
}

// Zoomed reports whether the image is scaled beyond MinZoom.
func (s State) Zoomed() bool {
	return s.Zoom > MinZoom
}

var closed = State{Selected: None, Zoom: MinZoom}

// Listeners scopes keyboard and gesture handlers to the open lightbox.
// Attach runs on every Closed to Open transition and Detach on every Open to
// Closed transition, so the two always alternate.
type Listeners interface {
	Attach()
	Detach()
}

// Navigator is the lightbox state machine.
type Navigator struct {
	count         int
	swipeVelocity float64
	state         State
	scrollLocked  bool
	listeners     Listeners
	onScrollLock  func(locked bool)
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithListeners registers the listener scope hook.
func WithListeners(l Listeners) Option {
	return func(n *Navigator) {
		n.listeners = l
	}
}

// WithScrollLock registers an observer for the background scroll lock.
func WithScrollLock(fn func(locked bool)) Option {
	return func(n *Navigator) {
		n.onScrollLock = fn
	}
}

// WithSwipeVelocity overrides DefaultSwipeVelocity.
func WithSwipeVelocity(v float64) Option {
	return func(n *Navigator) {
		if v > 0 {
			n.swipeVelocity = v
		}
	}
}

// New returns a closed navigator over count images.
func New(count int, opts ...Option) *Navigator {
	if count < 0 {
		count = 0
	}
	n := &Navigator{
		count:         count,
		swipeVelocity: DefaultSwipeVelocity,
		state:         closed,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// State returns the current state.
func (n *Navigator) State() State {
	return n.state
}

// Len returns the number of images.
func (n *Navigator) Len() int {
	return n.count
}

// ScrollLocked reports whether background scrolling is locked.
func (n *Navigator) ScrollLocked() bool {
	return n.scrollLocked
}

// Open shows image i. It reports false, leaving the state untouched, when i
// is out of range (including every i for an empty gallery).
func (n *Navigator) Open(i int) bool {
	if i < 0 || i >= n.count {
		return false
	}
	wasOpen := n.state.IsOpen()
	n.state = State{Selected: i, Zoom: MinZoom}
	if !wasOpen {
		if n.listeners != nil {
			n.listeners.Attach()
		}
		n.setScrollLock(true)
	}
	return true
}

// Close hides the lightbox and resets zoom and pan.
func (n *Navigator) Close() {
	wasOpen := n.state.IsOpen()
	n.state = closed
	if wasOpen && n.listeners != nil {
		n.listeners.Detach()
	}
	n.setScrollLock(false)
}

// Next advances to the following image, wrapping after the last.
func (n *Navigator) Next() {
	if !n.state.IsOpen() {
		return
	}
	n.slideTo((n.state.Selected + 1) % n.count)
}

// Prev goes back to the preceding image, wrapping before the first.
func (n *Navigator) Prev() {
	if !n.state.IsOpen() {
		return
	}
	n.slideTo((n.state.Selected - 1 + n.count) % n.count)
}

// GoTo moves an open lightbox to image i, as reported by the carousel.
func (n *Navigator) GoTo(i int) {
	if !n.state.IsOpen() || i < 0 || i >= n.count {
		return
	}
	n.slideTo(i)
}

func (n *Navigator) slideTo(i int) {
	n.state = State{Selected: i, Zoom: MinZoom}
}

// Zoom changes the zoom level by delta around origin, clamped to
// [MinZoom, MaxZoom]. The point under origin stays fixed; reaching MinZoom
// clears the pan offset.
func (n *Navigator) Zoom(delta float64, origin Point) {
	if !n.state.IsOpen() {
		return
	}
	from := n.state.Zoom
	to := clamp(from+delta, MinZoom, MaxZoom)
	if to == MinZoom {
		n.state.Zoom = MinZoom
		n.state.Pan = Point{}
		return
	}
	ratio := to / from
	n.state.Pan = Point{
		X: origin.X - (origin.X-n.state.Pan.X)*ratio,
		Y: origin.Y - (origin.Y-n.state.Pan.Y)*ratio,
	}
	n.state.Zoom = to
}

// Pan moves a zoomed image. It has no effect at MinZoom.
func (n *Navigator) Pan(dx, dy float64) {
	if !n.state.IsOpen() || !n.state.Zoomed() {
		return
	}
	n.state.Pan.X += dx
	n.state.Pan.Y += dy
}

// ToggleZoom switches between MinZoom and ToggleZoomLevel, always
// centering the image.
func (n *Navigator) ToggleZoom() {
	if !n.state.IsOpen() {
		return
	}
	if n.state.Zoomed() {
		n.state.Zoom = MinZoom
	} else {
		n.state.Zoom = ToggleZoomLevel
	}
	n.state.Pan = Point{}
}

func (n *Navigator) setScrollLock(locked bool) {
	if n.scrollLocked == locked {
		return
	}
	n.scrollLocked = locked
	if n.onScrollLock != nil {
		n.onScrollLock(locked)
	}
}

// isSwipe decides whether a released drag navigates. Only an unzoomed,
// mostly horizontal drag released at or above the velocity threshold does.
func (n *Navigator) isSwipe(e DragEnd) bool {
	if n.state.Zoomed() {
		return false
	}
	return math.Abs(e.VX) >= n.swipeVelocity && math.Abs(e.DX) >= math.Abs(e.DY)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
