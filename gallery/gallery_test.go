package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingListeners struct {
	attached, detached int
}

func (l *countingListeners) Attach() { l.attached++ }
func (l *countingListeners) Detach() { l.detached++ }

func openAt(t *testing.T, count, i int, opts ...Option) *Navigator {
	t.Helper()
	n := New(count, opts...)
	require.True(t, n.Open(i))
	return n
}

func TestInitialStateClosed(t *testing.T) {
	n := New(5)
	s := n.State()
	assert.False(t, s.IsOpen())
	assert.Equal(t, None, s.Selected)
	assert.Equal(t, MinZoom, s.Zoom)
	assert.False(t, n.ScrollLocked())
}

func TestOpenThenNext(t *testing.T) {
	n := openAt(t, 5, 2)
	n.Next()
	assert.Equal(t, State{Selected: 3, Zoom: 1}, n.State())
}

func TestPrevWrapsAround(t *testing.T) {
	n := openAt(t, 5, 0)
	n.Prev()
	assert.Equal(t, 4, n.State().Selected)

	n.Next()
	assert.Equal(t, 0, n.State().Selected)
}

func TestNextWrapsAround(t *testing.T) {
	n := openAt(t, 5, 4)
	n.Next()
	assert.Equal(t, 0, n.State().Selected)
}

func TestSingleImageNavigationIsNoop(t *testing.T) {
	n := openAt(t, 1, 0)
	n.Next()
	assert.Equal(t, 0, n.State().Selected)
	n.Prev()
	assert.Equal(t, 0, n.State().Selected)
}

func TestEmptyGalleryNeverOpens(t *testing.T) {
	n := New(0)
	assert.False(t, n.Open(0))
	n.Handle(Click{Target: TargetThumbnail, Index: 0})
	assert.False(t, n.State().IsOpen())
	assert.False(t, n.ScrollLocked())
}

func TestOpenOutOfRange(t *testing.T) {
	n := New(3)
	assert.False(t, n.Open(3))
	assert.False(t, n.Open(-1))
	assert.False(t, n.State().IsOpen())
}

func TestCloseResetsZoomAndPan(t *testing.T) {
	n := openAt(t, 5, 1)
	n.Zoom(2, Point{X: 40, Y: -10})
	n.Pan(15, 5)
	require.True(t, n.State().Zoomed())

	n.Close()
	assert.Equal(t, State{Selected: None, Zoom: 1}, n.State())
	assert.False(t, n.ScrollLocked())
}

func TestZoomClamps(t *testing.T) {
	n := openAt(t, 3, 0)
	for i := 0; i < 10; i++ {
		n.Zoom(1, Point{})
	}
	assert.Equal(t, MaxZoom, n.State().Zoom)

	for i := 0; i < 10; i++ {
		n.Zoom(-1, Point{X: 30, Y: 30})
	}
	assert.Equal(t, MinZoom, n.State().Zoom)
	assert.Equal(t, Point{}, n.State().Pan, "snapping to 1 clears pan")
}

func TestZoomKeepsOriginFixed(t *testing.T) {
	n := openAt(t, 3, 0)
	n.Zoom(1, Point{X: 100, Y: 50})
	// At zoom 2 the point that was under (100, 50) must still be there:
	// pan + 2*(100, 50) == (100, 50).
	assert.Equal(t, Point{X: -100, Y: -50}, n.State().Pan)
}

func TestPanOnlyWhenZoomed(t *testing.T) {
	n := openAt(t, 3, 0)
	n.Pan(10, 10)
	assert.Equal(t, Point{}, n.State().Pan)

	n.ToggleZoom()
	n.Pan(10, -4)
	n.Pan(5, 1)
	assert.Equal(t, Point{X: 15, Y: -3}, n.State().Pan)
}

func TestToggleZoom(t *testing.T) {
	n := openAt(t, 3, 0)
	n.ToggleZoom()
	assert.Equal(t, 2.0, n.State().Zoom)
	assert.Equal(t, Point{}, n.State().Pan)

	n.Pan(20, 20)
	n.ToggleZoom()
	assert.Equal(t, 1.0, n.State().Zoom)
	assert.Equal(t, Point{}, n.State().Pan)
}

func TestSlideChangeResetsZoom(t *testing.T) {
	n := openAt(t, 4, 0)
	n.ToggleZoom()
	n.Pan(10, 10)
	n.Next()
	assert.Equal(t, State{Selected: 1, Zoom: 1}, n.State())

	n.ToggleZoom()
	n.Handle(SlideChangeNotify{Index: 3})
	assert.Equal(t, State{Selected: 3, Zoom: 1}, n.State())
}

func TestListenersAndScrollLockScope(t *testing.T) {
	l := &countingListeners{}
	var locks []bool
	n := New(3, WithListeners(l), WithScrollLock(func(locked bool) { locks = append(locks, locked) }))

	n.Close()
	assert.Equal(t, 0, l.detached, "closing a closed navigator detaches nothing")

	n.Open(0)
	n.Next()
	n.Open(2)
	assert.Equal(t, 1, l.attached, "navigation while open must not re-attach")
	assert.True(t, n.ScrollLocked())

	n.Handle(KeyPress{Key: KeyEscape})
	assert.Equal(t, 1, l.detached)
	assert.False(t, n.ScrollLocked())
	assert.Equal(t, []bool{true, false}, locks)

	n.Handle(KeyPress{Key: KeyEscape})
	assert.Equal(t, 1, l.detached)
}

func TestHandleClicks(t *testing.T) {
	n := New(5)
	n.Handle(Click{Target: TargetNext})
	assert.False(t, n.State().IsOpen(), "controls do nothing while closed")

	s := n.Handle(Click{Target: TargetThumbnail, Index: 2})
	assert.Equal(t, 2, s.Selected)

	assert.Equal(t, 3, n.Handle(Click{Target: TargetNext}).Selected)
	assert.Equal(t, 2, n.Handle(Click{Target: TargetPrev}).Selected)
	assert.Equal(t, 2, n.Handle(Click{Target: TargetImage}).Selected, "clicking the image keeps it open")

	assert.False(t, n.Handle(Click{Target: TargetBackdrop}).IsOpen())

	n.Handle(Click{Target: TargetThumbnail, Index: 0})
	assert.False(t, n.Handle(Click{Target: TargetClose}).IsOpen())
}

func TestHandleKeys(t *testing.T) {
	n := openAt(t, 5, 0)
	assert.Equal(t, 1, n.Handle(KeyPress{Key: KeyArrowRight}).Selected)
	assert.Equal(t, 0, n.Handle(KeyPress{Key: KeyArrowLeft}).Selected)
	assert.Equal(t, 4, n.Handle(KeyPress{Key: KeyArrowLeft}).Selected)
	assert.Equal(t, 4, n.Handle(KeyPress{Key: "a"}).Selected)
	assert.False(t, n.Handle(KeyPress{Key: KeyEscape}).IsOpen())
}

func TestSwipeNavigatesAboveThreshold(t *testing.T) {
	n := openAt(t, 5, 2)
	assert.Equal(t, 3, n.Handle(DragEnd{DX: -120, VX: -0.8}).Selected, "swipe left goes forward")
	assert.Equal(t, 2, n.Handle(DragEnd{DX: 120, VX: 0.8}).Selected, "swipe right goes back")
}

func TestSlowDragDoesNotNavigate(t *testing.T) {
	n := openAt(t, 5, 2)
	s := n.Handle(DragEnd{DX: -300, VX: -0.1})
	assert.Equal(t, 2, s.Selected)
	assert.Equal(t, MinZoom, s.Zoom)
}

func TestVerticalFlickDoesNotNavigate(t *testing.T) {
	n := openAt(t, 5, 2)
	assert.Equal(t, 2, n.Handle(DragEnd{DX: 20, DY: 200, VX: 0.5, VY: 2}).Selected)
}

func TestZoomedDragPansNeverSwipes(t *testing.T) {
	n := openAt(t, 5, 2)
	n.Handle(DoubleTap{})
	n.Handle(DragMove{DX: -50, DY: 10})
	s := n.Handle(DragEnd{DX: -50, DY: 10, VX: -3})
	assert.Equal(t, 2, s.Selected)
	assert.Equal(t, Point{X: -50, Y: 10}, s.Pan)
}

func TestUnzoomedDragMoveIgnored(t *testing.T) {
	n := openAt(t, 5, 2)
	s := n.Handle(DragMove{DX: -50})
	assert.Equal(t, Point{}, s.Pan)
}

func TestPinchUpdate(t *testing.T) {
	n := openAt(t, 5, 0)
	s := n.Handle(PinchUpdate{Delta: 0.5, Origin: Point{}})
	assert.Equal(t, 1.5, s.Zoom)
	s = n.Handle(PinchUpdate{Delta: -5})
	assert.Equal(t, 1.0, s.Zoom)
}

func TestPinchFromTwoPointers(t *testing.T) {
	n := openAt(t, 5, 0)
	center := Point{X: 100, Y: 100}

	// Fingers spread from 100px to 200px apart around the image center.
	step := Pinch(n.State().Zoom, 100, Point{X: 0, Y: 100}, Point{X: 200, Y: 100}, center)
	assert.InDelta(t, 1.0, step.Delta, 1e-9)
	assert.Equal(t, Point{}, step.Origin)
	s := n.Handle(step)
	assert.Equal(t, 2.0, s.Zoom)

	// Pinching back to half the spread returns to MinZoom and clears pan.
	n.Pan(30, 0)
	step = Pinch(s.Zoom, 200, Point{X: 50, Y: 150}, Point{X: 150, Y: 150}, center)
	assert.InDelta(t, -1.0, step.Delta, 1e-9)
	assert.Equal(t, Point{X: 0, Y: 50}, step.Origin)
	s = n.Handle(step)
	assert.Equal(t, MinZoom, s.Zoom)
	assert.Equal(t, Point{}, s.Pan)

	assert.Zero(t, Pinch(1, 0, Point{}, Point{X: 10}, Point{}).Delta)
	assert.Zero(t, Pinch(1, 10, Point{X: 5}, Point{X: 5}, Point{}).Delta)
}

func TestCustomSwipeVelocity(t *testing.T) {
	n := openAt(t, 5, 0, WithSwipeVelocity(1.0))
	assert.Equal(t, 0, n.Handle(DragEnd{DX: -100, VX: -0.8}).Selected)
	assert.Equal(t, 1, n.Handle(DragEnd{DX: -100, VX: -1.2}).Selected)
}

func TestPeekDoesNotMutate(t *testing.T) {
	l := &countingListeners{}
	n := New(4, WithListeners(l))
	assert.Equal(t, 1, n.Peek(Click{Target: TargetThumbnail, Index: 1}).Selected)
	assert.False(t, n.State().IsOpen())
	assert.Equal(t, 0, l.attached)

	n.Open(0)
	assert.Equal(t, 3, n.Peek(KeyPress{Key: KeyArrowLeft}).Selected)
	assert.False(t, n.Peek(KeyPress{Key: KeyEscape}).IsOpen())
	assert.Equal(t, 0, n.State().Selected)
	assert.Equal(t, 0, l.detached)
}
