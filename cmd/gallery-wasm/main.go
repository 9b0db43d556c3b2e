//go:build js && wasm

// Command gallery-wasm drives the project lightbox in the browser. It binds
// DOM pointer, touch, keyboard, wheel and click events to gallery.Navigator
// and renders its state onto an overlay, upgrading the server-rendered
// links. Gesture handlers are only attached while the lightbox is open.
//
// Build with:
//
//	GOOS=js GOARCH=wasm go build -o public/gallery.wasm ./cmd/gallery-wasm
package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"syscall/js"

	"github.com/eringen/folio/gallery"
)

// wheelZoomFactor converts wheel deltaY pixels to zoom steps.
const wheelZoomFactor = 0.002

// image is what the driver knows about one gallery entry.
type image struct {
	src, title, description string
}

// listener is a DOM event binding that only lives while the lightbox is open.
type listener struct {
	target js.Value
	event  string
	fn     js.Func
	opts   js.Value
}

type driver struct {
	doc     js.Value
	root    js.Value
	overlay js.Value
	img     js.Value
	counter js.Value
	title   js.Value
	desc    js.Value
	images  []image
	nav     *gallery.Navigator

	bound []listener

	// Active pointers by id, in client coordinates.
	pointers  map[int]gallery.Point
	dragging  bool
	start     gallery.Point
	startT    float64
	pinchDist float64
}

type listeners struct{ d *driver }

func (l listeners) Attach() {
	for _, b := range l.d.bound {
		b.target.Call("addEventListener", b.event, b.fn, b.opts)
	}
}

func (l listeners) Detach() {
	for _, b := range l.d.bound {
		b.target.Call("removeEventListener", b.event, b.fn)
	}
	clear(l.d.pointers)
	l.d.dragging = false
	l.d.pinchDist = 0
}

func (d *driver) bind(target js.Value, event string, fn func(ev js.Value), opts js.Value) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(args[0])
		return nil
	})
	d.bound = append(d.bound, listener{target: target, event: event, fn: f, opts: opts})
}

func main() {
	doc := js.Global().Get("document")
	root := doc.Call("querySelector", "[data-gallery]")
	if root.IsNull() {
		return
	}
	d := &driver{doc: doc, root: root, pointers: make(map[int]gallery.Point)}

	thumbs := root.Call("querySelectorAll", "a[data-gallery-index]")
	for i := 0; i < thumbs.Length(); i++ {
		a := thumbs.Index(i)
		d.images = append(d.images, image{
			src:         attr(a, "data-gallery-src"),
			title:       attr(a, "data-gallery-title"),
			description: attr(a, "data-gallery-description"),
		})
		idx := i
		a.Call("addEventListener", "click", js.FuncOf(func(this js.Value, args []js.Value) any {
			args[0].Call("preventDefault")
			d.handle(gallery.Click{Target: gallery.TargetThumbnail, Index: idx})
			return nil
		}))
	}

	d.nav = gallery.New(len(d.images),
		gallery.WithListeners(listeners{d}),
		gallery.WithScrollLock(func(locked bool) {
			doc.Get("body").Get("classList").Call("toggle", "modal-open", locked)
		}),
	)
	d.buildOverlay()

	// Take over a lightbox the server rendered for ?image=.
	if server := doc.Call("getElementById", "lightbox"); !server.IsNull() {
		server.Call("remove")
		if i, err := strconv.Atoi(currentQuery().Get("image")); err == nil {
			d.nav.Open(i)
		}
	}
	d.render()

	select {}
}

func attr(el js.Value, name string) string {
	v := el.Call("getAttribute", name)
	if v.IsNull() {
		return ""
	}
	return v.String()
}

func currentQuery() url.Values {
	raw := js.Global().Get("location").Get("search").String()
	q, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return q
}

func (d *driver) el(tag, class string) js.Value {
	e := d.doc.Call("createElement", tag)
	e.Set("className", class)
	return e
}

func (d *driver) button(class, label, text string, target gallery.Target) js.Value {
	b := d.el("button", class)
	b.Call("setAttribute", "type", "button")
	b.Call("setAttribute", "aria-label", label)
	b.Set("textContent", text)
	b.Call("addEventListener", "click", js.FuncOf(func(this js.Value, args []js.Value) any {
		args[0].Call("stopPropagation")
		d.handle(gallery.Click{Target: target})
		return nil
	}))
	return b
}

func (d *driver) buildOverlay() {
	o := d.el("div", "lightbox")
	o.Set("id", "lightbox")
	o.Call("setAttribute", "role", "dialog")
	o.Call("setAttribute", "aria-modal", "true")
	o.Call("setAttribute", "aria-label", "Image viewer")
	o.Get("style").Set("display", "none")

	backdrop := d.el("div", "lightbox-backdrop")
	backdrop.Call("addEventListener", "click", js.FuncOf(func(this js.Value, args []js.Value) any {
		d.handle(gallery.Click{Target: gallery.TargetBackdrop})
		return nil
	}))
	o.Call("appendChild", backdrop)
	o.Call("appendChild", d.button("lightbox-close", "Close", "×", gallery.TargetClose))
	if len(d.images) > 1 {
		o.Call("appendChild", d.button("lightbox-prev", "Previous image", "‹", gallery.TargetPrev))
	}

	fig := d.el("figure", "lightbox-figure")
	d.img = d.el("img", "lightbox-image")
	d.img.Call("setAttribute", "draggable", "false")
	d.img.Get("style").Set("touchAction", "none")
	caption := d.el("figcaption", "")
	d.counter = d.el("span", "lightbox-counter")
	d.title = d.el("p", "lightbox-title")
	d.desc = d.el("p", "lightbox-description")
	caption.Call("appendChild", d.counter)
	caption.Call("appendChild", d.title)
	caption.Call("appendChild", d.desc)
	fig.Call("appendChild", d.img)
	fig.Call("appendChild", caption)
	o.Call("appendChild", fig)
	if len(d.images) > 1 {
		o.Call("appendChild", d.button("lightbox-next", "Next image", "›", gallery.TargetNext))
	}

	d.bindGestures()
	d.root.Call("appendChild", o)
	d.overlay = o
}

// bindGestures registers the keyboard, pointer and wheel handlers. They
// are attached by the navigator on open and detached on close.
func (d *driver) bindGestures() {
	none := js.Undefined()
	img := d.img

	d.bind(d.doc, "keydown", func(ev js.Value) {
		key := ev.Get("key").String()
		switch key {
		case gallery.KeyEscape, gallery.KeyArrowLeft, gallery.KeyArrowRight:
			ev.Call("preventDefault")
			d.handle(gallery.KeyPress{Key: key})
		}
	}, none)

	d.bind(img, "pointerdown", func(ev js.Value) {
		ev.Call("preventDefault")
		img.Call("setPointerCapture", ev.Get("pointerId"))
		p := clientPoint(ev)
		d.pointers[ev.Get("pointerId").Int()] = p
		switch len(d.pointers) {
		case 1:
			d.dragging = true
			d.start = p
			d.startT = ev.Get("timeStamp").Float()
		case 2:
			// A second finger turns the drag into a pinch.
			d.dragging = false
			d.pinchDist = gallery.Spread(d.pair())
		}
	}, none)

	d.bind(img, "pointermove", func(ev js.Value) {
		id := ev.Get("pointerId").Int()
		prev, ok := d.pointers[id]
		if !ok {
			return
		}
		p := clientPoint(ev)
		d.pointers[id] = p
		switch {
		case len(d.pointers) == 2:
			a, b := d.pair()
			step := gallery.Pinch(d.nav.State().Zoom, d.pinchDist, a, b, d.center())
			if step.Delta != 0 {
				d.handle(step)
			}
			d.pinchDist = gallery.Spread(a, b)
		case d.dragging && d.nav.State().Zoomed():
			d.handle(gallery.DragMove{DX: p.X - prev.X, DY: p.Y - prev.Y})
		}
	}, none)

	end := func(ev js.Value) {
		id := ev.Get("pointerId").Int()
		if _, ok := d.pointers[id]; !ok {
			return
		}
		delete(d.pointers, id)
		if len(d.pointers) < 2 {
			d.pinchDist = 0
		}
		if !d.dragging {
			return
		}
		d.dragging = false
		p := clientPoint(ev)
		dx, dy := p.X-d.start.X, p.Y-d.start.Y
		elapsed := max(ev.Get("timeStamp").Float()-d.startT, 1)
		d.handle(gallery.DragEnd{DX: dx, DY: dy, VX: dx / elapsed, VY: dy / elapsed})
	}
	d.bind(img, "pointerup", end, none)
	d.bind(img, "pointercancel", end, none)

	d.bind(img, "dblclick", func(js.Value) {
		d.handle(gallery.DoubleTap{})
	}, none)

	opts := js.Global().Get("Object").New()
	opts.Set("passive", false)
	d.bind(img, "wheel", func(ev js.Value) {
		ev.Call("preventDefault")
		p, c := clientPoint(ev), d.center()
		d.handle(gallery.PinchUpdate{
			Delta:  -ev.Get("deltaY").Float() * wheelZoomFactor,
			Origin: gallery.Point{X: p.X - c.X, Y: p.Y - c.Y},
		})
	}, opts)
}

func clientPoint(ev js.Value) gallery.Point {
	return gallery.Point{X: ev.Get("clientX").Float(), Y: ev.Get("clientY").Float()}
}

// pair returns the two active pointers. Only valid when exactly two are down.
func (d *driver) pair() (a, b gallery.Point) {
	i := 0
	for _, p := range d.pointers {
		if i == 0 {
			a = p
		} else {
			b = p
		}
		i++
	}
	return a, b
}

// center is the image center in client coordinates.
func (d *driver) center() gallery.Point {
	rect := d.img.Call("getBoundingClientRect")
	return gallery.Point{
		X: rect.Get("left").Float() + rect.Get("width").Float()/2,
		Y: rect.Get("top").Float() + rect.Get("height").Float()/2,
	}
}

func (d *driver) handle(ev gallery.Event) {
	d.nav.Handle(ev)
	d.render()
}

func (d *driver) render() {
	s := d.nav.State()
	history := js.Global().Get("history")
	path := js.Global().Get("location").Get("pathname").String()
	if !s.IsOpen() {
		d.overlay.Get("style").Set("display", "none")
		history.Call("replaceState", nil, "", path)
		return
	}
	d.overlay.Get("style").Set("display", "")
	cur := d.images[s.Selected]
	if d.img.Get("src").String() != cur.src {
		d.img.Set("src", cur.src)
		d.img.Set("alt", cur.title)
	}
	d.img.Get("style").Set("transform",
		fmt.Sprintf("translate(%.1fpx, %.1fpx) scale(%.3f)", s.Pan.X, s.Pan.Y, s.Zoom))
	d.counter.Set("textContent", fmt.Sprintf("%d / %d", s.Selected+1, d.nav.Len()))
	setText(d.title, cur.title)
	setText(d.desc, cur.description)
	history.Call("replaceState", nil, "", path+"?image="+strconv.Itoa(s.Selected)+"#lightbox")
}

// setText shows el with text, or hides it when text is empty.
func setText(el js.Value, text string) {
	el.Set("textContent", text)
	if text == "" {
		el.Get("style").Set("display", "none")
	} else {
		el.Get("style").Set("display", "")
	}
}
