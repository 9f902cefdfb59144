package viewport

import "math"

// Point is a position in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) finite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// State is the transform reported to the renderer.
type State struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

type Options struct {
	MinZoom    float64
	MaxZoom    float64
	StepDelta  float64
	WheelDelta float64
}

func DefaultOptions() Options {
	return Options{
		MinZoom:    0.5,
		MaxZoom:    3.0,
		StepDelta:  0.2,
		WheelDelta: 0.1,
	}
}

// Controller owns zoom and pan for one map view. Zoom always stays within
// [MinZoom, MaxZoom]; pan is set unconditionally.
type Controller struct {
	opts  Options
	state State
}

func NewController(opts Options) *Controller {
	def := DefaultOptions()
	if !(opts.MinZoom > 0) || !isFinite(opts.MinZoom) {
		opts.MinZoom = def.MinZoom
	}
	if !(opts.MaxZoom >= opts.MinZoom) || !isFinite(opts.MaxZoom) {
		opts.MaxZoom = math.Max(def.MaxZoom, opts.MinZoom)
	}
	if !(opts.StepDelta > 0) || !isFinite(opts.StepDelta) {
		opts.StepDelta = def.StepDelta
	}
	if !(opts.WheelDelta > 0) || !isFinite(opts.WheelDelta) {
		opts.WheelDelta = def.WheelDelta
	}
	c := &Controller{opts: opts}
	c.Reset()
	return c
}

func (c *Controller) State() State  { return c.state }
func (c *Controller) Zoom() float64 { return c.state.Zoom }
func (c *Controller) Pan() Point    { return c.state.Pan }

// ApplyPan replaces the pan offset. Non-finite input is ignored.
func (c *Controller) ApplyPan(x, y float64) {
	p := Point{X: x, Y: y}
	if !p.finite() {
		return
	}
	c.state.Pan = p
}

// ApplyZoomDelta adds delta to the zoom factor and clamps.
func (c *Controller) ApplyZoomDelta(delta float64) {
	if !isFinite(delta) {
		return
	}
	c.state.Zoom = c.clamp(c.state.Zoom + delta)
}

// ApplyZoomScale multiplies the zoom factor by ratio and clamps. Ratios
// that are not strictly positive and finite are ignored.
func (c *Controller) ApplyZoomScale(ratio float64) {
	if !(ratio > 0) || !isFinite(ratio) {
		return
	}
	c.state.Zoom = c.clamp(c.state.Zoom * ratio)
}

func (c *Controller) ZoomIn()  { c.ApplyZoomDelta(c.opts.StepDelta) }
func (c *Controller) ZoomOut() { c.ApplyZoomDelta(-c.opts.StepDelta) }

// Wheel applies one wheel notch. Positive deltaY scrolls down and zooms out.
func (c *Controller) Wheel(deltaY float64) {
	switch {
	case deltaY > 0:
		c.ApplyZoomDelta(-c.opts.WheelDelta)
	case deltaY < 0:
		c.ApplyZoomDelta(c.opts.WheelDelta)
	}
}

func (c *Controller) Reset() {
	c.state = State{Zoom: c.clamp(1)}
}

func (c *Controller) clamp(z float64) float64 {
	return math.Min(math.Max(z, c.opts.MinZoom), c.opts.MaxZoom)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
