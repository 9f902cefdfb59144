package viewport

import (
	"fmt"
	"math"
)

// EventKind is the type of a raw input event. The zero value is
// EventUnknown, which every recognizer ignores, so a frame without a kind
// can never start or cancel a gesture.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventDown
	EventMove
	EventUp
	EventCancel
	EventWheel
)

// eventKindNames is indexed by kind. EventUnknown encodes as "".
var eventKindNames = [...]string{"", "down", "move", "up", "cancel", "wheel"}

func (k EventKind) valid() bool {
	return k > EventUnknown && int(k) < len(eventKindNames)
}

func (k EventKind) String() string {
	if k == EventUnknown {
		return "unknown"
	}
	if !k.valid() {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) {
	if k != EventUnknown && !k.valid() {
		return nil, fmt.Errorf("invalid event kind %d", int(k))
	}
	return []byte(eventKindNames[k]), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	for i, name := range eventKindNames {
		if name == string(b) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

type Source int

const (
	SourceMouse Source = iota
	SourceTouch
)

func (s Source) String() string {
	switch s {
	case SourceMouse:
		return "mouse"
	case SourceTouch:
		return "touch"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

func (s Source) MarshalText() ([]byte, error) {
	if s != SourceMouse && s != SourceTouch {
		return nil, fmt.Errorf("invalid source %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mouse", "":
		*s = SourceMouse
	case "touch":
		*s = SourceTouch
	default:
		return fmt.Errorf("unknown event source %q", b)
	}
	return nil
}

// Event is one raw input sample. For mouse events Points holds the
// pointer. For touch events Points holds every contact still on the
// surface after the event, so a touch Up lists the remaining touches.
type Event struct {
	Kind   EventKind `json:"kind"`
	Source Source    `json:"source"`
	Points []Point   `json:"points,omitempty"`
	DeltaY float64   `json:"deltaY,omitempty"`
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhasePinching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhasePinching:
		return "pinching"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseDragging, PhasePinching} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown gesture phase %q", b)
}

// Target receives the transforms a Recognizer derives. *Controller
// implements it.
type Target interface {
	Pan() Point
	ApplyPan(x, y float64)
	ApplyZoomScale(ratio float64)
	Wheel(deltaY float64)
}

type session int

const (
	sessionNone session = iota
	sessionMouse
	sessionTouch1
	sessionTouch2
)

// Recognizer turns the raw event stream into pan and zoom calls. Mouse,
// single touch and two-finger touch are session variants of one state
// machine; a change in touch cardinality restarts the matching session
// from the current sample.
type Recognizer struct {
	target       Target
	session      session
	anchor       Point
	lastDistance float64
}

func NewRecognizer(target Target) *Recognizer {
	return &Recognizer{target: target}
}

func (r *Recognizer) Phase() Phase {
	switch r.session {
	case sessionMouse, sessionTouch1:
		return PhaseDragging
	case sessionTouch2:
		return PhasePinching
	}
	return PhaseIdle
}

// Reset drops any gesture in progress.
func (r *Recognizer) Reset() {
	r.session = sessionNone
	r.anchor = Point{}
	r.lastDistance = 0
}

// Handle applies one event and reports whether it had any effect.
// Out-of-sequence or malformed events are ignored.
func (r *Recognizer) Handle(ev Event) bool {
	if !ev.Kind.valid() {
		return false
	}
	for _, p := range ev.Points {
		if !p.finite() {
			return false
		}
	}

	switch ev.Kind {
	case EventCancel:
		active := r.session != sessionNone
		r.Reset()
		return active
	case EventWheel:
		if ev.DeltaY == 0 || !isFinite(ev.DeltaY) {
			return false
		}
		r.target.Wheel(ev.DeltaY)
		return true
	}

	if ev.Source == SourceTouch {
		return r.handleTouch(ev)
	}
	return r.handleMouse(ev)
}

func (r *Recognizer) handleMouse(ev Event) bool {
	switch ev.Kind {
	case EventDown:
		if len(ev.Points) == 0 {
			return false
		}
		r.startDrag(sessionMouse, ev.Points[0])
		return true
	case EventMove:
		if r.session != sessionMouse || len(ev.Points) == 0 {
			return false
		}
		r.drag(ev.Points[0])
		return true
	case EventUp:
		if r.session != sessionMouse {
			return false
		}
		r.Reset()
		return true
	}
	return false
}

func (r *Recognizer) handleTouch(ev Event) bool {
	if len(ev.Points) > 2 {
		return false
	}

	switch ev.Kind {
	case EventDown, EventUp:
		if ev.Kind == EventDown && len(ev.Points) == 0 {
			return false
		}
		was := r.session
		r.restartTouch(ev.Points)
		return was != sessionNone || r.session != sessionNone
	case EventMove:
		if r.session != sessionTouch1 && r.session != sessionTouch2 {
			return false
		}
		if len(ev.Points) == 0 {
			return false
		}
		if touchSession(len(ev.Points)) != r.session {
			r.restartTouch(ev.Points)
			return true
		}
		if r.session == sessionTouch1 {
			r.drag(ev.Points[0])
			return true
		}
		return r.pinch(distance(ev.Points[0], ev.Points[1]))
	}
	return false
}

func touchSession(n int) session {
	switch n {
	case 1:
		return sessionTouch1
	case 2:
		return sessionTouch2
	}
	return sessionNone
}

func (r *Recognizer) restartTouch(points []Point) {
	r.Reset()
	switch len(points) {
	case 1:
		r.startDrag(sessionTouch1, points[0])
	case 2:
		r.session = sessionTouch2
		r.lastDistance = distance(points[0], points[1])
	}
}

func (r *Recognizer) startDrag(s session, p Point) {
	r.Reset()
	r.session = s
	r.anchor = p.Sub(r.target.Pan())
}

// drag tracks the pointer absolutely so repeated samples never drift.
func (r *Recognizer) drag(p Point) {
	pan := p.Sub(r.anchor)
	r.target.ApplyPan(pan.X, pan.Y)
}

// pinch scales by the ratio to the previous sample, not the gesture start.
func (r *Recognizer) pinch(d float64) bool {
	if !(d > 0) {
		return false
	}
	last := r.lastDistance
	r.lastDistance = d
	if !(last > 0) {
		return true
	}
	r.target.ApplyZoomScale(d / last)
	return true
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
