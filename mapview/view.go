package mapview

import (
	"errors"
	"fmt"
	"time"

	"web/arkmap/cluster"
	"web/arkmap/metrics"
	"web/arkmap/viewport"
)

var ErrLocationNotFound = errors.New("location not found")

// Marker is a single location placed in viewport space.
type Marker struct {
	Location cluster.Location `json:"location"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
}

// Snapshot is everything a renderer needs to draw one frame.
type Snapshot struct {
	Zoom        float64           `json:"zoom"`
	Pan         viewport.Point    `json:"pan"`
	Clustering  bool              `json:"clustering"`
	DarkOverlay bool              `json:"darkOverlay"`
	Hovered     string            `json:"hovered,omitempty"`
	Gesture     viewport.Phase    `json:"gesture"`
	Clusters    []cluster.Cluster `json:"clusters"`
	Singles     []Marker          `json:"singles"`
	Unplaced    int               `json:"unplaced"`
}

type layoutKey struct {
	zoom       float64
	clustering bool
}

// View is one mounted map: its viewport state, gesture session and UI
// flags over a read-only catalog. A View is not safe for concurrent use;
// the runner serializes calls per view.
type View struct {
	catalog    *cluster.Catalog
	engine     *cluster.Engine
	controller *viewport.Controller
	recognizer *viewport.Recognizer

	clustering  bool
	darkOverlay bool
	hovered     string
	closed      bool

	cached    bool
	cacheKey  layoutKey
	cacheData cluster.Layout
}

func New(catalog *cluster.Catalog, engine *cluster.Engine, opts viewport.Options) *View {
	controller := viewport.NewController(opts)
	return &View{
		catalog:    catalog,
		engine:     engine,
		controller: controller,
		recognizer: viewport.NewRecognizer(controller),
		clustering: true,
	}
}

func (v *View) Catalog() *cluster.Catalog { return v.catalog }

// HandleEvent feeds one raw input event to the gesture recognizer and
// reports whether it had an effect.
func (v *View) HandleEvent(ev viewport.Event) bool {
	if v.closed {
		return false
	}
	applied := v.recognizer.Handle(ev)
	metrics.GestureEvents.WithLabelValues(ev.Kind.String(), fmt.Sprint(applied)).Inc()
	return applied
}

func (v *View) Exec(cmd Command) error {
	if v.closed {
		return nil
	}
	switch cmd {
	case CommandZoomIn:
		v.controller.ZoomIn()
	case CommandZoomOut:
		v.controller.ZoomOut()
	case CommandReset:
		v.recognizer.Reset()
		v.controller.Reset()
	case CommandToggleClustering:
		v.clustering = !v.clustering
	case CommandToggleDarkOverlay:
		v.darkOverlay = !v.darkOverlay
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	metrics.Commands.WithLabelValues(string(cmd)).Inc()
	return nil
}

// Hover marks a location as hovered. An empty id clears it.
func (v *View) Hover(id string) error {
	if v.closed {
		return nil
	}
	if id == "" {
		v.hovered = ""
		return nil
	}
	for _, loc := range v.catalog.Locations {
		if loc.ID == id {
			v.hovered = id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
}

func (v *View) State() viewport.State { return v.controller.State() }

// Layout returns the clusters and singles for the current zoom and
// clustering flag. Pan does not affect the layout, so the result is reused
// until one of those changes.
func (v *View) Layout() cluster.Layout {
	key := layoutKey{zoom: v.controller.Zoom(), clustering: v.clustering}
	if v.cached && v.cacheKey == key {
		return v.cacheData
	}

	start := time.Now()
	layout := v.engine.ComputeLayout(v.catalog.Locations, key.zoom, key.clustering)
	metrics.ObserveLayout(time.Since(start), len(layout.Clusters))

	v.cached = true
	v.cacheKey = key
	v.cacheData = layout
	return layout
}

func (v *View) Snapshot() Snapshot {
	layout := v.Layout()
	state := v.controller.State()

	// The layout is memoized and its locations belong to the shared
	// catalog, so the snapshot gets its own copies.
	singles := make([]Marker, len(layout.Singles))
	for i, loc := range layout.Singles {
		x, y := layout.Position(loc)
		singles[i] = Marker{Location: loc.Clone(), X: x, Y: y}
	}
	clusters := make([]cluster.Cluster, len(layout.Clusters))
	for i, c := range layout.Clusters {
		clusters[i] = c.Clone()
	}

	return Snapshot{
		Zoom:        state.Zoom,
		Pan:         state.Pan,
		Clustering:  v.clustering,
		DarkOverlay: v.darkOverlay,
		Hovered:     v.hovered,
		Gesture:     v.recognizer.Phase(),
		Clusters:    clusters,
		Singles:     singles,
		Unplaced:    layout.Unplaced,
	}
}

// Close discards any gesture in progress. Later calls are no-ops.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.recognizer.Reset()
	v.closed = true
}

func (v *View) Closed() bool { return v.closed }
