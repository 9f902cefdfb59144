package cluster

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// clusterNamespace seeds the name-based cluster IDs so the same member set
// always yields the same ID.
var clusterNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("arkmap.cluster"))

// Options controls the clustering pass.
type Options struct {
	// BaseRadius is the clustering radius at zoom 1, in viewport percent.
	BaseRadius float64
	// ZoomThreshold disables clustering at or above this zoom.
	ZoomThreshold float64
	// MinNeighbors is how many other markers a nucleus needs to form a cluster.
	MinNeighbors int
	// GridThreshold is the number of placed markers from which the grid
	// index replaces the linear neighbor scan.
	GridThreshold int
	Projection    Projection
}

// DefaultOptions returns the stock map settings.
func DefaultOptions() Options {
	return Options{
		BaseRadius:    8,
		ZoomThreshold: 1.5,
		MinNeighbors:  2,
		GridThreshold: 512,
		Projection:    DefaultProjection,
	}
}

// Engine computes marker layouts. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	Options Options
}

// NewEngine creates a clustering engine, filling unset options with defaults.
func NewEngine(options Options) *Engine {
	defaults := DefaultOptions()
	if options.BaseRadius <= 0 || !isFinite(options.BaseRadius) {
		options.BaseRadius = defaults.BaseRadius
	}
	if options.ZoomThreshold <= 0 || !isFinite(options.ZoomThreshold) {
		options.ZoomThreshold = defaults.ZoomThreshold
	}
	if options.MinNeighbors <= 0 {
		options.MinNeighbors = defaults.MinNeighbors
	}
	if options.GridThreshold <= 0 {
		options.GridThreshold = defaults.GridThreshold
	}
	if !options.Projection.valid() {
		options.Projection = defaults.Projection
	}
	return &Engine{Options: options}
}

// Cluster is a synthetic marker standing in for several nearby locations.
type Cluster struct {
	ID      string     `json:"id"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Members []Location `json:"members"`
	Count   int        `json:"count"`
}

// Clone returns a deep copy of the cluster.
func (c Cluster) Clone() Cluster {
	members := make([]Location, len(c.Members))
	for i, m := range c.Members {
		members[i] = m.Clone()
	}
	c.Members = members
	return c
}

// Layout partitions the placeable locations into clusters and singles.
type Layout struct {
	Clusters []Cluster
	Singles  []Location
	// Unplaced counts input locations skipped for lack of coordinates.
	Unplaced int

	projection Projection
}

// Position returns the viewport position of a location under the layout's projection.
func (l Layout) Position(loc Location) (x, y float64) {
	if loc.Coords == nil {
		return 0, 0
	}
	return l.projection.ToViewportPosition(loc.Coords.Lat, loc.Coords.Lon)
}

// ClusterRadius is the neighbor radius at the given zoom. It shrinks as the
// map zooms in so clusters dissolve gradually. Non-positive zoom counts as 1.
func (e *Engine) ClusterRadius(zoom float64) float64 {
	if !(zoom > 0) || !isFinite(zoom) {
		return e.Options.BaseRadius
	}
	return e.Options.BaseRadius / zoom
}

// ClusteringActive reports whether the zoom is low enough for clustering.
func (e *Engine) ClusteringActive(zoom float64) bool {
	return zoom < e.Options.ZoomThreshold
}

// point is a placed location with its viewport position. idx is the
// insertion order among placed locations.
type point struct {
	loc  Location
	x, y float64
	idx  int
}

func (e *Engine) project(locations []Location) []point {
	points := make([]point, 0, len(locations))
	for _, loc := range locations {
		if !loc.HasCoords() {
			continue
		}
		x, y := e.Options.Projection.ToViewportPosition(loc.Coords.Lat, loc.Coords.Lon)
		points = append(points, point{loc: loc, x: x, y: y, idx: len(points)})
	}
	return points
}

// ComputeLayout groups locations into clusters for the given zoom.
//
// The pass is greedy and order dependent: locations are visited in input
// order, each unconsumed location gathers every other unconsumed location
// within ClusterRadius(zoom), and if it finds at least MinNeighbors they
// all become one cluster. A consumed location is never revisited. Whatever
// is left over is returned as singles, in input order.
func (e *Engine) ComputeLayout(locations []Location, zoom float64, clusteringEnabled bool) Layout {
	points := e.project(locations)
	layout := Layout{
		Unplaced:   len(locations) - len(points),
		projection: e.Options.Projection,
	}

	if !clusteringEnabled || !e.ClusteringActive(zoom) {
		layout.Singles = make([]Location, len(points))
		for i, p := range points {
			layout.Singles[i] = p.loc
		}
		return layout
	}

	groups := e.group(points, e.ClusterRadius(zoom))

	consumed := make([]bool, len(points))
	layout.Clusters = make([]Cluster, 0, len(groups))
	for _, members := range groups {
		for _, m := range members {
			consumed[m] = true
		}
		layout.Clusters = append(layout.Clusters, createCluster(points, members))
	}

	layout.Singles = make([]Location, 0, len(points))
	for i, p := range points {
		if !consumed[i] {
			layout.Singles = append(layout.Singles, p.loc)
		}
	}
	return layout
}

// group runs the greedy pass and returns member indices per cluster, the
// nucleus first and the rest in insertion order.
func (e *Engine) group(points []point, radius float64) [][]int {
	if len(points) >= e.Options.GridThreshold {
		return clusterPointsWithGrid(points, radius, e.Options.MinNeighbors)
	}
	return clusterPoints(points, radius, e.Options.MinNeighbors)
}

func clusterPoints(points []point, radius float64, minNeighbors int) [][]int {
	var groups [][]int
	consumed := make([]bool, len(points))
	r2 := radius * radius

	for i, p := range points {
		if consumed[i] {
			continue
		}

		var nearby []int
		for j, other := range points {
			if j == i || consumed[j] {
				continue
			}
			if within(p, other, r2) {
				nearby = append(nearby, j)
			}
		}

		if len(nearby) >= minNeighbors {
			consumed[i] = true
			for _, j := range nearby {
				consumed[j] = true
			}
			groups = append(groups, append([]int{i}, nearby...))
		}
	}
	return groups
}

func clusterPointsWithGrid(points []point, radius float64, minNeighbors int) [][]int {
	var groups [][]int
	consumed := make([]bool, len(points))
	r2 := radius * radius
	grid := newGridIndex(points, radius)

	var candidates []int
	for i, p := range points {
		if consumed[i] {
			continue
		}

		candidates = grid.near(p.x, p.y, candidates[:0])
		var nearby []int
		for _, j := range candidates {
			if j == i || consumed[j] {
				continue
			}
			if within(p, points[j], r2) {
				nearby = append(nearby, j)
			}
		}
		// Cells are visited in grid order; restore insertion order so the
		// result matches the linear scan exactly.
		sort.Ints(nearby)

		if len(nearby) >= minNeighbors {
			consumed[i] = true
			for _, j := range nearby {
				consumed[j] = true
			}
			groups = append(groups, append([]int{i}, nearby...))
		}
	}
	return groups
}

func within(a, b point, r2 float64) bool {
	dx := b.x - a.x
	dy := b.y - a.y
	return dx*dx+dy*dy <= r2
}

func createCluster(points []point, members []int) Cluster {
	var sumX, sumY float64
	ids := make([]string, len(members))
	locs := make([]Location, len(members))

	for i, m := range members {
		p := points[m]
		sumX += p.x
		sumY += p.y
		ids[i] = p.loc.ID
		locs[i] = p.loc
	}

	n := float64(len(members))
	return Cluster{
		ID:      uuid.NewSHA1(clusterNamespace, []byte(strings.Join(ids, "\x00"))).String(),
		X:       sumX / n,
		Y:       sumY / n,
		Members: locs,
		Count:   len(members),
	}
}
