package cluster

import "math"

// Coordinates are in-game map coordinates. Both axes run 0..100.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Location is a single map marker as supplied by the data layer.
// Locations without coordinates are never placed on the map.
type Location struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Coords     *Coordinates `json:"coords,omitempty"`
	Category   string       `json:"category,omitempty"`
	Difficulty string       `json:"difficulty,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// HasCoords reports whether the location can be placed.
// NaN or infinite coordinates count as missing.
func (l Location) HasCoords() bool {
	if l.Coords == nil {
		return false
	}
	return isFinite(l.Coords.Lat) && isFinite(l.Coords.Lon)
}

// Clone returns a copy that shares no memory with l.
func (l Location) Clone() Location {
	if l.Coords != nil {
		coords := *l.Coords
		l.Coords = &coords
	}
	return l
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
