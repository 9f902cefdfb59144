package cluster

// Projection maps a rectangle of domain coordinates onto the 0..100
// viewport band. Lon drives the horizontal axis, lat the vertical one.
type Projection struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// DefaultProjection is the identity over the 0..100 game grid.
var DefaultProjection = Projection{MinLat: 0, MaxLat: 100, MinLon: 0, MaxLon: 100}

func (p Projection) valid() bool {
	return isFinite(p.MinLat) && isFinite(p.MaxLat) && isFinite(p.MinLon) && isFinite(p.MaxLon) &&
		p.MaxLat != p.MinLat && p.MaxLon != p.MinLon
}

// ToViewportPosition converts domain coordinates to viewport percentages.
// Values outside the projected band are not rejected; they simply land
// outside 0..100 and it is up to the caller to keep markers in bounds.
// A degenerate projection falls back to DefaultProjection.
func (p Projection) ToViewportPosition(lat, lon float64) (x, y float64) {
	if !p.valid() {
		p = DefaultProjection
	}
	x = (lon - p.MinLon) / (p.MaxLon - p.MinLon) * 100
	y = (lat - p.MinLat) / (p.MaxLat - p.MinLat) * 100
	return x, y
}

// ToViewportPosition projects with DefaultProjection.
func ToViewportPosition(lat, lon float64) (x, y float64) {
	return DefaultProjection.ToViewportPosition(lat, lon)
}
