package cluster

// GeoJSON types
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ToGeoJSON converts the layout to a FeatureCollection of points in
// viewport space, clusters first.
func (l Layout) ToGeoJSON() *FeatureCollection {
	features := make([]Feature, 0, len(l.Clusters)+len(l.Singles))

	for _, c := range l.Clusters {
		members := make([]string, len(c.Members))
		for i, m := range c.Members {
			members[i] = m.ID
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{c.X, c.Y},
			},
			Properties: map[string]interface{}{
				"cluster":     true,
				"id":          c.ID,
				"point_count": c.Count,
				"members":     members,
			},
		})
	}

	for _, s := range l.Singles {
		x, y := l.Position(s)
		properties := map[string]interface{}{
			"cluster":     false,
			"id":          s.ID,
			"point_count": 1,
		}
		if s.Name != "" {
			properties["name"] = s.Name
		}
		if s.Category != "" {
			properties["category"] = s.Category
		}
		if s.Difficulty != "" {
			properties["difficulty"] = s.Difficulty
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{x, y},
			},
			Properties: properties,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
