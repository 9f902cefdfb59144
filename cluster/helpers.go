package cluster

import (
	"fmt"
	"math/rand"
)

type LayoutSummary struct {
	TotalPoints     int `json:"totalPoints"`
	Unplaced        int `json:"unplaced"`
	NumClusters     int `json:"numClusters"`
	NumSinglePoints int `json:"numSinglePoints"`
	LargestCluster  int `json:"largestCluster"`
	// Distributions are percentages of placed locations.
	Categories   map[string]float64 `json:"categories"`
	Difficulties map[string]float64 `json:"difficulties"`
}

// Summary aggregates counts and tag distributions over the placed locations.
func (l Layout) Summary() LayoutSummary {
	summary := LayoutSummary{
		Unplaced:        l.Unplaced,
		NumClusters:     len(l.Clusters),
		NumSinglePoints: len(l.Singles),
		Categories:      make(map[string]float64),
		Difficulties:    make(map[string]float64),
	}

	categories := make(map[string]int)
	difficulties := make(map[string]int)
	count := func(loc Location) {
		summary.TotalPoints++
		categories[loc.Category]++
		difficulties[loc.Difficulty]++
	}

	for _, c := range l.Clusters {
		if c.Count > summary.LargestCluster {
			summary.LargestCluster = c.Count
		}
		for _, m := range c.Members {
			count(m)
		}
	}
	for _, s := range l.Singles {
		count(s)
	}

	if summary.TotalPoints == 0 {
		return summary
	}
	total := float64(summary.TotalPoints)
	for k, n := range categories {
		summary.Categories[k] = float64(n) / total * 100
	}
	for k, n := range difficulties {
		summary.Difficulties[k] = float64(n) / total * 100
	}
	return summary
}

var (
	testCategories   = []string{"cave", "artifact", "base-spot", "obelisk", "resource"}
	testDifficulties = []string{"easy", "medium", "hard"}
)

// GenerateTestLocations creates n pseudo-random locations. The same seed
// always yields the same catalog. Roughly one in twenty has no coordinates.
func GenerateTestLocations(n int, seed int64) []Location {
	r := rand.New(rand.NewSource(seed))
	locations := make([]Location, n)

	for i := 0; i < n; i++ {
		loc := Location{
			ID:         fmt.Sprintf("loc-%d", i+1),
			Name:       fmt.Sprintf("Location %d", i+1),
			Category:   testCategories[r.Intn(len(testCategories))],
			Difficulty: testDifficulties[r.Intn(len(testDifficulties))],
		}
		if r.Intn(20) != 0 {
			loc.Coords = &Coordinates{
				Lat: r.Float64() * 100,
				Lon: r.Float64() * 100,
			}
		}
		locations[i] = loc
	}

	return locations
}
