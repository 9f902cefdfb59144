package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"web/arkmap/cluster"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numPoints   = flag.Int("points", 100000, "number of locations to generate")
	zoomLevel   = flag.Float64("zoom", 1, "zoom factor to profile")
	useGrid     = flag.Bool("grid", true, "use the grid index regardless of catalog size")
	testall     = flag.Bool("testall", false, "test all configurations")
)

func newEngine(grid bool) *cluster.Engine {
	opts := cluster.DefaultOptions()
	if grid {
		opts.GridThreshold = 1
	} else {
		opts.GridThreshold = 1 << 30
	}
	return cluster.NewEngine(opts)
}

func runSingleProfile(numPoints int, zoom float64, grid bool) {
	fmt.Printf("Profiling with %d locations at zoom %.2f\n", numPoints, zoom)

	engine := newEngine(grid)
	locations := cluster.GenerateTestLocations(numPoints, 42)

	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	layout := engine.ComputeLayout(locations, zoom, true)
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024

	summary := layout.Summary()
	fmt.Printf("Layout completed in %v\n", duration)
	fmt.Printf("Clusters: %d, singles: %d, largest cluster: %d, unplaced: %d\n",
		summary.NumClusters, summary.NumSinglePoints, summary.LargestCluster, summary.Unplaced)
	fmt.Printf("Memory allocated: %.2f MB\n", allocMB)
	fmt.Printf("Memory usage: %.2f MB\n", float64(memStatsAfter.Alloc)/1024/1024)
}

func runProfileBattery() {
	pointCounts := []int{1000, 10000, 50000, 100000}
	zoomLevels := []float64{0.5, 0.8, 1, 1.2, 1.4}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	fmt.Printf("%-10s | %-6s | %-8s | %-15s | %-10s | %-10s | %-8s\n",
		"Points", "Zoom", "Method", "Duration", "Memory (MB)", "Clusters", "GC Runs")
	fmt.Printf("%s\n", "-------------------------------------------------------------------------------")

	for _, points := range pointCounts {
		locations := cluster.GenerateTestLocations(points, 42)
		for _, zoom := range zoomLevels {
			for _, grid := range []bool{false, true} {
				// the linear scan is quadratic; skip it where it would dominate the run
				if !grid && points > 10000 {
					continue
				}
				engine := newEngine(grid)
				method := "Linear"
				if grid {
					method = "Grid"
				}

				var memStatsBefore, memStatsAfter runtime.MemStats
				runtime.ReadMemStats(&memStatsBefore)

				start := time.Now()
				layout := engine.ComputeLayout(locations, zoom, true)
				duration := time.Since(start)

				runtime.ReadMemStats(&memStatsAfter)
				memMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
				gcRuns := memStatsAfter.NumGC - memStatsBefore.NumGC

				fmt.Printf("%-10d | %-6.2f | %-8s | %-15s | %-10.2f | %-10d | %-8d\n",
					points, zoom, method, duration, memMB, len(layout.Clusters), gcRuns)
			}
		}

		fmt.Printf("%s\n", "-------------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	// Set up CPU profiling if requested
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numPoints, *zoomLevel, *useGrid)
	}

	// Write memory profile if requested
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	// Write heap profile if requested
	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			fmt.Fprintf(os.Stderr, "Could not find heap profile\n")
			return
		}

		if err := memProfile.WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
