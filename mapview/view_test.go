package mapview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web/arkmap/cluster"
	"web/arkmap/viewport"
)

func newTestView() *View {
	locs := []cluster.Location{
		{ID: "a", Coords: &cluster.Coordinates{Lat: 50, Lon: 50}, Category: "cave"},
		{ID: "b", Coords: &cluster.Coordinates{Lat: 50, Lon: 51}, Category: "cave"},
		{ID: "c", Coords: &cluster.Coordinates{Lat: 50, Lon: 52}, Category: "artifact"},
		{ID: "far", Coords: &cluster.Coordinates{Lat: 10, Lon: 90}},
		{ID: "nowhere"},
	}
	catalog := &cluster.Catalog{ID: "test0001", Name: "test", Locations: locs}
	return New(catalog, cluster.NewEngine(cluster.DefaultOptions()), viewport.DefaultOptions())
}

func mouse(kind viewport.EventKind, x, y float64) viewport.Event {
	return viewport.Event{Kind: kind, Source: viewport.SourceMouse, Points: []viewport.Point{{X: x, Y: y}}}
}

func TestInitialSnapshot(t *testing.T) {
	s := newTestView().Snapshot()

	assert.Equal(t, 1.0, s.Zoom)
	assert.Equal(t, viewport.Point{}, s.Pan)
	assert.True(t, s.Clustering)
	assert.False(t, s.DarkOverlay)
	assert.Equal(t, viewport.PhaseIdle, s.Gesture)
	assert.Equal(t, 1, s.Unplaced)

	require.Len(t, s.Clusters, 1)
	assert.Equal(t, 3, s.Clusters[0].Count)
	assert.InDelta(t, 51.0, s.Clusters[0].X, 1e-9)
	assert.InDelta(t, 50.0, s.Clusters[0].Y, 1e-9)

	require.Len(t, s.Singles, 1)
	assert.Equal(t, "far", s.Singles[0].Location.ID)
	assert.InDelta(t, 90.0, s.Singles[0].X, 1e-9)
	assert.InDelta(t, 10.0, s.Singles[0].Y, 1e-9)
}

func TestZoomCommandsDissolveClusters(t *testing.T) {
	v := newTestView()

	require.NoError(t, v.Exec(CommandZoomIn))
	require.NoError(t, v.Exec(CommandZoomIn))
	s := v.Snapshot()
	assert.InDelta(t, 1.4, s.Zoom, 1e-9)
	assert.Len(t, s.Clusters, 1)

	require.NoError(t, v.Exec(CommandZoomIn))
	s = v.Snapshot()
	assert.InDelta(t, 1.6, s.Zoom, 1e-9)
	assert.Empty(t, s.Clusters)
	assert.Len(t, s.Singles, 4)

	require.NoError(t, v.Exec(CommandZoomOut))
	assert.Len(t, v.Snapshot().Clusters, 1)
}

func TestToggleCommands(t *testing.T) {
	v := newTestView()

	require.NoError(t, v.Exec(CommandToggleClustering))
	s := v.Snapshot()
	assert.False(t, s.Clustering)
	assert.Empty(t, s.Clusters)
	assert.Len(t, s.Singles, 4)

	require.NoError(t, v.Exec(CommandToggleClustering))
	assert.Len(t, v.Snapshot().Clusters, 1)

	require.NoError(t, v.Exec(CommandToggleDarkOverlay))
	assert.True(t, v.Snapshot().DarkOverlay)
	require.NoError(t, v.Exec(CommandToggleDarkOverlay))
	assert.False(t, v.Snapshot().DarkOverlay)

	err := v.Exec(Command("spin"))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDragThenReset(t *testing.T) {
	v := newTestView()

	assert.True(t, v.HandleEvent(mouse(viewport.EventDown, 100, 100)))
	assert.Equal(t, viewport.PhaseDragging, v.Snapshot().Gesture)
	v.HandleEvent(mouse(viewport.EventMove, 150, 120))
	assert.Equal(t, viewport.Point{X: 50, Y: 20}, v.Snapshot().Pan)

	require.NoError(t, v.Exec(CommandZoomIn))
	require.NoError(t, v.Exec(CommandReset))
	s := v.Snapshot()
	assert.Equal(t, 1.0, s.Zoom)
	assert.Equal(t, viewport.Point{}, s.Pan)
	assert.Equal(t, viewport.PhaseIdle, s.Gesture, "reset drops the gesture")

	assert.False(t, v.HandleEvent(mouse(viewport.EventMove, 300, 300)))
	assert.Equal(t, viewport.Point{}, v.Snapshot().Pan)
}

func TestWheelZoom(t *testing.T) {
	v := newTestView()
	v.HandleEvent(viewport.Event{Kind: viewport.EventWheel, DeltaY: 100})
	assert.InDelta(t, 0.9, v.State().Zoom, 1e-9)
}

func TestHover(t *testing.T) {
	v := newTestView()

	require.NoError(t, v.Hover("far"))
	assert.Equal(t, "far", v.Snapshot().Hovered)

	assert.ErrorIs(t, v.Hover("ghost"), ErrLocationNotFound)
	assert.Equal(t, "far", v.Snapshot().Hovered)

	require.NoError(t, v.Hover(""))
	assert.Empty(t, v.Snapshot().Hovered)
}

func TestLayoutReusedUntilZoomChanges(t *testing.T) {
	v := newTestView()

	first := v.Layout()
	v.HandleEvent(mouse(viewport.EventDown, 0, 0))
	v.HandleEvent(mouse(viewport.EventMove, 40, 40))
	assert.Equal(t, first, v.Layout(), "pan alone keeps the layout")

	require.NoError(t, v.Exec(CommandZoomIn))
	assert.Equal(t, 1.0, v.cacheKey.zoom)
	v.Layout()
	assert.InDelta(t, 1.2, v.cacheKey.zoom, 1e-9)
}

func TestSnapshotIsDetached(t *testing.T) {
	v := newTestView()

	s := v.Snapshot()
	require.Len(t, s.Clusters, 1)
	require.Len(t, s.Singles, 1)
	s.Clusters[0].X = -1
	s.Clusters[0].Members[0].ID = "mutated"
	s.Clusters[0].Members[0].Coords.Lat = -1
	s.Singles[0].Location.Coords.Lon = -1

	again := v.Snapshot()
	assert.InDelta(t, 51.0, again.Clusters[0].X, 1e-9)
	assert.Equal(t, "a", again.Clusters[0].Members[0].ID)
	assert.Equal(t, 50.0, again.Clusters[0].Members[0].Coords.Lat)
	assert.Equal(t, 90.0, again.Singles[0].Location.Coords.Lon)
	assert.Equal(t, 50.0, v.Catalog().Locations[0].Coords.Lat)
}

func TestClose(t *testing.T) {
	v := newTestView()
	v.HandleEvent(mouse(viewport.EventDown, 10, 10))

	v.Close()
	assert.True(t, v.Closed())
	assert.Equal(t, viewport.PhaseIdle, v.Snapshot().Gesture)

	assert.False(t, v.HandleEvent(mouse(viewport.EventMove, 50, 50)))
	assert.NoError(t, v.Exec(CommandZoomIn))
	assert.Equal(t, 1.0, v.Snapshot().Zoom)
	v.Close()
}

func TestSnapshotJSON(t *testing.T) {
	v := newTestView()
	v.HandleEvent(mouse(viewport.EventDown, 1, 1))

	data, err := json.Marshal(v.Snapshot())
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, viewport.PhaseDragging, decoded.Gesture)
	assert.Len(t, decoded.Clusters, 1)
	assert.Equal(t, "far", decoded.Singles[0].Location.ID)
}

func TestParseCommand(t *testing.T) {
	for _, c := range Commands() {
		got, err := ParseCommand(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCommand("reset-view")
	require.NoError(t, err)
	assert.Equal(t, CommandReset, got)

	_, err = ParseCommand("fly")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
