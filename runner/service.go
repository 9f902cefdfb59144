package runner

import (
	"context"
	"time"

	"web/arkmap/cluster"
	"web/arkmap/mapview"
	"web/arkmap/viewport"
)

// ViewInfo describes a mounted view.
type ViewInfo struct {
	ID           string    `json:"id"`
	CatalogID    string    `json:"catalogId"`
	CatalogName  string    `json:"catalogName"`
	NumLocations int       `json:"numLocations"`
	MountedAt    time.Time `json:"mountedAt"`
}

// Service is the view runner as seen by the API gateway. ViewRunner
// implements it in process and Client implements it over gRPC.
type Service interface {
	ListCatalogs(ctx context.Context) ([]cluster.CatalogInfo, error)
	Mount(ctx context.Context, catalogID string) (ViewInfo, error)
	Unmount(ctx context.Context, viewID string) error
	View(ctx context.Context, viewID string) (ViewInfo, error)
	Dispatch(ctx context.Context, viewID string, ev viewport.Event) (mapview.Snapshot, error)
	Exec(ctx context.Context, viewID string, cmd mapview.Command) (mapview.Snapshot, error)
	Hover(ctx context.Context, viewID, locationID string) (mapview.Snapshot, error)
	Snapshot(ctx context.Context, viewID string) (mapview.Snapshot, error)
	Summary(ctx context.Context, viewID string) (cluster.LayoutSummary, error)
	GeoJSON(ctx context.Context, viewID string) (*cluster.FeatureCollection, error)
}
