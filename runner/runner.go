package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"web/arkmap/cluster"
	"web/arkmap/logger"
	"web/arkmap/mapview"
	"web/arkmap/metrics"
	"web/arkmap/viewport"
)

var (
	ErrViewNotFound    = errors.New("view not found")
	ErrCatalogNotFound = cluster.ErrCatalogNotFound
)

type Options struct {
	// CatalogDir holds catalog snapshots loaded on first mount.
	CatalogDir string
	// MaxViews caps mounted views; the least recently used one is
	// unmounted to make room.
	MaxViews int
	// IdleTimeout unmounts views nobody has touched for this long. Zero
	// disables the sweeper.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Engine        cluster.Options
	Viewport      viewport.Options
}

func DefaultOptions() Options {
	return Options{
		CatalogDir:    "data/catalogs",
		MaxViews:      64,
		IdleTimeout:   30 * time.Minute,
		SweepInterval: 5 * time.Minute,
		Engine:        cluster.DefaultOptions(),
		Viewport:      viewport.DefaultOptions(),
	}
}

type mountedView struct {
	mu           sync.Mutex
	view         *mapview.View
	info         ViewInfo
	lastAccessed atomic.Int64
}

func (m *mountedView) touch(now time.Time) {
	m.lastAccessed.Store(now.UnixNano())
}

func (m *mountedView) idleSince() time.Time {
	return time.Unix(0, m.lastAccessed.Load())
}

// ViewRunner hosts mounted map views. Each view is serialized by its own
// mutex; views share nothing except read-only catalogs.
type ViewRunner struct {
	opts   Options
	engine *cluster.Engine

	viewLock sync.RWMutex
	views    map[string]*mountedView

	catalogLock sync.Mutex
	catalogs    map[string]*cluster.Catalog
	pinned      map[string]bool

	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Service = (*ViewRunner)(nil)

func NewViewRunner(opts Options) *ViewRunner {
	if opts.MaxViews <= 0 {
		opts.MaxViews = DefaultOptions().MaxViews
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultOptions().SweepInterval
	}

	r := &ViewRunner{
		opts:     opts,
		engine:   cluster.NewEngine(opts.Engine),
		views:    make(map[string]*mountedView),
		catalogs: make(map[string]*cluster.Catalog),
		pinned:   make(map[string]bool),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if opts.IdleTimeout > 0 {
		go r.cleanupInactiveViews()
	} else {
		close(r.done)
	}
	return r
}

// AddCatalog registers an in-memory catalog. It is never dropped by the
// sweeper and shadows a snapshot with the same ID.
func (r *ViewRunner) AddCatalog(c *cluster.Catalog) {
	r.catalogLock.Lock()
	defer r.catalogLock.Unlock()
	r.catalogs[c.ID] = c
	r.pinned[c.ID] = true
}

// Close stops the sweeper and unmounts every view.
func (r *ViewRunner) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		r.viewLock.Lock()
		views := r.views
		r.views = make(map[string]*mountedView)
		r.viewLock.Unlock()

		for _, mv := range views {
			r.closeView(mv, "shutdown")
		}
	})
}

func (r *ViewRunner) cleanupInactiveViews() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweepIdle()
		}
	}
}

// sweepIdle unmounts views idle beyond IdleTimeout and forgets snapshot
// catalogs no view uses any more.
func (r *ViewRunner) sweepIdle() {
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.viewLock.Lock()
	var idle []*mountedView
	inUse := make(map[string]bool, len(r.views))
	for id, mv := range r.views {
		if mv.idleSince().Before(cutoff) {
			idle = append(idle, mv)
			delete(r.views, id)
			continue
		}
		inUse[mv.info.CatalogID] = true
	}
	r.viewLock.Unlock()

	for _, mv := range idle {
		r.closeView(mv, "idle")
	}

	r.catalogLock.Lock()
	for id := range r.catalogs {
		if !inUse[id] && !r.pinned[id] {
			delete(r.catalogs, id)
		}
	}
	r.catalogLock.Unlock()
}

func (r *ViewRunner) closeView(mv *mountedView, reason string) {
	mv.mu.Lock()
	mv.view.Close()
	mv.mu.Unlock()

	metrics.ActiveViews.Dec()
	if reason != "unmount" {
		metrics.ViewsEvicted.WithLabelValues(reason).Inc()
	}
	logger.Log.WithFields(logrus.Fields{
		"view":    mv.info.ID,
		"catalog": mv.info.CatalogID,
		"reason":  reason,
	}).Info("view unmounted")
}

func (r *ViewRunner) loadCatalogIfNeeded(id string) (*cluster.Catalog, error) {
	r.catalogLock.Lock()
	defer r.catalogLock.Unlock()

	if c, ok := r.catalogs[id]; ok {
		metrics.CatalogLoads.WithLabelValues("cached").Inc()
		return c, nil
	}

	path, err := cluster.FindCatalogFile(r.opts.CatalogDir, id)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("missing").Inc()
		return nil, err
	}

	start := time.Now()
	c, err := cluster.LoadCatalogFile(path)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load catalog %s: %w", id, err)
	}
	metrics.CatalogLoads.WithLabelValues("loaded").Inc()
	logger.Log.WithFields(logrus.Fields{
		"catalog":   id,
		"path":      path,
		"locations": len(c.Locations),
		"took":      time.Since(start),
	}).Info("catalog loaded")

	r.catalogs[id] = c
	return c, nil
}

func (r *ViewRunner) ListCatalogs(ctx context.Context) ([]cluster.CatalogInfo, error) {
	infos, err := cluster.ListCatalogs(r.opts.CatalogDir)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(infos))
	for _, info := range infos {
		onDisk[info.ID] = true
	}

	r.catalogLock.Lock()
	for id := range r.pinned {
		if onDisk[id] {
			continue
		}
		c := r.catalogs[id]
		infos = append(infos, cluster.CatalogInfo{
			ID:           c.ID,
			Name:         c.Name,
			NumLocations: len(c.Locations),
			Timestamp:    c.CreatedAt,
			Format:       "memory",
		})
	}
	r.catalogLock.Unlock()

	if infos == nil {
		infos = []cluster.CatalogInfo{}
	}
	return infos, nil
}

func (r *ViewRunner) Mount(ctx context.Context, catalogID string) (ViewInfo, error) {
	if err := ctx.Err(); err != nil {
		return ViewInfo{}, err
	}

	c, err := r.loadCatalogIfNeeded(catalogID)
	if err != nil {
		return ViewInfo{}, err
	}

	now := r.now()
	mv := &mountedView{
		view: mapview.New(c, r.engine, r.opts.Viewport),
		info: ViewInfo{
			ID:           uuid.New().String(),
			CatalogID:    c.ID,
			CatalogName:  c.Name,
			NumLocations: len(c.Locations),
			MountedAt:    now,
		},
	}
	mv.touch(now)

	r.viewLock.Lock()
	var evicted *mountedView
	if len(r.views) >= r.opts.MaxViews {
		evicted = r.oldestLocked()
		if evicted != nil {
			delete(r.views, evicted.info.ID)
		}
	}
	r.views[mv.info.ID] = mv
	r.viewLock.Unlock()

	if evicted != nil {
		r.closeView(evicted, "capacity")
	}

	metrics.ActiveViews.Inc()
	logger.Log.WithFields(logrus.Fields{
		"view":    mv.info.ID,
		"catalog": c.ID,
	}).Info("view mounted")
	return mv.info, nil
}

func (r *ViewRunner) oldestLocked() *mountedView {
	var oldest *mountedView
	for _, mv := range r.views {
		if oldest == nil || mv.idleSince().Before(oldest.idleSince()) {
			oldest = mv
		}
	}
	return oldest
}

func (r *ViewRunner) Unmount(ctx context.Context, viewID string) error {
	r.viewLock.Lock()
	mv, ok := r.views[viewID]
	delete(r.views, viewID)
	r.viewLock.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}
	r.closeView(mv, "unmount")
	return nil
}

// withView runs fn with the view locked.
func (r *ViewRunner) withView(ctx context.Context, viewID string, fn func(v *mapview.View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.viewLock.RLock()
	mv, ok := r.views[viewID]
	r.viewLock.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}

	mv.mu.Lock()
	defer mv.mu.Unlock()
	if mv.view.Closed() {
		return fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}
	mv.touch(r.now())
	return fn(mv.view)
}

func (r *ViewRunner) View(ctx context.Context, viewID string) (ViewInfo, error) {
	r.viewLock.RLock()
	mv, ok := r.views[viewID]
	r.viewLock.RUnlock()
	if !ok {
		return ViewInfo{}, fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}
	return mv.info, nil
}

func (r *ViewRunner) Dispatch(ctx context.Context, viewID string, ev viewport.Event) (mapview.Snapshot, error) {
	var snap mapview.Snapshot
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		v.HandleEvent(ev)
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

func (r *ViewRunner) Exec(ctx context.Context, viewID string, cmd mapview.Command) (mapview.Snapshot, error) {
	var snap mapview.Snapshot
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		if err := v.Exec(cmd); err != nil {
			return err
		}
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

func (r *ViewRunner) Hover(ctx context.Context, viewID, locationID string) (mapview.Snapshot, error) {
	var snap mapview.Snapshot
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		if err := v.Hover(locationID); err != nil {
			return err
		}
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

func (r *ViewRunner) Snapshot(ctx context.Context, viewID string) (mapview.Snapshot, error) {
	var snap mapview.Snapshot
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

func (r *ViewRunner) Summary(ctx context.Context, viewID string) (cluster.LayoutSummary, error) {
	var summary cluster.LayoutSummary
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		summary = v.Layout().Summary()
		return nil
	})
	return summary, err
}

func (r *ViewRunner) GeoJSON(ctx context.Context, viewID string) (*cluster.FeatureCollection, error) {
	var fc *cluster.FeatureCollection
	err := r.withView(ctx, viewID, func(v *mapview.View) error {
		fc = v.Layout().ToGeoJSON()
		return nil
	})
	return fc, err
}

// NumViews reports how many views are mounted.
func (r *ViewRunner) NumViews() int {
	r.viewLock.RLock()
	defer r.viewLock.RUnlock()
	return len(r.views)
}
