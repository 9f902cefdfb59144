package runner

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"web/arkmap/mapview"
	"web/arkmap/viewport"
)

func newRemote(t *testing.T) (*Client, *ViewRunner) {
	t.Helper()
	r, _ := newTestRunner(t, Options{})

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterServer(s, r)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	client, err := Dial("bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, r
}

func TestClientRoundTrip(t *testing.T) {
	client, r := newRemote(t)
	ctx := context.Background()

	catalogs, err := client.ListCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, catalogs, 1)
	assert.Equal(t, "mem00001", catalogs[0].ID)

	info, err := client.Mount(ctx, "mem00001")
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumViews())

	got, err := client.View(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.CatalogID, got.CatalogID)

	snap, err := client.Snapshot(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, snap.Clusters, 1)
	assert.Equal(t, 3, snap.Clusters[0].Count)
	assert.Equal(t, viewport.PhaseIdle, snap.Gesture)

	_, err = client.Dispatch(ctx, info.ID, viewport.Event{Kind: viewport.EventDown, Points: []viewport.Point{{X: 100, Y: 100}}})
	require.NoError(t, err)
	snap, err = client.Dispatch(ctx, info.ID, viewport.Event{Kind: viewport.EventMove, Points: []viewport.Point{{X: 150, Y: 120}}})
	require.NoError(t, err)
	assert.Equal(t, viewport.Point{X: 50, Y: 20}, snap.Pan)
	assert.Equal(t, viewport.PhaseDragging, snap.Gesture)

	snap, err = client.Exec(ctx, info.ID, mapview.CommandReset)
	require.NoError(t, err)
	assert.Equal(t, viewport.Point{}, snap.Pan)

	snap, err = client.Hover(ctx, info.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.Hovered)

	summary, err := client.Summary(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalPoints)
	assert.InDelta(t, 66.666, summary.Categories["cave"], 0.01)

	fc, err := client.GeoJSON(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	require.NoError(t, client.Unmount(ctx, info.ID))
	assert.Equal(t, 0, r.NumViews())
}

func TestClientErrorsKeepSentinels(t *testing.T) {
	client, _ := newRemote(t)
	ctx := context.Background()

	_, err := client.Mount(ctx, "nope")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	_, err = client.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, ErrViewNotFound)

	info, err := client.Mount(ctx, "mem00001")
	require.NoError(t, err)
	_, err = client.Exec(ctx, info.ID, mapview.Command("barrel-roll"))
	assert.ErrorIs(t, err, mapview.ErrUnknownCommand)
	_, err = client.Hover(ctx, info.ID, "ghost")
	assert.ErrorIs(t, err, mapview.ErrLocationNotFound)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{ErrViewNotFound, codes.NotFound},
		{ErrCatalogNotFound, codes.NotFound},
		{mapview.ErrUnknownCommand, codes.InvalidArgument},
		{context.Canceled, codes.Canceled},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		st, ok := status.FromError(toStatus(tt.err))
		require.True(t, ok)
		assert.Equal(t, tt.code, st.Code(), tt.err.Error())
	}
	assert.NoError(t, toStatus(nil))

	passthrough := status.Error(codes.Unavailable, "down")
	assert.Equal(t, passthrough, toStatus(passthrough))
	assert.Equal(t, passthrough, fromStatus(passthrough))
}
