package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"web/arkmap/cluster"
	"web/arkmap/mapview"
	"web/arkmap/viewport"
)

const (
	serviceName = "arkmap.runner.ViewRunner"
	codecName   = "json"
)

// jsonCodec carries the runner's plain Go messages over gRPC.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type MountRequest struct {
	CatalogID string `json:"catalogId"`
}

type ViewRequest struct {
	ViewID string `json:"viewId"`
}

type DispatchRequest struct {
	ViewID string         `json:"viewId"`
	Event  viewport.Event `json:"event"`
}

type ExecRequest struct {
	ViewID  string          `json:"viewId"`
	Command mapview.Command `json:"command"`
}

type HoverRequest struct {
	ViewID     string `json:"viewId"`
	LocationID string `json:"locationId"`
}

type CatalogList struct {
	Catalogs []cluster.CatalogInfo `json:"catalogs"`
}

func unary[Req, Resp any](name string, call func(Service, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				resp, err := call(srv.(Service), ctx, req.(*Req))
				if err != nil {
					return nil, toStatus(err)
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + name,
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListCatalogs", func(s Service, ctx context.Context, _ *Empty) (CatalogList, error) {
			infos, err := s.ListCatalogs(ctx)
			return CatalogList{Catalogs: infos}, err
		}),
		unary("Mount", func(s Service, ctx context.Context, req *MountRequest) (ViewInfo, error) {
			return s.Mount(ctx, req.CatalogID)
		}),
		unary("Unmount", func(s Service, ctx context.Context, req *ViewRequest) (Empty, error) {
			return Empty{}, s.Unmount(ctx, req.ViewID)
		}),
		unary("View", func(s Service, ctx context.Context, req *ViewRequest) (ViewInfo, error) {
			return s.View(ctx, req.ViewID)
		}),
		unary("Dispatch", func(s Service, ctx context.Context, req *DispatchRequest) (mapview.Snapshot, error) {
			return s.Dispatch(ctx, req.ViewID, req.Event)
		}),
		unary("Exec", func(s Service, ctx context.Context, req *ExecRequest) (mapview.Snapshot, error) {
			return s.Exec(ctx, req.ViewID, req.Command)
		}),
		unary("Hover", func(s Service, ctx context.Context, req *HoverRequest) (mapview.Snapshot, error) {
			return s.Hover(ctx, req.ViewID, req.LocationID)
		}),
		unary("Snapshot", func(s Service, ctx context.Context, req *ViewRequest) (mapview.Snapshot, error) {
			return s.Snapshot(ctx, req.ViewID)
		}),
		unary("Summary", func(s Service, ctx context.Context, req *ViewRequest) (cluster.LayoutSummary, error) {
			return s.Summary(ctx, req.ViewID)
		}),
		unary("GeoJSON", func(s Service, ctx context.Context, req *ViewRequest) (*cluster.FeatureCollection, error) {
			return s.GeoJSON(ctx, req.ViewID)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arkmap/runner",
}

// RegisterServer exposes svc on a gRPC server.
func RegisterServer(s *grpc.Server, svc Service) {
	s.RegisterService(&serviceDesc, svc)
}

// Client is a Service backed by a remote runner.
type Client struct {
	conn *grpc.ClientConn
}

var _ Service = (*Client)(nil)

// Dial connects to a runner. Extra options are appended to the defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to view runner: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp)
	if err != nil {
		return fromStatus(err)
	}
	return nil
}

func (c *Client) ListCatalogs(ctx context.Context) ([]cluster.CatalogInfo, error) {
	var resp CatalogList
	if err := c.invoke(ctx, "ListCatalogs", &Empty{}, &resp); err != nil {
		return nil, err
	}
	if resp.Catalogs == nil {
		resp.Catalogs = []cluster.CatalogInfo{}
	}
	return resp.Catalogs, nil
}

func (c *Client) Mount(ctx context.Context, catalogID string) (ViewInfo, error) {
	var resp ViewInfo
	err := c.invoke(ctx, "Mount", &MountRequest{CatalogID: catalogID}, &resp)
	return resp, err
}

func (c *Client) Unmount(ctx context.Context, viewID string) error {
	return c.invoke(ctx, "Unmount", &ViewRequest{ViewID: viewID}, &Empty{})
}

func (c *Client) View(ctx context.Context, viewID string) (ViewInfo, error) {
	var resp ViewInfo
	err := c.invoke(ctx, "View", &ViewRequest{ViewID: viewID}, &resp)
	return resp, err
}

func (c *Client) Dispatch(ctx context.Context, viewID string, ev viewport.Event) (mapview.Snapshot, error) {
	var resp mapview.Snapshot
	err := c.invoke(ctx, "Dispatch", &DispatchRequest{ViewID: viewID, Event: ev}, &resp)
	return resp, err
}

func (c *Client) Exec(ctx context.Context, viewID string, cmd mapview.Command) (mapview.Snapshot, error) {
	var resp mapview.Snapshot
	err := c.invoke(ctx, "Exec", &ExecRequest{ViewID: viewID, Command: cmd}, &resp)
	return resp, err
}

func (c *Client) Hover(ctx context.Context, viewID, locationID string) (mapview.Snapshot, error) {
	var resp mapview.Snapshot
	err := c.invoke(ctx, "Hover", &HoverRequest{ViewID: viewID, LocationID: locationID}, &resp)
	return resp, err
}

func (c *Client) Snapshot(ctx context.Context, viewID string) (mapview.Snapshot, error) {
	var resp mapview.Snapshot
	err := c.invoke(ctx, "Snapshot", &ViewRequest{ViewID: viewID}, &resp)
	return resp, err
}

func (c *Client) Summary(ctx context.Context, viewID string) (cluster.LayoutSummary, error) {
	var resp cluster.LayoutSummary
	err := c.invoke(ctx, "Summary", &ViewRequest{ViewID: viewID}, &resp)
	return resp, err
}

func (c *Client) GeoJSON(ctx context.Context, viewID string) (*cluster.FeatureCollection, error) {
	resp := &cluster.FeatureCollection{}
	if err := c.invoke(ctx, "GeoJSON", &ViewRequest{ViewID: viewID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
