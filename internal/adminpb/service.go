package adminpb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name, matching what
// pkg/api's ReadOnlyInterceptor already expects on its method path
// ("/collabd.admin.v1.AdminService/...").
const ServiceName = "collabd.admin.v1.AdminService"

// Server is the admin service's method set.
type Server interface {
	GetDocMeta(ctx context.Context, req *GetDocMetaRequest) (*GetDocMetaResponse, error)
	ListActiveSessions(ctx context.Context, req *ListActiveSessionsRequest) (*ListActiveSessionsResponse, error)
	TriggerCompaction(ctx context.Context, req *TriggerCompactionRequest) (*TriggerCompactionResponse, error)
}

// RegisterAdminServiceServer registers srv on s under ServiceName, the
// hand-written equivalent of what protoc-gen-go-grpc would emit.
func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDocMeta", Handler: getDocMetaHandler},
		{MethodName: "ListActiveSessions", Handler: listActiveSessionsHandler},
		{MethodName: "TriggerCompaction", Handler: triggerCompactionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "collabd/admin/v1/admin.proto",
}

func getDocMetaHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDocMetaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetDocMeta(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/GetDocMeta"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).GetDocMeta(ctx, req.(*GetDocMetaRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listActiveSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListActiveSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).ListActiveSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/ListActiveSessions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).ListActiveSessions(ctx, req.(*ListActiveSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func triggerCompactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TriggerCompactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).TriggerCompaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/TriggerCompaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).TriggerCompaction(ctx, req.(*TriggerCompactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is the admin service's client-side method set.
type Client interface {
	GetDocMeta(ctx context.Context, req *GetDocMetaRequest, opts ...grpc.CallOption) (*GetDocMetaResponse, error)
	ListActiveSessions(ctx context.Context, req *ListActiveSessionsRequest, opts ...grpc.CallOption) (*ListActiveSessionsResponse, error)
	TriggerCompaction(ctx context.Context, req *TriggerCompactionRequest, opts ...grpc.CallOption) (*TriggerCompactionResponse, error)
}

type client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc as an admin service Client.
func NewClient(cc grpc.ClientConnInterface) Client { return &client{cc: cc} }

func (c *client) GetDocMeta(ctx context.Context, req *GetDocMetaRequest, opts ...grpc.CallOption) (*GetDocMetaResponse, error) {
	out := new(GetDocMetaResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetDocMeta", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ListActiveSessions(ctx context.Context, req *ListActiveSessionsRequest, opts ...grpc.CallOption) (*ListActiveSessionsResponse, error) {
	out := new(ListActiveSessionsResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListActiveSessions", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) TriggerCompaction(ctx context.Context, req *TriggerCompactionRequest, opts ...grpc.CallOption) (*TriggerCompactionResponse, error) {
	out := new(TriggerCompactionResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/TriggerCompaction", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
