package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "indicatorobserver.control.v1.ObserverControl"

const (
	methodListIndicators = "/" + ServiceName + "/ListIndicators"
	methodGetLatest      = "/" + ServiceName + "/GetLatest"
	methodCompare        = "/" + ServiceName + "/Compare"
	methodCompareLatest  = "/" + ServiceName + "/CompareLatest"
	methodInvalidate     = "/" + ServiceName + "/Invalidate"
)

// -----------------------------------------------------------------------------
// ObserverControlServer is the server API. Requests and responses are
// protobuf Structs carrying the same JSON shapes as the HTTP API.
// -----------------------------------------------------------------------------

type ObserverControlServer interface {
	ListIndicators(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLatest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompareLatest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Invalidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterObserverControlServer(s grpc.ServiceRegistrar, srv ObserverControlServer) {
	s.RegisterService(&ObserverControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------

var ObserverControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ObserverControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListIndicators", Handler: listIndicatorsHandler},
		{MethodName: "GetLatest", Handler: structHandler(methodGetLatest, ObserverControlServer.GetLatest)},
		{MethodName: "Compare", Handler: structHandler(methodCompare, ObserverControlServer.Compare)},
		{MethodName: "CompareLatest", Handler: structHandler(methodCompareLatest, ObserverControlServer.CompareLatest)},
		{MethodName: "Invalidate", Handler: structHandler(methodInvalidate, ObserverControlServer.Invalidate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "indicatorobserver/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func listIndicatorsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ObserverControlServer).ListIndicators(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListIndicators}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ObserverControlServer).ListIndicators(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

type structMethod func(ObserverControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(fullMethod string, method structMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(ObserverControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(ObserverControlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------
// ObserverControlClient
// -----------------------------------------------------------------------------

type ObserverControlClient struct {
	cc grpc.ClientConnInterface
}

func NewObserverControlClient(cc grpc.ClientConnInterface) *ObserverControlClient {
	return &ObserverControlClient{cc: cc}
}

func (c *ObserverControlClient) ListIndicators(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListIndicators, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ObserverControlClient) GetLatest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetLatest, in, opts...)
}

func (c *ObserverControlClient) Compare(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCompare, in, opts...)
}

func (c *ObserverControlClient) CompareLatest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCompareLatest, in, opts...)
}

func (c *ObserverControlClient) Invalidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodInvalidate, in, opts...)
}

func (c *ObserverControlClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
