package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "posture.v1.PostureService"

const (
	generateSessionMethod = "/" + ServiceName + "/GenerateSession"
	streamGridMethod      = "/" + ServiceName + "/StreamGrid"
)

// PostureServiceServer сервер генерации сессий.
// Сообщения - google.protobuf.Struct с теми же полями, что и HTTP JSON.
type PostureServiceServer interface {
	GenerateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamGrid(*structpb.Struct, PostureService_StreamGridServer) error
}

type PostureService_StreamGridServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type postureServiceStreamGridServer struct {
	grpc.ServerStream
}

func (x *postureServiceStreamGridServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterPostureServiceServer регистрирует сервис на gRPC сервере
func RegisterPostureServiceServer(s grpc.ServiceRegistrar, srv PostureServiceServer) {
	s.RegisterService(&PostureService_ServiceDesc, srv)
}

var PostureService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PostureServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GenerateSession",
			Handler:    _PostureService_GenerateSession_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamGrid",
			Handler:       _PostureService_StreamGrid_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "posture/v1/posture.proto",
}

func _PostureService_GenerateSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PostureServiceServer).GenerateSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: generateSessionMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PostureServiceServer).GenerateSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _PostureService_StreamGrid_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PostureServiceServer).StreamGrid(in, &postureServiceStreamGridServer{stream})
}

// PostureServiceClient клиент сервиса
type PostureServiceClient interface {
	GenerateSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	StreamGrid(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (PostureService_StreamGridClient, error)
}

type PostureService_StreamGridClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type postureServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPostureServiceClient(cc grpc.ClientConnInterface) PostureServiceClient {
	return &postureServiceClient{cc: cc}
}

func (c *postureServiceClient) GenerateSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, generateSessionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *postureServiceClient) StreamGrid(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (PostureService_StreamGridClient, error) {
	stream, err := c.cc.NewStream(ctx, &PostureService_ServiceDesc.Streams[0], streamGridMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &postureServiceStreamGridClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type postureServiceStreamGridClient struct {
	grpc.ClientStream
}

func (x *postureServiceStreamGridClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
