package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	Transformer_ServiceName              = "flagfold.v1.Transformer"
	Transformer_Transform_FullMethodName = "/flagfold.v1.Transformer/Transform"
)

// TransformerClient is the client API for the Transformer service. Requests
// and responses travel as google.protobuf.Struct; see Request and Response
// for their layout.
type TransformerClient interface {
	Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type transformerClient struct {
	cc grpc.ClientConnInterface
}

func NewTransformerClient(cc grpc.ClientConnInterface) TransformerClient {
	return &transformerClient{cc}
}

func (c *transformerClient) Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Transformer_Transform_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformerServer is the server API for the Transformer service.
type TransformerServer interface {
	Transform(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterTransformerServer(s grpc.ServiceRegistrar, srv TransformerServer) {
	s.RegisterService(&Transformer_ServiceDesc, srv)
}

func _Transformer_Transform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerServer).Transform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Transformer_Transform_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformerServer).Transform(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var Transformer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: Transformer_ServiceName,
	HandlerType: (*TransformerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transform",
			Handler:    _Transformer_Transform_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flagfold/v1/transformer",
}
