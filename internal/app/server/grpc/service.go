package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dogify.Ledger"

// Full method names, as seen by interceptors.
const (
	MethodClassify    = "/" + ServiceName + "/Classify"
	MethodUpload      = "/" + ServiceName + "/Upload"
	MethodListImages  = "/" + ServiceName + "/ListImages"
	MethodDeleteImage = "/" + ServiceName + "/DeleteImage"
	MethodGetStats    = "/" + ServiceName + "/GetStats"
)

// MaxMessageBytes fits a 5 MiB image after base64 encoding.
const MaxMessageBytes = 8 << 20

// LedgerService is the server API of dogify.Ledger. Messages are
// well-known protobuf types; the field layout is documented on each method
// of LedgerServer.
type LedgerService interface {
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListImages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DeleteImage(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func unaryHandler[Req proto.Message](method string, newReq func() Req, call func(LedgerService, context.Context, Req) (interface{}, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerService), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerService), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }

// LedgerServiceDesc describes dogify.Ledger for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Classify",
			Handler: unaryHandler(MethodClassify, newStruct, func(s LedgerService, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.Classify(ctx, in)
			}),
		},
		{
			MethodName: "Upload",
			Handler: unaryHandler(MethodUpload, newStruct, func(s LedgerService, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.Upload(ctx, in)
			}),
		},
		{
			MethodName: "ListImages",
			Handler: unaryHandler(MethodListImages, newEmpty, func(s LedgerService, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return s.ListImages(ctx, in)
			}),
		},
		{
			MethodName: "DeleteImage",
			Handler: unaryHandler(MethodDeleteImage, newStruct, func(s LedgerService, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.DeleteImage(ctx, in)
			}),
		},
		{
			MethodName: "GetStats",
			Handler: unaryHandler(MethodGetStats, newEmpty, func(s LedgerService, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return s.GetStats(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dogify/ledger.proto",
}

// RegisterLedgerService registers srv on s.
func RegisterLedgerService(s grpc.ServiceRegistrar, srv LedgerService) {
	s.RegisterService(&LedgerServiceDesc, srv)
}
