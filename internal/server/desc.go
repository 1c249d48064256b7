package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names on the wire. Every message is a google.protobuf.Struct
// carrying the same fields as the HTTP JSON bodies.
const (
	SignatureServiceName = "sm2.v1.SignatureService"
	AuditServiceName     = "sm2.v1.AuditService"
)

// SignatureServiceServer is the server API for sm2.v1.SignatureService.
type SignatureServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateKeypair(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignRaw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignDigest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyRaw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyDigest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AuditServiceServer is the server API for sm2.v1.AuditService.
type AuditServiceServer interface {
	QueryAudit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamAudit(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// FullMethod returns the "/service/method" path used by interceptors and clients.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

var SignatureServiceDesc = grpc.ServiceDesc{
	ServiceName: SignatureServiceName,
	HandlerType: (*SignatureServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(SignatureServiceName, "Ping", SignatureServiceServer.Ping)},
		{MethodName: "GenerateKeypair", Handler: unaryHandler(SignatureServiceName, "GenerateKeypair", SignatureServiceServer.GenerateKeypair)},
		{MethodName: "SignRaw", Handler: unaryHandler(SignatureServiceName, "SignRaw", SignatureServiceServer.SignRaw)},
		{MethodName: "SignDigest", Handler: unaryHandler(SignatureServiceName, "SignDigest", SignatureServiceServer.SignDigest)},
		{MethodName: "VerifyRaw", Handler: unaryHandler(SignatureServiceName, "VerifyRaw", SignatureServiceServer.VerifyRaw)},
		{MethodName: "VerifyDigest", Handler: unaryHandler(SignatureServiceName, "VerifyDigest", SignatureServiceServer.VerifyDigest)},
	},
	Metadata: "sm2/v1/sm2.proto",
}

var AuditServiceDesc = grpc.ServiceDesc{
	ServiceName: AuditServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "QueryAudit", Handler: unaryHandler(AuditServiceName, "QueryAudit", AuditServiceServer.QueryAudit)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamAudit",
			Handler:       streamAuditHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sm2/v1/sm2.proto",
}

// RegisterSignatureServiceServer registers srv on s.
func RegisterSignatureServiceServer(s grpc.ServiceRegistrar, srv SignatureServiceServer) {
	s.RegisterService(&SignatureServiceDesc, srv)
}

// RegisterAuditServiceServer registers srv on s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditServiceDesc, srv)
}

func unaryHandler[S any](service, method string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := FullMethod(service, method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamAuditHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AuditServiceServer).StreamAudit(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}
