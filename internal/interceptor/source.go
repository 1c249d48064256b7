package interceptor

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/glinharesb/sm2-server/internal/audit"
)

// RequestIDHeader is the metadata key carrying the caller's request id.
const RequestIDHeader = "x-request-id"

// SourceUnary records the caller's address and request id on the context
// so that audit entries can be attributed.
func SourceUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(withSource(ctx), req)
	}
}

// SourceStream is the stream counterpart of SourceUnary.
func SourceStream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &sourceStream{ServerStream: ss, ctx: withSource(ss.Context())})
	}
}

type sourceStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sourceStream) Context() context.Context {
	return s.ctx
}

func withSource(ctx context.Context) context.Context {
	var src audit.Source
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		src.PeerAddress = p.Addr.String()
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
			src.RequestID = v[0]
		}
	}
	if src.RequestID == "" {
		src.RequestID = uuid.NewString()
	}
	return audit.WithSource(ctx, src)
}
