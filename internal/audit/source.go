package audit

import "context"

// Source identifies where a request came from.
type Source struct {
	PeerAddress string
	RequestID   string
}

type sourceKey struct{}

// WithSource attaches src to ctx. Transports call it before invoking the signer.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the Source stored in ctx, or the zero value.
func SourceFromContext(ctx context.Context) Source {
	src, _ := ctx.Value(sourceKey{}).(Source)
	return src
}
