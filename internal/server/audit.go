package server

import (
	"context"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/glinharesb/sm2-server/internal/audit"
)

type AuditServer struct {
	logger *audit.Logger
}

func NewAuditServer(logger *audit.Logger) *AuditServer {
	return &AuditServer{logger: logger}
}

func (s *AuditServer) QueryAudit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, err
	}

	entries := s.logger.Query(f)
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, auditEntryToMap(e))
	}
	return newStruct(map[string]any{"entries": list})
}

// StreamAudit sends entries as they are logged. Operation and subject in the
// request narrow the stream.
func (s *AuditServer) StreamAudit(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	f, err := filterFromStruct(req)
	if err != nil {
		return err
	}

	sub := s.logger.Subscribe()
	defer s.logger.Unsubscribe(sub)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case entry, ok := <-sub.C:
			if !ok {
				return nil
			}
			if f.Operation != "" && entry.Operation != f.Operation {
				continue
			}
			if f.Subject != "" && entry.Subject != f.Subject {
				continue
			}
			msg, err := newStruct(auditEntryToMap(entry))
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func filterFromStruct(req *structpb.Struct) (audit.Filter, error) {
	var f audit.Filter
	fields := req.GetFields()

	f.Operation = fields["operation"].GetStringValue()
	f.Subject = fields["subject"].GetStringValue()
	if v, ok := fields["limit"]; ok {
		nv, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return f, status.Error(codes.InvalidArgument, "limit must be a number")
		}
		n := nv.NumberValue
		if n < 0 || n > math.MaxInt32 || n != math.Trunc(n) {
			return f, status.Error(codes.InvalidArgument, "limit must be a non-negative integer")
		}
		f.Limit = int(n)
	}

	for name, dst := range map[string]*time.Time{"start": &f.Start, "end": &f.End} {
		v := fields[name].GetStringValue()
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
		}
		*dst = t
	}
	return f, nil
}

func auditEntryToMap(e audit.Entry) map[string]any {
	m := map[string]any{
		"id":          e.ID,
		"timestamp":   e.Timestamp.Format(time.RFC3339Nano),
		"operation":   e.Operation,
		"subject":     e.Subject,
		"status":      e.Status,
		"peerAddress": e.PeerAddress,
		"requestId":   e.RequestID,
	}
	if len(e.Metadata) > 0 {
		md := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		m["metadata"] = md
	}
	return m
}
