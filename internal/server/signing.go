package server

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/glinharesb/sm2-server/internal/signer"
)

type SignatureServer struct {
	signer *signer.Service
}

func NewSignatureServer(svc *signer.Service) *SignatureServer {
	return &SignatureServer{signer: svc}
}

func (s *SignatureServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(map[string]any{"message": "pong"})
}

func (s *SignatureServer) GenerateKeypair(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	kp, err := s.signer.Keypair(ctx)
	if err != nil {
		return nil, rpcError("generate keypair", err)
	}
	return newStruct(map[string]any{
		"privateKey": kp.PrivateKey,
		"publicKey":  kp.PublicKey,
	})
}

func (s *SignatureServer) SignRaw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := stringFields(req, "privateKey", "raw")
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignRaw(ctx, fields[0], fields[1])
	if err != nil {
		return nil, rpcError("sign", err)
	}
	return newStruct(map[string]any{"signature": sig})
}

func (s *SignatureServer) SignDigest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := stringFields(req, "privateKey", "digest")
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignDigest(ctx, fields[0], fields[1])
	if err != nil {
		return nil, rpcError("sign", err)
	}
	return newStruct(map[string]any{"signature": sig})
}

func (s *SignatureServer) VerifyRaw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := stringFields(req, "publicKey", "signature", "raw")
	if err != nil {
		return nil, err
	}
	ok, err := s.signer.VerifyRaw(ctx, fields[0], fields[1], fields[2])
	if err != nil {
		return nil, rpcError("verify", err)
	}
	return newStruct(map[string]any{"result": ok})
}

func (s *SignatureServer) VerifyDigest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := stringFields(req, "publicKey", "signature", "digest")
	if err != nil {
		return nil, err
	}
	ok, err := s.signer.VerifyDigest(ctx, fields[0], fields[1], fields[2])
	if err != nil {
		return nil, rpcError("verify", err)
	}
	return newStruct(map[string]any{"result": ok})
}

// stringFields returns the named string fields of req in order.
func stringFields(req *structpb.Struct, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, ok := req.GetFields()[name]
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "missing field: %s", name)
		}
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "field %s must be a string", name)
		}
		out[i] = sv.StringValue
	}
	return out, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func rpcError(op string, err error) error {
	if signer.IsRequestError(err) {
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}
