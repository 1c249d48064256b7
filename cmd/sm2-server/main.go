// Command sm2-server serves SM2 key generation, signing and verification
// over HTTP and gRPC.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/glinharesb/sm2-server/internal/api"
	"github.com/glinharesb/sm2-server/internal/audit"
	"github.com/glinharesb/sm2-server/internal/config"
	"github.com/glinharesb/sm2-server/internal/hsm"
	"github.com/glinharesb/sm2-server/internal/interceptor"
	"github.com/glinharesb/sm2-server/internal/ratelimit"
	"github.com/glinharesb/sm2-server/internal/server"
	"github.com/glinharesb/sm2-server/internal/signer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	auditLogger := audit.NewLogger(cfg.AuditBuffer, cfg.AuditRetain, os.Stdout)

	svc := signer.NewService(hsm.NewSoftwareHSM(), auditLogger)
	limiter := ratelimit.New(cfg.RateLimitRPS)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		var err error
		grpcSrv, err = newGRPCServer(cfg, svc, auditLogger, limiter)
		if err != nil {
			slog.Error("grpc server", "error", err)
			os.Exit(1)
		}
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			slog.Error("listen", "addr", cfg.GRPCAddr, "error", err)
			os.Exit(1)
		}
		go func() {
			slog.Info("grpc server starting", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("grpc serve", "error", err)
				stop()
			}
		}()
	}

	httpSrv := api.NewServer(svc, auditLogger, api.Options{
		AuthToken: cfg.AuthToken,
		Limiter:   limiter,
	})
	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr, "tls", cfg.TLSCert != "")
		if err := httpSrv.Start(cfg.HTTPAddr, cfg.TLSCert, cfg.TLSKey); err != nil {
			slog.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			slog.Warn("graceful shutdown timed out, forcing stop")
			grpcSrv.Stop()
		}
	}
	// Handlers that outlived the timeout have their entries dropped.
	auditLogger.Close()
	slog.Info("shutdown complete")
}

func newGRPCServer(cfg config.Config, svc *signer.Service, auditLogger *audit.Logger, limiter *ratelimit.Bucket) (*grpc.Server, error) {
	ping := server.FullMethod(server.SignatureServiceName, "Ping")
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptor.RecoveryUnary(),
			interceptor.SourceUnary(),
			interceptor.LoggingUnary(),
			interceptor.RateLimitUnary(limiter),
			interceptor.AuthUnary(cfg.AuthToken, ping),
		),
		grpc.ChainStreamInterceptor(
			interceptor.RecoveryStream(),
			interceptor.SourceStream(),
			interceptor.LoggingStream(),
			interceptor.RateLimitStream(limiter),
			interceptor.AuthStream(cfg.AuthToken),
		),
	}
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)
	server.RegisterSignatureServiceServer(srv, server.NewSignatureServer(svc))
	server.RegisterAuditServiceServer(srv, server.NewAuditServer(auditLogger))
	reflection.Register(srv)
	return srv, nil
}
