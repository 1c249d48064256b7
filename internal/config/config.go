package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	TLSCert      string
	TLSKey       string
	AuthToken    string
	AuditBuffer  int
	AuditRetain  int
	RateLimitRPS int
	LogLevel     slog.Level
}

func Load() Config {
	return Config{
		HTTPAddr:     envOr("SM2_HTTP_ADDR", "0.0.0.0:"+envOr("PORT", "8888")),
		GRPCAddr:     lookupOr("SM2_GRPC_ADDR", ":50051"),
		TLSCert:      os.Getenv("SM2_TLS_CERT"),
		TLSKey:       os.Getenv("SM2_TLS_KEY"),
		AuthToken:    os.Getenv("SM2_AUTH_TOKEN"),
		AuditBuffer:  envInt("SM2_AUDIT_BUFFER", 1024),
		AuditRetain:  envInt("SM2_AUDIT_RETAIN", 10000),
		RateLimitRPS: envInt("SM2_RATE_LIMIT_RPS", 100),
		LogLevel:     envLevel("SM2_LOG_LEVEL", slog.LevelInfo),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupOr is like envOr but keeps an explicitly empty value, which
// disables the listener.
func lookupOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}
