package interceptors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-stork-validator/pkg/log"
)

const healthPrefix = "/grpc.health.v1.Health/"

// UnaryLoggingInterceptor пишет строку "grpc" на каждый вызов
// и кладёт логгер с request_id и method в контекст обработчика.
// Пробы grpc.health.v1 пишутся на уровне Debug.
func UnaryLoggingInterceptor(l *slog.Logger) grpc.UnaryServerInterceptor {
	if l == nil {
		l = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqLogger := l.With(
			slog.String("request_id", requestID(ctx)),
			slog.String("method", info.FullMethod),
		)

		start := time.Now()
		resp, err := handler(log.Into(ctx, reqLogger), req)

		level := slog.LevelInfo
		if strings.HasPrefix(info.FullMethod, healthPrefix) {
			level = slog.LevelDebug
		}

		reqLogger.LogAttrs(ctx, level, "grpc",
			slog.String("peer", peerAddr(ctx)),
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}

	return uuid.NewString()
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}

	return "-"
}
