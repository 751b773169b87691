package interceptors

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// InterceptorLogger adapts a zap logger to the logging middleware.
func InterceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		zapFields := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}

		switch lvl {
		case logging.LevelDebug:
			l.Debug(msg, zapFields...)
		case logging.LevelInfo:
			l.Info(msg, zapFields...)
		case logging.LevelWarn:
			l.Warn(msg, zapFields...)
		default:
			l.Error(msg, zapFields...)
		}
	})
}

// ZapLoggingInterceptor logs the start and end of every unary call, tagged
// with the caller's x-request-id metadata when present.
func ZapLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
		logging.WithDurationField(logging.DurationToDurationField),
		logging.WithFieldsFromContext(func(ctx context.Context) logging.Fields {
			md, _ := metadata.FromIncomingContext(ctx)
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				return logging.Fields{"request_id", ids[0]}
			}
			return nil
		}),
		logging.WithLevels(logging.DefaultServerCodeToLevel),
	}
	return logging.UnaryServerInterceptor(InterceptorLogger(logger), opts...)
}

// RecoveryInterceptor turns a handler panic into an Internal status.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		logger.Error("Recovered from panic in gRPC handler", zap.String("reason", fmt.Sprint(p)))
		return status.Error(codes.Internal, "internal error")
	}))
}
