package interceptor

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meeting-gate/internal/logger"
)

type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor that logs each unary RPC and turns a
// handler panic into codes.Internal.
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, fmt.Sprintf("panic: %v", r))
			}

			code := status.Code(err)
			args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
			if code == codes.OK {
				logger.Debug("gRPC call", args...)
			} else {
				logger.Warn("gRPC call failed", append(args, "error", err)...)
			}
		}()

		return handler(ctx, req)
	}
}
