package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every RPC call and every closed stream.
// It logs the procedure name, user ID, duration, and any error codes/messages.
// Install it inside AuthInterceptor so the user ID is in the context.
type LoggingInterceptor struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

var _ connect.Interceptor = LoggingInterceptor{}

func (l LoggingInterceptor) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logCall(l.logger(), "RPC", req.Spec().Procedure, GetUserID(ctx), start, err)
		return resp, err
	}
}

func (LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		logger := l.logger()
		logger.Debug("Stream opened", "procedure", conn.Spec().Procedure, "user_id", GetUserID(ctx))
		err := next(ctx, conn)
		logCall(logger, "Stream", conn.Spec().Procedure, GetUserID(ctx), start, err)
		return err
	}
}

// userID is empty for public procedures called without a token.
func logCall(logger *slog.Logger, kind, procedure, userID string, start time.Time, err error) {
	duration := time.Since(start).Milliseconds()
	if err == nil {
		logger.Info(kind+" ok",
			"procedure", procedure,
			"user_id", userID,
			"duration_ms", duration,
		)
		return
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal {
		logger.Warn(kind+" error",
			"procedure", procedure,
			"code", connectErr.Code(),
			"error", connectErr.Message(),
			"user_id", userID,
			"duration_ms", duration,
		)
		return
	}
	logger.Error(kind+" error",
		"procedure", procedure,
		"error", err,
		"user_id", userID,
		"duration_ms", duration,
	)
}
