package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, acting party, result code and duration.
// Rejected requests log at warn; failures on our side log at error.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"party", GetParty(ctx), // empty if the header was not sent
				"code", codeLabel(err),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case err == nil:
				slog.InfoContext(ctx, "RPC ok", attrs...)
			case isCallerError(connect.CodeOf(err)):
				slog.WarnContext(ctx, "RPC rejected", append(attrs, "error", errorMessage(err))...)
			default:
				slog.ErrorContext(ctx, "RPC failed", append(attrs, "error", errorMessage(err))...)
			}

			return resp, err
		}
	}
}

// codeLabel names the outcome of a call, "ok" on success.
func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}

// isCallerError reports codes caused by the request rather than the server.
func isCallerError(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeFailedPrecondition,
		connect.CodeAlreadyExists, connect.CodeCanceled:
		return true
	}
	return false
}

func errorMessage(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Message()
	}
	return err.Error()
}
