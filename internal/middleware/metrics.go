package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/divvy/internal/metrics"
)

// MetricsInterceptor records request counts and latency per procedure.
func MetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			m.ObserveRPC(req.Spec().Procedure, codeLabel(err), time.Since(start))

			return resp, err
		}
	}
}
