package middleware

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/divvy/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PartyKey is the context key for the acting party.
const PartyKey contextKey = "party"

// PartyHeader carries the caller's "who am I" preference. It is client-local
// configuration, not an identity claim.
const PartyHeader = "Divvy-Party"

// GetParty extracts the acting party from the context.
// Returns the zero Party if none was sent.
func GetParty(ctx context.Context) models.Party {
	party, _ := ctx.Value(PartyKey).(models.Party)
	return party
}

// WithParty returns a copy of ctx carrying p.
func WithParty(ctx context.Context, p models.Party) context.Context {
	return context.WithValue(ctx, PartyKey, p)
}

// ActingParty reads the Divvy-Party header into the request context.
// The header is optional; an unknown value is rejected.
func ActingParty() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			value := req.Header().Get(PartyHeader)
			if value == "" {
				return next(ctx, req)
			}

			party, err := models.ParseParty(value)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s header: %w", PartyHeader, err))
			}
			return next(WithParty(ctx, party), req)
		}
	}
}

// SetParty returns a client interceptor that sends p in the Divvy-Party header.
func SetParty(p models.Party) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient && p != "" {
				req.Header().Set(PartyHeader, string(p))
			}
			return next(ctx, req)
		}
	}
}
