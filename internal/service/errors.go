package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/receipt"
	"github.com/mmynk/divvy/internal/storage"
)

// toConnectError maps domain errors onto Connect codes and logs the failure.
// Store failures other than not-found are reported as Unavailable so clients retry.
func toConnectError(op string, err error, args ...any) error {
	var validationErr *models.ValidationError
	var connectErr *connect.Error

	switch {
	case errors.As(err, &connectErr):
		return connectErr
	case errors.As(err, &validationErr):
		slog.Debug(op+" rejected", append(args, "error", err)...)
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		slog.Debug(op+" not found", append(args, "error", err)...)
		return connect.NewError(connect.CodeNotFound, err)
	case receipt.IsExtractionError(err):
		slog.Warn(op+" failed", append(args, "error", err)...)
		return connect.NewError(connect.CodeUnavailable, errors.New(receipt.UserMessage))
	default:
		slog.Error(op+" failed", append(args, "error", err)...)
		return connect.NewError(connect.CodeUnavailable, err)
	}
}
