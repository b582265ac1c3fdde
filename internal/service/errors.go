package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Error taxonomy surfaced at every operation boundary. Handlers map these to
// HTTP statuses; anything not matched here is treated as internal.
var (
	ErrInvalidArgument = errors.New("invalid_argument")
	ErrInvalidState    = errors.New("invalid_state")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyAssigned = errors.New("already_assigned")
	ErrNotFound        = errors.New("not_found")
	ErrUnavailable     = errors.New("unavailable")
)

// storeErr folds storage failures into the taxonomy: missing rows become
// NotFound, context expiry becomes the retryable Unavailable.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrUnavailable
	default:
		return err
	}
}
