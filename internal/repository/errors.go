package repository

import (
	"errors"
	"fmt"

	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

// MapError turns a store sentinel into the matching AppError for resource.
// Errors that are not sentinels are wrapped with op and surface as 500s.
func MapError(resource, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperrors.NewNotFound(resource, err)
	case errors.Is(err, ErrDuplicate):
		return apperrors.NewDuplicate(fmt.Sprintf("%s already exists", resource), err)
	case errors.Is(err, ErrVersionConflict):
		return apperrors.NewConflict(resource, err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s %s: %w", op, resource, err)
}
