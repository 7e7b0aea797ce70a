package service

import (
	"errors"
	"fmt"

	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/pkg/apperror"
)

// storeError maps datastore errors onto application errors. resource names
// the entity in not-found and conflict messages.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	var filterErr *query.FilterError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &filterErr):
		return apperror.Validation(filterErr.Error(), map[string]any{"param": filterErr.Param})
	case errors.Is(err, query.ErrNoRows):
		return apperror.NotFound(resource)
	case errors.Is(err, query.ErrConflict):
		return apperror.Conflict(fmt.Sprintf("%s already exists", resource), nil)
	default:
		return apperror.Database(err)
	}
}

func fieldError(err error) error {
	var fe *catalog.FieldError
	if errors.As(err, &fe) {
		return apperror.Validation(fe.Error(), map[string]any{"field": fe.Field})
	}
	return apperror.Validation(err.Error(), nil)
}
