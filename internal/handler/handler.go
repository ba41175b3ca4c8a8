// Package handler holds the request plumbing shared by the resource
// handlers in its subpackages.
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/middleware"
	"github.com/vitalapp/clinic-api/internal/model"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/httputil"
)

// ParseID reads a UUID path parameter. On failure the response is written
// and ok is false.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewFieldValidation(param, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes and validates the request body into obj.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, bindError(err, "malformed request body"))
		return false
	}
	return true
}

// BindQuery decodes and validates query parameters into obj.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		httputil.RespondWithError(c, bindError(err, "invalid query parameters"))
		return false
	}
	return true
}

// bindError keeps field details from the validator and reports every
// decoding failure as a client error.
func bindError(err error, msg string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return &apperrors.AppError{Code: apperrors.ErrValidation, Message: msg, Err: err}
}

// Principal returns the authenticated caller or writes a 401.
func Principal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return model.Principal{}, false
	}
	return p, true
}
