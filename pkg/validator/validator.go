// Package validator runs go-playground/validator over the same `binding`
// tags gin uses, so services can validate requests that did not come
// through a gin handler.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

var (
	personName    = regexp.MustCompile(`^[\p{L} ]+$`)
	phoneNumber   = regexp.MustCompile(`^[+]?[0-9]{10,20}$`)
	bloodPressure = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)
)

// Validator provides validation functionality
type Validator interface {
	Validate(obj interface{}) error
}

type structValidator struct {
	v *validator.Validate
}

// New returns a validator with the custom tags registered.
func New() Validator {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return &structValidator{v: v}
}

// Register installs the json tag-name function and the custom tags on v.
// gin's engine is configured through the same function.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]*regexp.Regexp{
		"personname":    personName,
		"phone":         phoneNumber,
		"bloodpressure": bloodPressure,
	}
	for tag, re := range custom {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// Validate returns nil or an *errors.AppError with one detail per field.
func (s *structValidator) Validate(obj interface{}) error {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}
	return Translate(err)
}

// Translate converts validator.ValidationErrors into a validation AppError.
// Any other error is returned as a plain validation failure.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation(err.Error(), nil)
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = message(fe)
	}
	return apperrors.NewValidation("validation failed", details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "personname":
		return "must contain only letters and spaces"
	case "phone":
		return "must be a valid phone number"
	case "bloodpressure":
		return "must look like 120/80"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
