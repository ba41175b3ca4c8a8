package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgvalidator "github.com/vitalapp/clinic-api/pkg/validator"
)

// RegisterValidators installs the custom tags and JSON field naming on gin's
// binding engine so ShouldBind reports the same errors as the services.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}
	return pkgvalidator.Register(v)
}
