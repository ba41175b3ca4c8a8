package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/vitalapp/clinic-api/pkg/httputil"
	"github.com/vitalapp/clinic-api/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope. The panic value and
// stack go to the log only.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	zl := log.With("http").Zerolog()

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			ev := zl.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", RequestIDFrom(c)).
				Str("method", c.Request.Method).
				Str("route", c.FullPath())
			if p, ok := PrincipalFrom(c); ok {
				ev = ev.Str("user_id", p.UserID.String())
			}
			ev.Msg("Request panic recovered")

			_ = c.Error(fmt.Errorf("panic: %v", rec))
			c.AbortWithStatusJSON(http.StatusInternalServerError, httputil.Response{
				Error: &httputil.Error{Code: "INTERNAL_ERROR", Message: "internal server error"},
			})
		}()
		c.Next()
	}
}
