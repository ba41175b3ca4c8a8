package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalapp/clinic-api/pkg/httputil"
)

// SizeLimit rejects bodies above max bytes. Declared lengths are refused up
// front; chunked bodies fail while being read.
func SizeLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.Error{Code: "PAYLOAD_TOO_LARGE", Message: "request body too large"},
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
