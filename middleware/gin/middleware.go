package ginmw

import (
	"github.com/gin-gonic/gin"
	formflow "github.com/reoring/formflow"
	"github.com/reoring/formflow/form"
	"github.com/reoring/formflow/middleware"
	"go.uber.org/zap"
)

// ValidateForm submits the request body through schema, stores the parsed
// values in the request context and aborts with 400/422 when the body is
// malformed or the form is invalid.
func ValidateForm(schema form.Schema, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := middleware.Submit(c.Request.Context(), schema, c.Request.Body, log)
		if !out.OK() {
			c.AbortWithStatusJSON(out.Status, out.Payload)
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithValues(c.Request.Context(), out.Values))
		c.Next()
	}
}

// Values fetches the accepted form values from gin.Context.
func Values(c *gin.Context) (formflow.Values, bool) {
	return middleware.ValuesFromContext(c.Request.Context())
}
