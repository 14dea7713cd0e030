package echomw

import (
	"github.com/labstack/echo/v4"
	formflow "github.com/reoring/formflow"
	"github.com/reoring/formflow/form"
	"github.com/reoring/formflow/middleware"
	"go.uber.org/zap"
)

// ValidateForm submits the request body through schema and stores the parsed
// values in the request context, or answers 400/422 with the error payload.
func ValidateForm(schema form.Schema, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			out := middleware.Submit(c.Request().Context(), schema, c.Request().Body, log)
			if !out.OK() {
				return c.JSON(out.Status, out.Payload)
			}
			c.SetRequest(c.Request().WithContext(middleware.ContextWithValues(c.Request().Context(), out.Values)))
			return next(c)
		}
	}
}

// Values fetches the accepted form values from echo.Context.
func Values(c echo.Context) (formflow.Values, bool) {
	return middleware.ValuesFromContext(c.Request().Context())
}
