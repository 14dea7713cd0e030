package echomw_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	g "github.com/reoring/formflow/dsl"
	echomw "github.com/reoring/formflow/middleware/echo"
)

func TestValidateForm(t *testing.T) {
	e := echo.New()
	schema := g.Object().Field("seats", g.Number().Int().Min(1))
	e.POST("/order", func(c echo.Context) error {
		vs, ok := echomw.Values(c)
		if !ok {
			t.Fatalf("values missing from context")
		}
		return c.JSON(http.StatusOK, vs)
	}, echomw.ValidateForm(schema, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"seats": 3}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"seats": 0}`)))
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `"seats"`) {
		t.Fatalf("expected 422 with seats error, got %d: %s", rec.Code, rec.Body.String())
	}
}
