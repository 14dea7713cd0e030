// Package middleware runs form submissions arriving over HTTP through a form
// session. Framework adapters live in the gin and echo subpackages.
package middleware

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	formflow "github.com/reoring/formflow"
	"github.com/reoring/formflow/form"
)

// MaxBodyBytes bounds the request body read by Submit.
const MaxBodyBytes = 1 << 20

type ctxKeyValues struct{}

// ContextWithValues attaches parsed form values to the context.
func ContextWithValues(ctx context.Context, vs formflow.Values) context.Context {
	return context.WithValue(ctx, ctxKeyValues{}, vs)
}

// ValuesFromContext retrieves the values stored by ContextWithValues.
func ValuesFromContext(ctx context.Context) (formflow.Values, bool) {
	v, ok := ctx.Value(ctxKeyValues{}).(formflow.Values)
	return v, ok
}

// ErrorPayload shapes a rejected submission for JSON responses.
func ErrorPayload(errs map[string]string) map[string]any {
	return map[string]any{"isValid": false, "errors": errs}
}

// Outcome is the result of pushing one request body through a session.
type Outcome struct {
	Status  int
	Payload any
	Values  formflow.Values
}

// OK reports whether the submission was accepted.
func (o Outcome) OK() bool { return o.Status == http.StatusOK }

// Submit decodes a JSON object from body and submits it through a fresh
// OnSubmit session. Bodies over MaxBodyBytes yield 413, bodies that are not
// JSON objects yield 400 and invalid forms yield 422 with the field error map.
func Submit(ctx context.Context, schema form.Schema, body io.Reader, log *zap.Logger) Outcome {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return Outcome{Status: http.StatusBadRequest, Payload: map[string]any{"error": err.Error()}}
	}
	if len(data) > MaxBodyBytes {
		return Outcome{Status: http.StatusRequestEntityTooLarge, Payload: map[string]any{"error": "request body too large"}}
	}
	values, err := formflow.DecodeValuesJSON(data)
	if err != nil {
		return Outcome{Status: http.StatusBadRequest, Payload: map[string]any{"error": err.Error()}}
	}

	var rejected map[string]string
	s := form.NewSession(schema, values, form.OnSubmit,
		form.WithLogger(log),
		form.WithErrorHandler(func(errs map[string]string) { rejected = errs }),
	)
	var accepted formflow.Values
	if err := s.Submit(ctx, func(_ context.Context, vs formflow.Values) error {
		accepted = vs
		return nil
	}); err != nil {
		return Outcome{Status: http.StatusInternalServerError, Payload: map[string]any{"error": err.Error()}}
	}
	if rejected != nil {
		log.Debug("form rejected", zap.Int("errors", len(rejected)))
		return Outcome{Status: http.StatusUnprocessableEntity, Payload: ErrorPayload(rejected)}
	}
	return Outcome{Status: http.StatusOK, Values: accepted}
}

// Option configures ValidateForm.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger handed to each session.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// ValidateForm returns net/http middleware that submits the request body
// through schema. Accepted values are stored in the request context for the
// next handler; rejected requests are answered directly.
func ValidateForm(schema form.Schema, opts ...Option) func(http.Handler) http.Handler {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := Submit(r.Context(), schema, r.Body, o.log)
			if !out.OK() {
				WriteJSON(w, out.Status, out.Payload)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithValues(r.Context(), out.Values)))
		})
	}
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
