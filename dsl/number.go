package dsl

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	formflow "github.com/reoring/formflow"
)

// NumberSchema validates numeric input and yields float64.
type NumberSchema struct {
	kit              Kit
	coerceFromString bool
	checks           []check[float64]
}

var (
	_ formflow.Schema[float64] = (*NumberSchema)(nil)
	_ formflow.AnySchema       = (*NumberSchema)(nil)
)

// Number returns an unconstrained number schema.
func (k Kit) Number() *NumberSchema { return &NumberSchema{kit: k} }

func (n *NumberSchema) withCheck(c check[float64]) *NumberSchema {
	out := *n
	out.checks = appendClip(n.checks, c)
	return &out
}

// CoerceFromString accepts numeric strings such as "42" or " 3.5 ", which is
// what HTML inputs deliver.
func (n *NumberSchema) CoerceFromString() *NumberSchema {
	out := *n
	out.coerceFromString = true
	return &out
}

// Min requires v >= min.
func (n *NumberSchema) Min(min float64, msg ...string) *NumberSchema {
	p := map[string]any{"min": min}
	return n.withCheck(check[float64]{
		code: formflow.CodeTooSmall, msg: n.kit.message(formflow.CodeTooSmall, p, msg), params: p,
		ok: func(v float64) bool { return v >= min },
	})
}

// Max requires v <= max.
func (n *NumberSchema) Max(max float64, msg ...string) *NumberSchema {
	p := map[string]any{"max": max}
	return n.withCheck(check[float64]{
		code: formflow.CodeTooBig, msg: n.kit.message(formflow.CodeTooBig, p, msg), params: p,
		ok: func(v float64) bool { return v <= max },
	})
}

// Int requires a whole number.
func (n *NumberSchema) Int(msg ...string) *NumberSchema {
	return n.withCheck(check[float64]{
		code: formflow.CodeNotInteger, msg: n.kit.message(formflow.CodeNotInteger, nil, msg),
		ok: func(v float64) bool { return v == math.Trunc(v) },
	})
}

// Positive requires v > 0.
func (n *NumberSchema) Positive(msg ...string) *NumberSchema {
	p := map[string]any{"min": 0}
	return n.withCheck(check[float64]{
		code: formflow.CodeTooSmall, msg: n.kit.message(formflow.CodeTooSmall, p, msg), params: p,
		ok: func(v float64) bool { return v > 0 },
	})
}

// NonNegative requires v >= 0.
func (n *NumberSchema) NonNegative(msg ...string) *NumberSchema { return n.Min(0, msg...) }

// Refine adds a custom predicate with its failure message.
func (n *NumberSchema) Refine(pred func(float64) bool, msg string) *NumberSchema {
	return n.withCheck(check[float64]{code: formflow.CodeCustom, msg: msg, ok: pred})
}

func (n *NumberSchema) Parse(ctx context.Context, v any) (float64, error) {
	f, ok := n.toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, n.kit.typeIssue("number")
	}
	if err := runChecks(f, n.checks); err != nil {
		return 0, err
	}
	return f, nil
}

func (n *NumberSchema) ParseAny(ctx context.Context, v any) (any, error) { return n.Parse(ctx, v) }

func (n *NumberSchema) Validate(ctx context.Context, v any) error {
	_, err := n.Parse(ctx, v)
	return err
}

func (n *NumberSchema) toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		if !n.coerceFromString {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
