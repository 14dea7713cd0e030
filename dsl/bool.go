package dsl

import (
	"context"
	"strings"

	formflow "github.com/reoring/formflow"
)

// BoolSchema validates booleans.
type BoolSchema struct {
	kit              Kit
	coerceFromString bool
	checks           []check[bool]
}

// Bool returns an unconstrained bool schema.
func (k Kit) Bool() *BoolSchema { return &BoolSchema{kit: k} }

// CoerceFromString accepts checkbox-style strings ("true", "on", "1",
// "false", "off", "0").
func (b *BoolSchema) CoerceFromString() *BoolSchema {
	out := *b
	out.coerceFromString = true
	return &out
}

// True requires the value to be true, e.g. an "accept terms" checkbox.
func (b *BoolSchema) True(msg ...string) *BoolSchema {
	out := *b
	out.checks = appendClip(b.checks, check[bool]{
		code: formflow.CodeRequired, msg: b.kit.message(formflow.CodeRequired, nil, msg),
		ok: func(v bool) bool { return v },
	})
	return &out
}

func (b *BoolSchema) Parse(ctx context.Context, v any) (bool, error) {
	val, ok := v.(bool)
	if !ok {
		s, isStr := v.(string)
		if !isStr || !b.coerceFromString {
			return false, b.kit.typeIssue("boolean")
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "on", "1", "yes":
			val = true
		case "false", "off", "0", "no", "":
			val = false
		default:
			return false, b.kit.typeIssue("boolean")
		}
	}
	if err := runChecks(val, b.checks); err != nil {
		return false, err
	}
	return val, nil
}

func (b *BoolSchema) ParseAny(ctx context.Context, v any) (any, error) { return b.Parse(ctx, v) }

func (b *BoolSchema) Validate(ctx context.Context, v any) error {
	_, err := b.Parse(ctx, v)
	return err
}
