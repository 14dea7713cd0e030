package dsl

import (
	"context"

	formflow "github.com/reoring/formflow"
)

// schemaAdapter adapts Schema[T] to the type-erased AnySchema.
type schemaAdapter[T any] struct {
	s formflow.Schema[T]
}

// SchemaOf converts an arbitrary Schema[T] so it can be used as an object field.
// If the schema also implements formflow.Refiner[T], the refinement runs after
// a successful parse.
func SchemaOf[T any](s formflow.Schema[T]) formflow.AnySchema {
	if as, ok := any(s).(formflow.AnySchema); ok {
		if _, refines := any(s).(formflow.Refiner[T]); !refines {
			return as
		}
	}
	return schemaAdapter[T]{s: s}
}

func (a schemaAdapter[T]) ParseAny(ctx context.Context, v any) (any, error) {
	out, err := a.s.Parse(ctx, v)
	if err != nil {
		return nil, err
	}
	if err := formflow.ApplyRefine[T](ctx, out, a.s); err != nil {
		return nil, err
	}
	return out, nil
}

// nullable accepts nil and otherwise defers to the wrapped schema.
type nullable struct {
	inner formflow.AnySchema
}

// Nullable wraps a schema to accept nil. Parsing nil succeeds and yields nil.
func Nullable(s formflow.AnySchema) formflow.AnySchema { return nullable{inner: s} }

func (n nullable) ParseAny(ctx context.Context, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return n.inner.ParseAny(ctx, v)
}

// anySchema accepts every value unchanged.
type anySchema struct{}

// Any declares a field without constraints. It differs from a free field in
// that the owning object knows about it (e.g. for required checks).
func Any() formflow.AnySchema { return anySchema{} }

func (anySchema) ParseAny(_ context.Context, v any) (any, error) { return v, nil }
