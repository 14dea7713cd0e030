package formflow

import (
	"context"
)

// Schema is the contract every constraint description satisfies.
type Schema[T any] interface {
	// Parse checks an unknown input and returns it as T after normalisation
	// (Coerce -> Normalize -> Constraints -> Refine). Failures are returned as
	// Issues, never as panics.
	Parse(ctx context.Context, v any) (T, error)

	// Validate reports whether v satisfies the schema, discarding the value.
	Validate(ctx context.Context, v any) error
}

// AnySchema is the type-erased view used when schemas of different result
// types share one object shape.
type AnySchema interface {
	ParseAny(ctx context.Context, v any) (any, error)
}

// Normalizer is implemented by schemas that rewrite a value (trim, lower-case,
// sanitise) before their constraints run.
type Normalizer[T any] interface {
	Normalize(ctx context.Context, v T) (T, error)
}

// Refiner is implemented by schemas with a final whole-value check. It runs
// only after every constraint passed.
type Refiner[T any] interface {
	Refine(ctx context.Context, v T) error
}

// SafeParse is Parse without the issue detail.
func SafeParse[T any](ctx context.Context, s Schema[T], v any) (T, bool) {
	if val, err := s.Parse(ctx, v); err == nil {
		return val, true
	}
	var zero T
	return zero, false
}

// Is reports whether v satisfies s.
func Is[T any](ctx context.Context, s Schema[T], v any) bool { return s.Validate(ctx, v) == nil }
