package dsl

import (
	"context"
	"reflect"
	"strconv"

	formflow "github.com/reoring/formflow"
)

// ArraySchema validates a list whose elements share one schema.
type ArraySchema[E any] struct {
	kit    Kit
	elem   formflow.Schema[E]
	checks []check[int]
}

// Array returns an array schema with the given element schema.
func Array[E any](elem formflow.Schema[E]) *ArraySchema[E] { return ArrayWith(std, elem) }

// ArrayWith is Array bound to a specific Kit.
func ArrayWith[E any](k Kit, elem formflow.Schema[E]) *ArraySchema[E] {
	return &ArraySchema[E]{kit: k, elem: elem}
}

// Min sets the minimum length.
func (a *ArraySchema[E]) Min(n int, msg ...string) *ArraySchema[E] {
	p := map[string]any{"min": n}
	out := *a
	out.checks = appendClip(a.checks, check[int]{
		code: formflow.CodeTooSmall, msg: a.kit.message(formflow.CodeTooSmall, p, msg), params: p,
		ok: func(l int) bool { return l >= n },
	})
	return &out
}

// Max sets the maximum length.
func (a *ArraySchema[E]) Max(n int, msg ...string) *ArraySchema[E] {
	p := map[string]any{"max": n}
	out := *a
	out.checks = appendClip(a.checks, check[int]{
		code: formflow.CodeTooBig, msg: a.kit.message(formflow.CodeTooBig, p, msg), params: p,
		ok: func(l int) bool { return l <= n },
	})
	return &out
}

// Parse checks length constraints first, then each element in order; the
// first failing element is reported under its index.
func (a *ArraySchema[E]) Parse(ctx context.Context, v any) ([]E, error) {
	items, ok := toAnySlice(v)
	if !ok {
		return nil, a.kit.typeIssue("array")
	}
	if err := runChecks(len(items), a.checks); err != nil {
		return nil, err
	}
	out := make([]E, 0, len(items))
	for i, item := range items {
		e, err := a.elem.Parse(ctx, item)
		if err != nil {
			return nil, formflow.IssuesFromErr("/", err).Rebase("/" + strconv.Itoa(i))
		}
		out = append(out, e)
	}
	return out, nil
}

func (a *ArraySchema[E]) ParseAny(ctx context.Context, v any) (any, error) { return a.Parse(ctx, v) }

func (a *ArraySchema[E]) Validate(ctx context.Context, v any) error {
	_, err := a.Parse(ctx, v)
	return err
}

func toAnySlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
