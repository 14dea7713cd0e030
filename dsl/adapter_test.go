package dsl_test

import (
	"context"
	"testing"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
)

// slugSchema is an external Schema with its own Refiner.
type slugSchema struct{}

func (slugSchema) Parse(ctx context.Context, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", formflow.Issues{{Path: "/", Code: formflow.CodeInvalidType, Message: "expected string"}}
	}
	return s, nil
}

func (slugSchema) Validate(ctx context.Context, v any) error {
	_, err := slugSchema{}.Parse(ctx, v)
	return err
}

func (slugSchema) Refine(ctx context.Context, v string) error {
	for _, r := range v {
		if r == ' ' {
			return formflow.Issues{{Path: "/", Code: formflow.CodeCustom, Message: "no spaces"}}
		}
	}
	return nil
}

func TestSchemaOf_RunsRefiner(t *testing.T) {
	ctx := context.Background()
	obj := g.Object().Field("slug", g.SchemaOf[string](slugSchema{}))

	if _, err := obj.Parse(ctx, map[string]any{"slug": "hello-world"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	_, err := obj.Parse(ctx, map[string]any{"slug": "hello world"})
	if it := firstIssue(t, err); it.Path != "/slug" || it.Message != "no spaces" {
		t.Fatalf("got %+v", it)
	}
}

func TestNullableAndAny(t *testing.T) {
	ctx := context.Background()
	obj := g.Object().
		Field("avatar", g.Nullable(g.String().URL())).
		Field("meta", g.Any())

	if _, err := obj.Parse(ctx, map[string]any{"avatar": nil, "meta": []int{1}}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := obj.Parse(ctx, map[string]any{"avatar": "nope", "meta": 1}); err == nil {
		t.Fatalf("non-nil avatar must still be a url")
	}
	if _, err := obj.Parse(ctx, map[string]any{"avatar": nil}); err == nil {
		t.Fatalf("meta is declared and required")
	}
}

func TestSafeParseAndIs(t *testing.T) {
	ctx := context.Background()
	if v, ok := formflow.SafeParse[string](ctx, g.String().Min(1), "x"); !ok || v != "x" {
		t.Fatalf("SafeParse: v=%q ok=%v", v, ok)
	}
	if formflow.Is[float64](ctx, g.Number().Max(1), 2) {
		t.Fatalf("Is should be false")
	}
}
