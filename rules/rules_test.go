package rules_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/rules"
)

func byField(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	iss, ok := formflow.AsIssues(err)
	if !ok {
		t.Fatalf("expected Issues, got %v", err)
	}
	return iss.ByField()
}

func TestFieldsMatch(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("password", g.String()).
		Field("confirmPassword", g.String()).
		Refine("match", rules.FieldsMatch("password", "confirmPassword", "passwords do not match"))

	_, err := s.Parse(ctx, map[string]any{"password": "Abc12345!", "confirmPassword": "different"})
	if diff := cmp.Diff(map[string]string{"confirmPassword": "passwords do not match"}, byField(t, err)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Parse(ctx, map[string]any{"password": "same", "confirmPassword": "same"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestIfThen_RequiredIf(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("plan", g.Enum("free", "pro")).
		Optional("company", g.String()).
		Optional("seats", g.Number()).
		Optional("invoiceEmail", g.String()).
		Refine("company-for-pro", rules.RequiredIf(rules.If("plan", rules.Eq, "pro"), "company", "company is required for pro")).
		Refine("invoice-for-large-pro", rules.If("plan", rules.Eq, "pro").Then(
			rules.RequiredIf(rules.If("seats", rules.Gt, 10), "invoiceEmail", "invoice email required for large teams"),
		))

	if _, err := s.Parse(ctx, map[string]any{"plan": "free"}); err != nil {
		t.Fatalf("free plan needs nothing: %v", err)
	}
	_, err := s.Parse(ctx, map[string]any{"plan": "pro", "company": "  ", "seats": 20})
	want := map[string]string{"company": "company is required for pro", "invoiceEmail": "invoice email required for large teams"}
	if diff := cmp.Diff(want, byField(t, err)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Parse(ctx, map[string]any{"plan": "pro", "company": "ACME", "seats": 3}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestConditional_Composites(t *testing.T) {
	v := map[string]any{"age": 20, "country": "jp", "address": map[string]any{"zip": "100"}}
	if !rules.IfAll(rules.If("age", rules.Ge, 18), rules.If("country", rules.Eq, "jp")).Holds(v) {
		t.Fatalf("IfAll should hold")
	}
	if rules.If("age", rules.Gt, 30).And(rules.If("country", rules.Eq, "jp")).Holds(v) {
		t.Fatalf("And should not hold")
	}
	if !rules.IfAny(rules.If("age", rules.Gt, 30), rules.If("address.zip", rules.Eq, "100")).Holds(v) {
		t.Fatalf("IfAny should hold through nested path")
	}
	if rules.If("missing", rules.Eq, nil).Holds(v) {
		t.Fatalf("missing paths never hold")
	}
	if !rules.If("/age", rules.Le, 20.0).Holds(v) {
		t.Fatalf("pointer paths and mixed numeric types should compare")
	}
}

func TestAtLeastOneAndUniqueBy(t *testing.T) {
	ctx := context.Background()
	r := rules.And(
		rules.AtLeastOne("attendees", "add an attendee"),
		rules.UniqueBy("attendees", "email", "duplicate attendee"),
	)
	err := r(ctx, map[string]any{"attendees": []any{}})
	if diff := cmp.Diff(map[string]string{"attendees": "add an attendee"}, byField(t, err)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	err = r(ctx, map[string]any{"attendees": []any{
		map[string]any{"email": "a@x.io"},
		map[string]any{"email": "b@x.io"},
		map[string]any{"email": "a@x.io"},
	}})
	if diff := cmp.Diff(map[string]string{"attendees.2.email": "duplicate attendee"}, byField(t, err)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestOr_ReturnsSmallestFailure(t *testing.T) {
	ctx := context.Background()
	r := rules.Or(
		rules.And(rules.AtLeastOne("a", "need a"), rules.AtLeastOne("b", "need b")),
		rules.AtLeastOne("c", "need c"),
	)
	err := r(ctx, map[string]any{})
	if diff := cmp.Diff(map[string]string{"c": "need c"}, byField(t, err)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := r(ctx, map[string]any{"c": []string{"x"}}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
