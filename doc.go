// Package formflow is a schema-driven form engine with a per-file upload state
// machine.
//
// It provides:
//
// - Composable, immutable constraint schemas (dsl/) whose failures are data: Issues
// (JSON Pointer path, stable code, message), never panics
// - Cross-field refinements attached to a chosen field path (rules/)
// - A Form Session that owns the working value, binds Field Controllers and guards
// submission (form/)
// - An upload state machine and orchestrator that feed remote URLs back into a
// form field (upload/)
//
// Design policy:
// - Keep only shared contracts in the root package (Schema, Issues, Values, Config).
// - Messages come from an explicit Config threaded into schema construction; the
// built-in English dictionary is only a fallback.
// - Validation is synchronous and pure. The only suspension point is the injected
// upload transport.
//
// Typical usage:
//
//	signup := dsl.Object().
//	    Field("email", dsl.String().Trim().Email()).
//	    Field("password", dsl.String().Min(8)).
//	    Field("confirmPassword", dsl.String()).
//	    Refine("passwords-match", rules.FieldsMatch("password", "confirmPassword", "passwords do not match"))
//
//	s := form.NewSession(signup, formflow.Values{"email": ""}, form.OnChange)
//	email, _ := s.Bind("email")
//	email.SetValue(ctx, "someone@example.com")
//	err := s.Submit(ctx, func(ctx context.Context, v formflow.Values) error { return save(ctx, v) })
package formflow
