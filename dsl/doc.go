// Package dsl provides composable constraint schemas for form values.
//
// Overview
//   - Leaf schemas: String(), Number(), Bool(), Enum(...), Array(elem).
//   - Object(): named fields plus whole-object refinements (Refine/RefineAt) that
//     attach their failure to a chosen field path.
//   - Kit: schemas built from an explicit formflow.Config; the package-level
//     constructors use formflow.DefaultConfig().
//
// Semantics
//   - Immutable: every builder method returns a new schema. Extend is
//     associative and never mutates its operands.
//   - Evaluation order per value: type check -> normalisers (Trim, ToLower,
//     StripHTML) -> constraints in declaration order. The first failing
//     constraint wins; there is no multi-error accumulation for one value.
//   - Objects report at most one issue per field, in declaration order, and run
//     refinements only when all fields passed.
//   - Failures are formflow.Issues values, never panics.
//
// Example
//
//	signup := dsl.Object().
//	    Field("email", dsl.String().Trim().Email("enter a valid e-mail")).
//	    Field("password", dsl.String().Min(8).Pattern(`[0-9]`, "must contain a digit")).
//	    Field("confirmPassword", dsl.String()).
//	    RefineAt("confirmPassword", "passwords do not match", func(m map[string]any) bool {
//	        return m["password"] == m["confirmPassword"]
//	    })
//
//	_, err := signup.Parse(ctx, map[string]any{"email": "a@b.co", "password": "x", "confirmPassword": "x"})
//	iss, _ := formflow.AsIssues(err) // [{Path:/password Code:too_short ...}]
//
// File layout
//   - kit.go: Kit and package-level constructors.
//   - check.go: ordered constraint runner shared by leaf schemas.
//   - string.go, number.go, bool.go, array.go: leaf schemas.
//   - object.go: object shapes, refinements, single-field checks.
//   - adapter.go: SchemaOf, Nullable, Any.
package dsl
