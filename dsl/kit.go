package dsl

import (
	formflow "github.com/reoring/formflow"
)

// Kit constructs schemas whose default messages come from one Config.
// A Kit is a value; copying it is cheap and safe.
type Kit struct {
	cfg formflow.Config
}

// NewKit returns a Kit bound to cfg.
func NewKit(cfg formflow.Config) Kit { return Kit{cfg: cfg} }

// std backs the package-level constructors. It is initialised once from the
// fallback configuration and never reassigned.
var std = NewKit(formflow.DefaultConfig())

// Config returns the configuration the kit was built with.
func (k Kit) Config() formflow.Config { return k.cfg }

// message resolves the constraint message: an explicit caller message wins,
// otherwise the translator renders code with params.
func (k Kit) message(code string, params map[string]any, custom []string) string {
	for _, m := range custom {
		if m != "" {
			return m
		}
	}
	return k.cfg.Message(code, params)
}

func (k Kit) typeIssue(expected string) formflow.Issues {
	return formflow.Issues{{
		Path:    "/",
		Code:    formflow.CodeInvalidType,
		Message: k.message(formflow.CodeInvalidType, map[string]any{"expected": expected}, nil),
		Params:  map[string]any{"expected": expected},
	}}
}

// String returns a string schema using the default configuration.
func String() *StringSchema { return std.String() }

// Number returns a float64 schema using the default configuration.
func Number() *NumberSchema { return std.Number() }

// Bool returns a bool schema using the default configuration.
func Bool() *BoolSchema { return std.Bool() }

// Enum returns a string schema restricted to values.
func Enum(values ...string) *StringSchema { return std.Enum(values...) }

// Object returns an empty object shape using the default configuration.
func Object() *ObjectSchema { return std.Object() }
