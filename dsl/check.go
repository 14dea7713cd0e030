package dsl

import (
	"slices"

	formflow "github.com/reoring/formflow"
)

// check is one declared constraint. Checks run in declaration order and the
// first failure ends evaluation.
type check[T any] struct {
	code   string
	msg    string
	params map[string]any
	ok     func(T) bool
}

func (c check[T]) issue() formflow.Issue {
	return formflow.Issue{Path: "/", Code: c.code, Message: c.msg, Params: c.params}
}

func runChecks[T any](v T, checks []check[T]) error {
	for _, c := range checks {
		if !c.ok(v) {
			return formflow.Issues{c.issue()}
		}
	}
	return nil
}

// appendClip appends without ever writing into the operand's backing array,
// which keeps derived schemas independent of their parents.
func appendClip[E any](s []E, more ...E) []E {
	return append(slices.Clip(s), more...)
}
