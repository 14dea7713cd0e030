package rules

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	formflow "github.com/reoring/formflow"
)

// Rule is an object refinement, directly usable with dsl.ObjectSchema.Refine.
type Rule = func(context.Context, map[string]any) error

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates a path against a value using an operator.
// The path is a dotted key ("plan" or "address.country") or a JSON Pointer.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAll(conds...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAny(conds...)
}

// Holds evaluates the condition against v.
func (c Conditional) Holds(v map[string]any) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(v) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(v) {
				return true
			}
		}
		return false
	}
	cur, ok := valueAt(v, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// Then attaches rules to run when the condition is satisfied.
func (c Conditional) Then(rules ...Rule) Rule {
	inner := And(rules...)
	return func(ctx context.Context, v map[string]any) error {
		if !c.Holds(v) {
			return nil
		}
		return inner(ctx, v)
	}
}

// FieldsMatch requires field b to equal field a; the failure is reported on b
// (e.g. "confirmPassword" must equal "password").
func FieldsMatch(a, b, msg string) Rule {
	ref := formflow.At(b)
	return func(_ context.Context, v map[string]any) error {
		av, _ := valueAt(v, a)
		bv, _ := valueAt(v, b)
		if reflect.DeepEqual(av, bv) {
			return nil
		}
		return formflow.Issues{ref.Issue(formflow.CodeCustom, msg, "other", a)}
	}
}

// RequiredIf requires field to hold a non-empty value whenever cond holds.
func RequiredIf(cond Conditional, field, msg string) Rule {
	ref := formflow.At(field)
	return func(_ context.Context, v map[string]any) error {
		if !cond.Holds(v) {
			return nil
		}
		if val, ok := valueAt(v, field); ok && !isEmpty(val) {
			return nil
		}
		return formflow.Issues{ref.Issue(formflow.CodeRequired, msg)}
	}
}

// AtLeastOne ensures the collection at path has at least 1 element.
func AtLeastOne(path, msg string) Rule {
	ref := formflow.At(path)
	return func(_ context.Context, v map[string]any) error {
		val, ok := valueAt(v, path)
		if !ok {
			return formflow.Issues{ref.Issue(formflow.CodeTooSmall, msg, "min", 1)}
		}
		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return formflow.Issues{ref.Issue(formflow.CodeTooSmall, msg, "min", 1)}
			}
		default:
			// Not a collection; do not issue error here to avoid noise
		}
		return nil
	}
}

// UniqueBy ensures elements in a collection have unique key values.
// keyPath is a relative path inside each element (e.g. "email").
func UniqueBy(collectionPath, keyPath, msg string) Rule {
	ref := formflow.At(collectionPath)
	return func(_ context.Context, v map[string]any) error {
		val, ok := valueAt(v, collectionPath)
		if !ok {
			return nil
		}
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil
		}
		seen := map[string]int{}
		var out formflow.Issues
		for i := 0; i < rv.Len(); i++ {
			kv, ok := valueWithin(rv.Index(i).Interface(), splitPath(keyPath))
			if !ok {
				continue
			}
			key := fmt.Sprint(kv)
			if j, dup := seen[key]; dup {
				out = append(out, ref.Index(i).Field(keyPath).Issue(formflow.CodeCustom, msg, "first", j, "dup", i))
				continue
			}
			seen[key] = i
		}
		if len(out) > 0 {
			return out
		}
		return nil
	}
}

// ---------- Rule combinators ----------

// And executes all rules and concatenates their Issues.
func And(rules ...Rule) Rule {
	return func(ctx context.Context, v map[string]any) error {
		var out formflow.Issues
		for _, r := range rules {
			if r == nil {
				continue
			}
			if err := r(ctx, v); err != nil {
				out = formflow.AppendIssues(out, formflow.IssuesFromErr("/", err)...)
			}
		}
		if len(out) > 0 {
			return out
		}
		return nil
	}
}

// Or succeeds if any rule passes. When all fail, the branch with the fewest
// issues is returned.
func Or(rules ...Rule) Rule {
	return func(ctx context.Context, v map[string]any) error {
		var best formflow.Issues
		bestSet := false
		for _, r := range rules {
			if r == nil {
				continue
			}
			err := r(ctx, v)
			if err == nil {
				return nil
			}
			iss := formflow.IssuesFromErr("/", err)
			if !bestSet || len(iss) < len(best) {
				best = iss
				bestSet = true
			}
		}
		if bestSet {
			return best
		}
		return nil
	}
}

// ------- helpers -------

func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	if strings.Contains(p, "/") {
		return strings.Split(p, "/")
	}
	return strings.Split(p, ".")
}

func valueAt(v map[string]any, path string) (any, bool) {
	return valueWithin(v, splitPath(path))
}

func valueWithin(v any, parts []string) (any, bool) {
	cur := v
	for _, seg := range parts {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case formflow.Values:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		default:
			rv := reflect.ValueOf(cur)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return nil, false
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= rv.Len() {
				return nil, false
			}
			cur = rv.Index(idx).Interface()
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		if a, okA := toFloat(cur); okA {
			if b, okB := toFloat(want); okB {
				return a == b
			}
		}
		return reflect.DeepEqual(cur, want)
	case Ne:
		return !compare(cur, Eq, want)
	case Lt, Le, Gt, Ge:
		a, okA := toFloat(cur)
		b, okB := toFloat(want)
		if !okA || !okB {
			return false
		}
		switch op {
		case Lt:
			return a < b
		case Le:
			return a <= b
		case Gt:
			return a > b
		case Ge:
			return a >= b
		}
	}
	return false
}

// toFloat accepts the numeric shapes form values arrive in.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case nil, string, bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
