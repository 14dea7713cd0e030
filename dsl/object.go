package dsl

import (
	"context"
	"maps"
	"slices"
	"sort"

	formflow "github.com/reoring/formflow"
)

type fieldDef struct {
	schema      formflow.AnySchema
	optional    bool
	requiredMsg string
}

type objRefine struct {
	name string
	fn   func(context.Context, map[string]any) error
}

// ObjectSchema combines named field schemas with whole-object refinements.
// Like every schema in this package it is immutable: each builder method
// returns a new ObjectSchema.
type ObjectSchema struct {
	kit     Kit
	order   []string
	fields  map[string]fieldDef
	refines []objRefine
	unknown formflow.UnknownPolicy
}

var (
	_ formflow.Schema[map[string]any] = (*ObjectSchema)(nil)
	_ formflow.AnySchema              = (*ObjectSchema)(nil)
)

// Object creates an empty object shape. Free fields pass through by default.
func (k Kit) Object() *ObjectSchema {
	return &ObjectSchema{kit: k, fields: map[string]fieldDef{}, unknown: formflow.UnknownPassthrough}
}

func (o *ObjectSchema) clone() *ObjectSchema {
	out := *o
	out.order = slices.Clone(o.order)
	out.fields = maps.Clone(o.fields)
	if out.fields == nil {
		out.fields = map[string]fieldDef{}
	}
	out.refines = slices.Clone(o.refines)
	return &out
}

func (o *ObjectSchema) put(name string, def fieldDef) *ObjectSchema {
	out := o.clone()
	if _, exists := out.fields[name]; !exists {
		out.order = append(out.order, name)
	}
	out.fields[name] = def
	return out
}

// Field declares a required field. An optional message overrides the default
// "required" text.
func (o *ObjectSchema) Field(name string, s formflow.AnySchema, requiredMsg ...string) *ObjectSchema {
	def := fieldDef{schema: s}
	if len(requiredMsg) > 0 {
		def.requiredMsg = requiredMsg[0]
	}
	return o.put(name, def)
}

// Optional declares a field that may be absent (Unset). When present it must
// satisfy s.
func (o *ObjectSchema) Optional(name string, s formflow.AnySchema) *ObjectSchema {
	return o.put(name, fieldDef{schema: s, optional: true})
}

// Extend returns the combination of o and other. Fields of other replace
// same-named fields of o while keeping o's declaration position; refinements
// run o's first. The combination is associative and leaves both operands
// untouched. The receiver's unknown-key policy is kept.
func (o *ObjectSchema) Extend(other *ObjectSchema) *ObjectSchema {
	out := o.clone()
	for _, name := range other.order {
		if _, exists := out.fields[name]; !exists {
			out.order = append(out.order, name)
		}
		out.fields[name] = other.fields[name]
	}
	out.refines = append(out.refines, other.refines...)
	return out
}

// Unknown sets the policy for free fields.
func (o *ObjectSchema) Unknown(p formflow.UnknownPolicy) *ObjectSchema {
	out := o.clone()
	out.unknown = p
	return out
}

// Refine adds an object-level refinement. Refinements run only after every
// declared field passed. Returned Issues keep their paths, so a refinement can
// attach its failure to any field; a plain error lands on the object root.
func (o *ObjectSchema) Refine(name string, fn func(context.Context, map[string]any) error) *ObjectSchema {
	if fn == nil {
		return o
	}
	out := o.clone()
	out.refines = append(out.refines, objRefine{name: name, fn: fn})
	return out
}

// RefineAt adds a predicate refinement whose failure is reported under path
// (a dotted key such as "confirmPassword" or a JSON Pointer).
func (o *ObjectSchema) RefineAt(path, msg string, pred func(map[string]any) bool) *ObjectSchema {
	ref := formflow.At(path)
	return o.Refine(path, func(_ context.Context, v map[string]any) error {
		if pred(v) {
			return nil
		}
		return formflow.Issues{{Path: ref.Pointer(), Code: formflow.CodeCustom, Message: msg, Rule: path}}
	})
}

// HasField reports whether name is declared.
func (o *ObjectSchema) HasField(name string) bool {
	_, ok := o.fields[name]
	return ok
}

// Fields returns declared field names in declaration order.
func (o *ObjectSchema) Fields() []string { return slices.Clone(o.order) }

// CheckField validates a single declared field of values against its own
// schema, without refinements. Undeclared fields always pass.
func (o *ObjectSchema) CheckField(ctx context.Context, name string, values map[string]any) error {
	def, ok := o.fields[name]
	if !ok {
		return nil
	}
	_, iss := o.parseField(ctx, name, def, values)
	if len(iss) > 0 {
		return iss
	}
	return nil
}

func (o *ObjectSchema) parseField(ctx context.Context, name string, def fieldDef, src map[string]any) (any, formflow.Issues) {
	ref := formflow.Root().Field(name)
	val, present := src[name]
	if !present {
		if def.optional {
			return nil, nil
		}
		msg := def.requiredMsg
		if msg == "" {
			msg = o.kit.message(formflow.CodeRequired, nil, nil)
		}
		return nil, formflow.Issues{formflow.IssueAt(ref, formflow.CodeRequired, msg, nil)}
	}
	if def.schema == nil {
		return val, nil
	}
	parsed, err := def.schema.ParseAny(ctx, val)
	if err != nil {
		return nil, formflow.IssuesFromErr("/", err).Rebase(ref.Pointer())
	}
	return parsed, nil
}

// Parse validates every declared field in declaration order (one issue at
// most per field), applies the unknown-key policy and, only when all of that
// passed, runs the refinements.
func (o *ObjectSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	var src map[string]any
	switch t := v.(type) {
	case map[string]any:
		src = t
	case formflow.Values:
		src = t
	default:
		return nil, o.kit.typeIssue("object")
	}

	out := make(map[string]any, len(src))
	var iss formflow.Issues
	for _, name := range o.order {
		parsed, fiss := o.parseField(ctx, name, o.fields[name], src)
		if len(fiss) > 0 {
			iss = formflow.AppendIssues(iss, fiss...)
			continue
		}
		if _, present := src[name]; present {
			out[name] = parsed
		}
	}
	iss = formflow.AppendIssues(iss, o.collectUnknown(src, out)...)
	if len(iss) > 0 {
		return nil, iss
	}
	if err := o.runRefinements(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *ObjectSchema) ParseAny(ctx context.Context, v any) (any, error) { return o.Parse(ctx, v) }

func (o *ObjectSchema) Validate(ctx context.Context, v any) error {
	_, err := o.Parse(ctx, v)
	return err
}

// collectUnknown processes free keys according to the policy, in key-sorted
// order for deterministic output.
func (o *ObjectSchema) collectUnknown(src, out map[string]any) formflow.Issues {
	var uks []string
	for k := range src {
		if _, known := o.fields[k]; !known {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	var iss formflow.Issues
	for _, k := range uks {
		switch o.unknown {
		case formflow.UnknownStrict:
			iss = formflow.AppendIssues(iss, formflow.IssueAt(formflow.Root().Field(k), formflow.CodeUnknownKey, o.kit.message(formflow.CodeUnknownKey, nil, nil), nil))
		case formflow.UnknownStrip:
			// drop
		case formflow.UnknownPassthrough:
			out[k] = src[k]
		}
	}
	return iss
}

func (o *ObjectSchema) runRefinements(ctx context.Context, v map[string]any) error {
	var iss formflow.Issues
	for _, r := range o.refines {
		err := r.fn(ctx, v)
		if err == nil {
			continue
		}
		if i2, ok := formflow.AsIssues(err); ok {
			for _, it := range i2 {
				if it.Rule == "" {
					it.Rule = r.name
				}
				iss = formflow.AppendIssues(iss, it)
			}
			continue
		}
		iss = formflow.AppendIssues(iss, formflow.Issue{Path: "/", Code: formflow.CodeCustom, Message: err.Error(), Rule: r.name})
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}
