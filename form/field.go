package form

import (
	"context"
	"fmt"
	"sort"
	"strings"

	formflow "github.com/reoring/formflow"
)

// FieldState is the derived view of one field.
type FieldState struct {
	Value     formflow.Value
	IsTouched bool
	IsDirty   bool
	Error     string
}

// HasError reports whether the field carries a message.
func (fs FieldState) HasError() bool { return fs.Error != "" }

// Field is the controller for one named field of a Session. It holds no
// state of its own; every read goes to the session.
type Field struct {
	s    *Session
	name string
}

func (f *Field) Name() string { return f.name }

// Value returns Unset when the key is absent, Set(v) otherwise (including
// Set("")).
func (f *Field) Value() formflow.Value {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v := f.s.values.Lookup(f.name)
	if raw, ok := v.Get(); ok {
		return formflow.Set(formflow.DeepCopy(raw))
	}
	return v
}

// Raw returns the current value or nil when unset.
func (f *Field) Raw() any {
	return f.Value().Or(nil)
}

// SetValue writes v into the form and, when the session mode asks for it,
// re-validates the field before returning.
func (f *Field) SetValue(ctx context.Context, v any) {
	f.s.write(ctx, f.name, formflow.Set(v))
}

// Clear makes the field Unset.
func (f *Field) Clear(ctx context.Context) {
	f.s.write(ctx, f.name, formflow.Unset())
}

// Blur marks the field touched.
func (f *Field) Blur(ctx context.Context) {
	f.s.blur(ctx, f.name)
}

// Error returns the displayed message, or "" when there is none. For nested
// objects the first nested message (by key) is returned.
func (f *Field) Error() string {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.errorLocked()
}

func (f *Field) errorLocked() string {
	if msg, ok := f.s.errors[f.name]; ok {
		return msg
	}
	var nested []string
	for k := range f.s.errors {
		if strings.HasPrefix(k, f.name+".") {
			nested = append(nested, k)
		}
	}
	if len(nested) == 0 {
		return ""
	}
	sort.Strings(nested)
	return f.s.errors[nested[0]]
}

func (f *Field) HasError() bool { return f.Error() != "" }

func (f *Field) IsTouched() bool { return f.State().IsTouched }

func (f *Field) IsDirty() bool { return f.State().IsDirty }

// State snapshots value, flags and error together.
func (f *Field) State() FieldState {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	st := FieldState{Value: f.s.values.Lookup(f.name), Error: f.errorLocked()}
	if raw, ok := st.Value.Get(); ok {
		st.Value = formflow.Set(formflow.DeepCopy(raw))
	}
	if m, ok := f.s.meta[f.name]; ok {
		st.IsTouched = m.touched
		st.IsDirty = m.dirty
	}
	return st
}

// TypedField is a statically typed accessor over one field.
type TypedField[T any] struct {
	f *Field
}

// FieldOf binds name with a static value type.
func FieldOf[T any](s *Session, name string) (TypedField[T], error) {
	f, err := s.Bind(name)
	if err != nil {
		return TypedField[T]{}, err
	}
	return TypedField[T]{f: f}, nil
}

// Get returns the value and whether it is set. A value of another dynamic
// type yields ErrTypeMismatch.
func (t TypedField[T]) Get() (T, bool, error) {
	var zero T
	raw, ok := t.f.Value().Get()
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, true, fmt.Errorf("%w: %q holds %T, want %T", ErrTypeMismatch, t.f.name, raw, zero)
	}
	return v, true, nil
}

func (t TypedField[T]) Set(ctx context.Context, v T) { t.f.SetValue(ctx, v) }

// Field returns the untyped controller.
func (t TypedField[T]) Field() *Field { return t.f }
