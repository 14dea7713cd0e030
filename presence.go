package formflow

import "reflect"

// Presence distinguishes a field that was never provided from one that holds
// a value, including the empty string.
type Presence uint8

const (
	PresenceUnset Presence = iota // Key absent from the form value.
	PresenceSet                   // Key present; the value may still be "" or nil.
)

// Value is the explicit Unset | Set(v) view of one field.
type Value struct {
	v        any
	presence Presence
}

// Unset returns the absent value.
func Unset() Value { return Value{} }

// Set wraps v as a present value.
func Set(v any) Value { return Value{v: v, presence: PresenceSet} }

// IsSet reports whether the field holds a value.
func (v Value) IsSet() bool { return v.presence == PresenceSet }

// Presence returns the presence flag.
func (v Value) Presence() Presence { return v.presence }

// Get returns the wrapped value and whether it is set.
func (v Value) Get() (any, bool) { return v.v, v.presence == PresenceSet }

// Or returns the wrapped value or def when unset.
func (v Value) Or(def any) any {
	if v.presence != PresenceSet {
		return def
	}
	return v.v
}

// Equal compares presence and a deep comparison of the wrapped values.
func (v Value) Equal(o Value) bool {
	if v.presence != o.presence {
		return false
	}
	return reflect.DeepEqual(v.v, o.v)
}

// Values is the working value of a form: field name to arbitrary value
// (string, number, bool, []any, map[string]any, ...).
type Values map[string]any

// Lookup returns the field as a Value; absent keys are Unset.
func (vs Values) Lookup(name string) Value {
	if vs == nil {
		return Unset()
	}
	v, ok := vs[name]
	if !ok {
		return Unset()
	}
	return Set(v)
}

// Clone returns a deep copy of maps, slices and arrays; leaf values are shared.
func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = DeepCopy(v)
	}
	return out
}

// DeepCopy copies nested map/slice containers so callers can mutate the result
// without affecting the source.
func DeepCopy(value any) any {
	switch typed := value.(type) {
	case Values:
		return typed.Clone()
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = DeepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = DeepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case nil:
		return nil
	}
	return deepCopyReflect(reflect.ValueOf(value)).Interface()
}

// deepCopyReflect handles typed containers such as []int or
// map[string]string that the fast paths above do not name.
func deepCopyReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyElem(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyElem(iter.Value()))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyElem(rv.Index(i)))
		}
		return out
	}
	return rv
}

// copyElem copies one element, going through DeepCopy for interface-typed
// elements so nested []any and map[string]any keep their fast paths.
func copyElem(ev reflect.Value) reflect.Value {
	if ev.Kind() == reflect.Interface {
		if ev.IsNil() {
			return ev
		}
		return reflect.ValueOf(DeepCopy(ev.Interface())).Convert(ev.Type())
	}
	return deepCopyReflect(ev)
}
