// Package form binds named fields of a working value to a schema and drives
// the validate/submit/reset lifecycle of one form.
package form

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	formflow "github.com/reoring/formflow"
)

var (
	// ErrUnknownField is returned by Bind for names that are neither declared
	// by the schema nor present in the initial values.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrSubmitInProgress is returned by Submit while a previous handler has
	// not settled yet.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrTypeMismatch is returned by TypedField.Get when the stored value has
	// a different dynamic type.
	ErrTypeMismatch = errors.New("form: field type mismatch")
)

// FormErrorKey is the error-map key for issues reported on the object root.
const FormErrorKey = "_form"

// Schema is the object contract a session validates against.
// *dsl.ObjectSchema satisfies it.
type Schema interface {
	Parse(ctx context.Context, v any) (map[string]any, error)
	CheckField(ctx context.Context, name string, values map[string]any) error
	HasField(name string) bool
}

// Result is a fresh derivation of the whole-form state.
type Result struct {
	Values       formflow.Values   `json:"values"`
	IsValid      bool              `json:"isValid"`
	Errors       map[string]string `json:"errors"`
	IsSubmitting bool              `json:"isSubmitting"`
}

// SubmitHandler receives the parsed (normalised) values of a valid form.
type SubmitHandler func(ctx context.Context, values formflow.Values) error

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithErrorHandler registers the callback invoked when Submit finds the form
// invalid.
func WithErrorHandler(fn func(errors map[string]string)) Option {
	return func(s *Session) { s.onInvalid = fn }
}

// WithReValidateMode sets the field validation mode used after the first
// submit attempt. Defaults to OnChange.
func WithReValidateMode(m Mode) Option {
	return func(s *Session) { s.reValidate = m }
}

type fieldMeta struct {
	touched bool
	dirty   bool
}

// Session owns one form's working value. All methods are safe for concurrent
// use; the submit handler runs outside the session lock.
type Session struct {
	mu          sync.Mutex
	schema      Schema
	initial     formflow.Values
	values      formflow.Values
	meta        map[string]*fieldMeta
	errors      map[string]string
	state       State
	mode        Mode
	reValidate  Mode
	submitting  bool
	submitCount int
	onInvalid   func(map[string]string)
	log         *zap.Logger
}

// NewSession creates a session over a private copy of initial. A nil schema
// treats every field as free.
func NewSession(schema Schema, initial formflow.Values, mode Mode, opts ...Option) *Session {
	if schema == nil {
		schema = freeSchema{}
	}
	s := &Session{
		schema:     schema,
		initial:    initial.Clone(),
		values:     initial.Clone(),
		meta:       map[string]*fieldMeta{},
		errors:     map[string]string{},
		state:      Pristine,
		mode:       mode,
		reValidate: OnChange,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bind returns the controller for name. Unknown names fail closed.
func (s *Session) Bind(name string) (*Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.schema.HasField(name) && !s.initial.Lookup(name).IsSet() && !s.values.Lookup(name).IsSet() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return &Field{s: s, name: name}, nil
}

// MustBind is Bind for statically known field names.
func (s *Session) MustBind(name string) *Field {
	f, err := s.Bind(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Validate runs whole-form validation and replaces every displayed error.
func (s *Session) Validate(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setState(Validating)
	_, iss := s.parse(ctx)
	s.errors = errorMap(iss)
	s.settle(len(iss) == 0)
	return s.resultLocked(iss)
}

// Result derives the current whole-form result without touching displayed
// errors or the lifecycle state.
func (s *Session) Result(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, iss := s.parse(ctx)
	return s.resultLocked(iss)
}

// Submit re-derives the result from the latest values. An invalid form calls
// the error handler and returns nil without calling handler. A valid form
// enters Submitting, calls handler with the parsed values and leaves
// Submitting once it settles; the handler's error is returned unchanged and a
// panic propagates after the flag was reset.
func (s *Session) Submit(ctx context.Context, handler SubmitHandler) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitInProgress
	}
	s.submitCount++
	s.setState(Validating)
	parsed, iss := s.parse(ctx)
	s.errors = errorMap(iss)
	if len(iss) > 0 {
		s.settle(false)
		onInvalid := s.onInvalid
		errs := maps.Clone(s.errors)
		s.mu.Unlock()
		s.log.Debug("form submit rejected", zap.Int("errors", len(errs)))
		if onInvalid != nil {
			onInvalid(errs)
		}
		return nil
	}
	s.settle(true)
	s.submitting = true
	s.setState(Submitting)
	s.mu.Unlock()

	succeeded := false
	defer func() {
		s.mu.Lock()
		s.submitting = false
		if succeeded {
			s.setState(SubmitSucceeded)
		} else {
			s.setState(SubmitFailed)
		}
		s.mu.Unlock()
	}()

	if handler == nil {
		succeeded = true
		return nil
	}
	err := handler(ctx, formflow.Values(parsed).Clone())
	if err != nil {
		s.log.Debug("form submit handler failed", zap.Error(err))
		return err
	}
	succeeded = true
	return nil
}

// Reset restores the initial values and clears touched, dirty and error state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = s.initial.Clone()
	s.meta = map[string]*fieldMeta{}
	s.errors = map[string]string{}
	s.submitCount = 0
	if !s.submitting {
		s.setState(Pristine)
	}
}

// Values returns a deep copy of the working value.
func (s *Session) Values() formflow.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Errors returns a copy of the displayed error map.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.errors)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// SubmitCount is the number of Submit attempts since creation or Reset.
func (s *Session) SubmitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCount
}

// ---- locked helpers ----

func (s *Session) parse(ctx context.Context) (map[string]any, formflow.Issues) {
	out, err := s.schema.Parse(ctx, s.values)
	if err != nil {
		return nil, formflow.IssuesFromErr("/", err)
	}
	return out, nil
}

func (s *Session) resultLocked(iss formflow.Issues) Result {
	return Result{
		Values:       s.values.Clone(),
		IsValid:      len(iss) == 0,
		Errors:       errorMap(iss),
		IsSubmitting: s.submitting,
	}
}

func (s *Session) effectiveMode() Mode {
	if s.submitCount > 0 {
		return s.reValidate
	}
	return s.mode
}

func (s *Session) fieldMeta(name string) *fieldMeta {
	m, ok := s.meta[name]
	if !ok {
		m = &fieldMeta{}
		s.meta[name] = m
	}
	return m
}

// write stores (or removes, when !v.IsSet()) a field value and runs the
// mode-dependent field validation before returning.
func (s *Session) write(ctx context.Context, name string, v formflow.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.values.Lookup(name)
	if raw, ok := v.Get(); ok {
		s.values[name] = formflow.DeepCopy(raw)
	} else {
		delete(s.values, name)
	}
	if !prev.Equal(v) {
		s.fieldMeta(name).dirty = true
		if !s.submitting {
			s.setState(Editing)
		}
	}
	if s.effectiveMode() == OnChange {
		s.validateField(ctx, name)
	}
}

func (s *Session) blur(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldMeta(name).touched = true
	if s.state == Pristine {
		s.setState(Editing)
	}
	if s.effectiveMode() == OnBlur {
		s.validateField(ctx, name)
	}
}

// validateField refreshes the displayed error of one field: its own schema
// first, then refinements that attach to it once every field passes.
func (s *Session) validateField(ctx context.Context, name string) {
	if !s.schema.HasField(name) {
		s.clearErrors(name)
		return
	}
	s.setState(Validating)
	var own formflow.Issues
	if err := s.schema.CheckField(ctx, name, s.values); err != nil {
		own = formflow.IssuesFromErr("/"+name, err)
	}
	_, full := s.parse(ctx)
	if len(own) == 0 {
		for _, it := range full {
			if formflow.TopField(it.Path) == name {
				own = append(own, it)
			}
		}
	}
	s.clearErrors(name)
	for k, msg := range errorMap(own) {
		s.errors[k] = msg
	}
	s.reconcile(name, full)
	s.settle(len(full) == 0)
}

// reconcile keeps the errors shown on other fields consistent with the
// whole-form pass. A clean pass clears them all. A pass that reached the
// refinements (every issue carries a Rule) re-derives them from its issues.
// A pass that stopped at field checks leaves them alone.
func (s *Session) reconcile(changed string, full formflow.Issues) {
	if len(full) == 0 {
		clear(s.errors)
		return
	}
	for _, it := range full {
		if it.Rule == "" {
			return
		}
	}
	derived := errorMap(full)
	for k := range s.errors {
		if formflow.TopField(k) == changed {
			continue
		}
		if msg, ok := derived[k]; ok {
			s.errors[k] = msg
		} else {
			delete(s.errors, k)
		}
	}
}

func (s *Session) clearErrors(name string) {
	for k := range s.errors {
		if formflow.TopField(k) == name {
			delete(s.errors, k)
		}
	}
}

func (s *Session) settle(valid bool) {
	if s.submitting {
		return
	}
	if valid {
		s.setState(Valid)
	} else {
		s.setState(Invalid)
	}
}

func (s *Session) setState(next State) {
	if s.submitting && next != Submitting && next != SubmitSucceeded && next != SubmitFailed {
		return
	}
	if s.state == next {
		return
	}
	s.log.Debug("form state", zap.Stringer("from", s.state), zap.Stringer("to", next))
	s.state = next
}

// errorMap folds issues into the displayed field -> message map, keeping the
// first message per key. Root issues use FormErrorKey.
func errorMap(iss formflow.Issues) map[string]string {
	out := make(map[string]string, len(iss))
	for k, msg := range iss.ByField() {
		if k == "" {
			k = FormErrorKey
		}
		out[k] = msg
	}
	return out
}

// freeSchema accepts any object and declares no fields.
type freeSchema struct{}

func (freeSchema) Parse(_ context.Context, v any) (map[string]any, error) {
	switch t := v.(type) {
	case formflow.Values:
		return t, nil
	case map[string]any:
		return t, nil
	}
	return nil, formflow.Issues{{Path: "/", Code: formflow.CodeInvalidType, Message: "expected object"}}
}

func (freeSchema) CheckField(context.Context, string, map[string]any) error { return nil }

func (freeSchema) HasField(string) bool { return false }
