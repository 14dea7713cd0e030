package form_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/form"
	"github.com/reoring/formflow/rules"
)

func signup() *g.ObjectSchema {
	return g.Object().
		Field("email", g.String().Trim().Email("invalid email")).
		Field("password", g.String().Min(8, "password too short").Pattern(`[0-9]`, "password needs a digit")).
		Field("confirmPassword", g.String()).
		Optional("nickname", g.String().Max(12, "nickname too long")).
		Refine("confirm", rules.FieldsMatch("password", "confirmPassword", "passwords do not match"))
}

func blank() formflow.Values {
	return formflow.Values{"email": "", "password": "", "confirmPassword": ""}
}

func TestSession_CrossFieldRefinementAttachesToConfirm(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnSubmit)
	s.MustBind("email").SetValue(ctx, "a@b.co")
	s.MustBind("password").SetValue(ctx, "Abc12345!")
	s.MustBind("confirmPassword").SetValue(ctx, "different")

	res := s.Validate(ctx)
	require.False(t, res.IsValid)
	assert.Equal(t, map[string]string{"confirmPassword": "passwords do not match"}, res.Errors)
	assert.Equal(t, "passwords do not match", s.MustBind("confirmPassword").Error())
	assert.Empty(t, s.MustBind("password").Error())
	assert.Equal(t, form.Invalid, s.State())
}

func TestSession_OnChangeValidatesSynchronously(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnChange)
	pw := s.MustBind("password")

	pw.SetValue(ctx, "abc")
	assert.Equal(t, "password too short", pw.Error())
	pw.SetValue(ctx, "abcdefgh")
	assert.Equal(t, "password needs a digit", pw.Error())
	pw.SetValue(ctx, "abcdefg1")
	assert.Empty(t, pw.Error())
	assert.True(t, pw.IsDirty())
	assert.False(t, pw.IsTouched())

	// other fields keep their state
	assert.Empty(t, s.MustBind("email").Error())
}

func TestSession_OnChangeSurfacesRefinementOnChangedField(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), formflow.Values{"email": "a@b.co", "password": "Abc12345!", "confirmPassword": ""}, form.OnChange)
	confirm := s.MustBind("confirmPassword")

	confirm.SetValue(ctx, "Abc1234")
	assert.Equal(t, "passwords do not match", confirm.Error())
	assert.Equal(t, form.Invalid, s.State())

	confirm.SetValue(ctx, "Abc12345!")
	assert.Empty(t, confirm.Error())
	assert.Equal(t, form.Valid, s.State())
}

func TestSession_OnChangeClearsRefinementErrorFixedFromOtherField(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), formflow.Values{"email": "a@b.co", "password": "Abc12345!", "confirmPassword": ""}, form.OnChange)
	confirm := s.MustBind("confirmPassword")

	confirm.SetValue(ctx, "Xyz12345!")
	require.Equal(t, "passwords do not match", confirm.Error())

	s.MustBind("password").SetValue(ctx, "Xyz12345!")
	assert.Empty(t, confirm.Error())
	assert.Empty(t, s.Errors())
	assert.Equal(t, form.Valid, s.State())
	assert.True(t, s.Result(ctx).IsValid)
}

func TestSession_OnChangeKeepsOtherFieldErrorsWhileFieldsFail(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), formflow.Values{"email": "a@b.co", "password": "Abc12345!", "confirmPassword": ""}, form.OnChange)
	confirm := s.MustBind("confirmPassword")

	confirm.SetValue(ctx, "Xyz12345!")
	require.Equal(t, "passwords do not match", confirm.Error())

	// The email check fails first, so refinements do not run on this pass.
	s.MustBind("email").SetValue(ctx, "nope")
	assert.Equal(t, "invalid email", s.MustBind("email").Error())
	assert.Equal(t, "passwords do not match", confirm.Error())
	assert.Equal(t, form.Invalid, s.State())
}

func TestSession_OnSubmitDefersUntilSubmitThenRevalidatesOnChange(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnSubmit)
	email := s.MustBind("email")

	email.SetValue(ctx, "nope")
	assert.Empty(t, email.Error(), "no validation before the first submit")
	assert.Equal(t, form.Editing, s.State())

	require.NoError(t, s.Submit(ctx, func(context.Context, formflow.Values) error {
		t.Fatal("handler must not run for an invalid form")
		return nil
	}))
	assert.Equal(t, "invalid email", email.Error())

	email.SetValue(ctx, "a@b.co")
	assert.Empty(t, email.Error(), "re-validate mode defaults to onChange after submit")
}

func TestSession_OnBlur(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnBlur)
	email := s.MustBind("email")

	email.SetValue(ctx, "nope")
	assert.Empty(t, email.Error())
	email.Blur(ctx)
	assert.True(t, email.IsTouched())
	assert.Equal(t, "invalid email", email.Error())
}

func TestSession_UnsetVersusEmpty(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnChange)
	nick, err := s.Bind("nickname")
	require.NoError(t, err, "declared fields bind even when absent from initial values")

	assert.False(t, nick.Value().IsSet())
	nick.SetValue(ctx, "")
	assert.True(t, nick.Value().IsSet())
	assert.Equal(t, "", nick.Raw())
	nick.Clear(ctx)
	assert.False(t, nick.Value().IsSet())
	assert.Nil(t, nick.Raw())

	confirm := s.MustBind("confirmPassword")
	confirm.Clear(ctx)
	assert.Equal(t, "required", confirm.Error())
}

func TestSession_BindFailsClosed(t *testing.T) {
	s := form.NewSession(signup(), formflow.Values{"referrer": "ad"}, form.OnChange)
	_, err := s.Bind("nope")
	require.ErrorIs(t, err, form.ErrUnknownField)

	free, err := s.Bind("referrer")
	require.NoError(t, err)
	free.SetValue(context.Background(), 42)
	assert.Empty(t, free.Error(), "free fields never carry an error")
}

func TestSession_SubmitPassesParsedValues(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), formflow.Values{
		"email": "  a@b.co ", "password": "Abc12345!", "confirmPassword": "Abc12345!",
	}, form.OnSubmit)

	var got formflow.Values
	require.NoError(t, s.Submit(ctx, func(_ context.Context, v formflow.Values) error {
		assert.True(t, s.IsSubmitting())
		assert.Equal(t, form.Submitting, s.State())
		got = v
		return nil
	}))
	assert.Equal(t, "a@b.co", got["email"])
	assert.False(t, s.IsSubmitting())
	assert.Equal(t, form.SubmitSucceeded, s.State())
	assert.Equal(t, 1, s.SubmitCount())

	s.MustBind("email").SetValue(ctx, "c@d.co")
	assert.Equal(t, form.Valid, s.State())
}

func TestSession_InvalidSubmitCallsErrorHandler(t *testing.T) {
	ctx := context.Background()
	var seen map[string]string
	s := form.NewSession(signup(), blank(), form.OnSubmit, form.WithErrorHandler(func(errs map[string]string) {
		seen = errs
	}))
	called := false
	require.NoError(t, s.Submit(ctx, func(context.Context, formflow.Values) error {
		called = true
		return nil
	}))
	assert.False(t, called)
	assert.Equal(t, map[string]string{
		"email":    "invalid email",
		"password": "password too short",
	}, seen)
	assert.Equal(t, form.Invalid, s.State())
}

func TestSession_HandlerErrorPropagatesAfterReset(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(nil, formflow.Values{"note": "hi"}, form.OnSubmit)
	boom := errors.New("backend down")

	err := s.Submit(ctx, func(context.Context, formflow.Values) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, s.IsSubmitting())
	assert.Equal(t, form.SubmitFailed, s.State())

	// the form is submittable again
	require.NoError(t, s.Submit(ctx, func(context.Context, formflow.Values) error { return nil }))
	assert.Equal(t, form.SubmitSucceeded, s.State())
}

func TestSession_HandlerPanicResetsThenPropagates(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(nil, formflow.Values{}, form.OnSubmit)

	func() {
		defer func() {
			r := recover()
			require.Equal(t, "handler exploded", r)
		}()
		_ = s.Submit(ctx, func(context.Context, formflow.Values) error { panic("handler exploded") })
	}()
	assert.False(t, s.IsSubmitting())
	assert.Equal(t, form.SubmitFailed, s.State())
}

func TestSession_ConcurrentSubmitGuard(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(nil, formflow.Values{"a": 1}, form.OnSubmit)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	handler := func(context.Context, formflow.Values) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.Submit(ctx, handler) }()
	<-entered

	err := s.Submit(ctx, handler)
	require.ErrorIs(t, err, form.ErrSubmitInProgress)
	close(release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestSession_ResetRestoresInitialValues(t *testing.T) {
	ctx := context.Background()
	initial := formflow.Values{"email": "a@b.co", "password": "", "confirmPassword": "", "tags": []any{"x"}}
	s := form.NewSession(signup(), initial, form.OnChange)

	s.MustBind("email").SetValue(ctx, "nope")
	s.MustBind("email").Blur(ctx)
	s.MustBind("nickname").SetValue(ctx, "far too long a nickname")
	s.MustBind("tags").SetValue(ctx, []any{"y", "z"})
	require.NotEmpty(t, s.Errors())

	s.Reset()
	assert.Equal(t, initial, s.Values())
	assert.Empty(t, s.Errors())
	assert.Equal(t, form.Pristine, s.State())
	st := s.MustBind("email").State()
	assert.False(t, st.IsTouched)
	assert.False(t, st.IsDirty)
	assert.False(t, st.HasError())
}

func TestSession_ResetRestoresTypedContainers(t *testing.T) {
	initial := formflow.Values{
		"scores": []int{1, 2},
		"labels": map[string]string{"k": "v"},
		"matrix": [][]float64{{1.5}},
	}
	s := form.NewSession(nil, initial, form.OnChange)

	got := s.Values()
	got["scores"].([]int)[0] = 99
	got["labels"].(map[string]string)["k"] = "changed"
	got["matrix"].([][]float64)[0][0] = 0

	s.Reset()
	assert.Equal(t, formflow.Values{
		"scores": []int{1, 2},
		"labels": map[string]string{"k": "v"},
		"matrix": [][]float64{{1.5}},
	}, s.Values())
}

func TestSession_ValidateIsIdempotent(t *testing.T) {
	cases := []struct {
		name   string
		values formflow.Values
	}{
		{"blank", blank()},
		{"mismatch", formflow.Values{"email": "a@b.co", "password": "Abc12345!", "confirmPassword": "x"}},
		{"valid", formflow.Values{"email": "a@b.co", "password": "Abc12345!", "confirmPassword": "Abc12345!"}},
		{"nickname too long", formflow.Values{"email": "a", "password": "", "confirmPassword": "", "nickname": "far too long a nickname"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := form.NewSession(signup(), tc.values, form.OnSubmit)
			first := s.Validate(ctx)
			firstErrors := s.Errors()
			second := s.Validate(ctx)
			assert.Equal(t, first, second)
			assert.Equal(t, firstErrors, s.Errors())
			assert.Equal(t, tc.values, s.Values())
		})
	}
}

func TestSession_ValuesAreOwned(t *testing.T) {
	initial := formflow.Values{"tags": []any{"a"}}
	s := form.NewSession(nil, initial, form.OnSubmit)
	initial["tags"].([]any)[0] = "mutated"

	got := s.Values()
	assert.Equal(t, []any{"a"}, got["tags"])
	got["tags"].([]any)[0] = "again"
	assert.Equal(t, []any{"a"}, s.Values()["tags"])
}

func TestSession_ResultDoesNotChangeDisplayedErrors(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(signup(), blank(), form.OnSubmit)
	res := s.Result(ctx)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
	assert.Empty(t, s.Errors())
	assert.Equal(t, form.Pristine, s.State())
}

func TestSession_RootRefinementUsesFormKey(t *testing.T) {
	ctx := context.Background()
	schema := g.Object().Field("a", g.String()).Refine("locked", func(context.Context, map[string]any) error {
		return errors.New("form is locked")
	})
	s := form.NewSession(schema, formflow.Values{"a": "x"}, form.OnSubmit)
	res := s.Validate(ctx)
	assert.Equal(t, map[string]string{form.FormErrorKey: "form is locked"}, res.Errors)
}

func TestTypedField(t *testing.T) {
	ctx := context.Background()
	s := form.NewSession(nil, formflow.Values{"age": 30.0, "name": "Reo"}, form.OnChange)

	age, err := form.FieldOf[float64](s, "age")
	require.NoError(t, err)
	v, ok, err := age.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)
	age.Set(ctx, 31)
	v, _, _ = age.Get()
	assert.Equal(t, 31.0, v)

	wrong, err := form.FieldOf[int](s, "name")
	require.NoError(t, err)
	_, _, err = wrong.Get()
	require.ErrorIs(t, err, form.ErrTypeMismatch)

	_, err = form.FieldOf[string](s, "missing")
	require.ErrorIs(t, err, form.ErrUnknownField)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]form.Mode{"onChange": form.OnChange, "SUBMIT": form.OnSubmit, " onblur ": form.OnBlur} {
		got, err := form.ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := form.ParseMode("onHover")
	require.Error(t, err)
}
