package dsl

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	formflow "github.com/reoring/formflow"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// strictPolicy strips every tag. bluemonday policies are safe for concurrent
// use once built.
var strictPolicy = bluemonday.StrictPolicy()

// StringSchema validates strings. Every method returns a new schema.
type StringSchema struct {
	kit    Kit
	norms  []func(string) string
	checks []check[string]
}

var (
	_ formflow.Schema[string]     = (*StringSchema)(nil)
	_ formflow.AnySchema          = (*StringSchema)(nil)
	_ formflow.Normalizer[string] = (*StringSchema)(nil)
)

// String returns an unconstrained string schema.
func (k Kit) String() *StringSchema { return &StringSchema{kit: k} }

// Enum returns a string schema restricted to values.
func (k Kit) Enum(values ...string) *StringSchema { return k.String().OneOf(values) }

func (s *StringSchema) withCheck(c check[string]) *StringSchema {
	out := *s
	out.checks = appendClip(s.checks, c)
	return &out
}

func (s *StringSchema) withNorm(fn func(string) string) *StringSchema {
	out := *s
	out.norms = appendClip(s.norms, fn)
	return &out
}

// Min requires at least n characters (runes).
func (s *StringSchema) Min(n int, msg ...string) *StringSchema {
	p := map[string]any{"min": n}
	return s.withCheck(check[string]{
		code: formflow.CodeTooShort, msg: s.kit.message(formflow.CodeTooShort, p, msg), params: p,
		ok: func(v string) bool { return utf8.RuneCountInString(v) >= n },
	})
}

// Max allows at most n characters (runes).
func (s *StringSchema) Max(n int, msg ...string) *StringSchema {
	p := map[string]any{"max": n}
	return s.withCheck(check[string]{
		code: formflow.CodeTooLong, msg: s.kit.message(formflow.CodeTooLong, p, msg), params: p,
		ok: func(v string) bool { return utf8.RuneCountInString(v) <= n },
	})
}

// Length requires exactly n characters.
func (s *StringSchema) Length(n int, msg ...string) *StringSchema {
	return s.Min(n, msg...).Max(n, msg...)
}

// NonEmpty rejects the empty string. A field that was never set is reported
// as required by the owning object, not by this check.
func (s *StringSchema) NonEmpty(msg ...string) *StringSchema {
	p := map[string]any{"min": 1}
	return s.withCheck(check[string]{
		code: formflow.CodeRequired, msg: s.kit.message(formflow.CodeRequired, nil, msg), params: p,
		ok: func(v string) bool { return v != "" },
	})
}

// Pattern requires a regular expression match. An invalid expression panics
// at construction, like regexp.MustCompile.
func (s *StringSchema) Pattern(expr string, msg ...string) *StringSchema {
	re := regexp.MustCompile(expr)
	p := map[string]any{"pattern": expr}
	return s.withCheck(check[string]{
		code: formflow.CodePattern, msg: s.kit.message(formflow.CodePattern, p, msg), params: p,
		ok: re.MatchString,
	})
}

// Email requires a plausible e-mail address.
func (s *StringSchema) Email(msg ...string) *StringSchema {
	p := map[string]any{"format": "email"}
	return s.withCheck(check[string]{
		code: formflow.CodeInvalidFormat, msg: s.kit.message(formflow.CodeInvalidFormat, p, msg), params: p,
		ok: emailPattern.MatchString,
	})
}

// URL requires an absolute http(s) URL.
func (s *StringSchema) URL(msg ...string) *StringSchema {
	p := map[string]any{"format": "url"}
	return s.withCheck(check[string]{
		code: formflow.CodeInvalidFormat, msg: s.kit.message(formflow.CodeInvalidFormat, p, msg), params: p,
		ok: func(v string) bool {
			u, err := url.ParseRequestURI(v)
			if err != nil || u.Host == "" {
				return false
			}
			return u.Scheme == "http" || u.Scheme == "https"
		},
	})
}

// OneOf restricts the value to the given options.
func (s *StringSchema) OneOf(options []string, msg ...string) *StringSchema {
	opts := slices.Clone(options)
	p := map[string]any{"options": opts}
	return s.withCheck(check[string]{
		code: formflow.CodeInvalidEnum, msg: s.kit.message(formflow.CodeInvalidEnum, p, msg), params: p,
		ok: func(v string) bool { return slices.Contains(opts, v) },
	})
}

// Refine adds a custom predicate with its failure message.
func (s *StringSchema) Refine(pred func(string) bool, msg string) *StringSchema {
	return s.withCheck(check[string]{code: formflow.CodeCustom, msg: msg, ok: pred})
}

// Trim removes surrounding whitespace before constraints run.
func (s *StringSchema) Trim() *StringSchema { return s.withNorm(strings.TrimSpace) }

// ToLower lower-cases the value before constraints run.
func (s *StringSchema) ToLower() *StringSchema { return s.withNorm(strings.ToLower) }

// StripHTML removes markup from free-text input before constraints run.
func (s *StringSchema) StripHTML() *StringSchema {
	return s.withNorm(func(v string) string {
		return html.UnescapeString(strictPolicy.Sanitize(v))
	})
}

// Normalize applies the declared normalisers in order.
func (s *StringSchema) Normalize(_ context.Context, v string) (string, error) {
	for _, fn := range s.norms {
		v = fn(v)
	}
	return v, nil
}

func (s *StringSchema) Parse(ctx context.Context, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", s.kit.typeIssue("string")
	}
	str, err := formflow.ApplyNormalize[string](ctx, str, s)
	if err != nil {
		return "", err
	}
	if err := runChecks(str, s.checks); err != nil {
		return "", err
	}
	return str, nil
}

func (s *StringSchema) ParseAny(ctx context.Context, v any) (any, error) { return s.Parse(ctx, v) }

func (s *StringSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
