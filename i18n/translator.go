package i18n

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional parameters to embed in the message (for example,
// "min" or "limit").
type Translator interface {
	Message(code string, data map[string]string) string
}

// Catalog maps language -> code -> message template. Templates reference
// parameters as {name}.
type Catalog map[string]map[string]string

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct {
	lang     string
	catalog  Catalog
	fallback string
}

var builtin = Catalog{
	"en": {
		"invalid_type":     "invalid type",
		"required":         "required",
		"unknown_key":      "unknown field",
		"too_short":        "must be at least {min} characters",
		"too_long":         "must be at most {max} characters",
		"too_small":        "must be greater than or equal to {min}",
		"too_big":          "must be less than or equal to {max}",
		"pattern":          "invalid format",
		"invalid_enum":     "must be one of: {options}",
		"invalid_format":   "invalid {format}",
		"not_integer":      "must be a whole number",
		"custom":           "invalid value",
		"file_too_large":   "file exceeds the {limit} size limit",
		"file_type":        "file type {type} is not allowed",
		"too_many_files":   "no more than {max} file(s) allowed",
		"transport_failed": "upload failed",
	},
	"ja": {
		"invalid_type":     "型が不正です",
		"required":         "必須項目です",
		"unknown_key":      "未知の項目です",
		"too_short":        "{min}文字以上で入力してください",
		"too_long":         "{max}文字以内で入力してください",
		"too_small":        "{min}以上の値を入力してください",
		"too_big":          "{max}以下の値を入力してください",
		"pattern":          "形式が不正です",
		"invalid_enum":     "次のいずれかを指定してください: {options}",
		"invalid_format":   "{format}の形式が不正です",
		"not_integer":      "整数を入力してください",
		"custom":           "値が不正です",
		"file_too_large":   "ファイルサイズが上限({limit})を超えています",
		"file_type":        "ファイル形式 {type} は許可されていません",
		"too_many_files":   "ファイルは{max}件までです",
		"transport_failed": "アップロードに失敗しました",
	},
}

var defaultTranslator Translator = dictTranslator{lang: "en", catalog: builtin, fallback: "en"}

// Default returns the built-in English translator.
func Default() Translator { return defaultTranslator }

// New returns a translator over the built-in dictionary for lang ("en"/"ja").
// Unknown languages fall back to English.
func New(lang string) Translator {
	if _, ok := builtin[lang]; !ok {
		lang = "en"
	}
	return dictTranslator{lang: lang, catalog: builtin, fallback: "en"}
}

// WithCatalog layers extra templates over the built-in dictionary. Entries in
// extra win; codes missing from lang fall back to English.
func WithCatalog(lang string, extra Catalog) Translator {
	merged := make(Catalog, len(builtin)+len(extra))
	for l, msgs := range builtin {
		merged[l] = copyMessages(msgs)
	}
	for l, msgs := range extra {
		dst, ok := merged[l]
		if !ok {
			dst = map[string]string{}
			merged[l] = dst
		}
		for code, tmpl := range msgs {
			dst[code] = tmpl
		}
	}
	return dictTranslator{lang: lang, catalog: merged, fallback: "en"}
}

// LoadCatalog reads a YAML catalog:
//
//	en:
//	  too_short: "at least {min} characters please"
//	ja:
//	  required: "入力してください"
func LoadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if err == io.EOF {
			return Catalog{}, nil
		}
		return nil, fmt.Errorf("i18n: load catalog: %w", err)
	}
	return c, nil
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	tmpl, ok := t.catalog[t.lang][code]
	if !ok {
		tmpl, ok = t.catalog[t.fallback][code]
	}
	if !ok {
		return code
	}
	return render(tmpl, data)
}

func render(tmpl string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Stringify renders issue params for template interpolation.
func Stringify(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case []string:
			out[k] = strings.Join(t, ", ")
		case float64:
			out[k] = trimFloat(t)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func copyMessages(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
