package formflow

import (
	"errors"
	"fmt"
	"strings"
)

// Stable issue codes. Translators key their templates on these.
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeNotInteger    = "not_integer"
	CodeCustom        = "custom"
	// File selection and transport outcomes.
	CodeFileTooLarge    = "file_too_large"
	CodeFileType        = "file_type"
	CodeTooManyFiles    = "too_many_files"
	CodeTransportFailed = "transport_failed"
)

// Issue is one validation failure.
type Issue struct {
	Path    string // JSON Pointer, "/" for the object root.
	Code    string
	Message string
	// Params carries structured parameters (e.g., {"min":1, "max":10})
	// used to render messages.
	Params map[string]any
	// Rule optionally records the refinement name that produced this issue.
	Rule string
}

// Field renders the issue path as a dotted field key ("/address/city" ->
// "address.city"). The object root renders as "".
func (it Issue) Field() string { return FieldKey(it.Path) }

// Issues is an ordered list of failures. It implements error.
type Issues []Issue

// Error lists the first three issues and the total when there are more.
func (iss Issues) Error() string {
	const shown = 3
	n := min(len(iss), shown)
	parts := make([]string, 0, n+1)
	for _, it := range iss[:n] {
		parts = append(parts, it.Code+" at "+it.Path)
	}
	if len(iss) > shown {
		parts = append(parts, fmt.Sprintf("... (total %d)", len(iss)))
	}
	return strings.Join(parts, "; ")
}

// ByField folds issues into a field key -> message map. The first issue for a
// key wins, mirroring the one-message-per-field display model.
func (iss Issues) ByField() map[string]string {
	out := make(map[string]string, len(iss))
	for _, it := range iss {
		k := it.Field()
		if _, seen := out[k]; seen {
			continue
		}
		out[k] = it.Message
	}
	return out
}

// Rebase prefixes every issue path with base ("/email" under "/user" becomes
// "/user/email"). The receiver is not modified.
func (iss Issues) Rebase(base string) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case p[0] == '/':
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}

// AppendIssues appends more to dst. A nil dst becomes a non-nil slice so
// callers can test len() without a nil check.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = make(Issues, 0, len(more))
	}
	return append(dst, more...)
}

// AsIssues unwraps err to Issues.
func AsIssues(err error) (Issues, bool) {
	var iss Issues
	if err != nil && errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssuesFromErr converts an error into Issues, wrapping plain errors as a
// custom issue at path.
func IssuesFromErr(path string, err error) Issues {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	return Issues{Issue{Path: path, Code: CodeCustom, Message: err.Error()}}
}
