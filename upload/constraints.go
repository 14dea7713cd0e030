package upload

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	formflow "github.com/reoring/formflow"
)

// Constraints are checked when a file is selected.
type Constraints struct {
	// MaxSize is the byte limit per file; 0 disables the check.
	MaxSize int64 `json:"maxSize,omitempty"`
	// MaxFiles bounds the number of admitted (non-rejected) files; 0 means
	// unlimited when Multiple, 1 otherwise.
	MaxFiles int `json:"maxFiles,omitempty"`
	// Accept lists allowed types: MIME prefixes ("image/", "image/*"), exact
	// MIME types ("application/pdf") or extensions (".pdf").
	Accept []string `json:"accept,omitempty"`
	// Multiple makes the bound field hold a list of URLs instead of one.
	Multiple bool `json:"multiple,omitempty"`
}

func (c Constraints) maxFiles() int {
	if !c.Multiple {
		return 1
	}
	return c.MaxFiles
}

// Accepts reports whether f matches the allowed-type set. MIME types are
// matched by prefix and extensions case-insensitively, since sniffed types
// are unreliable for some formats.
func (c Constraints) Accepts(f RawFile) bool {
	if len(c.Accept) == 0 {
		return true
	}
	mt := strings.ToLower(f.MIMEType)
	if mt == "" {
		mt = mimeFromName(f.Name)
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	for _, a := range c.Accept {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case a == "":
			continue
		case strings.HasPrefix(a, "."):
			if ext == a {
				return true
			}
		case strings.HasSuffix(a, "/*"):
			if mt != "" && strings.HasPrefix(mt, strings.TrimSuffix(a, "*")) {
				return true
			}
		case strings.HasSuffix(a, "/"):
			if mt != "" && strings.HasPrefix(mt, a) {
				return true
			}
		default:
			if mt == a {
				return true
			}
		}
	}
	return false
}

// check returns the issue rejecting f, if any. admitted is the number of
// files already accepted for the field.
func (c Constraints) check(cfg formflow.Config, f RawFile, admitted int) *formflow.Issue {
	if c.MaxSize > 0 && f.Size > c.MaxSize {
		params := map[string]any{"limit": humanize.Bytes(uint64(c.MaxSize)), "size": humanize.Bytes(uint64(f.Size))}
		return &formflow.Issue{Code: formflow.CodeFileTooLarge, Message: cfg.Message(formflow.CodeFileTooLarge, params), Params: params}
	}
	if !c.Accepts(f) {
		typ := f.MIMEType
		if typ == "" {
			typ = filepath.Ext(f.Name)
		}
		params := map[string]any{"type": typ}
		return &formflow.Issue{Code: formflow.CodeFileType, Message: cfg.Message(formflow.CodeFileType, params), Params: params}
	}
	if lim := c.maxFiles(); lim > 0 && admitted >= lim {
		params := map[string]any{"max": lim}
		return &formflow.Issue{Code: formflow.CodeTooManyFiles, Message: cfg.Message(formflow.CodeTooManyFiles, params), Params: params}
	}
	return nil
}
