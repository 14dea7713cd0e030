package formflow

import (
	"fmt"
	"strconv"
	"strings"
)

// PathRef builds JSON Pointer paths in a chain-safe way and creates Issues.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Pointer() string
	Issue(code, msg string, kv ...any) Issue
}

// Root returns the PathRef for the object root.
func Root() PathRef { return &pathRef{parts: nil} }

// At parses a JSON Pointer ("/address/city") or a dotted field key
// ("address.city") into a PathRef.
func At(path string) PathRef {
	if path == "" || path == "/" {
		return Root()
	}
	sep := "/"
	if path[0] != '/' {
		sep = "."
	}
	parts := []string{}
	for _, p := range strings.Split(path, sep) {
		if p == "" {
			continue
		}
		if sep == "." {
			p = escapeToken(p)
		}
		parts = append(parts, p)
	}
	return &pathRef{parts: parts}
}

type pathRef struct {
	parts []string
}

func (p *pathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	return &pathRef{parts: append(append([]string{}, p.parts...), escapeToken(name))}
}

func (p *pathRef) Index(i int) PathRef {
	return &pathRef{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

func (p *pathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p *pathRef) Issue(code, msg string, kv ...any) Issue {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return Issue{Path: p.Pointer(), Code: code, Message: msg, Params: m}
}

// FieldKey converts a JSON Pointer into the dotted key used by form error maps.
func FieldKey(pointer string) string {
	trimmed := strings.TrimPrefix(pointer, "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		parts[i] = unescapeToken(part)
	}
	return strings.Join(parts, ".")
}

// TopField returns the first segment of a dotted key or pointer.
func TopField(path string) string {
	key := path
	if strings.HasPrefix(path, "/") {
		key = FieldKey(path)
	}
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i]
	}
	return key
}

// escape '~' -> '~0', '/' -> '~1' per RFC6901
func escapeToken(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapeToken(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}
