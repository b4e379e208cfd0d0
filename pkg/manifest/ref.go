package manifest

import (
	"fmt"
	"strings"
)

// Ref points at extension middleware. Written as "ext#name" it names a
// ready-made handler; written as a table with a "type" key it names a
// builder, invoked once with the whole table as its options.
type Ref struct {
	Type      string
	Extension string
	Name      string
	Builder   bool
	Options   map[string]any
}

func (r Ref) String() string { return r.Type }

// Use is a string reference.
func Use(typ string) Ref {
	ext, name := splitType(typ)
	return Ref{Type: typ, Extension: ext, Name: name}
}

// Build is a builder reference. opts gains a "type" key.
func Build(typ string, opts map[string]any) Ref {
	o := make(map[string]any, len(opts)+1)
	for k, v := range opts {
		o[k] = v
	}
	o["type"] = typ
	ext, name := splitType(typ)
	return Ref{Type: typ, Extension: ext, Name: name, Builder: true, Options: o}
}

// ParseRef decodes a reference as produced by the TOML or JSON decoder.
func ParseRef(v any) (Ref, error) {
	switch t := v.(type) {
	case string:
		ref := Use(strings.TrimSpace(t))
		if ref.Extension == "" || ref.Name == "" {
			return Ref{}, fmt.Errorf("%w: %q, want \"<extension>#<name>\"", ErrBadReference, t)
		}
		return ref, nil
	case map[string]any:
		typ, _ := t["type"].(string)
		typ = strings.TrimSpace(typ)
		ref := Build(typ, t)
		if ref.Extension == "" || ref.Name == "" {
			return Ref{}, fmt.Errorf("%w: builder type %q, want \"<extension>#<name>\"", ErrBadReference, typ)
		}
		return ref, nil
	default:
		return Ref{}, fmt.Errorf("%w: unsupported %T", ErrBadReference, v)
	}
}

func splitType(typ string) (ext, name string) {
	ext, name, ok := strings.Cut(typ, "#")
	if !ok || strings.Contains(name, "#") {
		return "", ""
	}
	return strings.TrimSpace(ext), strings.TrimSpace(name)
}
