package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

// Methods a route may name. "use" binds every verb as a path prefix.
var knownMethods = map[string]bool{
	"use": true, "all": true, "get": true, "post": true, "put": true,
	"patch": true, "delete": true, "head": true, "options": true,
}

// Route binds ordered middleware to a verb and a path (or regex).
type Route struct {
	Method string `toml:"method" json:"method"`
	Path   string `toml:"path" json:"path"`
	Regex  string `toml:"regex" json:"regex"`

	MiddlewareRaw       []any `toml:"middleware" json:"middleware"`
	ClientMiddlewareRaw []any `toml:"client_middleware" json:"client_middleware"`

	// Decoded by Validate. Routes built in code may fill these directly.
	Middleware       []Ref `toml:"-" json:"-"`
	ClientMiddleware []Ref `toml:"-" json:"-"`

	re *regexp.Regexp
}

// Pattern is the regex when one is set, the path otherwise.
func (r *Route) Pattern() string {
	if r.Regex != "" {
		return r.Regex
	}
	return r.Path
}

// Regexp is the compiled regex, nil for path routes.
func (r *Route) Regexp() *regexp.Regexp { return r.re }

func (r *Route) normalize() error {
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "use"
	}
	if !knownMethods[r.Method] {
		return fmt.Errorf("%w: unknown method %q", ErrBadRoute, r.Method)
	}
	r.Path = strings.TrimSpace(r.Path)
	if r.Path == "" {
		r.Path = "/"
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Regex != "" {
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return fmt.Errorf("%w: regex %q: %v", ErrBadRoute, r.Regex, err)
		}
		r.re = re
	}

	if len(r.MiddlewareRaw) > 0 {
		refs, err := parseRefs(r.MiddlewareRaw)
		if err != nil {
			return fmt.Errorf("middleware: %w", err)
		}
		r.Middleware = refs
	}
	if len(r.ClientMiddlewareRaw) > 0 {
		refs, err := parseRefs(r.ClientMiddlewareRaw)
		if err != nil {
			return fmt.Errorf("client_middleware: %w", err)
		}
		r.ClientMiddleware = refs
	}
	for _, ref := range append(append([]Ref(nil), r.Middleware...), r.ClientMiddleware...) {
		if ref.Extension == "" || ref.Name == "" {
			return fmt.Errorf("%w: %q", ErrBadReference, ref.Type)
		}
	}
	return nil
}

func parseRefs(raw []any) ([]Ref, error) {
	out := make([]Ref, 0, len(raw))
	for i, v := range raw {
		ref, err := ParseRef(v)
		if err != nil {
			return nil, fmt.Errorf("%d: %w", i, err)
		}
		out = append(out, ref)
	}
	return out, nil
}
