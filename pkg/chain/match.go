package chain

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Matcher decides whether a binding applies to a request path and returns
// the captured parameters.
type Matcher interface {
	Match(path string) (map[string]string, bool)
	String() string
}

// Path compiles a literal or parametrized pattern ("/users/:id", "/files/*")
// onto a chi routing tree. With prefix set the pattern also matches any
// deeper path, which is how "use" bindings mount.
func Path(pattern string, prefix bool) (Matcher, error) {
	if pattern == "" {
		pattern = "/"
	}
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must begin with /", ErrBadPattern, pattern)
	}
	segs := split(pattern)
	seen := map[string]bool{}
	wild := false
	for i, s := range segs {
		switch {
		case s == "*":
			if i != len(segs)-1 {
				return nil, fmt.Errorf("%w: %q: * must be the last segment", ErrBadPattern, pattern)
			}
			wild = true
		case strings.HasPrefix(s, ":"):
			name := s[1:]
			if name == "" {
				return nil, fmt.Errorf("%w: %q: empty param name", ErrBadPattern, pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: %q: param %q used twice", ErrBadPattern, pattern, name)
			}
			seen[name] = true
			segs[i] = "{" + name + "}"
		case strings.ContainsAny(s, "{}"):
			return nil, fmt.Errorf("%w: %q: braces are not allowed", ErrBadPattern, pattern)
		}
	}

	base := segs
	if wild {
		base = segs[:len(segs)-1]
	}
	exact := "/" + strings.Join(base, "/")
	routes := []string{exact}
	if wild || prefix {
		routes = append(routes, strings.TrimSuffix(exact, "/")+"/*")
	}

	mux := chi.NewMux()
	if err := mount(mux, routes); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
	}
	return pathMatcher{pattern: pattern, mux: mux, wild: wild}, nil
}

func mount(mux *chi.Mux, routes []string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	for _, r := range routes {
		mux.Get(r, http.NotFound)
	}
	return nil
}

// MustPath is Path for patterns known at compile time.
func MustPath(pattern string, prefix bool) Matcher {
	m, err := Path(pattern, prefix)
	if err != nil {
		panic(err)
	}
	return m
}

// Regex matches when re matches the path. Named groups become params.
func Regex(re *regexp.Regexp) Matcher { return regexMatcher{re} }

type pathMatcher struct {
	pattern string
	mux     *chi.Mux
	// wild reports a trailing "*" in the pattern, captured as param "*".
	wild bool
}

func (m pathMatcher) String() string { return m.pattern }

func (m pathMatcher) Match(path string) (map[string]string, bool) {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, http.MethodGet, path) {
		return nil, false
	}
	params := map[string]string{}
	for i, k := range rctx.URLParams.Keys {
		if k == "*" && !m.wild {
			continue
		}
		params[k] = rctx.URLParams.Values[i]
	}
	if _, ok := params["*"]; m.wild && !ok {
		params["*"] = ""
	}
	return params, true
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) String() string { return m.re.String() }

func (m regexMatcher) Match(path string) (map[string]string, bool) {
	sub := m.re.FindStringSubmatch(path)
	if sub == nil {
		return nil, false
	}
	params := map[string]string{}
	for i, name := range m.re.SubexpNames() {
		if i > 0 && name != "" {
			params[name] = sub[i]
		}
	}
	return params, true
}

// split drops empty segments, so trailing slashes are not significant.
func split(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
