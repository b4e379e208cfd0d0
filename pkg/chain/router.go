// Package chain is the ordered (verb, matcher, handler) engine both the
// server and the browser pipelines dispatch through.
package chain

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	// MethodUse binds a handler for every verb and mounts it as a prefix.
	MethodUse = "use"
	// MethodAll binds a handler for every verb on an exact path.
	MethodAll = "all"
)

var (
	ServerMethods = []string{MethodUse, MethodAll, "get", "post", "put", "patch", "delete", "head", "options"}
	// ClientMethods is what a navigation-driven router can see: navigations
	// are always reads.
	ClientMethods = []string{MethodUse, MethodAll, "get"}
)

type binding struct {
	method  string
	matcher Matcher
	handler Handler
}

func (b binding) match(method, path string) (map[string]string, bool) {
	switch {
	case b.method == MethodUse, b.method == MethodAll, b.method == method:
	case b.method == "get" && method == "head":
	default:
		return nil, false
	}
	return b.matcher.Match(path)
}

type Router struct {
	bindings []binding
	methods  map[string]bool
	base     string
	log      *zap.Logger
}

type Option func(*Router)

// WithMethods restricts the verbs the router accepts bindings for.
func WithMethods(methods ...string) Option {
	return func(r *Router) {
		r.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			r.methods[strings.ToLower(m)] = true
		}
	}
}

// WithBasePath mounts the router under base. Requests outside it complete
// immediately without running any handler.
func WithBasePath(base string) Option {
	return func(r *Router) { r.base = "/" + strings.Trim(base, "/") }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRouter(opts ...Option) *Router {
	r := &Router{base: "/", log: zap.NewNop()}
	WithMethods(ServerMethods...)(r)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) Supports(method string) bool { return r.methods[strings.ToLower(method)] }

func (r *Router) Len() int { return len(r.bindings) }

// Handle appends a binding. Bindings run in the order they were added.
func (r *Router) Handle(method string, m Matcher, h Handler) error {
	method = strings.ToLower(strings.TrimSpace(method))
	if !r.Supports(method) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if m == nil || h == nil {
		return fmt.Errorf("chain: nil matcher or handler for %s", method)
	}
	r.bindings = append(r.bindings, binding{method: method, matcher: m, handler: h})
	return nil
}

// Use binds h for every request under the mount point.
func (r *Router) Use(h Handler) error {
	return r.Handle(MethodUse, MustPath("/", true), h)
}

// Dispatch walks the bindings for req and calls done exactly once: with nil
// when the last binding continued (or nothing matched), with the error a
// handler passed to next, or with ErrHalted when a handler called Halt.
// done is never called if a handler stalls. done runs only after the
// handler that completed the traversal has returned, so a panic in done is
// not taken for a handler failure.
func (r *Router) Dispatch(req *Request, done Next) {
	t := &traversal{router: r, req: req, done: done}
	path, ok := r.strip(req.Path())
	if !ok {
		t.finish(nil)
		return
	}
	t.path = path
	req.halt = func() { t.finish(ErrHalted) }
	t.step(0, nil)
}

func (r *Router) strip(path string) (string, bool) {
	if r.base == "/" {
		return path, true
	}
	if path == r.base {
		return "/", true
	}
	if strings.HasPrefix(path, r.base+"/") {
		return strings.TrimPrefix(path, r.base), true
	}
	return "", false
}

type traversal struct {
	router   *Router
	req      *Request
	path     string
	done     Next
	finished atomic.Bool

	// depth counts handler frames on the stack. A result reached inside a
	// handler is delivered once the outermost frame has unwound, outside
	// any handler's recover.
	mu      sync.Mutex
	depth   int
	pending *error
}

func (t *traversal) finish(err error) {
	if !t.finished.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	if t.depth > 0 {
		t.pending = &err
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.done(err)
}

func (t *traversal) enter() {
	t.mu.Lock()
	t.depth++
	t.mu.Unlock()
}

func (t *traversal) leave() {
	t.mu.Lock()
	t.depth--
	var res *error
	if t.depth == 0 {
		res, t.pending = t.pending, nil
	}
	t.mu.Unlock()
	if res != nil {
		t.done(*res)
	}
}

func (t *traversal) step(i int, err error) {
	if t.finished.Load() {
		return
	}
	if err != nil {
		t.finish(err)
		return
	}
	method := strings.ToLower(t.req.Method)
	for ; i < len(t.router.bindings); i++ {
		b := t.router.bindings[i]
		params, ok := b.match(method, t.path)
		if !ok {
			continue
		}
		t.req.Params = params
		t.invoke(i, b)
		return
	}
	t.finish(nil)
}

func (t *traversal) invoke(i int, b binding) {
	var called atomic.Bool
	next := func(err error) {
		if !called.CompareAndSwap(false, true) {
			t.router.log.Warn("continuation ignored",
				zap.Error(ErrNextCalledTwice),
				zap.String("method", b.method),
				zap.String("path", b.matcher.String()),
				zap.String("url", t.req.URL),
			)
			return
		}
		t.step(i+1, err)
	}
	t.enter()
	defer t.leave()
	defer func() {
		if p := recover(); p != nil {
			t.router.log.Error("handler panic",
				zap.Any("panic", p),
				zap.String("path", b.matcher.String()),
				zap.String("url", t.req.URL),
			)
			next(fmt.Errorf("%w: %v", ErrPanic, p))
		}
	}()
	b.handler(t.req, next)
}
