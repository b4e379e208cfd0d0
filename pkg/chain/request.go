package chain

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-iso/pkg/document"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
)

// Next continues the chain. A nil error moves to the next matching binding;
// a non-nil error skips straight to the completion callback.
type Next func(err error)

// Handler is one step of the chain. It must call next exactly once, or end
// the traversal itself (Halt, Redirect). A handler that does neither stalls
// the traversal.
type Handler func(req *Request, next Next)

// Request is the per-dispatch context shared by every handler in a chain.
type Request struct {
	URL         string
	Method      string
	Target      string
	OriginalURL string
	Header      http.Header

	// Params holds the captures of the binding currently running.
	Params map[string]string

	Document document.Handle
	Runtime  tlc.Runtime
	Data     map[string]any
	Template string

	ctx      context.Context
	handled  atomic.Bool
	redirect func(req *Request, url string)
	halt     func()
}

// NewRequest builds a request for target u. OriginalURL starts equal to u.
func NewRequest(ctx context.Context, method, u string) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Request{
		URL:         u,
		Method:      method,
		OriginalURL: u,
		Data:        map[string]any{},
		ctx:         ctx,
	}
}

func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Handled reports whether a handler produced a final result.
func (r *Request) Handled() bool { return r.handled.Load() }

// MarkHandled sets the handled flag. There is no way to clear it.
func (r *Request) MarkHandled() { r.handled.Store(true) }

// OnRedirect installs the adapter's redirect behaviour.
func (r *Request) OnRedirect(fn func(req *Request, url string)) { r.redirect = fn }

// Redirect hands the request to the adapter's redirect behaviour. Without
// one installed the call ends the traversal like Halt.
func (r *Request) Redirect(u string) {
	if r.redirect != nil {
		r.redirect(r, u)
		return
	}
	r.Halt()
}

// Halt ends the current traversal without running the rest of the chain.
func (r *Request) Halt() {
	if h := r.halt; h != nil {
		h()
	}
}

// Path is the path component of URL, "/" when empty.
func (r *Request) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
