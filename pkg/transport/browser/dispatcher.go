// Package browser is the navigation front door of the pipeline. Link
// activations, programmatic navigation and history replays each become a
// request dispatched through the shared core.App; a request the chain does
// not handle turns into a native navigation.
package browser

import (
	"context"
	"errors"
	"net/url"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/core"
	"github.com/joeydtaylor/steeze-iso/pkg/document"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
	"go.uber.org/zap"
)

// maxRedirects bounds nested redirect dispatches for one navigation.
const maxRedirects = 10

var ErrTooManyRedirects = errors.New("browser: too many redirects")

type Dispatcher struct {
	ctx    context.Context
	app    *core.App
	win    Window
	log    *zap.Logger
	events map[string]bool
}

func New(ctx context.Context, app *core.App, win Window) *Dispatcher {
	events := make(map[string]bool)
	for _, e := range app.Config().BrowserEvents {
		events[e] = true
	}
	return &Dispatcher{ctx: ctx, app: app, win: win, log: app.Logger(), events: events}
}

// Boot configures a browser-mode App with l and hands the armed Dispatcher
// to ready once every extension has arrived.
func Boot(ctx context.Context, cfg manifest.Config, l extension.Loader, opts core.Options, win Window, ready func(*Dispatcher, error)) {
	opts.Browser = true
	if opts.Location == "" {
		opts.Location = win.Location()
	}
	core.Configure(ctx, cfg, l, opts, func(app *core.App, err error) {
		if err != nil {
			ready(nil, err)
			return
		}
		ready(New(ctx, app, win), nil)
	})
}

func (d *Dispatcher) App() *core.App { return d.app }

// Click handles an activated link. It reports whether the pipeline took the
// navigation; otherwise the window has already navigated natively.
func (d *Dispatcher) Click(l Link) bool {
	if l.External || !d.sameHost(l.Href) {
		d.win.Navigate(l.Href, l.Target)
		return false
	}
	d.dispatch(l.Href, l.Target, true)
	return true
}

// Navigate is a link click without a DOM event.
func (d *Dispatcher) Navigate(u string) { d.dispatch(u, "", true) }

// PopState replays a history entry. The entry already exists, so nothing
// is pushed.
func (d *Dispatcher) PopState(u string) { d.dispatch(u, "", false) }

// Trigger runs the template statements bound to event on target or its
// closest ancestor carrying data-app-<event>. It reports whether a binding
// was found, in which case the event's default action must be suppressed.
func (d *Dispatcher) Trigger(event string, target document.Selection, payload any) (bool, error) {
	if !d.events[event] || target == nil {
		return false, nil
	}
	attr := "data-app-" + event
	el := target.Closest("[" + attr + "]")
	if el.Len() == 0 {
		return false, nil
	}
	err := d.app.Runtime().Run(el, payload, tlc.RunOptions{Attr: attr})
	if err != nil {
		d.log.Error("event binding failed", zap.String("event", event), zap.Error(err))
	}
	if h, lerr := d.app.Documents().Load(d.ctx); lerr == nil {
		d.commit(h)
	}
	return true, err
}

// RunClientChain runs the client-only chain for req.
func (d *Dispatcher) RunClientChain(req *chain.Request) {
	d.app.RunClientChain(req, func(err error) {
		if err != nil && !errors.Is(err, chain.ErrHalted) {
			d.log.Error("client chain failed", zap.Error(err), zap.String("url", req.URL))
		}
		d.commit(req.Document)
	})
}

// commit publishes doc when the window keeps its own copy of the page.
func (d *Dispatcher) commit(doc document.Handle) {
	c, ok := d.win.(Committer)
	if !ok || doc == nil {
		return
	}
	if err := c.Commit(doc); err != nil {
		d.log.Error("page commit failed", zap.Error(err))
	}
}

func (d *Dispatcher) sameHost(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Host == "" || u.Host == d.win.Host()
}

func (d *Dispatcher) dispatch(u, target string, push bool) {
	req := chain.NewRequest(d.ctx, "get", u)
	req.Target = target
	d.run(req, &navigation{d: d, origin: req, push: push})
}

func (d *Dispatcher) run(req *chain.Request, n *navigation) {
	req.OnRedirect(n.redirect)
	d.app.Dispatch(req, n)
}

// navigation is the core.Terminal of one browser dispatch. origin is the
// request the user asked for; a redirect dispatches a nested request but
// falls back to origin.
type navigation struct {
	d      *Dispatcher
	origin *chain.Request
	push   bool
	depth  int
}

func (n *navigation) Render(req *chain.Request) {
	n.d.commit(req.Document)
	if n.push {
		n.d.win.PushState(req.OriginalURL)
	}
	req.URL = req.OriginalURL
	n.d.RunClientChain(req)
}

func (n *navigation) Fallback(*chain.Request) {
	n.d.log.Debug("falling back to native navigation", zap.String("url", n.origin.OriginalURL))
	n.d.win.Navigate(n.origin.OriginalURL, n.origin.Target)
}

func (n *navigation) Fail(req *chain.Request, err error) {
	n.d.log.Error("navigation failed", zap.Error(err), zap.String("url", req.URL))
	n.Fallback(req)
}

// Halted is a no-op: the handler that halted (or the redirect it started)
// owns the outcome.
func (n *navigation) Halted(*chain.Request) {}

func (n *navigation) redirect(req *chain.Request, u string) {
	req.Halt()
	if n.depth >= maxRedirects {
		n.Fail(req, ErrTooManyRedirects)
		return
	}
	nested := chain.NewRequest(req.Context(), "get", u)
	nested.Target = n.origin.Target
	n.d.run(nested, &navigation{d: n.d, origin: n.origin, push: true, depth: n.depth + 1})
}
