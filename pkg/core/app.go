// Package core wires a validated manifest and a loaded extension registry
// into the primary (and, in the browser, secondary) dispatch chains that
// both transport adapters share.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/document"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
	"go.uber.org/zap"
)

const (
	ModeServer  = "server"
	ModeBrowser = "browser"
)

// Options are the collaborators an App needs besides the manifest.
type Options struct {
	// Browser selects the navigation-driven mode: only "use" and "get"
	// bindings are mounted and client_middleware forms a secondary chain.
	Browser   bool
	Documents document.Provider
	Runtime   tlc.Runtime
	Logger    *zap.Logger
	// Location is the URL of the page the browser booted on.
	Location string
}

// Terminal is what the adapter does once the primary chain completes.
type Terminal interface {
	// Render runs when the chain completed with the handled flag set.
	Render(req *chain.Request)
	// Fallback runs when the chain completed without producing a result.
	Fallback(req *chain.Request)
	Fail(req *chain.Request, err error)
	// Halted runs when a handler ended the traversal itself.
	Halted(req *chain.Request)
}

// App is a configured pipeline. It is the Host handed to extension
// factories.
type App struct {
	cfg     manifest.Config
	opts    Options
	log     *zap.Logger
	reg     *extension.Registry
	primary *chain.Router
	client  *chain.Router
}

// Configure loads the extensions with l, builds the chains and calls ready
// exactly once. With a synchronous loader ready runs before Configure
// returns.
func Configure(ctx context.Context, cfg manifest.Config, l extension.Loader, opts Options, ready func(*App, error)) {
	if err := cfg.Validate(); err != nil {
		ready(nil, err)
		return
	}
	if opts.Runtime == nil {
		opts.Runtime = tlc.New()
	}
	if opts.Documents == nil {
		opts.Documents = document.FileProvider{Path: cfg.Document}
	}
	a := &App{
		cfg:  cfg,
		opts: opts,
		log:  opts.Logger,
		reg:  extension.NewRegistry(),
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.log = a.log.With(zap.String("mode", a.Mode()))

	l.Load(ctx, a, cfg.Extensions, a.reg, func(err error) {
		if err != nil {
			ready(nil, err)
			return
		}
		metrics.SetExtensionsLoaded(a.reg.Len())
		if err := a.build(); err != nil {
			a.log.Error("router configuration failed", zap.Error(err))
			ready(nil, err)
			return
		}
		ready(a, nil)
	})
}

// New is Configure for callers that want to block until the App is ready.
func New(ctx context.Context, cfg manifest.Config, l extension.Loader, opts Options) (*App, error) {
	type result struct {
		app *App
		err error
	}
	ch := make(chan result, 1)
	Configure(ctx, cfg, l, opts, func(a *App, err error) { ch <- result{a, err} })
	select {
	case r := <-ch:
		return r.app, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *App) Server() bool { return !a.opts.Browser }

func (a *App) Mode() string {
	if a.opts.Browser {
		return ModeBrowser
	}
	return ModeServer
}

func (a *App) Logger() *zap.Logger { return a.log }

func (a *App) Location() string {
	if a.opts.Browser {
		return a.opts.Location
	}
	return ""
}

// Extension returns a registered extension. During loading only the
// extensions registered so far are visible.
func (a *App) Extension(id string) (*extension.Extension, bool) { return a.reg.Get(id) }

func (a *App) Config() manifest.Config { return a.cfg }

func (a *App) Runtime() tlc.Runtime { return a.opts.Runtime }

func (a *App) Documents() document.Provider { return a.opts.Documents }

func (a *App) Registry() *extension.Registry { return a.reg }

func (a *App) build() error {
	for _, spec := range a.cfg.Extensions {
		ext, ok := a.reg.Get(spec.ID)
		if !ok {
			return fmt.Errorf("%w: %q not registered", ErrUnknownExtension, spec.ID)
		}
		a.opts.Runtime.AddModule(spec.ID, ext.TLC)
	}

	primary := chain.NewRouter(
		chain.WithBasePath(a.cfg.BasePath),
		chain.WithLogger(a.log),
		chain.WithMethods(a.methods()...),
	)
	if err := primary.Use(a.attachDocument); err != nil {
		return err
	}
	if err := primary.Use(a.attachRuntime); err != nil {
		return err
	}

	var client *chain.Router
	if a.opts.Browser {
		client = chain.NewRouter(
			chain.WithBasePath(a.cfg.BasePath),
			chain.WithLogger(a.log),
			chain.WithMethods(chain.ClientMethods...),
		)
	}

	for i := range a.cfg.Routes {
		rt := &a.cfg.Routes[i]
		m, err := matcher(rt)
		if err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		if err := a.mount(primary, rt, m, rt.Middleware); err != nil {
			return fmt.Errorf("route %d (%s %s): %w", i, rt.Method, rt.Pattern(), err)
		}
		if client != nil {
			if err := a.mount(client, rt, m, rt.ClientMiddleware); err != nil {
				return fmt.Errorf("route %d (%s %s) client: %w", i, rt.Method, rt.Pattern(), err)
			}
			continue
		}
		for _, ref := range rt.ClientMiddleware {
			if err := Check(ref, a.reg); err != nil {
				return fmt.Errorf("route %d (%s %s) client: %w", i, rt.Method, rt.Pattern(), err)
			}
		}
	}

	a.primary, a.client = primary, client
	a.log.Info("router configured",
		zap.Int("bindings", primary.Len()),
		zap.String("basePath", a.cfg.BasePath),
	)
	return nil
}

func (a *App) methods() []string {
	if a.opts.Browser {
		return chain.ClientMethods
	}
	return chain.ServerMethods
}

func (a *App) mount(r *chain.Router, rt *manifest.Route, m chain.Matcher, refs []manifest.Ref) error {
	for _, ref := range refs {
		h, err := Resolve(ref, a.reg)
		if err != nil {
			return err
		}
		err = r.Handle(rt.Method, m, h)
		if errors.Is(err, chain.ErrUnsupportedMethod) {
			a.log.Debug("binding skipped", zap.String("method", rt.Method), zap.String("path", rt.Pattern()))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func matcher(rt *manifest.Route) (chain.Matcher, error) {
	if re := rt.Regexp(); re != nil {
		return chain.Regex(re), nil
	}
	return chain.Path(rt.Path, rt.Method == chain.MethodUse)
}

func (a *App) attachDocument(req *chain.Request, next chain.Next) {
	doc, err := a.opts.Documents.Load(req.Context())
	if err != nil {
		next(chain.Error{Code: 500, Cause: err})
		return
	}
	req.Document = doc
	next(nil)
}

func (a *App) attachRuntime(req *chain.Request, next chain.Next) {
	req.Runtime = a.opts.Runtime
	req.Data = map[string]any{}
	next(nil)
}

// Dispatch runs req through the primary chain and hands the outcome to t.
// Nothing is called if a handler stalls the chain.
func (a *App) Dispatch(req *chain.Request, t Terminal) {
	start := time.Now()
	a.primary.Dispatch(req, func(err error) {
		outcome := metrics.OutcomeHandled
		switch {
		case errors.Is(err, chain.ErrHalted):
			outcome = metrics.OutcomeHalted
			t.Halted(req)
		case err != nil:
			outcome = metrics.OutcomeError
			a.log.Error("dispatch failed", zap.Error(err), zap.String("url", req.URL))
			t.Fail(req, err)
		case req.Handled():
			t.Render(req)
		default:
			outcome = metrics.OutcomeFallback
			t.Fallback(req)
		}
		metrics.ObserveDispatch(a.Mode(), outcome, time.Since(start))
	})
}

// RunClientChain runs the secondary chain for req. On the server, or when
// no route declares client middleware, done is called right away.
func (a *App) RunClientChain(req *chain.Request, done chain.Next) {
	if a.client == nil || a.client.Len() == 0 {
		done(nil)
		return
	}
	a.client.Dispatch(req, done)
}
