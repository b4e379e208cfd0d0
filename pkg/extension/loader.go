package extension

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader populates reg from specs and calls done exactly once: after every
// extension is registered (reg is then sealed) or with the first failure.
type Loader interface {
	Load(ctx context.Context, host Host, specs []manifest.Extension, reg *Registry, done func(error))
}

// LoadAll runs l and blocks until it completes.
func LoadAll(ctx context.Context, l Loader, host Host, specs []manifest.Extension) (*Registry, error) {
	reg := NewRegistry()
	ch := make(chan error, 1)
	l.Load(ctx, host, specs, reg, func(err error) { ch <- err })
	select {
	case err := <-ch:
		if err != nil {
			return nil, err
		}
		return reg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func register(host Host, reg *Registry, spec manifest.Extension, f Factory, locator string) error {
	ext, err := f(host, spec)
	if err != nil {
		return &LoadError{ID: spec.ID, Locator: locator, Err: err}
	}
	if ext == nil {
		return &LoadError{ID: spec.ID, Locator: locator, Err: ErrNilInstance}
	}
	ext.ID = spec.ID
	if err := reg.add(ext); err != nil {
		return &LoadError{ID: spec.ID, Locator: locator, Err: err}
	}
	return nil
}

func completion(reg *Registry, log *zap.Logger, done func(error)) func(error) {
	return func(err error) {
		if err != nil {
			log.Error("extension loading failed", zap.Error(err))
			done(err)
			return
		}
		reg.seal()
		log.Info("extensions loaded", zap.Strings("ids", reg.IDs()))
		done(nil)
	}
}

// ServerLoader resolves require locators synchronously; done is called
// before Load returns.
type ServerLoader struct {
	Modules Modules
	Log     *zap.Logger
}

func (l ServerLoader) Load(ctx context.Context, host Host, specs []manifest.Extension, reg *Registry, done func(error)) {
	mods := l.Modules
	if mods == nil {
		mods = Default
	}
	j := newJoin(len(specs), completion(reg, logOrNop(l.Log), done))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			j.fail(err)
			return
		}
		f, ok := mods.Lookup(spec.Require)
		if !ok {
			j.fail(&LoadError{ID: spec.ID, Locator: spec.Require, Err: ErrLocatorNotFound})
			return
		}
		if err := register(host, reg, spec, f, spec.Require); err != nil {
			j.fail(err)
			return
		}
		j.arrive()
	}
}

// Fetcher retrieves an extension resource. After a successful fetch the
// extension's factory must be exposed in the loader's Namespace.
type Fetcher interface {
	Fetch(ctx context.Context, spec manifest.Extension) error
}

type FetcherFunc func(ctx context.Context, spec manifest.Extension) error

func (f FetcherFunc) Fetch(ctx context.Context, spec manifest.Extension) error { return f(ctx, spec) }

// BrowserLoader fetches every resource concurrently. Arrival order does not
// matter; the first failure cancels the remaining fetches.
type BrowserLoader struct {
	Fetcher Fetcher
	Globals *Namespace
	Log     *zap.Logger
}

func (l BrowserLoader) Load(ctx context.Context, host Host, specs []manifest.Extension, reg *Registry, done func(error)) {
	j := newJoin(len(specs), completion(reg, logOrNop(l.Log), done))
	if len(specs) == 0 {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			if err := l.Fetcher.Fetch(gctx, spec); err != nil {
				return &LoadError{ID: spec.ID, Locator: spec.FilePath, Err: fmt.Errorf("%w: %w", ErrFetch, err)}
			}
			f, err := l.Globals.Lookup(spec.ID)
			if err != nil {
				return &LoadError{ID: spec.ID, Locator: spec.FilePath, Err: err}
			}
			mu.Lock()
			err = register(host, reg, spec, f, spec.FilePath)
			mu.Unlock()
			if err != nil {
				return err
			}
			j.arrive()
			return nil
		})
	}
	go func() {
		if err := g.Wait(); err != nil {
			j.fail(err)
		}
	}()
}

// HTTPFetcher GETs the resource at FilePath, resolved against Base. Eval,
// when set, receives the body and is expected to expose the factory.
type HTTPFetcher struct {
	Client *http.Client
	Base   *url.URL
	Eval   func(spec manifest.Extension, body []byte) error
}

func (h HTTPFetcher) Fetch(ctx context.Context, spec manifest.Extension) error {
	u, err := url.Parse(spec.FilePath)
	if err != nil {
		return err
	}
	if h.Base != nil {
		u = h.Base.ResolveReference(u)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	c := h.Client
	if c == nil {
		c = http.DefaultClient
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", u, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if h.Eval != nil {
		return h.Eval(spec, body)
	}
	return nil
}

// ModuleFetcher serves browser builds that compile their extensions in.
// Fetching exposes the factory registered under the descriptor's require
// locator; FilePath names the bundle and is not retrieved again.
type ModuleFetcher struct {
	Modules Modules
	Globals *Namespace
}

func (f ModuleFetcher) Fetch(ctx context.Context, spec manifest.Extension) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mods := f.Modules
	if mods == nil {
		mods = Default
	}
	fac, ok := mods.Lookup(spec.Require)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocatorNotFound, spec.Require)
	}
	f.Globals.Expose(spec.ID, fac)
	return nil
}

func logOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
