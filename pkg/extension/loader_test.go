package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHost struct{ reg *Registry }

func (h fakeHost) Server() bool        { return true }
func (h fakeHost) Logger() *zap.Logger { return zap.NewNop() }
func (h fakeHost) Location() string    { return "" }
func (h fakeHost) Extension(id string) (*Extension, bool) {
	if h.reg == nil {
		return nil, false
	}
	return h.reg.Get(id)
}

func simple(host Host, spec manifest.Extension) (*Extension, error) {
	return &Extension{
		Middleware: map[string]chain.Handler{
			"next": func(req *chain.Request, next chain.Next) { next(nil) },
		},
	}, nil
}

func specs(n int) []manifest.Extension {
	out := make([]manifest.Extension, n)
	for i := range out {
		id := fmt.Sprintf("ext%d", i)
		out[i] = manifest.Extension{ID: id, Require: id, FilePath: "/ext/" + id + ".js"}
	}
	return out
}

func TestEmptyListFiresSynchronously(t *testing.T) {
	for _, l := range []Loader{ServerLoader{}, BrowserLoader{}} {
		fired := 0
		reg := NewRegistry()
		l.Load(context.Background(), fakeHost{}, nil, reg, func(err error) {
			require.NoError(t, err)
			fired++
		})
		assert.Equal(t, 1, fired, "%T", l)
		assert.True(t, reg.Sealed())
	}
}

func TestServerLoader(t *testing.T) {
	mods := Modules{}
	for _, s := range specs(3) {
		mods.Provide(s.Require, simple)
	}
	reg := NewRegistry()
	fired := 0
	ServerLoader{Modules: mods}.Load(context.Background(), fakeHost{reg}, specs(3), reg, func(err error) {
		require.NoError(t, err)
		fired++
		assert.Equal(t, 3, reg.Len())
	})
	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"ext0", "ext1", "ext2"}, reg.IDs())

	e, ok := reg.Get("ext1")
	require.True(t, ok)
	assert.Equal(t, "ext1", e.ID)
	assert.ErrorIs(t, reg.add(&Extension{ID: "late"}), ErrSealed)
}

func TestServerLoaderFailures(t *testing.T) {
	boom := errors.New("boom")
	mods := Modules{
		"ext0": simple,
		"ext1": func(Host, manifest.Extension) (*Extension, error) { return nil, boom },
		"ext2": func(Host, manifest.Extension) (*Extension, error) { return nil, nil },
	}

	_, err := LoadAll(context.Background(), ServerLoader{Modules: mods}, fakeHost{}, []manifest.Extension{{ID: "x", Require: "missing"}})
	assert.ErrorIs(t, err, ErrLocatorNotFound)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "x", le.ID)
	assert.Equal(t, "missing", le.Locator)

	_, err = LoadAll(context.Background(), ServerLoader{Modules: mods}, fakeHost{}, specs(2))
	assert.ErrorIs(t, err, boom)

	_, err = LoadAll(context.Background(), ServerLoader{Modules: mods}, fakeHost{}, []manifest.Extension{{ID: "ext2", Require: "ext2"}})
	assert.ErrorIs(t, err, ErrNilInstance)

	dup := []manifest.Extension{{ID: "a", Require: "ext0"}, {ID: "a", Require: "ext0"}}
	_, err = LoadAll(context.Background(), ServerLoader{Modules: mods}, fakeHost{}, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestModulesProvidePanics(t *testing.T) {
	m := Modules{}
	m.Provide("a", simple)
	assert.Panics(t, func() { m.Provide("a", simple) })
	assert.Panics(t, func() { m.Provide("", simple) })
}

// Fetches complete in reverse order of declaration.
func TestBrowserLoaderArbitraryOrder(t *testing.T) {
	const n = 6
	ns := NewNamespace()
	for _, s := range specs(n) {
		ns.Expose(s.ID, simple)
	}
	gates := make(map[string]chan struct{}, n)
	for _, s := range specs(n) {
		gates[s.ID] = make(chan struct{})
	}
	fetcher := FetcherFunc(func(ctx context.Context, spec manifest.Extension) error {
		<-gates[spec.ID]
		return nil
	})

	var fired atomic.Int32
	reg := NewRegistry()
	done := make(chan struct{})
	BrowserLoader{Fetcher: fetcher, Globals: ns}.Load(context.Background(), fakeHost{}, specs(n), reg, func(err error) {
		assert.NoError(t, err)
		assert.Equal(t, n, reg.Len())
		fired.Add(1)
		close(done)
	})
	for i := n - 1; i >= 0; i-- {
		assert.Equal(t, int32(0), fired.Load())
		close(gates[fmt.Sprintf("ext%d", i)])
	}
	<-done
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Len(t, reg.IDs(), n)
	assert.True(t, reg.Sealed())
}

func TestBrowserLoaderFiresOnceUnderRace(t *testing.T) {
	for round := 0; round < 50; round++ {
		ns := NewNamespace()
		for _, s := range specs(8) {
			ns.Expose(s.ID, simple)
		}
		var fired atomic.Int32
		done := make(chan struct{})
		reg := NewRegistry()
		BrowserLoader{
			Fetcher: FetcherFunc(func(context.Context, manifest.Extension) error { return nil }),
			Globals: ns,
		}.Load(context.Background(), fakeHost{}, specs(8), reg, func(err error) {
			assert.NoError(t, err)
			if fired.Add(1) == 1 {
				close(done)
			}
		})
		<-done
		time.Sleep(time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
		assert.Equal(t, 8, reg.Len())
	}
}

func TestBrowserLoaderFailures(t *testing.T) {
	ns := NewNamespace()
	ns.Expose("ext0", simple)

	_, err := LoadAll(context.Background(), BrowserLoader{
		Fetcher: FetcherFunc(func(context.Context, manifest.Extension) error { return nil }),
		Globals: ns,
	}, fakeHost{}, specs(2))
	assert.ErrorIs(t, err, ErrSymbolMissing)

	_, err = LoadAll(context.Background(), BrowserLoader{
		Fetcher: FetcherFunc(func(context.Context, manifest.Extension) error { return errors.New("404") }),
		Globals: ns,
	}, fakeHost{}, specs(1))
	assert.ErrorIs(t, err, ErrFetch)
}

func TestBrowserLoaderSingleFireWithFailure(t *testing.T) {
	var fired atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	ns := NewNamespace()
	for _, s := range specs(4) {
		ns.Expose(s.ID, simple)
	}
	BrowserLoader{
		Fetcher: FetcherFunc(func(_ context.Context, spec manifest.Extension) error {
			if spec.ID == "ext2" {
				return errors.New("nope")
			}
			return nil
		}),
		Globals: ns,
	}.Load(context.Background(), fakeHost{}, specs(4), NewRegistry(), func(err error) {
		assert.ErrorIs(t, err, ErrFetch)
		fired.Add(1)
		wg.Done()
	})
	wg.Wait()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ext/render.js" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("window.render = ..."))
	}))
	defer srv.Close()
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	ns := NewNamespace()
	var body string
	f := HTTPFetcher{
		Client: srv.Client(),
		Base:   base,
		Eval: func(spec manifest.Extension, b []byte) error {
			body = string(b)
			ns.Expose(spec.ID, simple)
			return nil
		},
	}
	reg, err := LoadAll(context.Background(), BrowserLoader{Fetcher: f, Globals: ns}, fakeHost{},
		[]manifest.Extension{{ID: "render", FilePath: "/ext/render.js"}})
	require.NoError(t, err)
	assert.Equal(t, "window.render = ...", body)
	_, ok := reg.Get("render")
	assert.True(t, ok)

	err = f.Fetch(context.Background(), manifest.Extension{ID: "x", FilePath: "/ext/missing.js"})
	assert.Error(t, err)
}

func TestJoinZeroAndFailure(t *testing.T) {
	var got []error
	j := newJoin(2, func(err error) { got = append(got, err) })
	j.fail(errors.New("first"))
	j.arrive()
	j.arrive()
	j.fail(errors.New("second"))
	require.Len(t, got, 1)
	assert.EqualError(t, got[0], "first")
}

func TestModuleFetcher(t *testing.T) {
	mods := Modules{}
	mods.Provide("ext0", simple)
	ns := NewNamespace()
	l := BrowserLoader{Fetcher: ModuleFetcher{Modules: mods, Globals: ns}, Globals: ns}

	reg, err := LoadAll(context.Background(), l, fakeHost{}, specs(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"ext0"}, reg.IDs())

	_, err = LoadAll(context.Background(), l, fakeHost{}, specs(2))
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrLocatorNotFound)
}
