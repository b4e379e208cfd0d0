//go:build js && wasm

// Command steeze-iso-wasm is the browser half of steeze-iso. It loads the
// manifest named by the data-manifest attribute of the root element
// (default /manifest.toml), boots the dispatcher on the live page and routes
// link clicks, history replays and data-app-<event> bindings through it.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"syscall/js"

	"github.com/joeydtaylor/steeze-iso/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-iso/pkg/core"
	"github.com/joeydtaylor/steeze-iso/pkg/document"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/transport/browser"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	root := js.Global().Get("document").Get("documentElement")

	src := "/manifest.toml"
	if v := root.Call("getAttribute", "data-manifest"); !v.IsNull() {
		src = v.String()
	}
	cfg, err := fetchManifest(ctx, src)
	if err != nil {
		log.Fatal("manifest", zap.String("src", src), zap.Error(err))
	}

	live, err := document.Load([]byte(root.Get("outerHTML").String()))
	if err != nil {
		log.Fatal("document", zap.Error(err))
	}

	bundlefx.Register()
	ns := extension.NewNamespace()
	loader := extension.BrowserLoader{
		Fetcher: extension.ModuleFetcher{Globals: ns},
		Globals: ns,
		Log:     log,
	}
	opts := core.Options{Documents: document.Static{H: live}, Logger: log}

	browser.Boot(ctx, cfg, loader, opts, browser.JSWindow{}, func(d *browser.Dispatcher, err error) {
		if err != nil {
			log.Error("boot failed", zap.Error(err))
			return
		}
		listen(d, live, cfg.BrowserEvents)
		log.Info("dispatcher armed", zap.Int("extensions", d.App().Registry().Len()))
	})

	select {}
}

func fetchManifest(ctx context.Context, src string) (manifest.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return manifest.Config{}, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return manifest.Config{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return manifest.Config{}, fmt.Errorf("GET %s: status %d", src, res.StatusCode)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return manifest.Config{}, err
	}
	return core.ParseConfig(b, path.Ext(src))
}

// listen attaches the page listeners. Event bindings are registered first so
// a bound click suppresses link handling.
func listen(d *browser.Dispatcher, live document.Handle, events []string) {
	doc := js.Global().Get("document")

	for _, name := range events {
		name := name
		doc.Call("addEventListener", name, js.FuncOf(func(_ js.Value, args []js.Value) any {
			evt := args[0]
			took, _ := d.Trigger(name, browser.Select(live, evt.Get("target")), map[string]any{"type": name})
			if took {
				evt.Call("preventDefault")
			}
			return nil
		}))
	}

	doc.Call("addEventListener", "click", js.FuncOf(func(_ js.Value, args []js.Value) any {
		evt := args[0]
		if evt.Get("defaultPrevented").Bool() || evt.Get("button").Int() != 0 ||
			evt.Get("metaKey").Bool() || evt.Get("ctrlKey").Bool() || evt.Get("shiftKey").Bool() {
			return nil
		}
		el := element(evt.Get("target"))
		if el.IsNull() {
			return nil
		}
		a := el.Call("closest", "a[href], area[href]")
		if a.IsNull() || a.Call("hasAttribute", "download").Bool() {
			return nil
		}
		// Click navigates natively itself when it bypasses the pipeline.
		evt.Call("preventDefault")
		link := browser.Link{
			Href:     a.Get("href").String(),
			Target:   a.Get("target").String(),
			External: a.Call("getAttribute", "data-link").String() == "outside",
		}
		go d.Click(link)
		return nil
	}))

	js.Global().Get("window").Call("addEventListener", "popstate", js.FuncOf(func(js.Value, []js.Value) any {
		go d.PopState(js.Global().Get("location").Get("href").String())
		return nil
	}))
}

// element returns v, or its parent when v is a text node.
func element(v js.Value) js.Value {
	if v.IsNull() || v.IsUndefined() {
		return js.Null()
	}
	if v.Get("nodeType").Int() != 1 {
		return v.Get("parentElement")
	}
	return v
}
