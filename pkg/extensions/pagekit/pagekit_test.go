package pagekit

import (
	"context"
	"testing"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/document"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const page = `<html><body>
<template id="home"><h1 data-field="title">?</h1><p>home</p></template>
<div id="legacy"><em>old</em></div>
<main id="app"></main>
</body></html>`

type host struct {
	server   bool
	location string
}

func (h host) Server() bool                                  { return h.server }
func (h host) Logger() *zap.Logger                           { return zap.NewNop() }
func (h host) Location() string                              { return h.location }
func (h host) Extension(string) (*extension.Extension, bool) { return nil, false }

func build(t *testing.T, server bool) *extension.Extension {
	t.Helper()
	ext, err := Factory(host{server: server}, manifest.Extension{
		ID:     "pagekit",
		Config: map[string]any{"body_selector": "#app"},
	})
	require.NoError(t, err)
	return ext
}

func request(t *testing.T, u string) *chain.Request {
	t.Helper()
	doc, err := document.Load([]byte(page))
	require.NoError(t, err)
	req := chain.NewRequest(context.Background(), "get", u)
	req.Document = doc
	return req
}

// run calls h and reports whether it continued, and with what error.
func run(h chain.Handler, req *chain.Request) (continued bool, err error) {
	h(req, func(e error) { continued, err = true, e })
	return continued, err
}

func mustBuild(t *testing.T, ext *extension.Extension, name string, opts map[string]any) chain.Handler {
	t.Helper()
	h, err := ext.Builders[name](opts)
	require.NoError(t, err)
	return h
}

func TestShowPageRendersTemplateWithData(t *testing.T) {
	ext := build(t, true)
	req := request(t, "/")

	for _, h := range []chain.Handler{
		mustBuild(t, ext, "usetemplate", map[string]any{"type": "pagekit#usetemplate", "templateid": "home"}),
		mustBuild(t, ext, "setdata", map[string]any{"data": map[string]any{"title": "<Hi>"}}),
		ext.Middleware["showpage"],
	} {
		ok, err := run(h, req)
		require.True(t, ok)
		require.NoError(t, err)
	}

	assert.True(t, req.Handled())
	html, err := req.Document.Query("#app").HTML()
	require.NoError(t, err)
	assert.Equal(t, `<h1 data-field="title">&lt;Hi&gt;</h1><p>home</p>`, html)
	attr, ok := req.Document.Query("#app").Attr(DataAttr)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"<Hi>"}`, attr)
}

func TestShowPageFallsBackToElementID(t *testing.T) {
	ext := build(t, true)
	req := request(t, "/")
	req.Template = "legacy"

	_, err := run(ext.Middleware["showpage"], req)
	require.NoError(t, err)
	html, _ := req.Document.Query("#app").HTML()
	assert.Equal(t, "<em>old</em>", html)
}

func TestShowPageWithoutTemplateLeavesUnhandled(t *testing.T) {
	ext := build(t, true)
	req := request(t, "/")
	ok, err := run(ext.Middleware["showpage"], req)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.False(t, req.Handled())
}

func TestShowPageUnknownTemplate(t *testing.T) {
	ext := build(t, true)
	req := request(t, "/")
	req.Template = "nope"
	_, err := run(ext.Middleware["showpage"], req)
	assert.ErrorIs(t, err, ErrTemplateMissing)
	assert.False(t, req.Handled())
}

func TestBuilderOptions(t *testing.T) {
	ext := build(t, true)
	_, err := ext.Builders["usetemplate"](map[string]any{"type": "pagekit#usetemplate"})
	assert.ErrorIs(t, err, ErrNoTemplate)
	_, err = ext.Builders["setdata"](map[string]any{"data": "x"})
	assert.ErrorIs(t, err, ErrBadData)
}

func TestCheckPageProceedsOnServer(t *testing.T) {
	ext := build(t, true)
	for i := 0; i < 2; i++ {
		req := request(t, "/")
		req.Template = "home"
		ok, _ := run(ext.Middleware["checkpage"], req)
		assert.True(t, ok)
		_, _ = run(ext.Middleware["showpage"], req)
	}
}

func TestCheckPageHaltsOnCurrentPageInBrowser(t *testing.T) {
	ext := build(t, false)

	first := request(t, "/about")
	first.Template = "home"
	ok, _ := run(ext.Middleware["checkpage"], first)
	require.True(t, ok)
	_, _ = run(ext.Middleware["showpage"], first)

	again := request(t, "/about")
	ok, _ = run(ext.Middleware["checkpage"], again)
	assert.False(t, ok)

	other := request(t, "/contact")
	ok, _ = run(ext.Middleware["checkpage"], other)
	assert.True(t, ok)
}

func TestSetTextCommand(t *testing.T) {
	ext := build(t, true)
	doc, err := document.Load([]byte(`<p id="x" data-tlc="pagekit#settext a <b>"></p>`))
	require.NoError(t, err)

	rt := tlc.New()
	rt.AddModule("pagekit", ext.TLC)
	require.NoError(t, rt.Run(doc.Query("#x"), nil, tlc.RunOptions{}))
	html, _ := doc.Query("#x").HTML()
	assert.Equal(t, "a &lt;b&gt;", html)
}

func TestCheckPageHaltsOnBootPage(t *testing.T) {
	ext, err := Factory(host{location: "http://example.test/about#team"}, manifest.Extension{ID: "pagekit"})
	require.NoError(t, err)

	for _, u := range []string{"/about", "http://example.test/about"} {
		ok, _ := run(ext.Middleware["checkpage"], request(t, u))
		assert.False(t, ok, u)
	}
	ok, _ := run(ext.Middleware["checkpage"], request(t, "/about?tab=2"))
	assert.True(t, ok)
}
