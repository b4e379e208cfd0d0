// Package pagekit is the stock page extension: pick a template, attach data,
// render it into the page body.
//
// Middleware:
//
//	checkpage  browser only: halt when the page already shows the request URL
//	showpage   render the chosen template into body_selector, mark handled
//
// Builders:
//
//	usetemplate {templateid = "..."}  choose the template
//	setdata     {data = {...}}        attach a data payload
//
// Config: body_selector (default "body").
package pagekit

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/codec"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
	"go.uber.org/zap"
)

// Locator is the require name pagekit registers under.
const Locator = "steeze/pagekit"

// DataAttr carries the JSON-encoded payload on the rendered container.
const DataAttr = "data-page"

var (
	ErrNoTemplate      = errors.New("pagekit: templateid required")
	ErrBadData         = errors.New("pagekit: data must be a table")
	ErrTemplateMissing = errors.New("pagekit: template not found")
	ErrNoTarget        = errors.New("pagekit: body selector matched nothing")
)

type kit struct {
	host     extension.Host
	selector string
	log      *zap.Logger

	mu      sync.Mutex
	current string
}

// Factory builds the extension.
func Factory(host extension.Host, spec manifest.Extension) (*extension.Extension, error) {
	k := &kit{
		host:     host,
		selector: spec.String("body_selector", "body"),
		log:      zap.NewNop(),
	}
	if host != nil && host.Logger() != nil {
		k.log = host.Logger().With(zap.String("extension", spec.ID))
	}
	if k.browser() {
		k.current = pageKey(host.Location())
	}
	return &extension.Extension{
		TLC: tlc.Module{"settext": setText},
		Middleware: map[string]chain.Handler{
			"checkpage": k.checkPage,
			"showpage":  k.showPage,
		},
		Builders: map[string]extension.Builder{
			"usetemplate": useTemplate,
			"setdata":     setData,
		},
	}, nil
}

func (k *kit) browser() bool { return k.host != nil && !k.host.Server() }

func (k *kit) checkPage(req *chain.Request, next chain.Next) {
	if k.browser() {
		k.mu.Lock()
		same := k.current != "" && k.current == pageKey(req.OriginalURL)
		k.mu.Unlock()
		if same {
			req.Halt()
			return
		}
	}
	next(nil)
}

func (k *kit) showPage(req *chain.Request, next chain.Next) {
	if req.Template == "" {
		next(nil)
		return
	}
	if req.Document == nil {
		next(fmt.Errorf("pagekit: no document"))
		return
	}
	tpl := req.Document.Query("template#" + req.Template)
	if tpl.Len() == 0 {
		tpl = req.Document.Query("#" + req.Template)
	}
	if tpl.Len() == 0 {
		next(fmt.Errorf("%w: %q", ErrTemplateMissing, req.Template))
		return
	}
	body, err := tpl.HTML()
	if err != nil {
		next(err)
		return
	}
	target := req.Document.Query(k.selector)
	if target.Len() == 0 {
		next(fmt.Errorf("%w: %q", ErrNoTarget, k.selector))
		return
	}

	target.SetHTML(body)
	for key, v := range req.Data {
		if s, ok := v.(string); ok {
			target.Find(`[data-field="` + key + `"]`).SetHTML(html.EscapeString(s))
		}
	}
	if len(req.Data) > 0 {
		raw, err := codec.JSONStrict.Marshal(req.Data)
		if err != nil {
			next(err)
			return
		}
		target.SetAttr(DataAttr, string(raw))
	}

	if k.browser() {
		k.mu.Lock()
		k.current = pageKey(req.OriginalURL)
		k.mu.Unlock()
	}
	k.log.Debug("page rendered", zap.String("template", req.Template), zap.String("url", req.URL))
	req.MarkHandled()
	next(nil)
}

// pageKey drops scheme, host and fragment so that absolute and relative
// links to one page compare equal.
func pageKey(u string) string {
	p, err := url.Parse(u)
	if err != nil || u == "" {
		return u
	}
	key := p.EscapedPath()
	if key == "" {
		key = "/"
	}
	if p.RawQuery != "" {
		key += "?" + p.RawQuery
	}
	return key
}

func useTemplate(opts map[string]any) (chain.Handler, error) {
	id, _ := opts["templateid"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNoTemplate
	}
	return func(req *chain.Request, next chain.Next) {
		req.Template = id
		next(nil)
	}, nil
}

func setData(opts map[string]any) (chain.Handler, error) {
	data, ok := opts["data"].(map[string]any)
	if !ok {
		return nil, ErrBadData
	}
	return func(req *chain.Request, next chain.Next) {
		for k, v := range data {
			req.Data[k] = v
		}
		next(nil)
	}, nil
}

// setText replaces the target's content with its arguments.
func setText(c *tlc.Call) error {
	c.Target.SetHTML(html.EscapeString(strings.Join(c.Args, " ")))
	return nil
}
