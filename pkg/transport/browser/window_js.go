//go:build js && wasm

package browser

import (
	"syscall/js"

	"github.com/joeydtaylor/steeze-iso/pkg/document"
)

// JSWindow is the Window of the page the module runs in.
type JSWindow struct{}

func (JSWindow) Host() string {
	return js.Global().Get("location").Get("host").String()
}

func (JSWindow) Location() string {
	return js.Global().Get("location").Get("href").String()
}

func (JSWindow) PushState(url string) {
	js.Global().Get("history").Call("pushState", map[string]any{"url": url}, "", url)
}

// Navigate clicks a synthesized outside link so the browser honours target.
func (JSWindow) Navigate(url, target string) {
	a := js.Global().Get("document").Call("createElement", "a")
	a.Call("setAttribute", "data-link", "outside")
	a.Set("href", url)
	if target != "" {
		a.Set("target", target)
	}
	a.Call("click")
}

// Commit replaces the page body with the body of doc.
func (JSWindow) Commit(doc document.Handle) error {
	body, err := doc.Query("body").HTML()
	if err != nil {
		return err
	}
	js.Global().Get("document").Get("body").Set("innerHTML", body)
	return nil
}

// Select returns the element of doc at the position el has in the page.
// It returns nil when el is not inside the body.
func Select(doc document.Handle, el js.Value) document.Selection {
	body := js.Global().Get("document").Get("body")
	if !el.IsNull() && !el.IsUndefined() && el.Get("nodeType").Int() != 1 {
		el = el.Get("parentElement")
	}
	var pos []int
	for !el.IsNull() && !el.IsUndefined() && !el.Equal(body) {
		i := 1
		for s := el.Get("previousElementSibling"); !s.IsNull(); s = s.Get("previousElementSibling") {
			i++
		}
		pos = append(pos, i)
		el = el.Get("parentElement")
	}
	if el.IsNull() || el.IsUndefined() {
		return nil
	}
	for l, r := 0, len(pos)-1; l < r; l, r = l+1, r-1 {
		pos[l], pos[r] = pos[r], pos[l]
	}
	return doc.Query(PathSelector(pos))
}
