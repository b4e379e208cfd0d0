// Package document defines the page handle the pipeline renders into.
//
// Server side a handle is parsed from the configured document file on every
// request; browser side it wraps the live page. Both satisfy Handle.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// ErrLoad wraps every failure to produce a handle.
var ErrLoad = errors.New("document: load failed")

// Handle is a loaded document.
type Handle interface {
	Query(selector string) Selection
	Serialize() (string, error)
}

// Selection is a (possibly empty) set of elements inside a Handle.
type Selection interface {
	Len() int
	Find(selector string) Selection
	Closest(selector string) Selection
	HTML() (string, error)
	SetHTML(html string)
	Text() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
}

// Provider hands out a handle per dispatch.
type Provider interface {
	Load(ctx context.Context) (Handle, error)
}

// Load parses raw markup into a handle.
func Load(raw []byte) (Handle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return &queryDoc{doc: doc}, nil
}

// FileProvider reads and parses Path on every Load so that concurrent
// requests never share mutable document state.
type FileProvider struct {
	Path string
}

func (p FileProvider) Load(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, p.Path, err)
	}
	return Load(b)
}

// Static always returns the same handle. Browser adapters use it for the
// live page, which every navigation mutates in place.
type Static struct {
	H Handle
}

func (s Static) Load(context.Context) (Handle, error) {
	if s.H == nil {
		return nil, fmt.Errorf("%w: no live document", ErrLoad)
	}
	return s.H, nil
}

type queryDoc struct {
	doc *goquery.Document
}

func (d *queryDoc) Query(selector string) Selection {
	return querySel{d.doc.Find(selector)}
}

func (d *queryDoc) Serialize() (string, error) {
	return d.doc.Html()
}

type querySel struct {
	s *goquery.Selection
}

func (q querySel) Len() int                          { return q.s.Length() }
func (q querySel) Find(selector string) Selection    { return querySel{q.s.Find(selector)} }
func (q querySel) Closest(selector string) Selection { return querySel{q.s.Closest(selector)} }
func (q querySel) HTML() (string, error)             { return q.s.Html() }
func (q querySel) SetHTML(html string)               { q.s.SetHtml(html) }
func (q querySel) Text() string                      { return q.s.Text() }
func (q querySel) Attr(name string) (string, bool)   { return q.s.Attr(name) }
func (q querySel) SetAttr(name, value string)        { q.s.SetAttr(name, value) }
