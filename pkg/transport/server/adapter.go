// Package server is the HTTP front door of the pipeline: one request
// context per inbound request, dispatched through the shared core.App.
package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/core"
	"go.uber.org/zap"
)

var errNoDocument = errors.New("server: no document attached")

// Adapter serves HTTP requests through the primary chain:
//
//   - handled: 200 with the serialized document
//   - not handled: 404
//   - chain error: the status of a chain.Error, 500 otherwise
//   - redirect: 302 to the new location
//
// ServeHTTP waits for the chain to finish or the client to go away. A
// handler that never continues holds the request until then.
type Adapter struct {
	app *core.App
	log *zap.Logger
}

func New(app *core.App) *Adapter {
	return &Adapter{app: app, log: app.Logger()}
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := chain.NewRequest(r.Context(), strings.ToLower(r.Method), r.URL.RequestURI())
	req.Header = r.Header

	res := &response{w: w, r: r, log: a.log, done: make(chan struct{})}
	req.OnRedirect(res.redirect)
	a.app.Dispatch(req, res)

	select {
	case <-res.done:
	case <-r.Context().Done():
		res.abandon()
		a.log.Warn("request abandoned before the chain finished",
			zap.String("url", req.URL),
			zap.Error(r.Context().Err()),
		)
	}
}

// response is the core.Terminal for one HTTP request. Writes after
// ServeHTTP returned are dropped.
type response struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	r      *http.Request
	log    *zap.Logger
	wrote  bool
	closed bool
	once   sync.Once
	done   chan struct{}
}

func (s *response) write(fn func(w http.ResponseWriter)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wrote || s.closed {
		return
	}
	s.wrote = true
	fn(s.w)
}

func (s *response) finish() { s.once.Do(func() { close(s.done) }) }

func (s *response) abandon() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *response) Render(req *chain.Request) {
	defer s.finish()
	if req.Document == nil {
		s.fail(errNoDocument)
		return
	}
	html, err := req.Document.Serialize()
	if err != nil {
		s.fail(err)
		return
	}
	s.write(func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))
	})
}

func (s *response) Fallback(*chain.Request) {
	defer s.finish()
	s.write(func(w http.ResponseWriter) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
}

func (s *response) Fail(_ *chain.Request, err error) {
	defer s.finish()
	s.fail(err)
}

func (s *response) fail(err error) {
	code, msg := chain.StatusOf(err)
	s.write(func(w http.ResponseWriter) { http.Error(w, msg, code) })
}

// Halted treats a halt like reaching the end of the chain unless a redirect
// already answered the request.
func (s *response) Halted(req *chain.Request) {
	s.mu.Lock()
	wrote := s.wrote
	s.mu.Unlock()
	switch {
	case wrote:
		s.finish()
	case req.Handled():
		s.Render(req)
	default:
		s.Fallback(req)
	}
}

func (s *response) redirect(req *chain.Request, u string) {
	s.write(func(w http.ResponseWriter) { http.Redirect(w, s.r, u, http.StatusFound) })
	req.Halt()
}
