// Package httpx is the host HTTP router the server adapter is mounted on.
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the minimal host router contract. NewChi implements it.
type Router interface {
	Handle(method, path string, h http.Handler)
	Get(path string, h http.Handler)
	// Mount sends every verb under pattern to h.
	Mount(pattern string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Mux() http.Handler
}

// chiRouter is our default Router backed by github.com/go-chi/chi/v5.
type chiRouter struct{ r *chi.Mux }

// NewChi returns a Chi-backed Router.
func NewChi() Router { return &chiRouter{r: chi.NewRouter()} }

func (c *chiRouter) Handle(method, path string, h http.Handler) { c.r.Method(method, path, h) }
func (c *chiRouter) Get(path string, h http.Handler)            { c.r.Method(http.MethodGet, path, h) }
func (c *chiRouter) Mount(pattern string, h http.Handler)       { c.r.Mount(pattern, h) }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler)  { c.r.Use(mw...) }
func (c *chiRouter) Mux() http.Handler                          { return c.r }
