package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-iso/pkg/core"
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-iso/pkg/transport/httpx"
	"go.uber.org/zap"
)

// HostDeps are the host-level collaborators around the adapter.
type HostDeps struct {
	Router  httpx.Router
	LogMW   *logger.Middleware
	Metrics http.Handler
}

// BuildHost mounts the adapter for app, behind static serving, on d.Router.
func BuildHost(app *core.App, d HostDeps) http.Handler {
	r := d.Router
	if r == nil {
		r = httpx.NewChi()
	}
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(metrics.Collect())

	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics)
	}
	cfg := app.Config()
	r.Mount("/", Static(cfg.Static, cfg.BasePath)(New(app)))
	return r.Mux()
}

// Server is the listening side of the host.
type Server struct {
	srv  *http.Server
	log  *zap.Logger
	ln   net.Listener
	cert string
	key  string
}

// NewServer prepares a server on addr. TLS is used when cert and key are
// both set.
func NewServer(addr string, h http.Handler, log *zap.Logger, cert, key string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log:  log,
		cert: cert,
		key:  key,
	}
	if s.tls() {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13}
	}
	return s
}

func (s *Server) tls() bool { return s.cert != "" && s.key != "" }

// Listen binds the address and serves in the background.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	if s.tls() {
		s.log.Info("server starting (TLS)", zap.String("addr", ln.Addr().String()), zap.String("cert", s.cert))
	} else {
		s.log.Info("server starting (PLAINTEXT)", zap.String("addr", ln.Addr().String()))
	}
	go func() {
		var err error
		if s.tls() {
			err = s.srv.ServeTLS(ln, s.cert, s.key)
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Close stops accepting connections and waits for in-flight requests.
func (s *Server) Close(ctx context.Context) error {
	s.log.Info("server stopping")
	return s.srv.Shutdown(ctx)
}
