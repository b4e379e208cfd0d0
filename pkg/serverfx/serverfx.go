package serverfx

import (
	"context"
	"net/http"
	"os"

	"github.com/joeydtaylor/steeze-iso/pkg/core"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-iso/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-iso/pkg/transport/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideManifest(o Options, log *zap.Logger) (manifest.Config, error) {
	path := envOr(o.ManifestEnv, o.DefaultManifest)
	cfg, err := core.LoadConfig(path)
	if err != nil {
		log.Error("manifest load failed", zap.Error(err), zap.String("path", path))
		return manifest.Config{}, err
	}
	return cfg, nil
}

// provideApp loads every extension and builds the chains. Any failure
// aborts startup before the listener is bound.
func provideApp(cfg manifest.Config, log *zap.Logger) (*core.App, error) {
	return core.New(context.Background(), cfg,
		extension.ServerLoader{Modules: extension.Default, Log: log},
		core.Options{Logger: log},
	)
}

type hostDeps struct {
	fx.In
	App     *core.App
	Router  httpx.Router
	LogMW   *logger.Middleware
	Metrics http.Handler `name:"metrics"`
}

func provideHost(d hostDeps) http.Handler {
	return server.BuildHost(d.App, server.HostDeps{
		Router:  d.Router,
		LogMW:   d.LogMW,
		Metrics: d.Metrics,
	})
}

type serverDeps struct {
	fx.In
	Opts   Options
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)
	if !fileExists(cert) || !fileExists(key) {
		cert, key = "", ""
	}
	log := d.Logger.With(zap.String("service", d.Opts.Service))
	srv := server.NewServer(envOr(d.Opts.ListenAddrEnv, d.Opts.DefaultListen), d.App, log, cert, key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return srv.Listen() },
		OnStop:  srv.Close,
	})
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
