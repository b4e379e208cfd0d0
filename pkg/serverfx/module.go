package serverfx

import (
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-iso/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-iso/pkg/transport/httpx"
	"go.uber.org/fx"
)

// Options allow per-service env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. "ISO_MANIFEST"
	DefaultManifest string // e.g. "manifest.toml"
	ListenAddrEnv   string // e.g. "SERVER_LISTEN_ADDRESS"
	DefaultListen   string // e.g. ":4000"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

func DefaultOptions() Options {
	return Options{
		Service:         "steeze-iso",
		ManifestEnv:     "ISO_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenAddrEnv:   "SERVER_LISTEN_ADDRESS",
		DefaultListen:   ":4000",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// Module returns a complete Fx option set; extensions must be registered
// with extension.Provide before the app starts.
func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		logger.Module,
		fx.Provide(fx.Annotate(metrics.Handler, fx.ResultTags(`name:"metrics"`))),
		fx.Provide(httpx.NewChi),

		fx.Provide(provideManifest),
		fx.Provide(provideApp),
		fx.Provide(fx.Annotate(provideHost, fx.ResultTags(`name:"app"`))),

		fx.Invoke(registerHooks),
	)
}
