// Package metrics exposes prometheus collectors for the HTTP host and the
// dispatch pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes.
const (
	OutcomeHandled  = "handled"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
	OutcomeHalted   = "halted"
)

// ObserveDispatch records one finished dispatch.
func ObserveDispatch(mode, outcome string, took time.Duration) {
	dispatchTotal.WithLabelValues(mode, outcome).Inc()
	dispatchSeconds.WithLabelValues(mode).Observe(took.Seconds())
}

func SetExtensionsLoaded(n int) { extensionsLoaded.Set(float64(n)) }

// Handler serves the default registry; the host mounts it on /metrics.
func Handler() http.Handler { return promhttp.Handler() }
