package metrics

import (
	"net/http"
	"strings"
	"sync"
)

var opts = struct {
	sync.RWMutex
	skip      map[string]struct{}
	normalize func(*http.Request) string
}{
	skip:      map[string]struct{}{"/metrics": {}, "/ping": {}},
	normalize: func(r *http.Request) string { return r.URL.Path },
}

// AddSkipPaths excludes paths from the HTTP collectors. "/metrics" and the
// "/ping" heartbeat are skipped by default.
func AddSkipPaths(paths ...string) {
	opts.Lock()
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			opts.skip[p] = struct{}{}
		}
	}
	opts.Unlock()
}

// SetPathNormalizer sets how the uri label is derived (e.g. collapse ids).
func SetPathNormalizer(fn func(*http.Request) string) {
	if fn == nil {
		return
	}
	opts.Lock()
	opts.normalize = fn
	opts.Unlock()
}

func isSkipPath(r *http.Request) bool {
	opts.RLock()
	_, ok := opts.skip[r.URL.Path]
	opts.RUnlock()
	return ok
}

func normalizePath(r *http.Request) string {
	opts.RLock()
	fn := opts.normalize
	opts.RUnlock()
	return fn(r)
}
