package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
)

// Static serves files under cfg.Root ahead of the pipeline. Paths outside
// base, missing files, and directories (unless cfg.Index finds an
// index.html) fall through to next.
func Static(cfg manifest.Static, base string) func(http.Handler) http.Handler {
	base = "/" + strings.Trim(base, "/")
	return func(next http.Handler) http.Handler {
		if cfg.Disabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			rel, ok := within(base, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			name := filepath.Join(cfg.Root, filepath.FromSlash(path.Clean("/"+rel)))
			f, fi, ok := open(name, cfg.Index)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			defer f.Close()
			http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
		})
	}
}

func within(base, p string) (string, bool) {
	if base == "/" {
		return p, true
	}
	if p == base {
		return "/", true
	}
	if strings.HasPrefix(p, base+"/") {
		return strings.TrimPrefix(p, base), true
	}
	return "", false
}

func open(name string, index bool) (*os.File, os.FileInfo, bool) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, nil, false
	}
	if fi.IsDir() {
		if !index {
			return nil, nil, false
		}
		name = filepath.Join(name, "index.html")
		if fi, err = os.Stat(name); err != nil || fi.IsDir() {
			return nil, nil, false
		}
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, false
	}
	return f, fi, true
}
