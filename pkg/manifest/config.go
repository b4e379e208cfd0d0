package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrDuplicateExtension  = errors.New("manifest: duplicate extension id")
	ErrInvalidExtension    = errors.New("manifest: invalid extension")
	ErrUndeclaredExtension = errors.New("manifest: reference to undeclared extension")
	ErrBadReference        = errors.New("manifest: bad middleware reference")
	ErrBadRoute            = errors.New("manifest: bad route")
)

// DefaultBrowserEvents are bound when the manifest lists none.
var DefaultBrowserEvents = []string{"click", "submit", "mouseenter", "mouseleave", "change"}

// Config is the top-level manifest.
type Config struct {
	BasePath      string      `toml:"base_path" json:"base_path"`
	Document      string      `toml:"document" json:"document"`
	BrowserEvents []string    `toml:"browser_events" json:"browser_events"`
	Extensions    []Extension `toml:"extension" json:"extension"`
	Routes        []Route     `toml:"route" json:"route"`

	// StaticRaw is either `false` or a table {root, index}.
	StaticRaw any    `toml:"static" json:"static"`
	Static    Static `toml:"-" json:"-"`
}

// Static configures file serving ahead of the pipeline (server only).
type Static struct {
	Disabled bool
	Root     string
	Index    bool
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate applies defaults, decodes middleware references and checks every
// cross reference. It is idempotent.
func (c *Config) Validate() error {
	c.defaults()
	if err := c.normalizeStatic(); err != nil {
		return err
	}

	ids := make(map[string]bool, len(c.Extensions))
	for i := range c.Extensions {
		e := &c.Extensions[i]
		if err := e.validate(); err != nil {
			return fmt.Errorf("extension %d: %w", i, err)
		}
		if ids[e.ID] {
			return fmt.Errorf("extension %d: %w: %q", i, ErrDuplicateExtension, e.ID)
		}
		ids[e.ID] = true
	}

	for i := range c.Routes {
		r := &c.Routes[i]
		if err := r.normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		for _, ref := range append(append([]Ref(nil), r.Middleware...), r.ClientMiddleware...) {
			if !ids[ref.Extension] {
				return fmt.Errorf("route %d (%s %s): %w: %q", i, r.Method, r.Pattern(), ErrUndeclaredExtension, ref.Type)
			}
		}
	}
	return nil
}

func (c *Config) defaults() {
	c.BasePath = strings.TrimSpace(c.BasePath)
	if c.BasePath == "" {
		c.BasePath = "/"
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		c.BasePath = "/" + c.BasePath
	}
	if strings.TrimSpace(c.Document) == "" {
		c.Document = "index.html"
	}
	if len(c.BrowserEvents) == 0 {
		c.BrowserEvents = append([]string(nil), DefaultBrowserEvents...)
	}
}

func (c *Config) normalizeStatic() error {
	switch v := c.StaticRaw.(type) {
	case nil:
		if c.Static.Disabled {
			return nil
		}
	case bool:
		if !v {
			c.Static = Static{Disabled: true}
			return nil
		}
		c.Static = Static{}
	case map[string]any:
		s := Static{}
		if root, ok := v["root"].(string); ok {
			s.Root = root
		}
		if idx, ok := v["index"].(bool); ok {
			s.Index = idx
		}
		if dis, ok := v["disabled"].(bool); ok {
			s.Disabled = dis
		}
		c.Static = s
	default:
		return fmt.Errorf("manifest: static must be false or a table, got %T", v)
	}
	if c.Static.Root == "" {
		c.Static.Root = "."
	}
	return nil
}

// Extension describes one extension to load.
type Extension struct {
	ID string `toml:"id" json:"id"`
	// Require is the server-side locator (a registered module name).
	Require string `toml:"require" json:"require"`
	// FilePath is the browser-side resource URL.
	FilePath string         `toml:"file_path" json:"file_path"`
	Config   map[string]any `toml:"config" json:"config"`
}

func (e *Extension) validate() error {
	e.ID = strings.TrimSpace(e.ID)
	if !identRe.MatchString(e.ID) {
		return fmt.Errorf("%w: id %q is not an identifier", ErrInvalidExtension, e.ID)
	}
	if strings.TrimSpace(e.Require) == "" && strings.TrimSpace(e.FilePath) == "" {
		return fmt.Errorf("%w: %q needs require or file_path", ErrInvalidExtension, e.ID)
	}
	return nil
}

// String returns a string setting from the extension config, or def.
func (e Extension) String(key, def string) string {
	if s, ok := e.Config[key].(string); ok && s != "" {
		return s
	}
	return def
}
