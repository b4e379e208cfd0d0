package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		Extensions: []Extension{
			{ID: "auth", Require: "auth"},
			{ID: "render", FilePath: "/ext/render.js"},
		},
		Routes: []Route{{
			Path:          "/",
			MiddlewareRaw: []any{"auth#checkpage", map[string]any{"type": "render#usetemplate", "templateid": "home"}},
		}},
	}
}

func TestValidateDefaults(t *testing.T) {
	c := baseConfig()
	require.NoError(t, c.Validate())

	assert.Equal(t, "/", c.BasePath)
	assert.Equal(t, "index.html", c.Document)
	assert.Equal(t, DefaultBrowserEvents, c.BrowserEvents)
	assert.Equal(t, Static{Root: "."}, c.Static)

	r := c.Routes[0]
	assert.Equal(t, "use", r.Method)
	require.Len(t, r.Middleware, 2)
	assert.Equal(t, Ref{Type: "auth#checkpage", Extension: "auth", Name: "checkpage"}, r.Middleware[0])
	b := r.Middleware[1]
	assert.True(t, b.Builder)
	assert.Equal(t, "render", b.Extension)
	assert.Equal(t, "usetemplate", b.Name)
	assert.Equal(t, map[string]any{"type": "render#usetemplate", "templateid": "home"}, b.Options)

	// idempotent
	require.NoError(t, c.Validate())
	assert.Len(t, c.Routes[0].Middleware, 2)
}

func TestValidateStatic(t *testing.T) {
	c := baseConfig()
	c.StaticRaw = false
	require.NoError(t, c.Validate())
	assert.True(t, c.Static.Disabled)

	c = baseConfig()
	c.StaticRaw = map[string]any{"root": "public", "index": true}
	require.NoError(t, c.Validate())
	assert.Equal(t, Static{Root: "public", Index: true}, c.Static)

	c = baseConfig()
	c.StaticRaw = "nope"
	assert.Error(t, c.Validate())
}

func TestValidateRegexAndMethod(t *testing.T) {
	c := baseConfig()
	c.Routes[0].Method = "GET"
	c.Routes[0].Regex = `^/p/(?P<id>\d+)$`
	require.NoError(t, c.Validate())
	assert.Equal(t, "get", c.Routes[0].Method)
	require.NotNil(t, c.Routes[0].Regexp())
	assert.Equal(t, `^/p/(?P<id>\d+)$`, c.Routes[0].Pattern())

	c = baseConfig()
	c.Routes[0].Regex = `(`
	assert.ErrorIs(t, c.Validate(), ErrBadRoute)

	c = baseConfig()
	c.Routes[0].Method = "fetch"
	assert.ErrorIs(t, c.Validate(), ErrBadRoute)
}

func TestValidateFailures(t *testing.T) {
	testCases := []struct {
		name string
		mod  func(c *Config)
		want error
	}{
		{"duplicate id", func(c *Config) { c.Extensions[1].ID = "auth" }, ErrDuplicateExtension},
		{"bad id", func(c *Config) { c.Extensions[0].ID = "my-ext" }, ErrInvalidExtension},
		{"no locator", func(c *Config) { c.Extensions[0].Require = "" }, ErrInvalidExtension},
		{"undeclared", func(c *Config) { c.Routes[0].MiddlewareRaw = []any{"nope#x"} }, ErrUndeclaredExtension},
		{"malformed string", func(c *Config) { c.Routes[0].MiddlewareRaw = []any{"authcheckpage"} }, ErrBadReference},
		{"malformed builder", func(c *Config) { c.Routes[0].MiddlewareRaw = []any{map[string]any{"templateid": "x"}} }, ErrBadReference},
		{"wrong kind", func(c *Config) { c.Routes[0].MiddlewareRaw = []any{42} }, ErrBadReference},
		{"client undeclared", func(c *Config) { c.Routes[0].ClientMiddlewareRaw = []any{"ghost#x"} }, ErrUndeclaredExtension},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := baseConfig()
			tc.mod(&c)
			assert.ErrorIs(t, c.Validate(), tc.want)
		})
	}
}

func TestRefHelpers(t *testing.T) {
	r := Build("render#setdata", map[string]any{"data": map[string]any{"a": 1}})
	assert.Equal(t, "render#setdata", r.Options["type"])
	assert.Equal(t, "render#setdata", r.String())

	_, err := ParseRef("a#b#c")
	assert.ErrorIs(t, err, ErrBadReference)

	e := Extension{Config: map[string]any{"body_selector": "#app"}}
	assert.Equal(t, "#app", e.String("body_selector", "body"))
	assert.Equal(t, "x", e.String("missing", "x"))
}
