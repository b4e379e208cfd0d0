// Package bundlefx registers the stock extensions. Include Module ahead of
// serverfx.Module so the locators exist before the manifest is loaded.
package bundlefx

import (
	"sync"

	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/extensions/pagekit"
	"github.com/joeydtaylor/steeze-iso/pkg/extensions/session"
	"go.uber.org/fx"
)

var Module = fx.Options(fx.Invoke(Register))

var once sync.Once

// Register adds the stock extensions to extension.Default. It is safe to
// call more than once.
func Register() {
	once.Do(func() {
		extension.Provide(pagekit.Locator, pagekit.Factory)
		extension.Provide(session.Locator, session.Factory)
	})
}

// Expose publishes the stock factories in a browser namespace under ids.
func Expose(ns *extension.Namespace, pagekitID, sessionID string) {
	if pagekitID != "" {
		ns.Expose(pagekitID, pagekit.Factory)
	}
	if sessionID != "" {
		ns.Expose(sessionID, session.Factory)
	}
}
