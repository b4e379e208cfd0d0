// Package extension loads the configured extensions into a Registry.
//
// An extension is built by a Factory. Server side the factory is found by
// the descriptor's require locator in a Modules table; browser side the
// descriptor's resource is fetched and the factory is then looked up by id
// in a Namespace, the way a script exposes a global symbol.
package extension

import (
	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
	"github.com/joeydtaylor/steeze-iso/pkg/tlc"
	"go.uber.org/zap"
)

// Builder turns the options of a builder reference (the full reference
// table, "type" included) into a handler. It runs once per reference at
// configuration time and must depend on nothing but its options.
type Builder func(opts map[string]any) (chain.Handler, error)

// Extension is what a loaded extension exposes.
type Extension struct {
	ID         string
	TLC        tlc.Module
	Middleware map[string]chain.Handler
	Builders   map[string]Builder
}

// Host is the application handle passed to factories.
type Host interface {
	Server() bool
	Logger() *zap.Logger
	// Location is the URL the page was loaded at. Empty on the server.
	Location() string
	// Extension returns another extension. Only complete once loading ends.
	Extension(id string) (*Extension, bool)
}

// Factory builds an extension from its descriptor.
type Factory func(host Host, spec manifest.Extension) (*Extension, error)
