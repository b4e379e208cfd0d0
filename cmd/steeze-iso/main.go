// Command steeze-iso serves the manifest named by ISO_MANIFEST
// (default manifest.toml) on SERVER_LISTEN_ADDRESS (default :4000).
package main

import (
	"github.com/joeydtaylor/steeze-iso/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-iso/pkg/serverfx"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		bundlefx.Module,
		serverfx.Module(serverfx.DefaultOptions()),
	).Run()
}
