// Thetacast — CLI entry point.
//
// A broadcaster streams a 360° equirectangular video over WebRTC; a viewer
// receives it and renders the view from inside the sphere. The two endpoints
// find each other through a polled HTTP mailbox relay, which this binary can
// also run for local use.
//
// It can be launched interactively (no subcommand) or non-interactively via
// the broadcast, view and relay subcommands.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/1ureka/thetacast/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}
