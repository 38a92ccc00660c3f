package main

import (
	"context"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/util"
)

// runInteractive prompts for the role and the few settings that matter most
// when no subcommand is given.
func runInteractive(ctx context.Context) error {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{
			"Viewer      — Watch a 360° stream",
			"Broadcaster — Publish a 360° video",
			"Relay       — Run a local signaling relay",
		}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	switch {
	case strings.HasPrefix(role, "Relay"):
		return runRelay(ctx, "127.0.0.1:3001")

	case strings.HasPrefix(role, "Broadcaster"):
		opts.Role = string(config.RoleBroadcaster)
		opts.VideoFile = askText("VP8 IVF file to broadcast", "")

	default:
		opts.Role = string(config.RoleViewer)
		device, _ := pterm.DefaultInteractiveSelect.
			WithOptions([]string{"desktop", "headset"}).
			WithDefaultText("Device profile").
			Show()
		pterm.Println()
		opts.Device = device
	}

	opts.SignalURL = askText("Signaling relay URL", config.DefaultSignalURL)
	return runSession(ctx, opts)
}

// askText prompts for a value, returning def when the input is empty.
func askText(prompt, def string) string {
	text := prompt
	if def != "" {
		text += " (default " + def + ")"
	}
	raw, err := pterm.DefaultInteractiveTextInput.WithDefaultText(text).Show()
	pterm.Println()
	if err != nil {
		util.LogWarning("%v", err)
	}
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return def
}
