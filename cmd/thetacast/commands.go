package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/relay"
	"github.com/1ureka/thetacast/internal/session"
	"github.com/1ureka/thetacast/internal/signaling"
	"github.com/1ureka/thetacast/internal/util"
)

// Flags shared by broadcast and view.
var (
	opts      config.Options
	debugMode bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "thetacast",
		Short:         "Stream and view 360° video over WebRTC",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugMode {
				util.EnableDebug()
			}
			pterm.Info.Println(fmt.Sprintf("Thetacast — v%s", version))
			pterm.Println()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	pf.StringVar(&opts.ConfigFile, "config", "", "YAML config file")

	root.AddCommand(newBroadcastCmd(), newViewCmd(), newRelayCmd())
	return root
}

// addSessionFlags registers the flags every endpoint understands.
func addSessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&opts.SignalURL, "signal-url", "", "Signaling relay base URL (default "+config.DefaultSignalURL+")")
	f.StringVar(&opts.LocalID, "local-id", "", "Mailbox id of this endpoint")
	f.StringVar(&opts.RemoteID, "remote-id", "", "Mailbox id of the remote endpoint")
	f.StringVar(&opts.Initiator, "initiator", "", "Role that creates the offer: broadcaster or viewer (default viewer)")
	f.DurationVar(&opts.PollInterval, "poll-interval", 0, "Relay poll interval (default 50ms)")
	f.DurationVar(&opts.GraceDelay, "grace", 0, "Delay before the initiator starts the call (default 5s)")
	f.StringVar(&opts.Separator, "ice-separator", "", "Separator inside ICE candidate payloads (default \"|\")")
	f.StringSliceVar(&opts.ICEServers, "ice-server", nil, "STUN/TURN server URL, repeatable")
	f.StringVar(&opts.TURNUser, "turn-user", "", "TURN username")
	f.StringVar(&opts.TURNPass, "turn-pass", "", "TURN password")
}

func newBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "broadcast",
		Aliases: []string{"b"},
		Short:   "Publish a 360° video to a viewer",
		Long: `Publish a VP8 IVF file, looped, as the broadcaster's video track.

Examples:
  thetacast broadcast --video theta.ivf
  thetacast broadcast --video theta.ivf --signal-url https://relay.example.org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Role = string(config.RoleBroadcaster)
			return runSession(cmd.Context(), opts)
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().StringVar(&opts.VideoFile, "video", "", "VP8 IVF file to broadcast")
	return cmd
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"v"},
		Short:   "Receive and render the 360° stream",
		Long: `Receive the broadcaster's stream and render it from inside the sphere.
The rendered view is served as MJPEG at http://<listen>/stream.mjpeg and
driven through the WebSocket at ws://<listen>/control.

Examples:
  thetacast view
  thetacast view --device headset --listen 0.0.0.0:8360`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Role = string(config.RoleViewer)
			return runSession(cmd.Context(), opts)
		},
	}
	addSessionFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.Device, "device", "", "Device profile: desktop or headset (default desktop)")
	f.StringVar(&opts.DisplayAddr, "listen", "", "Display listen address (default "+config.DefaultDisplayAddr+")")
	f.IntVar(&opts.ViewportW, "width", 0, "Initial viewport width")
	f.IntVar(&opts.ViewportH, "height", 0, "Initial viewport height")
	f.IntVar(&opts.RefreshRate, "refresh", 0, "Display refresh rate in Hz (default 60)")
	f.StringVar(&opts.RecordFile, "record", "", "Record the received stream to this IVF file")
	return cmd
}

func newRelayCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a local signaling relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3001", "Listen address")
	return cmd
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runSession resolves the configuration and runs one call until Ctrl+C or a
// negotiation failure.
func runSession(ctx context.Context, o config.Options) error {
	cfg, err := config.Load(o)
	if err != nil {
		return err
	}

	s, err := session.New(cfg)
	if err != nil {
		return err
	}

	util.StartStatsReporter(ctx)

	if err := s.Run(ctx); err != nil {
		var descErr *signaling.DescriptionError
		if errors.As(err, &descErr) {
			return fmt.Errorf("negotiation failed: %w", err)
		}
		return err
	}

	util.LogInfo("session closed")
	return nil
}

// runRelay serves the mailbox relay until ctx is cancelled.
func runRelay(ctx context.Context, addr string) error {
	srv := relay.NewServer()
	bound, err := srv.Start(addr)
	if err != nil {
		return err
	}
	util.LogSuccess("Relay listening on http://%s", bound)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Close(shutdownCtx)
}
