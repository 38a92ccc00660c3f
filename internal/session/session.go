// Package session wires one broadcaster or viewer endpoint together: the
// peer connection, the signaling engine and relay channel, and on the viewer
// the decode, render and present pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"golang.org/x/sync/errgroup"

	"github.com/1ureka/thetacast/internal/channel"
	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/display"
	"github.com/1ureka/thetacast/internal/media"
	"github.com/1ureka/thetacast/internal/present"
	"github.com/1ureka/thetacast/internal/render"
	"github.com/1ureka/thetacast/internal/signaling"
	"github.com/1ureka/thetacast/internal/transport"
	"github.com/1ureka/thetacast/internal/util"
	"github.com/1ureka/thetacast/internal/view"
)

// Session is one endpoint's call. It is created from a Config and run once.
type Session struct {
	ID string

	cfg     *config.Config
	channel *channel.HTTP
	engine  atomic.Pointer[signaling.Engine]

	// Viewer only.
	frames    *media.FrameStore
	display   *display.Display
	renderer  *render.Renderer
	presenter present.Presenter
	orbit     *view.OrbitController
	sensor    *view.SensorController
	loop      *present.Loop
}

// New builds a session for cfg. Nothing is started until Run.
func New(cfg *config.Config) (*Session, error) {
	ch, err := channel.NewHTTP(cfg.SignalURL, cfg.LocalID, cfg.RemoteID, nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		channel: ch,
	}
	if cfg.Role == config.RoleViewer {
		s.buildViewer()
	}
	return s, nil
}

// buildViewer creates the viewer pipeline for the configured device profile.
func (s *Session) buildViewer() {
	s.frames = &media.FrameStore{}
	s.display = display.New(s.cfg.ViewportW, s.cfg.ViewportH, s.handleInput)
	s.renderer = render.NewRenderer(s.frames, render.DefaultOptions())
	s.presenter = present.New(s.cfg.Device, s.renderer)

	var controller view.Controller
	if s.cfg.Device == config.DeviceHeadset {
		s.sensor = view.NewSensorController()
		controller = s.sensor
	} else {
		s.orbit = view.NewOrbitController(s.cfg.ViewportH, view.DefaultOrbitOptions())
		controller = s.orbit
	}

	s.loop = present.NewLoop(controller, s.presenter, s.renderer, s.display, s.cfg.RefreshInterval())
}

// State returns the negotiation state, Idle before Run.
func (s *Session) State() signaling.State {
	if e := s.engine.Load(); e != nil {
		return e.State()
	}
	return signaling.StateIdle
}

// Frames returns the viewer's decoded frame store, nil for a broadcaster.
func (s *Session) Frames() *media.FrameStore {
	return s.frames
}

// Run connects and serves until ctx is cancelled or negotiation fails. A
// failure is returned as a *signaling.DescriptionError or
// signaling.ErrConnectionFailed.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	util.LogInfo("Session %s: %s %q ↔ %q via %s", s.ID, s.cfg.Role, s.cfg.LocalID, s.cfg.RemoteID, s.cfg.SignalURL)

	tr, err := transport.NewTransport(ctx, s.transportOptions())
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	defer tr.Close()

	engine := signaling.NewEngine(tr, channel.NewOutbox(ctx, s.channel), signaling.Options{
		Role:      s.cfg.Role,
		Initiator: s.cfg.Initiator,
		Separator: s.cfg.Separator,
	})
	s.engine.Store(engine)

	tr.OnICECandidate(engine.LocalCandidate)
	tr.OnNegotiationNeeded(engine.NegotiationNeeded)
	tr.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			util.LogSuccess("Peer connected")
		case webrtc.PeerConnectionStateFailed:
			util.LogError("Peer connection failed")
		}
		engine.PeerStateChanged(state)
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error {
		s.channel.Watch(ctx, s.cfg.PollInterval, engine.HandleMessage)
		return nil
	})

	if s.cfg.Role == config.RoleViewer {
		if err := s.startViewer(ctx, g, tr); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}

	attach := func() error { return s.attachMedia(ctx, g, tr) }
	if s.cfg.IsInitiator() {
		// The initiating side starts the call after a grace period so the
		// remote endpoint has time to come up.
		g.Go(func() error {
			if s.cfg.GraceDelay > 0 {
				util.LogInfo("Starting the call in %s", s.cfg.GraceDelay)
				timer := time.NewTimer(s.cfg.GraceDelay)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return nil
				}
			}
			return attach()
		})
	} else if err := attach(); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) transportOptions() transport.Options {
	opts := transport.Options{
		ICEServers: s.cfg.ICEServers,
		TURNUser:   s.cfg.TURNUser,
		TURNPass:   s.cfg.TURNPass,
	}
	if s.cfg.Role == config.RoleViewer {
		opts.KeyframeInterval = transport.DefaultKeyframeInterval
	}
	return opts
}

// attachMedia adds this endpoint's media, which triggers negotiation on the
// initiating side.
func (s *Session) attachMedia(ctx context.Context, g *errgroup.Group, tr *transport.Transport) error {
	if s.cfg.Role == config.RoleViewer {
		if err := tr.ReceiveVideo(); err != nil {
			return fmt.Errorf("failed to add video receiver: %w", err)
		}
		return nil
	}

	track, err := media.NewVideoTrack()
	if err != nil {
		return fmt.Errorf("failed to create video track: %w", err)
	}
	if err := tr.AddTrack(track); err != nil {
		return fmt.Errorf("failed to add video track: %w", err)
	}

	if s.cfg.VideoFile == "" {
		util.LogWarning("No video file configured; the track stays silent")
		return nil
	}
	playback := media.NewPlayback(s.cfg.VideoFile, track)
	g.Go(func() error { return playback.Run(ctx) })
	util.LogInfo("Broadcasting %s", s.cfg.VideoFile)
	return nil
}

// startViewer starts the display, the present loop and the remote track
// handler.
func (s *Session) startViewer(ctx context.Context, g *errgroup.Group, tr *transport.Transport) error {
	// receivers tracks the track readers so the recording is finalized only
	// after the last one has returned.
	var receivers sync.WaitGroup

	var recorder *media.Recorder
	if s.cfg.RecordFile != "" {
		r, err := media.NewRecorder(s.cfg.RecordFile)
		if err != nil {
			return err
		}
		recorder = r
		g.Go(func() error {
			<-ctx.Done()
			// Closing the transport ends the pending track reads.
			_ = tr.Close()
			receivers.Wait()
			if err := recorder.Close(); err != nil {
				util.LogWarning("failed to finish recording: %v", err)
			}
			return nil
		})
	}

	tr.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		codec := track.Codec().MimeType
		if !strings.EqualFold(codec, webrtc.MimeTypeVP8) {
			util.LogWarning("Ignoring %s track", codec)
			return
		}
		util.LogSuccess("Receiving %s track %s", codec, track.StreamID())

		var w media.PacketWriter
		if recorder != nil {
			w = recorder
		}
		if ctx.Err() != nil {
			return
		}
		receivers.Add(1)
		go func() {
			defer receivers.Done()
			if err := media.NewReceiver(track, s.frames, w).Run(ctx); err != nil {
				util.LogWarning("video track ended: %v", err)
			}
		}()
	})

	g.Go(func() error { return s.display.Serve(ctx, s.cfg.DisplayAddr) })
	g.Go(func() error { return s.loop.Run(ctx) })
	return nil
}

// handleInput routes display control events to the controller and presenter.
func (s *Session) handleInput(ev display.Event) {
	switch ev.Type {
	case display.EventDrag:
		if s.orbit != nil {
			s.orbit.Drag(ev.DX, ev.DY)
		}
	case display.EventPan:
		if s.orbit != nil {
			s.orbit.Pan(ev.DX, ev.DY)
		}
	case display.EventZoom:
		if s.orbit != nil {
			s.orbit.Zoom(ev.Delta)
		}
	case display.EventOrientation:
		if s.sensor != nil {
			s.sensor.SetReading(view.Reading{
				Alpha:       ev.Alpha,
				Beta:        ev.Beta,
				Gamma:       ev.Gamma,
				ScreenAngle: ev.Screen,
			})
		}
	case display.EventResize:
		if s.orbit != nil {
			s.orbit.SetViewportHeight(ev.Height)
		}
	case display.EventActivate:
		if a, ok := s.presenter.(present.Activator); ok {
			a.Activate()
			util.LogInfo("Headset view activated")
		}
	default:
		util.LogDebug("ignoring control event %q", ev.Type)
	}
}
