package transport

import (
	"strings"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/thetacast/internal/util"
)

// DefaultKeyframeInterval is how often a receiving peer asks the sender for a
// key frame. Only key frames are decoded, so this bounds how stale the
// rendered picture can get.
const DefaultKeyframeInterval = time.Second

// Options configures a Peer.
type Options struct {
	ICEServers []string // stun:/turn:/turns: URLs
	TURNUser   string
	TURNPass   string

	// KeyframeInterval enables periodic PLI requests on received video when
	// non-zero.
	KeyframeInterval time.Duration
}

// iceServers splits the configured URLs into STUN and TURN entries. TURN
// entries carry the credentials.
func iceServers(opts Options) []webrtc.ICEServer {
	var stun, turn []string
	for _, u := range opts.ICEServers {
		u = strings.TrimSpace(u)
		switch {
		case u == "":
		case strings.HasPrefix(u, "turn:"), strings.HasPrefix(u, "turns:"):
			turn = append(turn, u)
		default:
			stun = append(stun, u)
		}
	}

	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       opts.TURNUser,
			Credential:     opts.TURNPass,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}

// newAPI builds a pion API with the default codecs and interceptors, pion's
// logs routed through our logger, and optional periodic key frame requests.
func newAPI(opts Options) (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	registry := &interceptor.Registry{}
	if opts.KeyframeInterval > 0 {
		pli, err := intervalpli.NewReceiverInterceptor(intervalpli.GeneratorInterval(opts.KeyframeInterval))
		if err != nil {
			return nil, err
		}
		registry.Add(pli)
	}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, err
	}

	settings := webrtc.SettingEngine{LoggerFactory: util.PionLoggerFactory{}}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settings),
	), nil
}

// newPeerConnection creates a PeerConnection configured with the given ICE
// servers.
func newPeerConnection(opts Options) (*webrtc.PeerConnection, error) {
	api, err := newAPI(opts)
	if err != nil {
		return nil, err
	}
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers(opts),
	})
}
