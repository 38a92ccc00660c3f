// Package config holds the startup parameters for a broadcaster or viewer.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role is the endpoint role, fixed for the lifetime of a session.
type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

// ParseRole accepts "broadcaster" or "viewer" in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBroadcaster:
		return RoleBroadcaster, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("invalid role %q: must be 'broadcaster' or 'viewer'", s)
}

// DeviceProfile selects the view controller and presenter variant. It is
// resolved once at startup and passed to every component that branches on it.
type DeviceProfile string

const (
	DeviceDesktop DeviceProfile = "desktop"
	DeviceHeadset DeviceProfile = "headset"
)

// ParseDeviceProfile accepts "desktop" or "headset" ("mobile" is an alias
// for headset).
func ParseDeviceProfile(s string) (DeviceProfile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop":
		return DeviceDesktop, nil
	case "headset", "mobile":
		return DeviceHeadset, nil
	}
	return "", fmt.Errorf("invalid device profile %q: must be 'desktop' or 'headset'", s)
}

// Default configuration values.
const (
	DefaultSignalURL     = "http://127.0.0.1:3001"
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultGraceDelay    = 5 * time.Second
	DefaultSeparator     = "|"
	DefaultDisplayAddr   = "127.0.0.1:8360"
	DefaultViewportW     = 1280
	DefaultViewportH     = 720
	DefaultRefreshRate   = 60
	DefaultSTUN          = "stun:stun.l.google.com:19302"
	DefaultBroadcasterID = "broadcaster"
	DefaultViewerID      = "viewer"
)

// Config stores every parameter a session needs. Nothing here is negotiated
// at runtime.
type Config struct {
	Role      Role
	Initiator Role // the role that creates the offer on negotiation-needed
	LocalID   string
	RemoteID  string
	SignalURL string

	PollInterval time.Duration
	GraceDelay   time.Duration
	Separator    string // ICE triple separator used for outgoing candidates

	ICEServers []string
	TURNUser   string
	TURNPass   string

	// Broadcaster: IVF (VP8) file looped as the outgoing video track.
	VideoFile string

	// Viewer.
	Device      DeviceProfile
	DisplayAddr string
	ViewportW   int
	ViewportH   int
	RefreshRate int
	RecordFile  string // optional IVF recording of the received stream
}

// Options carries values from CLI flags. Zero values mean "not set".
type Options struct {
	ConfigFile   string
	Role         string
	Initiator    string
	LocalID      string
	RemoteID     string
	SignalURL    string
	PollInterval time.Duration
	GraceDelay   time.Duration
	Separator    string
	ICEServers   []string
	TURNUser     string
	TURNPass     string
	VideoFile    string
	Device       string
	DisplayAddr  string
	ViewportW    int
	ViewportH    int
	RefreshRate  int
	RecordFile   string
}

// fileConfig mirrors Options for the optional YAML file.
type fileConfig struct {
	Role         string   `yaml:"role"`
	Initiator    string   `yaml:"initiator"`
	LocalID      string   `yaml:"local_id"`
	RemoteID     string   `yaml:"remote_id"`
	SignalURL    string   `yaml:"signal_url"`
	PollInterval string   `yaml:"poll_interval"`
	GraceDelay   string   `yaml:"grace_delay"`
	Separator    string   `yaml:"ice_separator"`
	ICEServers   []string `yaml:"ice_servers"`
	TURNUser     string   `yaml:"turn_user"`
	TURNPass     string   `yaml:"turn_pass"`
	VideoFile    string   `yaml:"video_file"`
	Device       string   `yaml:"device"`
	DisplayAddr  string   `yaml:"display_addr"`
	ViewportW    int      `yaml:"viewport_width"`
	ViewportH    int      `yaml:"viewport_height"`
	RefreshRate  int      `yaml:"refresh_rate"`
	RecordFile   string   `yaml:"record_file"`
}

// Load resolves configuration with the following priority:
//  1. CLI flags (passed via Options) - highest priority
//  2. Environment variables (THETACAST_*)
//  3. YAML file (Options.ConfigFile or THETACAST_CONFIG)
//  4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	var file fileConfig
	path := first(opts.ConfigFile, os.Getenv("THETACAST_CONFIG"))
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	role, err := ParseRole(first(opts.Role, env("ROLE"), file.Role))
	if err != nil {
		return nil, err
	}
	initiator, err := ParseRole(first(opts.Initiator, env("INITIATOR"), file.Initiator, string(RoleViewer)))
	if err != nil {
		return nil, fmt.Errorf("initiator: %w", err)
	}
	device, err := ParseDeviceProfile(first(opts.Device, env("DEVICE"), file.Device, string(DeviceDesktop)))
	if err != nil {
		return nil, err
	}

	pollInterval, err := duration(opts.PollInterval, env("POLL_INTERVAL"), file.PollInterval, DefaultPollInterval)
	if err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}
	graceDelay, err := duration(opts.GraceDelay, env("GRACE_DELAY"), file.GraceDelay, DefaultGraceDelay)
	if err != nil {
		return nil, fmt.Errorf("grace delay: %w", err)
	}

	localDefault, remoteDefault := DefaultBroadcasterID, DefaultViewerID
	if role == RoleViewer {
		localDefault, remoteDefault = DefaultViewerID, DefaultBroadcasterID
	}

	iceServers := opts.ICEServers
	if len(iceServers) == 0 {
		if v := env("ICE_SERVERS"); v != "" {
			iceServers = strings.Split(v, ",")
		} else if len(file.ICEServers) > 0 {
			iceServers = file.ICEServers
		} else {
			iceServers = []string{DefaultSTUN}
		}
	}

	cfg := &Config{
		Role:         role,
		Initiator:    initiator,
		LocalID:      first(opts.LocalID, env("LOCAL_ID"), file.LocalID, localDefault),
		RemoteID:     first(opts.RemoteID, env("REMOTE_ID"), file.RemoteID, remoteDefault),
		SignalURL:    first(opts.SignalURL, env("SIGNAL_URL"), file.SignalURL, DefaultSignalURL),
		PollInterval: pollInterval,
		GraceDelay:   graceDelay,
		Separator:    first(opts.Separator, env("ICE_SEPARATOR"), file.Separator, DefaultSeparator),
		ICEServers:   iceServers,
		TURNUser:     first(opts.TURNUser, env("TURN_USER"), file.TURNUser),
		TURNPass:     first(opts.TURNPass, env("TURN_PASS"), file.TURNPass),
		VideoFile:    first(opts.VideoFile, env("VIDEO_FILE"), file.VideoFile),
		Device:       device,
		DisplayAddr:  first(opts.DisplayAddr, env("DISPLAY_ADDR"), file.DisplayAddr, DefaultDisplayAddr),
		RecordFile:   first(opts.RecordFile, env("RECORD_FILE"), file.RecordFile),
	}

	if cfg.ViewportW, err = integer(opts.ViewportW, env("VIEWPORT_WIDTH"), file.ViewportW, DefaultViewportW); err != nil {
		return nil, fmt.Errorf("viewport width: %w", err)
	}
	if cfg.ViewportH, err = integer(opts.ViewportH, env("VIEWPORT_HEIGHT"), file.ViewportH, DefaultViewportH); err != nil {
		return nil, fmt.Errorf("viewport height: %w", err)
	}
	if cfg.RefreshRate, err = integer(opts.RefreshRate, env("REFRESH_RATE"), file.RefreshRate, DefaultRefreshRate); err != nil {
		return nil, fmt.Errorf("refresh rate: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the resolved configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.LocalID == "" || c.RemoteID == "" {
		errs = append(errs, errors.New("local and remote ids must be set"))
	}
	if c.LocalID == c.RemoteID {
		errs = append(errs, fmt.Errorf("local and remote ids must differ (both %q)", c.LocalID))
	}
	if u, err := url.Parse(c.SignalURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("invalid signaling URL: %s", c.SignalURL))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.GraceDelay < 0 {
		errs = append(errs, errors.New("grace delay must not be negative"))
	}
	if c.Separator == "" {
		errs = append(errs, errors.New("ICE separator must not be empty"))
	}
	if c.ViewportW <= 0 || c.ViewportH <= 0 {
		errs = append(errs, fmt.Errorf("invalid viewport %dx%d", c.ViewportW, c.ViewportH))
	}
	if c.RefreshRate <= 0 {
		errs = append(errs, errors.New("refresh rate must be positive"))
	}
	return errors.Join(errs...)
}

// RefreshInterval is the display tick derived from RefreshRate.
func (c *Config) RefreshInterval() time.Duration {
	return time.Second / time.Duration(c.RefreshRate)
}

// IsInitiator reports whether this endpoint creates the offer.
func (c *Config) IsInitiator() bool {
	return c.Role == c.Initiator
}

func env(key string) string {
	return os.Getenv("THETACAST_" + key)
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func duration(flag time.Duration, envValue, fileValue string, def time.Duration) (time.Duration, error) {
	if flag != 0 {
		return flag, nil
	}
	if raw := first(envValue, fileValue); raw != "" {
		return time.ParseDuration(raw)
	}
	return def, nil
}

func integer(flag int, envValue string, fileValue, def int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if envValue != "" {
		return strconv.Atoi(envValue)
	}
	if fileValue != 0 {
		return fileValue, nil
	}
	return def, nil
}
