package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForViewer(t *testing.T) {
	cfg, err := Load(Options{Role: "viewer"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LocalID != DefaultViewerID || cfg.RemoteID != DefaultBroadcasterID {
		t.Errorf("ids = %q/%q, want %q/%q", cfg.LocalID, cfg.RemoteID, DefaultViewerID, DefaultBroadcasterID)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.GraceDelay != DefaultGraceDelay {
		t.Errorf("GraceDelay = %v, want %v", cfg.GraceDelay, DefaultGraceDelay)
	}
	if cfg.Initiator != RoleViewer || !cfg.IsInitiator() {
		t.Errorf("viewer should initiate by default, got initiator %q", cfg.Initiator)
	}
	if cfg.Device != DeviceDesktop {
		t.Errorf("Device = %q, want desktop", cfg.Device)
	}
	if cfg.RefreshInterval() != time.Second/60 {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval())
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thetacast.yaml")
	yamlDoc := strings.Join([]string{
		"role: broadcaster",
		"signal_url: http://file.example:3001",
		"grace_delay: 2s",
		"device: headset",
		"viewport_width: 640",
	}, "\n")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("THETACAST_SIGNAL_URL", "http://env.example:3001")

	cfg, err := Load(Options{ConfigFile: path, GraceDelay: 3 * time.Second})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Role != RoleBroadcaster {
		t.Errorf("Role = %q, want broadcaster (from file)", cfg.Role)
	}
	if cfg.SignalURL != "http://env.example:3001" {
		t.Errorf("SignalURL = %q, env should override file", cfg.SignalURL)
	}
	if cfg.GraceDelay != 3*time.Second {
		t.Errorf("GraceDelay = %v, flag should override file", cfg.GraceDelay)
	}
	if cfg.Device != DeviceHeadset {
		t.Errorf("Device = %q, want headset", cfg.Device)
	}
	if cfg.ViewportW != 640 || cfg.ViewportH != DefaultViewportH {
		t.Errorf("viewport = %dx%d", cfg.ViewportW, cfg.ViewportH)
	}
	if cfg.IsInitiator() {
		t.Error("broadcaster should not initiate by default")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
	}{
		{"missing role", Options{}},
		{"bad role", Options{Role: "host"}},
		{"bad device", Options{Role: "viewer", Device: "tv"}},
		{"same ids", Options{Role: "viewer", LocalID: "a", RemoteID: "a"}},
		{"bad url", Options{Role: "viewer", SignalURL: "ftp://x"}},
		{"negative grace", Options{Role: "viewer", GraceDelay: -time.Second}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.opts); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseDeviceProfileAlias(t *testing.T) {
	p, err := ParseDeviceProfile("Mobile")
	if err != nil || p != DeviceHeadset {
		t.Fatalf("ParseDeviceProfile(Mobile) = %q, %v", p, err)
	}
}
