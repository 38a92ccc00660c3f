package view

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const tolerance = 1e-9

func vecNear(a, b mgl64.Vec3) bool {
	return a.ApproxEqualThreshold(b, 1e-6)
}

func TestOrbitNeverTranslates(t *testing.T) {
	c := NewOrbitController(720, DefaultOrbitOptions())

	c.Drag(120, -40)
	c.Pan(300, 300)
	c.Zoom(-5)
	c.Drag(-10, 900)

	for i := 0; i < 3; i++ {
		o := c.Update(time.Second / 60)
		if o.Translation != (mgl64.Vec3{}) {
			t.Fatalf("translation = %v, want zero", o.Translation)
		}
	}
}

func TestOrbitInitialViewLooksAlongX(t *testing.T) {
	c := NewOrbitController(720, DefaultOrbitOptions())
	if got := c.Update(0).Forward(); !vecNear(got, mgl64.Vec3{1, 0, 0}) {
		t.Errorf("forward = %v, want +X", got)
	}
}

func TestOrbitDrag(t *testing.T) {
	testCases := []struct {
		name   string
		dx, dy float64
		want   mgl64.Vec3
	}{
		// A quarter of the viewport height turns the view a quarter circle.
		{"drag right turns right", 180, 0, mgl64.Vec3{0, 0, 1}},
		{"drag left turns left", -180, 0, mgl64.Vec3{0, 0, -1}},
		{"drag half down", 0, 90, mgl64.Vec3{math.Sqrt(0.5), -math.Sqrt(0.5), 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewOrbitController(720, DefaultOrbitOptions())
			c.Drag(tc.dx, tc.dy)
			if got := c.Update(time.Second / 60).Forward(); !vecNear(got, tc.want) {
				t.Errorf("forward = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	c := NewOrbitController(100, DefaultOrbitOptions())
	c.Drag(0, -1000)

	f := c.Update(0).Forward()
	if f[1] < 1-1e-3 {
		t.Errorf("forward.y = %v, want close to 1", f[1])
	}
	if math.Abs(f.Len()-1) > tolerance {
		t.Errorf("forward not unit: %v", f)
	}
}

func TestOrbitDampingConverges(t *testing.T) {
	opts := DefaultOrbitOptions()
	opts.Damping = 0.25
	c := NewOrbitController(720, opts)
	c.Drag(180, 0)

	first := c.Update(time.Second / 60).Forward()
	if vecNear(first, mgl64.Vec3{0, 0, 1}) {
		t.Error("damped drag applied in one frame")
	}
	var last mgl64.Vec3
	for i := 0; i < 200; i++ {
		last = c.Update(time.Second / 60).Forward()
	}
	if !vecNear(last, mgl64.Vec3{0, 0, 1}) {
		t.Errorf("forward = %v after settling", last)
	}
}

func TestSensorBeforeFirstReading(t *testing.T) {
	c := NewSensorController()
	o := c.Update(time.Second / 60)
	if o.Rotation != mgl64.QuatIdent() || o.Translation != (mgl64.Vec3{}) {
		t.Errorf("orientation = %+v, want identity", o)
	}
}

func TestDeviceRotation(t *testing.T) {
	testCases := []struct {
		name    string
		reading Reading
		forward mgl64.Vec3
		up      mgl64.Vec3
	}{
		{"flat face up looks down", Reading{}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 0, -1}},
		{"upright portrait looks ahead", Reading{Beta: 90}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}},
		{"upright turned left", Reading{Alpha: 90, Beta: 90}, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{"rolled onto its side in landscape", Reading{Gamma: -90, ScreenAngle: 90}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := DeviceRotation(tc.reading)
			if got := q.Rotate(mgl64.Vec3{0, 0, -1}); !vecNear(got, tc.forward) {
				t.Errorf("forward = %v, want %v", got, tc.forward)
			}
			if got := q.Rotate(mgl64.Vec3{0, 1, 0}); !vecNear(got, tc.up) {
				t.Errorf("up = %v, want %v", got, tc.up)
			}
		})
	}
}

func TestSensorUsesLatestReading(t *testing.T) {
	c := NewSensorController()
	c.SetReading(Reading{})
	c.SetReading(Reading{Beta: 90})

	if got := c.Update(0).Forward(); !vecNear(got, mgl64.Vec3{0, 0, -1}) {
		t.Errorf("forward = %v", got)
	}
}
