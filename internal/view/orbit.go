package view

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	polarEpsilon = 1e-6
	frameTime    = time.Second / 60
)

// OrbitOptions tunes an OrbitController.
type OrbitOptions struct {
	RotateSpeed float64 // 1 turns the view by a full circle per viewport-height drag
	Damping     float64 // 0 applies drags immediately; (0,1) eases them in
	Yaw         float64 // initial yaw in radians, 0 looks down -Z
}

// DefaultOrbitOptions start looking down +X with no damping.
func DefaultOrbitOptions() OrbitOptions {
	return OrbitOptions{RotateSpeed: 1, Yaw: -math.Pi / 2}
}

// OrbitController turns drag input into yaw and pitch around the sphere
// center. Pan and zoom input is accepted but has no effect: the camera never
// leaves the center.
type OrbitController struct {
	mu sync.Mutex

	opts    OrbitOptions
	height  float64
	yaw     float64
	pitch   float64
	pending mgl64.Vec2 // yaw, pitch still to apply
}

// NewOrbitController returns a controller for a viewport of the given height
// in pixels.
func NewOrbitController(viewportHeight int, opts OrbitOptions) *OrbitController {
	if opts.RotateSpeed == 0 {
		opts.RotateSpeed = 1
	}
	c := &OrbitController{opts: opts, yaw: opts.Yaw}
	c.SetViewportHeight(viewportHeight)
	return c
}

// SetViewportHeight scales subsequent drags.
func (c *OrbitController) SetViewportHeight(h int) {
	if h <= 0 {
		h = 1
	}
	c.mu.Lock()
	c.height = float64(h)
	c.mu.Unlock()
}

// Drag rotates the view by a pointer movement in pixels. Dragging right turns
// the view right and dragging down tilts it down.
func (c *OrbitController) Drag(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := 2 * math.Pi * c.opts.RotateSpeed / c.height
	c.pending[0] -= dx * k
	c.pending[1] -= dy * k
}

// Pan is ignored.
func (c *OrbitController) Pan(dx, dy float64) {}

// Zoom is ignored.
func (c *OrbitController) Zoom(delta float64) {}

// Update applies pending drag input and returns the orientation.
func (c *OrbitController) Update(dt time.Duration) Orientation {
	c.mu.Lock()
	defer c.mu.Unlock()

	step := c.pending
	if d := c.opts.Damping; d > 0 && d < 1 {
		// Scale the per-frame factor to dt so easing does not depend on the
		// refresh rate.
		f := 1 - math.Pow(1-d, dt.Seconds()/frameTime.Seconds())
		step = step.Mul(f)
	}
	c.pending = c.pending.Sub(step)

	c.yaw += step[0]
	c.pitch = mgl64.Clamp(c.pitch+step[1], -math.Pi/2+polarEpsilon, math.Pi/2-polarEpsilon)

	rot := mgl64.QuatRotate(c.yaw, mgl64.Vec3{0, 1, 0}).
		Mul(mgl64.QuatRotate(c.pitch, mgl64.Vec3{1, 0, 0}))

	return Orientation{Rotation: rot.Normalize()}
}
