package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera. Only the projection's field of view and
// aspect matter to the ray caster; near and far are kept for completeness of
// the projection matrix.
type Camera struct {
	FOV    float64 // vertical, degrees
	Aspect float64
	Near   float64
	Far    float64

	tanX, tanY float64
}

// NewCamera returns a camera with the given vertical field of view.
func NewCamera(fov, near, far float64) *Camera {
	c := &Camera{FOV: fov, Aspect: 1, Near: near, Far: far}
	c.UpdateProjection()
	return c
}

// Projection returns the camera's projection matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// UpdateProjection recomputes the frustum after FOV or Aspect change.
func (c *Camera) UpdateProjection() {
	// The top-right corner of the near plane, back in view space.
	corner := c.Projection().Inv().Mul4x1(mgl64.Vec4{1, 1, -1, 1})
	corner = corner.Mul(1 / corner[3])
	c.tanX = math.Abs(corner[0] / corner[2])
	c.tanY = math.Abs(corner[1] / corner[2])
}
