// Package view turns user input into the camera orientation used for each
// rendered frame.
package view

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Orientation is the camera pose for one frame. Translation is always zero:
// the sphere is viewed from its center and positional tracking is cancelled.
type Orientation struct {
	Rotation    mgl64.Quat
	Translation mgl64.Vec3
}

// Identity looks down -Z with +Y up.
func Identity() Orientation {
	return Orientation{Rotation: mgl64.QuatIdent()}
}

// Forward returns the unit view direction.
func (o Orientation) Forward() mgl64.Vec3 {
	return o.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
}

// Controller produces one Orientation per frame. Input arrives from other
// goroutines; implementations are safe for concurrent use.
type Controller interface {
	Update(dt time.Duration) Orientation
}
