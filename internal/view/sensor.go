package view

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Reading is one device orientation sample, in degrees, following the W3C
// DeviceOrientationEvent convention. ScreenAngle is the screen orientation
// angle (0, 90, 180, 270).
type Reading struct {
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`
	Gamma       float64 `json:"gamma"`
	ScreenAngle float64 `json:"screen"`
}

// cameraFromDevice turns "out of the top of the device" into "out of its
// back": -90 degrees about X.
var cameraFromDevice = mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})

// SensorController follows the orientation of a handheld or head-mounted
// device. It ignores drag input.
type SensorController struct {
	mu      sync.Mutex
	reading Reading
	valid   bool
}

// NewSensorController returns a controller at the identity pose until the
// first reading arrives.
func NewSensorController() *SensorController {
	return &SensorController{}
}

// SetReading stores the latest device sample.
func (c *SensorController) SetReading(r Reading) {
	c.mu.Lock()
	c.reading = r
	c.valid = true
	c.mu.Unlock()
}

// Update returns the orientation for the latest reading.
func (c *SensorController) Update(time.Duration) Orientation {
	c.mu.Lock()
	r, ok := c.reading, c.valid
	c.mu.Unlock()

	if !ok {
		return Identity()
	}
	return Orientation{Rotation: DeviceRotation(r)}
}

// DeviceRotation converts a device reading into a camera rotation: intrinsic
// Y-X-Z Euler angles (alpha, beta, -gamma), then the camera-out-of-the-back
// correction, then compensation for the screen orientation about Z.
func DeviceRotation(r Reading) mgl64.Quat {
	alpha := mgl64.DegToRad(r.Alpha)
	beta := mgl64.DegToRad(r.Beta)
	gamma := mgl64.DegToRad(r.Gamma)
	screen := mgl64.DegToRad(r.ScreenAngle)

	q := mgl64.QuatRotate(alpha, mgl64.Vec3{0, 1, 0}).
		Mul(mgl64.QuatRotate(beta, mgl64.Vec3{1, 0, 0})).
		Mul(mgl64.QuatRotate(-gamma, mgl64.Vec3{0, 0, 1})).
		Mul(cameraFromDevice).
		Mul(mgl64.QuatRotate(-screen, mgl64.Vec3{0, 0, 1}))

	return q.Normalize()
}
