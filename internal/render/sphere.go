package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is the inside-out projection surface. Its transform is fixed at
// construction; only the texture changes per frame.
type Sphere struct {
	Radius float64

	invModel mgl64.Mat3
}

// NewSphere builds a sphere of the given radius, mirrored on X so the texture
// reads correctly from inside and turned by yaw radians about Y.
func NewSphere(radius, yaw float64) *Sphere {
	model := mgl64.HomogRotate3DY(yaw).Mul4(mgl64.Scale3D(-1, 1, 1))
	return &Sphere{
		Radius:   radius,
		invModel: model.Inv().Mat3(),
	}
}

// Intersect returns where a ray from origin along the unit direction dir
// leaves the sphere. origin must be inside it.
func (s *Sphere) Intersect(origin, dir mgl64.Vec3) mgl64.Vec3 {
	b := origin.Dot(dir)
	c := origin.Dot(origin) - s.Radius*s.Radius
	t := -b + math.Sqrt(b*b-c)
	return origin.Add(dir.Mul(t))
}

// UV maps a world point on the sphere to equirectangular texture coordinates
// with (0,0) at the top-left of the image. u follows the longitude, v the
// polar angle from +Y.
func (s *Sphere) UV(p mgl64.Vec3) (u, v float64) {
	q := s.invModel.Mul3x1(p)
	r := q.Len()
	if r == 0 {
		return 0, 0
	}

	theta := math.Acos(mgl64.Clamp(q[1]/r, -1, 1))
	phi := math.Atan2(q[2], -q[0])
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi / (2 * math.Pi), theta / math.Pi
}
