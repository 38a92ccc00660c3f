// Package render draws the 360° video as seen from inside a textured sphere.
//
// Rendering is a CPU ray cast: every output pixel shoots a ray from the eye
// through the camera frustum, intersects the sphere and samples the
// equirectangular frame at the hit point.
package render

import (
	"image"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/1ureka/thetacast/internal/view"
)

// Scene defaults.
const (
	DefaultFOV    = 110.0
	DefaultNear   = 0.1
	DefaultFar    = 10000.0
	DefaultRadius = 500.0
	DefaultYaw    = math.Pi / 2

	// MaxDimension bounds the surface width and height.
	MaxDimension = 8192
)

// FrameSource supplies the latest video frame, or nil when none exists yet.
type FrameSource interface {
	Frame() image.Image
}

// Options describes the scene.
type Options struct {
	FOV    float64
	Near   float64
	Far    float64
	Radius float64
	Yaw    float64
}

// DefaultOptions returns the standard 360° viewing setup.
func DefaultOptions() Options {
	return Options{
		FOV:    DefaultFOV,
		Near:   DefaultNear,
		Far:    DefaultFar,
		Radius: DefaultRadius,
		Yaw:    DefaultYaw,
	}
}

// Renderer owns the camera, the sphere and the single output surface.
// It is driven from one goroutine.
type Renderer struct {
	source  FrameSource
	camera  *Camera
	sphere  *Sphere
	surface *image.RGBA

	clock  time.Duration
	frames uint64
}

// NewRenderer creates a renderer drawing frames from source. Call Configure
// before rendering.
func NewRenderer(source FrameSource, opts Options) *Renderer {
	return &Renderer{
		source: source,
		camera: NewCamera(opts.FOV, opts.Near, opts.Far),
		sphere: NewSphere(opts.Radius, opts.Yaw),
	}
}

// Configure sizes the output for a w×h viewport, each dimension clamped to
// [1, MaxDimension]. The previous surface is replaced, never kept alongside
// the new one.
func (r *Renderer) Configure(w, h int) {
	w = max(1, min(w, MaxDimension))
	h = max(1, min(h, MaxDimension))
	r.surface = image.NewRGBA(image.Rect(0, 0, w, h))
	r.camera.Aspect = float64(w) / float64(h)
	r.camera.UpdateProjection()
}

// Surface returns the current output surface, nil before Configure.
func (r *Renderer) Surface() *image.RGBA {
	return r.surface
}

// Camera exposes the camera for presenters that render per eye.
func (r *Renderer) Camera() *Camera {
	return r.camera
}

// Clock returns the accumulated frame time.
func (r *Renderer) Clock() time.Duration {
	return r.clock
}

// Frames returns the number of completed frames.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Advance moves the renderer clock forward by dt and counts a frame.
func (r *Renderer) Advance(dt time.Duration) {
	r.clock += dt
	r.frames++
}

// RenderFrame draws one full-surface view for orientation o.
func (r *Renderer) RenderFrame(o view.Orientation, dt time.Duration) {
	r.Advance(dt)
	if r.surface == nil {
		return
	}
	r.camera.Aspect = float64(r.surface.Rect.Dx()) / float64(r.surface.Rect.Dy())
	r.camera.UpdateProjection()
	r.RenderView(r.surface.Rect, o, 0)
}

// RenderView draws into rect of the surface with the eye shifted eyeOffset
// along the camera's local X. The camera aspect must already match rect.
// Translation in o is ignored.
func (r *Renderer) RenderView(rect image.Rectangle, o view.Orientation, eyeOffset float64) {
	if r.surface == nil {
		return
	}
	rect = rect.Intersect(r.surface.Rect)
	if rect.Empty() {
		return
	}

	frame := r.source.Frame()
	if frame == nil || frame.Bounds().Empty() {
		fillBlack(r, rect)
		return
	}
	sample := newSampler(frame)

	rot := o.Rotation
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}
	right := rot.Rotate(mgl64.Vec3{1, 0, 0})
	up := rot.Rotate(mgl64.Vec3{0, 1, 0})
	forward := rot.Rotate(mgl64.Vec3{0, 0, -1})
	eye := right.Mul(eyeOffset)

	tanX, tanY := r.camera.tanX, r.camera.tanY
	w, h := float64(rect.Dx()), float64(rect.Dy())

	drawRow := func(y int) {
		ndcY := 1 - 2*(float64(y-rect.Min.Y)+0.5)/h
		rowDir := forward.Add(up.Mul(ndcY * tanY))
		off := r.surface.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			ndcX := 2*(float64(x-rect.Min.X)+0.5)/w - 1
			dir := rowDir.Add(right.Mul(ndcX * tanX)).Normalize()
			u, v := r.sphere.UV(r.sphere.Intersect(eye, dir))
			cr, cg, cb := sample(u, v)
			pix := r.surface.Pix[off : off+4 : off+4]
			pix[0], pix[1], pix[2], pix[3] = cr, cg, cb, 0xff
			off += 4
		}
	}

	parallelRows(rect.Min.Y, rect.Max.Y, drawRow)
}

// parallelRows runs fn for every row in [y0, y1) across the available CPUs.
func parallelRows(y0, y1 int, fn func(y int)) {
	workers := runtime.GOMAXPROCS(0)
	rows := y1 - y0
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		for y := y0; y < y1; y++ {
			fn(y)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (rows + workers - 1) / workers
	for start := y0; start < y1; start += chunk {
		end := min(start+chunk, y1)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				fn(y)
			}
		}(start, end)
	}
	wg.Wait()
}

// fillBlack paints rect opaque black.
func fillBlack(r *Renderer, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := r.surface.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			pix := r.surface.Pix[off : off+4 : off+4]
			pix[0], pix[1], pix[2], pix[3] = 0, 0, 0, 0xff
			off += 4
		}
	}
}
