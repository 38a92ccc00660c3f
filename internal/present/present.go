// Package present turns rendered views into what the output surface shows:
// a single view on desktop, or a side-by-side stereo pair on a headset.
package present

import (
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/render"
	"github.com/1ureka/thetacast/internal/view"
)

// DefaultEyeSeparation is the distance between the two eye cameras, in scene
// units.
const DefaultEyeSeparation = 0.064

// ErrActivationRequired is returned by a stereo presenter until a user
// gesture has activated it.
var ErrActivationRequired = errors.New("stereo presentation needs a user gesture to start")

// Presenter renders one frame for orientation o and returns the surface to
// show.
type Presenter interface {
	Present(o view.Orientation, dt time.Duration) (*image.RGBA, error)
}

// Activator is implemented by presenters that need a one-time activation.
type Activator interface {
	Activate()
}

// New returns the presenter for the device profile.
func New(profile config.DeviceProfile, r *render.Renderer) Presenter {
	if profile == config.DeviceHeadset {
		return NewStereo(r, DefaultEyeSeparation)
	}
	return NewFlat(r)
}

// Flat renders a single view.
type Flat struct {
	r *render.Renderer
}

// NewFlat returns a single-view presenter.
func NewFlat(r *render.Renderer) *Flat {
	return &Flat{r: r}
}

func (p *Flat) Present(o view.Orientation, dt time.Duration) (*image.RGBA, error) {
	p.r.RenderFrame(o, dt)
	return p.r.Surface(), nil
}

// Stereo renders the left and right eye into the two halves of the surface.
type Stereo struct {
	r         *render.Renderer
	eyeSep    float64
	activated atomic.Bool
}

// NewStereo returns a side-by-side presenter with the given eye separation.
func NewStereo(r *render.Renderer, eyeSep float64) *Stereo {
	return &Stereo{r: r, eyeSep: eyeSep}
}

// Activate enables presentation. It is idempotent.
func (p *Stereo) Activate() {
	p.activated.Store(true)
}

// Active reports whether Activate has been called.
func (p *Stereo) Active() bool {
	return p.activated.Load()
}

func (p *Stereo) Present(o view.Orientation, dt time.Duration) (*image.RGBA, error) {
	if !p.activated.Load() {
		return nil, ErrActivationRequired
	}

	surface := p.r.Surface()
	if surface == nil {
		return nil, nil
	}
	b := surface.Bounds()
	half := b.Dx() / 2
	left := image.Rect(b.Min.X, b.Min.Y, b.Min.X+half, b.Max.Y)
	right := image.Rect(b.Min.X+half, b.Min.Y, b.Max.X, b.Max.Y)

	cam := p.r.Camera()
	full := cam.Aspect
	defer func() {
		cam.Aspect = full
		cam.UpdateProjection()
	}()

	p.r.Advance(dt)
	for _, eye := range []struct {
		rect   image.Rectangle
		offset float64
	}{
		{left, -p.eyeSep / 2},
		{right, p.eyeSep / 2},
	} {
		if eye.rect.Empty() {
			continue
		}
		cam.Aspect = float64(eye.rect.Dx()) / float64(eye.rect.Dy())
		cam.UpdateProjection()
		p.r.RenderView(eye.rect, o, eye.offset)
	}

	return surface, nil
}
