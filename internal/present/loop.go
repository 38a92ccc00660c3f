package present

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/1ureka/thetacast/internal/render"
	"github.com/1ureka/thetacast/internal/util"
	"github.com/1ureka/thetacast/internal/view"
)

// Output is where presented frames go.
type Output interface {
	// Size reports the current viewport in pixels.
	Size() (w, h int)
	// Show takes a presented frame. img is reused for the next frame, so Show
	// must copy what it keeps.
	Show(img *image.RGBA)
}

// Loop drives controller → presenter → output at a fixed refresh interval.
type Loop struct {
	controller view.Controller
	presenter  Presenter
	renderer   *render.Renderer
	output     Output
	interval   time.Duration

	w, h     int
	last     time.Time
	inactive bool // logged the activation hint
}

// NewLoop creates a present loop ticking every interval.
func NewLoop(c view.Controller, p Presenter, r *render.Renderer, out Output, interval time.Duration) *Loop {
	return &Loop{
		controller: c,
		presenter:  p,
		renderer:   r,
		output:     out,
		interval:   interval,
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.last = time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(l.last)
			l.last = now
			l.Tick(dt)
		}
	}
}

// Tick renders and shows one frame. The renderer is reconfigured first when
// the output size changed.
func (l *Loop) Tick(dt time.Duration) {
	if w, h := l.output.Size(); w != l.w || h != l.h || l.renderer.Surface() == nil {
		l.renderer.Configure(w, h)
		l.w, l.h = w, h
		util.LogDebug("viewport is %dx%d", w, h)
	}

	o := l.controller.Update(dt)
	img, err := l.presenter.Present(o, dt)
	if errors.Is(err, ErrActivationRequired) {
		if !l.inactive {
			util.LogInfo("waiting for the headset view to be activated")
			l.inactive = true
		}
		return
	}
	if err != nil {
		util.LogWarning("present failed: %v", err)
		return
	}
	if img == nil {
		return
	}

	l.output.Show(img)
	util.Stats.AddRenderedFrame()
}
