package present

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/1ureka/thetacast/internal/config"
	"github.com/1ureka/thetacast/internal/render"
	"github.com/1ureka/thetacast/internal/view"
)

type solidSource struct{ img image.Image }

func (s solidSource) Frame() image.Image { return s.img }

func newRenderer(w, h int) *render.Renderer {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 0xff, 0xff
	}
	r := render.NewRenderer(solidSource{img}, render.DefaultOptions())
	if w > 0 {
		r.Configure(w, h)
	}
	return r
}

func TestNewPicksPresenterByProfile(t *testing.T) {
	r := newRenderer(4, 4)
	if _, ok := New(config.DeviceDesktop, r).(*Flat); !ok {
		t.Error("desktop should present flat")
	}
	if _, ok := New(config.DeviceHeadset, r).(*Stereo); !ok {
		t.Error("headset should present stereo")
	}
}

func TestFlatPresent(t *testing.T) {
	r := newRenderer(6, 4)
	img, err := NewFlat(r).Present(view.Identity(), time.Second/60)
	if err != nil {
		t.Fatal(err)
	}
	if img != r.Surface() {
		t.Error("flat presenter returned a different surface")
	}
	if c := img.RGBAAt(0, 0); c != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestStereoRequiresActivation(t *testing.T) {
	r := newRenderer(8, 4)
	p := NewStereo(r, DefaultEyeSeparation)

	img, err := p.Present(view.Identity(), time.Second/60)
	if !errors.Is(err, ErrActivationRequired) || img != nil {
		t.Fatalf("Present = %v, %v; want ErrActivationRequired", img, err)
	}
	for _, v := range r.Surface().Pix {
		if v != 0 {
			t.Fatal("inactive presenter drew to the surface")
		}
	}

	p.Activate()
	p.Activate()
	if !p.Active() {
		t.Fatal("not active after Activate")
	}

	img, err = p.Present(view.Identity(), time.Second/60)
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range []image.Point{{0, 0}, {3, 3}, {4, 0}, {7, 3}} {
		if c := img.RGBAAt(pt.X, pt.Y); c != (color.RGBA{R: 0xff, A: 0xff}) {
			t.Errorf("pixel %v = %v, want both halves drawn", pt, c)
		}
	}
	if got := r.Camera().Aspect; got != 2 {
		t.Errorf("camera aspect = %v after stereo pass, want 2", got)
	}
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want one per stereo pair", r.Frames())
	}
}

type fakeOutput struct {
	w, h  int
	shown int
}

func (o *fakeOutput) Size() (int, int) { return o.w, o.h }
func (o *fakeOutput) Show(*image.RGBA) { o.shown++ }

type fixedController struct{ calls int }

func (c *fixedController) Update(time.Duration) view.Orientation {
	c.calls++
	return view.Identity()
}

func TestLoopReconfiguresOnResize(t *testing.T) {
	r := newRenderer(0, 0)
	out := &fakeOutput{w: 10, h: 6}
	ctrl := &fixedController{}
	l := NewLoop(ctrl, NewFlat(r), r, out, time.Second/60)

	l.Tick(time.Second / 60)
	first := r.Surface()
	if first == nil || first.Bounds().Dx() != 10 {
		t.Fatalf("surface = %v after first tick", first)
	}

	l.Tick(time.Second / 60)
	if r.Surface() != first {
		t.Error("surface rebuilt without a resize")
	}

	out.w, out.h = 4, 4
	l.Tick(time.Second / 60)
	if got := r.Surface().Bounds(); got != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds = %v after resize", got)
	}

	if out.shown != 3 || ctrl.calls != 3 {
		t.Errorf("shown %d frames, %d updates; want 3 each", out.shown, ctrl.calls)
	}
}

func TestLoopSkipsOutputUntilActivated(t *testing.T) {
	r := newRenderer(0, 0)
	out := &fakeOutput{w: 8, h: 4}
	p := NewStereo(r, DefaultEyeSeparation)
	l := NewLoop(&fixedController{}, p, r, out, time.Second/60)

	l.Tick(time.Second / 60)
	l.Tick(time.Second / 60)
	if out.shown != 0 {
		t.Fatalf("shown %d frames before activation", out.shown)
	}

	p.Activate()
	l.Tick(time.Second / 60)
	if out.shown != 1 {
		t.Errorf("shown %d frames after activation, want 1", out.shown)
	}
}
