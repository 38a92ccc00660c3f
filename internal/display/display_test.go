package display

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFrameBeforeAndAfterShow(t *testing.T) {
	d := New(16, 8, nil)
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before Show = %d", resp.StatusCode)
	}

	src := solid(16, 8, color.RGBA{R: 200, A: 0xff})
	d.Show(src)
	// Show copies; later writes to the source must not leak.
	src.SetRGBA(0, 0, color.RGBA{B: 0xff, A: 0xff})

	resp, err = http.Get(ts.URL + "/frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 8) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	r, _, b, _ := img.At(0, 0).RGBA()
	if r>>8 < 150 || b>>8 > 60 {
		t.Errorf("pixel (0,0) = %v, want red", img.At(0, 0))
	}
}

func TestJPEGIsCachedPerFrame(t *testing.T) {
	d := New(4, 4, nil)
	d.Show(solid(4, 4, color.RGBA{G: 0xff, A: 0xff}))

	a, seqA, err := d.JPEG()
	if err != nil {
		t.Fatal(err)
	}
	b, seqB, _ := d.JPEG()
	if seqA != 1 || seqB != 1 || &a[0] != &b[0] {
		t.Error("second JPEG call re-encoded the same frame")
	}

	d.Show(solid(4, 4, color.RGBA{R: 0xff, A: 0xff}))
	c, seqC, _ := d.JPEG()
	if seqC != 2 || bytes.Equal(a, c) {
		t.Error("new frame not re-encoded")
	}
}

func TestStreamSendsFramesAsParts(t *testing.T) {
	d := New(8, 8, nil)
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream.mjpeg")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type = %q (%v)", resp.Header.Get("Content-Type"), err)
	}

	go func() {
		for i := 0; i < 50; i++ {
			d.Show(solid(8, 8, color.RGBA{R: uint8(i), A: 0xff}))
			time.Sleep(5 * time.Millisecond)
		}
	}()

	mr := multipart.NewReader(bufio.NewReader(resp.Body), params["boundary"])
	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part Content-Type = %q", ct)
		}
		data, _ := io.ReadAll(part)
		if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("part %d is not a JPEG: %v", i, err)
		}
	}
}

func TestControlEvents(t *testing.T) {
	events := make(chan Event, 8)
	d := New(1280, 720, func(ev Event) { events <- ev })
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sent := []string{
		`{"type":"drag","dx":12,"dy":-3}`,
		`{"type":"orientation","alpha":10,"beta":90,"gamma":0,"screen":0}`,
		`{"type":"resize","width":800,"height":600}`,
		`{"type":"activate"}`,
	}
	for _, m := range sent {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			t.Fatal(err)
		}
	}

	var got []Event
	for range sent {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d events", len(got), len(sent))
		}
	}

	if got[0].Type != EventDrag || got[0].DX != 12 || got[0].DY != -3 {
		t.Errorf("drag = %+v", got[0])
	}
	if got[1].Type != EventOrientation || got[1].Beta != 90 {
		t.Errorf("orientation = %+v", got[1])
	}
	if got[3].Type != EventActivate {
		t.Errorf("activate = %+v", got[3])
	}
	if w, h := d.Size(); w != 800 || h != 600 {
		t.Errorf("Size = %dx%d after resize", w, h)
	}
}

func TestResizeIgnoresInvalidSizes(t *testing.T) {
	d := New(640, 480, nil)
	d.Resize(0, 100)
	d.Resize(100, -1)
	if w, h := d.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %dx%d", w, h)
	}
}

func TestResizeClampsHugeSizes(t *testing.T) {
	d := New(640, 480, nil)
	d.Resize(1<<40, 1<<40)
	if w, h := d.Size(); w != MaxViewport || h != MaxViewport {
		t.Errorf("Size = %dx%d, want %dx%d", w, h, MaxViewport, MaxViewport)
	}
}

func TestControlResizeIsClamped(t *testing.T) {
	events := make(chan Event, 1)
	d := New(1280, 720, func(ev Event) { events <- ev })
	ts := httptest.NewServer(d.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	msg := `{"type":"resize","width":1099511627776,"height":100}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("resize event not delivered")
	}

	if w, h := d.Size(); w != MaxViewport || h != 100 {
		t.Errorf("Size = %dx%d, want %dx100", w, h, MaxViewport)
	}
}
