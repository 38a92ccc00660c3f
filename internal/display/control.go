package display

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/1ureka/thetacast/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventType names a control input.
type EventType string

const (
	EventDrag        EventType = "drag"        // DX, DY in pixels
	EventPan         EventType = "pan"         // DX, DY in pixels
	EventZoom        EventType = "zoom"        // Delta
	EventOrientation EventType = "orientation" // Alpha, Beta, Gamma, Screen in degrees
	EventResize      EventType = "resize"      // Width, Height in pixels
	EventActivate    EventType = "activate"    // user gesture
)

// Event is one JSON message on the control socket.
type Event struct {
	Type   EventType `json:"type"`
	DX     float64   `json:"dx,omitempty"`
	DY     float64   `json:"dy,omitempty"`
	Delta  float64   `json:"delta,omitempty"`
	Alpha  float64   `json:"alpha,omitempty"`
	Beta   float64   `json:"beta,omitempty"`
	Gamma  float64   `json:"gamma,omitempty"`
	Screen float64   `json:"screen,omitempty"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
}

// handleControl reads events until the client disconnects. Resize events are
// applied to the display before being forwarded.
func (d *Display) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	util.LogDebug("control client %s connected", r.RemoteAddr)

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.LogDebug("control client %s: %v", r.RemoteAddr, err)
			}
			return
		}

		if ev.Type == EventResize {
			d.Resize(ev.Width, ev.Height)
		}
		if d.input != nil {
			d.input(ev)
		}
	}
}
