package display

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/1ureka/thetacast/internal/util"
)

const boundary = "thetacastframe"

func (d *Display) handleFrame(w http.ResponseWriter, r *http.Request) {
	data, _, err := d.JPEG()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleStream writes every new frame as one part of a
// multipart/x-mixed-replace response until the client goes away.
func (d *Display) handleStream(w http.ResponseWriter, r *http.Request) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	util.LogDebug("stream client %s connected", r.RemoteAddr)
	defer util.LogDebug("stream client %s disconnected", r.RemoteAddr)

	var sent uint64
	for {
		seq, updated := d.next()
		if seq == sent {
			select {
			case <-updated:
				continue
			case <-r.Context().Done():
				return
			}
		}

		data, seq, err := d.JPEG()
		if err != nil {
			util.LogWarning("stream: %v", err)
			return
		}
		if data == nil {
			sent = seq
			continue
		}

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(data))},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		sent = seq
	}
}
