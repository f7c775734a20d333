package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// streamBoundary separates frames on the multipart MJPEG stream.
const streamBoundary = "presenceframe"

// streamPollInterval is how often the stream checks for a newer annotated
// frame. The engine publishes at most ~30 fps, so polling faster only burns
// CPU.
const streamPollInterval = 33 * time.Millisecond

// StreamHandler serves the annotated live view as a multipart MJPEG stream.
// Any number of clients can watch concurrently; each reads the latest frame
// from the output slot at its own pace and slow clients simply skip frames.
type StreamHandler struct {
	engine Engine
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(eng Engine) *StreamHandler {
	return &StreamHandler{engine: eng}
}

// Live streams annotated frames until the client disconnects.
func (h *StreamHandler) Live(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, seq := h.engine.LatestFrame()
		if len(data) == 0 || seq == lastSeq {
			continue
		}
		lastSeq = seq

		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Snapshot returns the latest annotated frame as a single JPEG.
func (h *StreamHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	data, _ := h.engine.LatestFrame()
	if len(data) == 0 {
		respondError(w, http.StatusServiceUnavailable, "no frame available yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
