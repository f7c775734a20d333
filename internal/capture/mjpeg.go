package capture

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/kozaktomas/smart-presence/internal/frame"
)

// MJPEGDevice reads frames from an HTTP multipart MJPEG stream, the wire
// format exposed by most IP webcams and by motion/ffmpeg relays.
type MJPEGDevice struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	resp   *http.Response
	parts  *multipart.Reader
	cancel context.CancelFunc
}

// NewMJPEGDevice creates a device for the given stream URL.
func NewMJPEGDevice(url string) *MJPEGDevice {
	return &MJPEGDevice{url: url, client: &http.Client{}}
}

// Open connects to the stream and prepares the multipart reader. The
// connect phase is bounded by ctx; once connected the stream lives until
// Close or a timed-out Read tears it down.
func (d *MJPEGDevice) Open(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, d.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	connected := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-connected:
		}
	}()

	resp, err := d.client.Do(req)
	close(connected)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("%w: stream returned %s", ErrDeviceUnavailable, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("%w: not a multipart stream (content-type %q)", ErrDeviceUnavailable, mediaType)
	}

	d.mu.Lock()
	d.resp = resp
	d.parts = multipart.NewReader(resp.Body, params["boundary"])
	d.cancel = cancel
	d.mu.Unlock()
	return nil
}

// Read returns the next frame from the stream. When ctx expires mid-read
// the stream is torn down so the parser unblocks; the capture loop then
// closes and reopens the device. A Close from another goroutine has the
// same effect.
func (d *MJPEGDevice) Read(ctx context.Context) (*image.RGBA, error) {
	d.mu.Lock()
	parts := d.parts
	d.mu.Unlock()
	if parts == nil {
		return nil, fmt.Errorf("%w: device not open", ErrDeviceUnavailable)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			d.abort()
		case <-done:
		}
	}()

	part, err := parts.NextPart()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: read timed out: %v", ErrDeviceUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: read part: %v", ErrDeviceUnavailable, err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: read timed out: %v", ErrDeviceUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: decode frame: %v", ErrDeviceUnavailable, err)
	}
	return frame.ToRGBA(img), nil
}

// abort cancels the stream request, unblocking an in-flight read.
func (d *MJPEGDevice) abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Close releases the stream connection.
func (d *MJPEGDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.resp != nil {
		d.resp.Body.Close()
		d.resp = nil
	}
	d.parts = nil
	return nil
}
