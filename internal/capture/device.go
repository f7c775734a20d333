// Package capture owns the video device: it produces frames into a
// single-slot shared buffer and survives device failures with exponential
// backoff, so no consumer ever blocks on a dead camera.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
)

// ErrDeviceUnavailable classifies capture failures that the source
// recovers from via backoff.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Device is a frame producer. Open and Read honor their contexts so the
// capture loop never blocks past its deadline; Close releases the device
// and may be called at any time to abort an in-flight Read.
type Device interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// NewDevice constructs a device for the given camera source. HTTP(S)
// sources are treated as MJPEG streams; other schemes are not supported by
// the pure-Go build.
func NewDevice(source string) (Device, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse camera source %q: %w", source, err)
	}
	switch u.Scheme {
	case "http", "https":
		return NewMJPEGDevice(source), nil
	default:
		return nil, fmt.Errorf("unsupported camera source scheme %q (expected http MJPEG)", u.Scheme)
	}
}
