package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMJPEGDeviceOpenHonorsContext(t *testing.T) {
	// The server never answers; the connect phase must give up with ctx.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	dev := NewMJPEGDevice(srv.URL)
	defer dev.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- dev.Open(ctx) }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected open to fail after its context deadline")
		}
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("expected ErrDeviceUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("open still blocked after its context deadline")
	}
}

func TestMJPEGDeviceReadUnblocksOnContextDeadline(t *testing.T) {
	// The server sends the multipart headers, then stalls mid-stream with
	// the connection still open.
	stall := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-stall:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(stall)

	dev := NewMJPEGDevice(srv.URL)
	defer dev.Close()

	if err := dev.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := dev.Read(ctx)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected read to fail after its context deadline")
		}
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("expected ErrDeviceUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read still blocked after its context deadline")
	}
}
