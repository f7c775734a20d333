package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/smart-presence/internal/frame"
)

// fakeDevice fails a fixed number of reads before recovering.
type fakeDevice struct {
	mu       sync.Mutex
	failures int
	reads    int
	closed   int
}

func (d *fakeDevice) Open(context.Context) error { return nil }

func (d *fakeDevice) Read(context.Context) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.reads <= d.failures {
		return nil, fmt.Errorf("%w: simulated failure %d", ErrDeviceUnavailable, d.reads)
	}
	// Pace successful reads so the test loop does not spin.
	time.Sleep(time.Millisecond)
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func TestBackoffDelay(t *testing.T) {
	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second,
	}
	for i, w := range want {
		if got := backoffDelay(i + 1); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestSource_ReconnectBackoff(t *testing.T) {
	dev := &fakeDevice{failures: 4}
	var slot frame.Slot
	src := NewSource(dev, &slot, zerolog.Nop())

	var mu sync.Mutex
	var delays []time.Duration
	src.wait = func(d time.Duration) bool {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return true
	}

	src.Start()
	defer src.Stop()

	// Wait for the first successful frame.
	deadline := time.After(5 * time.Second)
	for slot.Seq() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a frame after recovery")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !src.Connected() {
		t.Error("expected Connected status after first successful read")
	}

	mu.Lock()
	got := append([]time.Duration(nil), delays...)
	mu.Unlock()

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(got) < len(want) {
		t.Fatalf("expected at least %d backoff delays, got %v", len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("delay %d: expected %v, got %v", i, w, got[i])
		}
	}

	if src.Reconnects() < 4 {
		t.Errorf("expected at least 4 recorded reconnect attempts, got %d", src.Reconnects())
	}
}

func TestSource_StopReleasesDevice(t *testing.T) {
	dev := &fakeDevice{}
	var slot frame.Slot
	src := NewSource(dev, &slot, zerolog.Nop())

	src.Start()

	deadline := time.After(5 * time.Second)
	for slot.Seq() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a frame")
		case <-time.After(5 * time.Millisecond):
		}
	}

	src.Stop()

	if src.Status() != StatusStopped {
		t.Errorf("expected stopped status, got %s", src.Status())
	}

	dev.mu.Lock()
	closed := dev.closed
	dev.mu.Unlock()
	if closed == 0 {
		t.Error("expected device to be released on stop")
	}

	// Stop must be idempotent.
	src.Stop()
}

func TestSource_StatusNeverBlocksWhileDisconnected(t *testing.T) {
	dev := &fakeDevice{failures: 1 << 30}
	var slot frame.Slot
	src := NewSource(dev, &slot, zerolog.Nop())
	src.wait = func(time.Duration) bool { return true }

	src.Start()
	defer src.Stop()

	done := make(chan string, 1)
	go func() { done <- src.Status() }()

	select {
	case status := <-done:
		if status != StatusDisconnected && status != StatusConnected {
			t.Errorf("unexpected status %q", status)
		}
	case <-time.After(time.Second):
		t.Error("Status() blocked while device was failing")
	}
}

func TestNewDevice_SchemeValidation(t *testing.T) {
	if _, err := NewDevice("http://cam:8081/stream"); err != nil {
		t.Errorf("expected http source to be accepted: %v", err)
	}
	if _, err := NewDevice("rtsp://cam/stream"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestFakeDeviceErrorClassification(t *testing.T) {
	dev := &fakeDevice{failures: 1}
	_, err := dev.Read(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}
