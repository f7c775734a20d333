package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStatusHandler_Get(t *testing.T) {
	eng := &fakeEngine{running: true, mode: "auto"}
	handler := NewStatusHandler(eng)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"running":true`) {
		t.Errorf("expected running:true in body, got %s", recorder.Body.String())
	}
}

func TestStreamHandler_Snapshot(t *testing.T) {
	eng := &fakeEngine{frame: []byte{0xff, 0xd8, 0xff}, seq: 1}
	handler := NewStreamHandler(eng)

	req := httptest.NewRequest("GET", "/snapshot", nil)
	recorder := httptest.NewRecorder()

	handler.Snapshot(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("expected Content-Type 'image/jpeg', got '%s'", got)
	}
	if recorder.Body.Len() != 3 {
		t.Errorf("expected 3 bytes, got %d", recorder.Body.Len())
	}
}

func TestStreamHandler_Snapshot_NoFrameYet(t *testing.T) {
	handler := NewStreamHandler(&fakeEngine{})

	req := httptest.NewRequest("GET", "/snapshot", nil)
	recorder := httptest.NewRecorder()

	handler.Snapshot(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}
}

func TestStreamHandler_Live_SendsMultipartHeader(t *testing.T) {
	eng := &fakeEngine{frame: []byte{0xff, 0xd8, 0xff}, seq: 1}
	handler := NewStreamHandler(eng)

	ctx, cancel := contextWithTimeout(t, 150)
	defer cancel()

	req := httptest.NewRequest("GET", "/stream", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	handler.Live(recorder, req)

	if got := recorder.Header().Get("Content-Type"); !strings.HasPrefix(got, "multipart/x-mixed-replace") {
		t.Errorf("expected multipart content type, got '%s'", got)
	}
	if !strings.Contains(recorder.Body.String(), "Content-Type: image/jpeg") {
		t.Error("expected at least one JPEG part on the stream")
	}
}

func TestStreamHandler_Live_SkipsRepeatedFrames(t *testing.T) {
	eng := &fakeEngine{frame: []byte{0xff, 0xd8, 0xff}, seq: 7}
	handler := NewStreamHandler(eng)

	ctx, cancel := contextWithTimeout(t, 200)
	defer cancel()

	req := httptest.NewRequest("GET", "/stream", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	handler.Live(recorder, req)

	// The frame sequence never advances, so exactly one part is written.
	if got := strings.Count(recorder.Body.String(), "Content-Type: image/jpeg"); got != 1 {
		t.Errorf("expected exactly one part for an unchanged frame, got %d", got)
	}
}
