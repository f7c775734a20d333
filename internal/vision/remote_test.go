package vision

import (
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func jpegStub(img *image.RGBA) ([]byte, error) {
	return []byte("jpeg"), nil
}

func TestRemoteClient_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("frame"); err != nil {
			t.Errorf("missing frame part: %v", err)
		}
		json.NewEncoder(w).Encode(detectResponse{
			Boxes: []remoteBox{{Top: 10, Right: 50, Bottom: 60, Left: 20}},
		})
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second, jpegStub)
	boxes, err := c.Detect(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(boxes))
	}
	want := image.Rect(20, 10, 50, 60)
	if boxes[0] != want {
		t.Errorf("expected %v, got %v", want, boxes[0])
	}
}

func TestRemoteClient_EncodeCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(encodeResponse{Vectors: []FeatureVector{{1, 0}}})
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second, jpegStub)
	boxes := []Box{image.Rect(0, 0, 5, 5), image.Rect(5, 5, 9, 9)}
	if _, err := c.Encode(image.NewRGBA(image.Rect(0, 0, 10, 10)), boxes); err == nil {
		t.Error("expected error when vector count does not match box count")
	}
}

func TestRemoteClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second, jpegStub)
	if _, err := c.Detect(image.NewRGBA(image.Rect(0, 0, 10, 10))); err == nil {
		t.Error("expected error for non-200 response")
	}
}
