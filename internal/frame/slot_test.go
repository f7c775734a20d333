package frame

import (
	"image"
	"sync"
	"testing"
	"time"
)

func testFrame(w, h int) *Frame {
	return &Frame{Image: image.NewRGBA(image.Rect(0, 0, w, h)), Time: time.Now()}
}

func TestSlot_LatestWins(t *testing.T) {
	var s Slot

	if s.Latest() != nil {
		t.Fatal("expected empty slot before first publish")
	}

	first := testFrame(2, 2)
	second := testFrame(4, 4)
	s.Publish(first)
	s.Publish(second)

	got := s.Latest()
	if got != second {
		t.Error("expected latest publish to win")
	}

	if got.Seq != 2 {
		t.Errorf("expected seq 2, got %d", got.Seq)
	}
}

func TestSlot_ConcurrentPublishRead(t *testing.T) {
	var s Slot
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Publish(testFrame(2, 2))
			}
		}()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if f := s.Latest(); f != nil && f.Image == nil {
					t.Error("read a frame with nil image")
					return
				}
			}
		}()
	}

	wg.Wait()

	if s.Seq() != 400 {
		t.Errorf("expected 400 publishes, got %d", s.Seq())
	}
}

func TestByteSlot_Overwrite(t *testing.T) {
	var s ByteSlot

	data, seq := s.Latest()
	if data != nil || seq != 0 {
		t.Fatal("expected empty byte slot before first publish")
	}

	s.Publish([]byte("one"))
	s.Publish([]byte("two"))

	data, seq = s.Latest()
	if string(data) != "two" {
		t.Errorf("expected 'two', got '%s'", data)
	}
	if seq != 2 {
		t.Errorf("expected seq 2, got %d", seq)
	}
}

func TestClone_Isolation(t *testing.T) {
	f := testFrame(4, 4)
	c := f.Clone()

	c.Image.Pix[0] = 0xff
	if f.Image.Pix[0] == 0xff {
		t.Error("clone shares pixel storage with original")
	}
}

func TestLabelBox_ClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	// Box partially outside the frame must not panic.
	LabelBox(img, image.Rect(-10, -10, 30, 30), "Unknown", false)
	LabelBox(img, image.Rect(5, 5, 15, 15), "Alice", true)

	if img.RGBAAt(5, 5) != ColorKnown {
		t.Error("expected box outline pixel at (5,5)")
	}
}
