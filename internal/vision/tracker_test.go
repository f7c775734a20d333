package vision

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

// patternFrame draws a bright square on a dark background at the given
// offset so the tracker has a feature to lock onto.
func patternFrame(w, h, x, y, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{10, 10, 10, 255}), image.Point{}, draw.Src)
	square := image.Rect(x, y, x+size, y+size)
	draw.Draw(img, square, image.NewUniform(color.RGBA{220, 220, 220, 255}), image.Point{}, draw.Src)
	return img
}

func TestTemplateTracker_FollowsTarget(t *testing.T) {
	first := patternFrame(200, 200, 80, 80, 40)
	tracker := NewTemplateTracker(first, image.Rect(80, 80, 120, 120))

	// Shift the target by less than the search radius.
	second := patternFrame(200, 200, 92, 88, 40)
	box, ok := tracker.Update(second)
	if !ok {
		t.Fatal("expected tracker to keep lock on shifted target")
	}

	if dx := abs(box.Min.X - 92); dx > trackerSearchStep {
		t.Errorf("expected x near 92, got %d", box.Min.X)
	}
	if dy := abs(box.Min.Y - 88); dy > trackerSearchStep {
		t.Errorf("expected y near 88, got %d", box.Min.Y)
	}
}

func TestTemplateTracker_ReportsLost(t *testing.T) {
	first := patternFrame(200, 200, 80, 80, 40)
	tracker := NewTemplateTracker(first, image.Rect(80, 80, 120, 120))

	// Target gone entirely: uniform dark frame.
	gone := patternFrame(200, 200, 0, 0, 0)
	if _, ok := tracker.Update(gone); ok {
		t.Error("expected tracker to report lost target")
	}
}

func TestScaleBox(t *testing.T) {
	b := image.Rect(10, 20, 30, 40)

	scaled := ScaleBox(b, 0.5)
	want := image.Rect(20, 40, 60, 80)
	if scaled != want {
		t.Errorf("expected %v, got %v", want, scaled)
	}

	if ScaleBox(b, 1.0) != b {
		t.Error("scale 1.0 must be identity")
	}
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))

	small := Downscale(img, 0.5)
	if small.Bounds().Dx() != 50 || small.Bounds().Dy() != 40 {
		t.Errorf("expected 50x40, got %dx%d", small.Bounds().Dx(), small.Bounds().Dy())
	}

	if Downscale(img, 1.0) != img {
		t.Error("scale 1.0 must return the original image")
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
