// Package vision defines the face detection, encoding, matching and
// tracking capabilities consumed by the recognition engine. Detection and
// encoding are opaque capabilities supplied by an external service; the
// engine never depends on a concrete implementation.
package vision

import "image"

// Unknown is the sentinel identity assigned to faces that matched nothing
// within tolerance. Unknown faces are tracked and rendered but never logged.
const Unknown = "Unknown"

// Box is a face bounding region in frame coordinates.
type Box = image.Rectangle

// FeatureVector is an opaque face embedding produced by an Encoder.
type FeatureVector []float32

// Detector locates faces in a frame.
type Detector interface {
	Detect(img *image.RGBA) ([]Box, error)
}

// Encoder computes one feature vector per detected face.
type Encoder interface {
	Encode(img *image.RGBA, boxes []Box) ([]FeatureVector, error)
}

// Tracker follows a single face between detection cycles. Update returns
// the new position and false once the tracker has lost its target.
// Trackers never assign or change identity.
type Tracker interface {
	Update(img *image.RGBA) (Box, bool)
}

// TrackerFactory seeds a new tracker at a detected position.
type TrackerFactory func(img *image.RGBA, box Box) Tracker

// ScaleBox maps a box detected on a downscaled frame back to full-frame
// coordinates.
func ScaleBox(b Box, scale float64) Box {
	if scale == 1.0 || scale <= 0 {
		return b
	}
	inv := 1.0 / scale
	return image.Rect(
		int(float64(b.Min.X)*inv),
		int(float64(b.Min.Y)*inv),
		int(float64(b.Max.X)*inv),
		int(float64(b.Max.Y)*inv),
	)
}

// Downscale resamples img by the given factor (0 < scale <= 1) using
// nearest-neighbor sampling. Detection runs on the small frame; boxes are
// mapped back with ScaleBox.
func Downscale(img *image.RGBA, scale float64) *image.RGBA {
	if scale >= 1.0 || scale <= 0 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := b.Min.Y + int(float64(y)/scale)
		for x := 0; x < w; x++ {
			sx := b.Min.X + int(float64(x)/scale)
			dst.SetRGBA(x, y, img.RGBAAt(sx, sy))
		}
	}
	return dst
}
