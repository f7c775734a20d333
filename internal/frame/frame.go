// Package frame holds the shared frame representation and the single-slot
// buffers that connect the capture loop to the recognition loop and the
// recognition loop to streaming consumers.
package frame

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"time"
)

// jpegQuality matches the quality used by the streaming endpoint consumers.
const jpegQuality = 80

// Frame is a single captured image with its sequence number and capture time.
// Frames are treated as immutable once published; anyone who wants to draw
// on a frame must clone it first.
type Frame struct {
	Image *image.RGBA
	Seq   uint64
	Time  time.Time
}

// Clone returns a deep copy of the frame's pixels so the copy can be
// annotated without racing readers of the original.
func (f *Frame) Clone() *Frame {
	if f == nil || f.Image == nil {
		return nil
	}
	dst := image.NewRGBA(f.Image.Bounds())
	draw.Draw(dst, dst.Bounds(), f.Image, f.Image.Bounds().Min, draw.Src)
	return &Frame{Image: dst, Seq: f.Seq, Time: f.Time}
}

// ToRGBA converts any decoded image into an RGBA frame buffer.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}

// EncodeJPEG encodes a frame for the MJPEG stream.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
