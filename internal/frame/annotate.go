package frame

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation colors (known = green, unknown = red, overlay = yellow).
var (
	ColorKnown   = color.RGBA{0, 255, 0, 255}
	ColorUnknown = color.RGBA{255, 0, 0, 255}
	ColorOverlay = color.RGBA{255, 255, 0, 255}
)

const boxThickness = 2

// DrawBox draws a rectangle outline onto img, clipped to the image bounds.
func DrawBox(img *image.RGBA, box image.Rectangle, c color.RGBA) {
	box = box.Intersect(img.Bounds())
	if box.Empty() {
		return
	}
	for t := 0; t < boxThickness; t++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			setIfInside(img, x, box.Min.Y+t, c)
			setIfInside(img, x, box.Max.Y-1-t, c)
		}
		for y := box.Min.Y; y < box.Max.Y; y++ {
			setIfInside(img, box.Min.X+t, y, c)
			setIfInside(img, box.Max.X-1-t, y, c)
		}
	}
}

// DrawLabel renders text at the given baseline position.
func DrawLabel(img *image.RGBA, text string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// LabelBox draws a bounding box with its identity label just above it,
// mirroring the live stream overlay.
func LabelBox(img *image.RGBA, box image.Rectangle, label string, known bool) {
	c := ColorKnown
	if !known {
		c = ColorUnknown
	}
	DrawBox(img, box, c)
	y := box.Min.Y - 6
	if y < 13 {
		y = box.Min.Y + 13
	}
	DrawLabel(img, label, box.Min.X, y, c)
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
