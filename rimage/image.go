// Package rimage holds the per-view raster buffers produced by a depth
// predictor: color images, depth maps, and confidence maps.
package rimage

import (
	"image/color"

	"github.com/pkg/errors"
)

// Image is an 8-bit RGB color buffer stored row-major.
type Image struct {
	width  int
	height int
	data   []uint8
}

// NewImage returns a zeroed image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{width: width, height: height, data: make([]uint8, width*height*3)}
}

// NewImageFromBytes wraps a row-major H*W*3 RGB buffer. The buffer is not
// copied.
func NewImageFromBytes(width, height int, rgb []uint8) (*Image, error) {
	if len(rgb) != width*height*3 {
		return nil, errors.Errorf("image buffer size %d does not match %dx%dx3", len(rgb), width, height)
	}
	return &Image{width: width, height: height, data: rgb}, nil
}

// Width returns the horizontal resolution.
func (im *Image) Width() int {
	return im.width
}

// Height returns the vertical resolution.
func (im *Image) Height() int {
	return im.height
}

// GetXY returns the pixel color at (x, y).
func (im *Image) GetXY(x, y int) color.NRGBA {
	i := (y*im.width + x) * 3
	return color.NRGBA{R: im.data[i], G: im.data[i+1], B: im.data[i+2], A: 255}
}

// SetXY sets the pixel color at (x, y).
func (im *Image) SetXY(x, y int, c color.NRGBA) {
	i := (y*im.width + x) * 3
	im.data[i], im.data[i+1], im.data[i+2] = c.R, c.G, c.B
}
