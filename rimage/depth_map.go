package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// DepthMap is a per-pixel depth buffer in whatever units the producing
// prediction is tagged with. A depth of zero marks an invalid pixel.
type DepthMap struct {
	width  int
	height int
	data   []float64
}

// NewEmptyDepthMap returns a zeroed (all-invalid) depth map.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]float64, width*height)}
}

// NewDepthMapFromFloat32 copies a row-major H*W float32 tensor into a depth
// map, rejecting negative or non-finite values.
func NewDepthMapFromFloat32(width, height int, depth []float32) (*DepthMap, error) {
	if len(depth) != width*height {
		return nil, errors.Errorf("depth buffer size %d does not match %dx%d", len(depth), width, height)
	}
	dm := NewEmptyDepthMap(width, height)
	for i, d := range depth {
		v := float64(d)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("invalid depth %f at index %d, must be a non-negative finite value", v, i)
		}
		dm.data[i] = v
	}
	return dm, nil
}

// Width returns the horizontal resolution.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical resolution.
func (dm *DepthMap) Height() int {
	return dm.height
}

// GetDepth returns the depth at (x, y).
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

// Set writes the depth at (x, y).
func (dm *DepthMap) Set(x, y int, v float64) {
	dm.data[y*dm.width+x] = v
}

// Scale multiplies every depth value in place. Used when a similarity
// transform rescales the world frame.
func (dm *DepthMap) Scale(s float64) {
	for i := range dm.data {
		dm.data[i] *= s
	}
}

// ValidCount returns the number of pixels with depth > 0.
func (dm *DepthMap) ValidCount() int {
	n := 0
	for _, v := range dm.data {
		if v > 0 {
			n++
		}
	}
	return n
}
