package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// ConfidenceMap is a per-pixel reliability estimate on the unit interval.
type ConfidenceMap struct {
	width  int
	height int
	data   []float64
}

// NewConfidenceMap returns a zero-confidence map.
func NewConfidenceMap(width, height int) *ConfidenceMap {
	return &ConfidenceMap{width: width, height: height, data: make([]float64, width*height)}
}

// NewConfidenceMapFromFloat32 copies a row-major H*W float32 tensor,
// rejecting values outside [0, 1].
func NewConfidenceMapFromFloat32(width, height int, conf []float32) (*ConfidenceMap, error) {
	if len(conf) != width*height {
		return nil, errors.Errorf("confidence buffer size %d does not match %dx%d", len(conf), width, height)
	}
	cm := NewConfidenceMap(width, height)
	for i, c := range conf {
		v := float64(c)
		if v < 0 || v > 1 || math.IsNaN(v) {
			return nil, errors.Errorf("invalid confidence %f at index %d, must be in [0,1]", v, i)
		}
		cm.data[i] = v
	}
	return cm, nil
}

// Width returns the horizontal resolution.
func (cm *ConfidenceMap) Width() int {
	return cm.width
}

// Height returns the vertical resolution.
func (cm *ConfidenceMap) Height() int {
	return cm.height
}

// Get returns the confidence at (x, y).
func (cm *ConfidenceMap) Get(x, y int) float64 {
	return cm.data[y*cm.width+x]
}

// Set writes the confidence at (x, y).
func (cm *ConfidenceMap) Set(x, y int, v float64) {
	cm.data[y*cm.width+x] = v
}
