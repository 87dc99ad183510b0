// Package pointcloud assembles fused depth predictions into world-space
// point clouds.
package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Point is one world-space sample: a position with the color and confidence
// of the pixel it was unprojected from, and the (view, pixel) provenance that
// fixes its place in the cloud's stable ordering.
type Point struct {
	Position   r3.Vector
	Color      color.NRGBA
	ViewIndex  int
	PixelIndex int
	Confidence float64
}

// MetaData holds aggregate information about the cloud.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns a metadata struct ready to merge points into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
		MinZ: math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

// Merge folds one point into the metadata.
func (meta *MetaData) Merge(p Point) {
	meta.HasColor = true
	meta.MinX = math.Min(meta.MinX, p.Position.X)
	meta.MaxX = math.Max(meta.MaxX, p.Position.X)
	meta.MinY = math.Min(meta.MinY, p.Position.Y)
	meta.MaxY = math.Max(meta.MaxY, p.Position.Y)
	meta.MinZ = math.Min(meta.MinZ, p.Position.Z)
	meta.MaxZ = math.Max(meta.MaxZ, p.Position.Z)
}

// PointCloud is a slice-backed cloud. Points are kept in their emission
// order, (view index, pixel index) ascending; exporters and the subsampler
// rely on this order being stable.
type PointCloud struct {
	points []Point
	meta   MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with preallocated capacity.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{points: make([]Point, 0, size), meta: NewMetaData()}
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the cloud's aggregate metadata.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// At returns the i-th point in emission order.
func (cloud *PointCloud) At(i int) Point {
	return cloud.points[i]
}

// Append adds a point at the end of the emission order.
func (cloud *PointCloud) Append(p Point) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// Iterate calls fn for every point in emission order until fn returns false.
func (cloud *PointCloud) Iterate(fn func(i int, p Point) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}

// Subsample uniformly reduces the cloud to at most cap points, taking every
// stride-th point of the stable emission order with stride = ceil(total/cap).
// Repeated runs on identical input produce byte-identical results.
func (cloud *PointCloud) Subsample(cap int) (*PointCloud, error) {
	if cap <= 0 {
		return nil, errors.Wrapf(ErrConfig, "point cap must be positive, got %d", cap)
	}
	if cloud.Size() <= cap {
		return cloud, nil
	}
	stride := (cloud.Size() + cap - 1) / cap
	out := NewWithPrealloc((cloud.Size() + stride - 1) / stride)
	for i := 0; i < cloud.Size(); i += stride {
		out.Append(cloud.points[i])
	}
	return out, nil
}
