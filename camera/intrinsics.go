// Package camera models the pinhole cameras that observed each view.
package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is returned when a view carries no usable camera intrinsic
// parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError wraps ErrNoIntrinsics with a reason.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// Intrinsics holds the parameters of a pinhole projection from a 3D camera
// frame onto the 2D image plane.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields of Intrinsics are usable for projection.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid size (%d, %d)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fx = %f", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fy = %f", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid principal point Ppx = %f", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid principal point Ppy = %f", params.Ppy))
	}
	return nil
}

// PixelToRay returns the camera-space ray through pixel (u, v):
// ((u-cx)/fx, (v-cy)/fy, 1).
func (params *Intrinsics) PixelToRay(u, v float64) r3.Vector {
	return r3.Vector{
		X: (u - params.Ppx) / params.Fx,
		Y: (v - params.Ppy) / params.Fy,
		Z: 1,
	}
}

// PixelToPoint unprojects pixel (u, v) at the given depth into the camera
// frame. Callers must skip zero or negative depths; unprojection is only
// defined for depth > 0.
func (params *Intrinsics) PixelToPoint(u, v, depth float64) r3.Vector {
	return params.PixelToRay(u, v).Mul(depth)
}

// PointToPixel projects a camera-frame point onto the image plane. A point at
// or behind the camera plane projects to (-1, -1) so that bounds checks
// filter it out.
func (params *Intrinsics) PointToPixel(pt r3.Vector) (float64, float64) {
	if pt.Z <= 0 {
		return -1.0, -1.0
	}
	u := (pt.X/pt.Z)*params.Fx + params.Ppx
	v := (pt.Y/pt.Z)*params.Fy + params.Ppy
	return u, v
}

// Matrix returns the 3x3 camera matrix
// [[fx 0 ppx], [0 fy ppy], [0 0 1]].
func (params *Intrinsics) Matrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, params.Fx)
	m.Set(1, 1, params.Fy)
	m.Set(0, 2, params.Ppx)
	m.Set(1, 2, params.Ppy)
	m.Set(2, 2, 1)
	return m
}

// VerticalFOVDegrees returns the camera's vertical field of view.
func (params *Intrinsics) VerticalFOVDegrees() float64 {
	return 2 * math.Atan(float64(params.Height)/(2*params.Fy)) * 180 / math.Pi
}

// IntrinsicsFromFOV recovers square-pixel intrinsics from the vertical field
// of view carried by predicted poses, placing the principal point at the
// image center.
func IntrinsicsFromFOV(width, height int, vfovDegrees float64) (*Intrinsics, error) {
	if width <= 0 || height <= 0 {
		return nil, NewNoIntrinsicsError(fmt.Sprintf("invalid size (%d, %d)", width, height))
	}
	if vfovDegrees <= 0 || vfovDegrees >= 180 {
		return nil, NewNoIntrinsicsError(fmt.Sprintf("invalid vertical field of view %f degrees", vfovDegrees))
	}
	f := float64(height) / (2 * math.Tan(vfovDegrees*math.Pi/360))
	return &Intrinsics{
		Width:  width,
		Height: height,
		Fx:     f,
		Fy:     f,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}, nil
}
