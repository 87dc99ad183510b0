package scene

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/depthfuse/depthfuse/camera"
	"github.com/depthfuse/depthfuse/rimage"
	"github.com/depthfuse/depthfuse/spatialmath"
)

// RawView is the tensor-level payload a predictor hands over for one view.
// Poses arrive in one of two forms: predicted poses as a quaternion,
// translation, and vertical field of view; known poses as an explicit
// world-to-camera rotation matrix and translation.
type RawView struct {
	Width  int
	Height int
	Image  []uint8   // H*W*3, 0-255 channel range
	Depth  []float32 // H*W, non-negative, 0 = invalid
	Conf   []float32 // H*W, unit interval

	// Predicted pose form.
	Quat       *[4]float64 // w, x, y, z
	FOVDegrees float64

	// Known pose form.
	Rotation *[9]float64 // row-major world-to-camera

	Translation [3]float64

	// Optional explicit intrinsics; required for the known pose form and
	// derived from FOVDegrees otherwise.
	Intrinsics *camera.Intrinsics
}

// ViewFromRaw validates and decodes a predictor payload into a View.
func ViewFromRaw(rv RawView) (*View, error) {
	img, err := rimage.NewImageFromBytes(rv.Width, rv.Height, rv.Image)
	if err != nil {
		return nil, errors.Wrap(err, "decoding view image")
	}
	depth, err := rimage.NewDepthMapFromFloat32(rv.Width, rv.Height, rv.Depth)
	if err != nil {
		return nil, errors.Wrap(err, "decoding view depth")
	}
	conf, err := rimage.NewConfidenceMapFromFloat32(rv.Width, rv.Height, rv.Conf)
	if err != nil {
		return nil, errors.Wrap(err, "decoding view confidence")
	}

	trans := r3.Vector{X: rv.Translation[0], Y: rv.Translation[1], Z: rv.Translation[2]}
	var view *View
	switch {
	case rv.Quat != nil && rv.Rotation != nil:
		return nil, errors.New("view carries both a predicted and a known pose")
	case rv.Quat != nil:
		intrinsics := rv.Intrinsics
		if intrinsics == nil {
			intrinsics, err = camera.IntrinsicsFromFOV(rv.Width, rv.Height, rv.FOVDegrees)
			if err != nil {
				return nil, errors.Wrap(err, "deriving intrinsics from field of view")
			}
		}
		q := quat.Number{Real: rv.Quat[0], Imag: rv.Quat[1], Jmag: rv.Quat[2], Kmag: rv.Quat[3]}
		view = &View{
			Image:      img,
			Depth:      depth,
			Conf:       conf,
			Intrinsics: intrinsics,
			Pose:       spatialmath.NewPoseFromQuat(q, trans),
			Source:     PoseSourcePredicted,
		}
	case rv.Rotation != nil:
		if rv.Intrinsics == nil {
			return nil, camera.NewNoIntrinsicsError("known-pose views must carry explicit intrinsics")
		}
		pose, err := spatialmath.NewPose(mat.NewDense(3, 3, rv.Rotation[:]), trans)
		if err != nil {
			return nil, errors.Wrap(err, "decoding known pose")
		}
		view = &View{
			Image:      img,
			Depth:      depth,
			Conf:       conf,
			Intrinsics: rv.Intrinsics,
			Pose:       pose,
			Source:     PoseSourceKnown,
		}
	default:
		return nil, errors.New("view carries no pose")
	}

	if err := view.CheckValid(); err != nil {
		return nil, err
	}
	return view, nil
}
