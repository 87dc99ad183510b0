// Package scene holds the multi-view data model handed over by a neural
// depth predictor: per-view rasters, camera parameters, and the prediction
// they belong to.
package scene

import (
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/camera"
	"github.com/depthfuse/depthfuse/rimage"
	"github.com/depthfuse/depthfuse/spatialmath"
)

// PoseSource records where a view's extrinsic pose came from.
type PoseSource int

const (
	// PoseSourcePredicted marks poses estimated by the network.
	PoseSourcePredicted PoseSource = iota
	// PoseSourceKnown marks externally supplied reference poses.
	PoseSourceKnown
)

// String implements fmt.Stringer.
func (s PoseSource) String() string {
	switch s {
	case PoseSourcePredicted:
		return "predicted"
	case PoseSourceKnown:
		return "known"
	default:
		return "unknown"
	}
}

// View is one observation of the scene. Views are created once per inference
// call and are read-only inputs to the fusion core; only the fuser may
// overwrite the pose and depth in place during alignment.
type View struct {
	Image      *rimage.Image
	Depth      *rimage.DepthMap
	Conf       *rimage.ConfidenceMap
	Intrinsics *camera.Intrinsics
	Pose       *spatialmath.Pose
	Source     PoseSource
}

// CheckValid verifies the view's buffers agree with each other and with the
// intrinsics.
func (v *View) CheckValid() error {
	if v.Image == nil || v.Depth == nil || v.Conf == nil {
		return errors.New("view is missing an image, depth, or confidence buffer")
	}
	if v.Pose == nil {
		return errors.New("view is missing a pose")
	}
	if err := v.Intrinsics.CheckValid(); err != nil {
		return err
	}
	w, h := v.Intrinsics.Width, v.Intrinsics.Height
	if v.Image.Width() != w || v.Image.Height() != h {
		return errors.Errorf("image size (%d, %d) does not match intrinsics (%d, %d)",
			v.Image.Width(), v.Image.Height(), w, h)
	}
	if v.Depth.Width() != w || v.Depth.Height() != h {
		return errors.Errorf("depth size (%d, %d) does not match intrinsics (%d, %d)",
			v.Depth.Width(), v.Depth.Height(), w, h)
	}
	if v.Conf.Width() != w || v.Conf.Height() != h {
		return errors.Errorf("confidence size (%d, %d) does not match intrinsics (%d, %d)",
			v.Conf.Width(), v.Conf.Height(), w, h)
	}
	return nil
}
