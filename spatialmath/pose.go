package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a world-to-camera rigid transform: Xcam = R*Xworld + t.
type Pose struct {
	rot   *mat.Dense
	trans r3.Vector
}

// NewPose returns a pose from a 3x3 rotation matrix and a translation. The
// rotation must be proper.
func NewPose(rot *mat.Dense, trans r3.Vector) (*Pose, error) {
	if err := CheckRotationMatrix(rot); err != nil {
		return nil, errors.Wrap(err, "cannot create pose")
	}
	return &Pose{rot: mat.DenseCopyOf(rot), trans: trans}, nil
}

// NewPoseFromQuat returns a pose whose rotation is given as a wire quaternion.
func NewPoseFromQuat(q quat.Number, trans r3.Vector) *Pose {
	return &Pose{rot: QuatToRotationMatrix(q), trans: trans}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() *Pose {
	return &Pose{rot: QuatToRotationMatrix(quat.Number{Real: 1})}
}

// Rotation returns a copy of the pose's 3x3 rotation matrix.
func (p *Pose) Rotation() *mat.Dense {
	return mat.DenseCopyOf(p.rot)
}

// Translation returns the pose's translation.
func (p *Pose) Translation() r3.Vector {
	return p.trans
}

// Quaternion returns the pose's rotation as a wire quaternion.
func (p *Pose) Quaternion() quat.Number {
	return RotationMatrixToQuat(p.rot)
}

// Center returns the camera center in world coordinates, -R^T * t.
func (p *Pose) Center() r3.Vector {
	return p.rotTransposeApply(p.trans).Mul(-1)
}

// TransformPoint maps a world point into the camera frame.
func (p *Pose) TransformPoint(world r3.Vector) r3.Vector {
	return p.rotApply(world).Add(p.trans)
}

// InverseTransformPoint maps a camera-frame point back into world coordinates.
func (p *Pose) InverseTransformPoint(cam r3.Vector) r3.Vector {
	return p.rotTransposeApply(cam.Sub(p.trans))
}

// Compose returns the pose mapping the world frame of other into this pose's
// camera frame, i.e. the transform p*other.
func (p *Pose) Compose(other *Pose) *Pose {
	var rot mat.Dense
	rot.Mul(p.rot, other.rot)
	return &Pose{rot: &rot, trans: p.rotApply(other.trans).Add(p.trans)}
}

// Invert returns the camera-to-world transform of this pose.
func (p *Pose) Invert() *Pose {
	var rot mat.Dense
	rot.CloneFrom(p.rot.T())
	return &Pose{rot: &rot, trans: p.rotTransposeApply(p.trans).Mul(-1)}
}

// Clone returns a deep copy of the pose.
func (p *Pose) Clone() *Pose {
	return &Pose{rot: mat.DenseCopyOf(p.rot), trans: p.trans}
}

// Matrix4 returns the pose as a homogeneous 4x4 row-major matrix.
func (p *Pose) Matrix4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, p.rot.At(i, j))
		}
	}
	m.Set(0, 3, p.trans.X)
	m.Set(1, 3, p.trans.Y)
	m.Set(2, 3, p.trans.Z)
	m.Set(3, 3, 1)
	return m
}

// PoseAlmostEqual reports whether two poses agree within tol, comparing
// rotation entries and translation components.
func PoseAlmostEqual(a, b *Pose, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a.rot.At(i, j)-b.rot.At(i, j)) > tol {
				return false
			}
		}
	}
	d := a.trans.Sub(b.trans)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

func (p *Pose) rotApply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.rot.At(0, 0)*v.X + p.rot.At(0, 1)*v.Y + p.rot.At(0, 2)*v.Z,
		Y: p.rot.At(1, 0)*v.X + p.rot.At(1, 1)*v.Y + p.rot.At(1, 2)*v.Z,
		Z: p.rot.At(2, 0)*v.X + p.rot.At(2, 1)*v.Y + p.rot.At(2, 2)*v.Z,
	}
}

func (p *Pose) rotTransposeApply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.rot.At(0, 0)*v.X + p.rot.At(1, 0)*v.Y + p.rot.At(2, 0)*v.Z,
		Y: p.rot.At(0, 1)*v.X + p.rot.At(1, 1)*v.Y + p.rot.At(2, 1)*v.Z,
		Z: p.rot.At(0, 2)*v.X + p.rot.At(1, 2)*v.Y + p.rot.At(2, 2)*v.Z,
	}
}
