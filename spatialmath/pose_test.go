package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestQuatRotationMatrixRoundTrip(t *testing.T) {
	cases := []quat.Number{
		{Real: 1},
		rotZ(math.Pi / 3),
		rotAxis(r3.Vector{X: 1, Y: 2, Z: 3}, 2.4),
		rotAxis(r3.Vector{X: -1, Y: 0.1, Z: 0.5}, -0.01),
		rotAxis(r3.Vector{X: 0, Y: 1, Z: 0}, math.Pi-1e-4),
	}
	for _, q := range cases {
		r := QuatToRotationMatrix(q)
		test.That(t, CheckRotationMatrix(r), test.ShouldBeNil)
		back := RotationMatrixToQuat(r)
		// q and -q encode the same rotation.
		dot := q.Real*back.Real + q.Imag*back.Imag + q.Jmag*back.Jmag + q.Kmag*back.Kmag
		test.That(t, math.Abs(dot), test.ShouldAlmostEqual, 1, 1e-9)
	}
}

func TestQuatNormalization(t *testing.T) {
	q := quat.Number{Real: 2, Imag: 0, Jmag: 0, Kmag: 2}
	r := QuatToRotationMatrix(q)
	test.That(t, CheckRotationMatrix(r), test.ShouldBeNil)
}

func TestPoseTransformRoundTrip(t *testing.T) {
	pose := NewPoseFromQuat(rotAxis(r3.Vector{X: 0.3, Y: 1, Z: -2}, 1.9), r3.Vector{X: 4, Y: -1, Z: 0.5})
	for _, p := range testCameraCenters() {
		cam := pose.TransformPoint(p)
		back := pose.InverseTransformPoint(cam)
		test.That(t, back.Sub(p).Norm(), test.ShouldBeLessThan, 1e-9)
	}
}

func TestPoseInvertCompose(t *testing.T) {
	pose := NewPoseFromQuat(rotZ(1.2), r3.Vector{X: 1, Y: 2, Z: 3})
	identity := pose.Compose(pose.Invert())
	test.That(t, PoseAlmostEqual(identity, NewZeroPose(), 1e-9), test.ShouldBeTrue)
}

func TestPoseCenter(t *testing.T) {
	pose := NewPoseFromQuat(rotAxis(r3.Vector{X: 1, Y: 1, Z: 1}, 0.6), r3.Vector{X: -1, Y: 0, Z: 2})
	// The camera center maps to the camera-frame origin.
	test.That(t, pose.TransformPoint(pose.Center()).Norm(), test.ShouldBeLessThan, 1e-9)
}

func TestNewPoseRejectsImproperRotation(t *testing.T) {
	mirror := QuatToRotationMatrix(quat.Number{Real: 1})
	mirror.Set(2, 2, -1)
	_, err := NewPose(mirror, r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPoseMatrix4(t *testing.T) {
	pose := NewPoseFromQuat(rotZ(0.5), r3.Vector{X: 1, Y: -1, Z: 2})
	m := pose.Matrix4()
	test.That(t, m.At(0, 3), test.ShouldEqual, 1.0)
	test.That(t, m.At(1, 3), test.ShouldEqual, -1.0)
	test.That(t, m.At(3, 3), test.ShouldEqual, 1.0)
	test.That(t, m.At(3, 0), test.ShouldEqual, 0.0)
}
