package fuse

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/depthfuse/depthfuse/scene"
	"github.com/depthfuse/depthfuse/spatialmath"
)

func groundTruthTransform(t *testing.T) *spatialmath.SimilarityTransform {
	t.Helper()
	rot := spatialmath.QuatToRotationMatrix(quat.Number{Real: 0.96, Imag: 0.2, Jmag: 0.1, Kmag: 0.15})
	st, err := spatialmath.NewSimilarityTransform(rot, 2.5, r3.Vector{X: 1, Y: -2, Z: 0.5})
	test.That(t, err, test.ShouldBeNil)
	return st
}

func TestFuseKnownPosePath(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(4, 2, 2)
	want := groundTruthTransform(t)

	known := make([]KnownPose, len(rel.Views))
	for i, v := range rel.Views {
		known[i] = KnownPose{ViewIndex: i, Pose: want.ApplyPose(v.Pose)}
	}
	relDepthBefore := rel.Views[0].Depth.GetDepth(0, 0)

	fused, err := Fuse(context.Background(), rel, Options{Mode: ModeKnownPose, Known: known}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsMetric)

	for i, kp := range known {
		test.That(t, fused.Views[i].Pose.Center().Sub(kp.Pose.Center()).Norm(), test.ShouldBeLessThan, 1e-6)
		test.That(t, fused.Views[i].Source, test.ShouldEqual, scene.PoseSourceKnown)
	}
	// Depth scales linearly with the recovered transform scale.
	test.That(t, fused.Views[0].Depth.GetDepth(0, 0), test.ShouldAlmostEqual, relDepthBefore*want.Scale, 1e-6)

	res, err := Residuals(context.Background(), fused, known)
	test.That(t, err, test.ShouldBeNil)
	for _, r := range res {
		test.That(t, r, test.ShouldBeLessThan, 1e-6)
	}
}

func TestFuseSingleKnownPoseAnchorsTranslation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(3, 2, 2)

	ref := spatialmath.NewPoseFromQuat(quat.Number{Real: 1}, r3.Vector{X: 5, Y: 5, Z: 5})
	before := rel.Views[0].Pose.Center().Sub(rel.Views[1].Pose.Center()).Norm()

	fused, err := Fuse(context.Background(), rel,
		Options{Mode: ModeKnownPose, Known: []KnownPose{{ViewIndex: 1, Pose: ref}}}, logger)
	test.That(t, err, test.ShouldBeNil)

	// One reference selects the known-pose path and anchors the scene to it.
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsMetric)
	test.That(t, fused.Views[1].Pose.Center().Sub(ref.Center()).Norm(), test.ShouldBeLessThan, 1e-9)
	test.That(t, fused.Views[1].Source, test.ShouldEqual, scene.PoseSourceKnown)
	// Translation-only anchoring preserves relative geometry.
	after := fused.Views[0].Pose.Center().Sub(fused.Views[1].Pose.Center()).Norm()
	test.That(t, after, test.ShouldAlmostEqual, before, 1e-9)
}

func TestFuseTwoCorrespondencesDegradesToRelative(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(3, 2, 2)
	want := groundTruthTransform(t)

	known := []KnownPose{
		{ViewIndex: 0, Pose: want.ApplyPose(rel.Views[0].Pose)},
		{ViewIndex: 1, Pose: want.ApplyPose(rel.Views[1].Pose)},
	}
	fused, err := Fuse(context.Background(), rel, Options{Mode: ModeKnownPose, Known: known}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsRelative)
}

func TestFusePairedMetric(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(5, 2, 2)
	metric := scene.NewTestPrediction(5, 2, 2)
	want := groundTruthTransform(t)
	applySimilarity(metric, want)

	fused, err := Fuse(context.Background(), rel, Options{Mode: ModePairedMetric, Metric: metric}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsMetric)
	for i := range fused.Views {
		d := fused.Views[i].Pose.Center().Sub(metric.Views[i].Pose.Center()).Norm()
		test.That(t, d, test.ShouldBeLessThan, 1e-6)
	}
}

func TestFusePairedMetricViewCountMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(4, 2, 2)
	metric := scene.NewTestPrediction(3, 2, 2)

	fused, err := Fuse(context.Background(), rel, Options{Mode: ModePairedMetric, Metric: metric}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsRelative)
}

func TestFuseModeNone(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rel := scene.NewTestPrediction(3, 2, 2)
	fused, err := Fuse(context.Background(), rel, Options{Mode: ModeNone}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fused.Units, test.ShouldEqual, scene.UnitsRelative)
}

func TestFuseFatalInputs(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := Fuse(context.Background(), nil, Options{}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	rel := scene.NewTestPrediction(2, 2, 2)
	_, err = Fuse(context.Background(), rel, Options{Mode: Mode(42)}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPickMode(t *testing.T) {
	metric := scene.NewTestPrediction(2, 2, 2)
	known := []KnownPose{{ViewIndex: 0, Pose: spatialmath.NewZeroPose()}}

	test.That(t, PickMode(known, metric), test.ShouldEqual, ModeKnownPose)
	test.That(t, PickMode(nil, metric), test.ShouldEqual, ModePairedMetric)
	test.That(t, PickMode(nil, nil), test.ShouldEqual, ModeNone)
}

func TestResidualsBadIndex(t *testing.T) {
	pred := scene.NewTestPrediction(2, 2, 2)
	_, err := Residuals(context.Background(), pred, []KnownPose{{ViewIndex: 7, Pose: spatialmath.NewZeroPose()}})
	test.That(t, err, test.ShouldNotBeNil)
}
