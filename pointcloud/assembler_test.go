package pointcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/depthfuse/depthfuse/camera"
	"github.com/depthfuse/depthfuse/scene"
	"github.com/depthfuse/depthfuse/spatialmath"
)

func TestAssembleOptionsCheckValid(t *testing.T) {
	good := AssembleOptions{ConfThreshold: 0.5, NumMaxPoints: Unbounded}
	test.That(t, good.CheckValid(), test.ShouldBeNil)

	for _, bad := range []AssembleOptions{
		{ConfThreshold: -0.1, NumMaxPoints: 10},
		{ConfThreshold: 1.5, NumMaxPoints: 10},
		{ConfThreshold: 0.5, NumMaxPoints: 0},
		{ConfThreshold: 0.5, NumMaxPoints: -3},
	} {
		err := bad.CheckValid()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)
	}
}

func TestAssembleCountsEveryValidPixel(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(3, 4, 5)

	// Invalidate a few depths; zero-depth pixels never unproject.
	pred.Views[1].Depth.Set(0, 0, 0)
	pred.Views[1].Depth.Set(3, 4, 0)

	wantPoints := 0
	for _, v := range pred.Views {
		wantPoints += v.Depth.ValidCount()
	}

	cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0, NumMaxPoints: Unbounded}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, wantPoints)
	test.That(t, cloud.MetaData().HasColor, test.ShouldBeTrue)
}

func TestAssembleThresholdMonotonicity(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(2, 6, 6)
	// Spread confidences over the pixels.
	for _, v := range pred.Views {
		for y := 0; y < 6; y++ {
			for x := 0; x < 6; x++ {
				v.Conf.Set(x, y, float64(x+y)/10.)
			}
		}
	}

	last := -1
	for _, tau := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: tau, NumMaxPoints: Unbounded}, logger)
		test.That(t, err, test.ShouldBeNil)
		if last >= 0 {
			test.That(t, cloud.Size(), test.ShouldBeLessThanOrEqualTo, last)
		}
		last = cloud.Size()
	}
}

func TestAssembleEmissionOrderStable(t *testing.T) {
	logger := golog.NewTestLogger(t)
	opts := AssembleOptions{ConfThreshold: 0.1, NumMaxPoints: 40}

	a, err := Assemble(context.Background(), scene.NewTestPrediction(3, 5, 5), opts, logger)
	test.That(t, err, test.ShouldBeNil)
	b, err := Assemble(context.Background(), scene.NewTestPrediction(3, 5, 5), opts, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, a.Size(), test.ShouldEqual, b.Size())
	prevView, prevPixel := -1, -1
	for i := 0; i < a.Size(); i++ {
		test.That(t, a.At(i), test.ShouldResemble, b.At(i))
		// Points arrive sorted by (view index, pixel index).
		p := a.At(i)
		if p.ViewIndex == prevView {
			test.That(t, p.PixelIndex, test.ShouldBeGreaterThan, prevPixel)
		} else {
			test.That(t, p.ViewIndex, test.ShouldBeGreaterThan, prevView)
		}
		prevView, prevPixel = p.ViewIndex, p.PixelIndex
	}
}

func TestAssembleAllFilteredYieldsEmptyCloud(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(2, 3, 3)
	for _, v := range pred.Views {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				v.Conf.Set(x, y, 0)
			}
		}
	}
	cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0.5, NumMaxPoints: Unbounded}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
}

func TestAssembleDropsViewWithBadIntrinsics(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(3, 2, 2)
	pred.Views[1].Intrinsics = &camera.Intrinsics{Width: 2, Height: 2, Fx: -1, Fy: 1}

	cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0, NumMaxPoints: Unbounded}, logger)
	test.That(t, err, test.ShouldBeNil)

	// The malformed view contributes nothing; the others survive.
	test.That(t, cloud.Size(), test.ShouldEqual, 2*4)
	cloud.Iterate(func(i int, p Point) bool {
		test.That(t, p.ViewIndex, test.ShouldNotEqual, 1)
		return true
	})
}

func TestAssembleFailsFastOnConfig(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(1, 2, 2)
	_, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0.5, NumMaxPoints: 0}, logger)
	test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)

	_, err = Assemble(context.Background(), nil, AssembleOptions{ConfThreshold: 0.5, NumMaxPoints: 10}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAssembleCapApplies(t *testing.T) {
	logger := golog.NewTestLogger(t)
	pred := scene.NewTestPrediction(2, 8, 8)
	cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0, NumMaxPoints: 50}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldBeLessThanOrEqualTo, 50)
	test.That(t, cloud.Size(), test.ShouldBeGreaterThan, 0)
}

func TestAssembleUnprojectsToWorld(t *testing.T) {
	logger := golog.NewTestLogger(t)
	// One identity-pose view with unit intrinsics: the world point of pixel
	// (x, y) at depth d must be (x*d, y*d, d).
	pred := scene.NewTestPrediction(1, 3, 3)
	view := pred.Views[0]
	view.Pose = spatialmath.NewZeroPose()

	cloud, err := Assemble(context.Background(), pred, AssembleOptions{ConfThreshold: 0, NumMaxPoints: Unbounded}, logger)
	test.That(t, err, test.ShouldBeNil)
	d := view.Depth.GetDepth(2, 1)
	cloud.Iterate(func(i int, p Point) bool {
		if p.PixelIndex == 1*3+2 {
			test.That(t, p.Position.X, test.ShouldAlmostEqual, 2*d, 1e-9)
			test.That(t, p.Position.Y, test.ShouldAlmostEqual, 1*d, 1e-9)
			test.That(t, p.Position.Z, test.ShouldAlmostEqual, d, 1e-9)
		}
		return true
	})
}
