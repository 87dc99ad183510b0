package camera

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCheckValid(t *testing.T) {
	good := &Intrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	test.That(t, good.CheckValid(), test.ShouldBeNil)

	var nilParams *Intrinsics
	err := nilParams.CheckValid()
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	bad := &Intrinsics{Width: 640, Height: 480, Fx: 0, Fy: 500}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = &Intrinsics{Width: 0, Height: 480, Fx: 500, Fy: 500}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestProjectionRoundTrip(t *testing.T) {
	params := &Intrinsics{Width: 640, Height: 480, Fx: 500, Fy: 480, Ppx: 320, Ppy: 240}
	pt := params.PixelToPoint(100, 30, 2.5)
	u, v := params.PointToPixel(pt)
	test.That(t, u, test.ShouldAlmostEqual, 100, 1e-9)
	test.That(t, v, test.ShouldAlmostEqual, 30, 1e-9)
}

func TestPixelToRay(t *testing.T) {
	params := &Intrinsics{Width: 2, Height: 2, Fx: 1, Fy: 1, Ppx: 0, Ppy: 0}
	ray := params.PixelToRay(3, 4)
	test.That(t, ray, test.ShouldResemble, r3.Vector{X: 3, Y: 4, Z: 1})
}

func TestPointBehindCamera(t *testing.T) {
	params := &Intrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	u, v := params.PointToPixel(r3.Vector{X: 1, Y: 1, Z: -2})
	test.That(t, u, test.ShouldEqual, -1.0)
	test.That(t, v, test.ShouldEqual, -1.0)
}

func TestIntrinsicsFromFOV(t *testing.T) {
	params, err := IntrinsicsFromFOV(640, 480, 60)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.CheckValid(), test.ShouldBeNil)
	test.That(t, params.Fx, test.ShouldEqual, params.Fy)
	test.That(t, params.Ppx, test.ShouldEqual, 320.0)
	test.That(t, params.VerticalFOVDegrees(), test.ShouldAlmostEqual, 60, 1e-9)

	_, err = IntrinsicsFromFOV(640, 480, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = IntrinsicsFromFOV(0, 480, 60)
	test.That(t, err, test.ShouldNotBeNil)
}
