package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeSequentialCloud(n int) *PointCloud {
	cloud := New()
	for i := 0; i < n; i++ {
		cloud.Append(Point{
			Position:   r3.Vector{X: float64(i), Y: 0, Z: 1},
			Color:      color.NRGBA{R: uint8(i), A: 255},
			ViewIndex:  0,
			PixelIndex: i,
			Confidence: 1,
		})
	}
	return cloud
}

func TestPointCloudBasic(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Size(), test.ShouldEqual, 0)

	p := Point{Position: r3.Vector{X: 1, Y: -2, Z: 3}, Color: color.NRGBA{R: 9, A: 255}}
	cloud.Append(p)
	test.That(t, cloud.Size(), test.ShouldEqual, 1)
	test.That(t, cloud.At(0), test.ShouldResemble, p)

	meta := cloud.MetaData()
	test.That(t, meta.HasColor, test.ShouldBeTrue)
	test.That(t, meta.MinX, test.ShouldEqual, 1.0)
	test.That(t, meta.MaxY, test.ShouldEqual, -2.0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 3.0)
}

func TestIterateStopsEarly(t *testing.T) {
	cloud := makeSequentialCloud(10)
	count := 0
	cloud.Iterate(func(i int, p Point) bool {
		count++
		return count < 4
	})
	test.That(t, count, test.ShouldEqual, 4)
}

func TestSubsampleStride(t *testing.T) {
	cloud := makeSequentialCloud(10)

	down, err := cloud.Subsample(4)
	test.That(t, err, test.ShouldBeNil)
	// stride = ceil(10/4) = 3 -> indices 0, 3, 6, 9.
	test.That(t, down.Size(), test.ShouldEqual, 4)
	for i, want := range []int{0, 3, 6, 9} {
		test.That(t, down.At(i).PixelIndex, test.ShouldEqual, want)
	}

	// A cloud already under the cap is returned as-is.
	same, err := cloud.Subsample(100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, cloud)

	_, err = cloud.Subsample(0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSubsampleDeterminism(t *testing.T) {
	a, err := makeSequentialCloud(997).Subsample(100)
	test.That(t, err, test.ShouldBeNil)
	b, err := makeSequentialCloud(997).Subsample(100)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, a.Size(), test.ShouldEqual, b.Size())
	for i := 0; i < a.Size(); i++ {
		test.That(t, a.At(i), test.ShouldResemble, b.At(i))
	}
}
