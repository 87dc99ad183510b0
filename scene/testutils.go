package scene

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/depthfuse/depthfuse/camera"
	"github.com/depthfuse/depthfuse/rimage"
	"github.com/depthfuse/depthfuse/spatialmath"
)

// NewTestView builds a valid synthetic view for tests: unit focal length,
// constant depth and confidence, and a color ramp over the pixels.
func NewTestView(width, height int, depth, conf float64, pose *spatialmath.Pose) *View {
	img := rimage.NewImage(width, height)
	dm := rimage.NewEmptyDepthMap(width, height)
	cm := rimage.NewConfidenceMap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetXY(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(10 * y), B: 128, A: 255})
			dm.Set(x, y, depth)
			cm.Set(x, y, conf)
		}
	}
	return &View{
		Image: img,
		Depth: dm,
		Conf:  cm,
		Intrinsics: &camera.Intrinsics{
			Width: width, Height: height,
			Fx: 1, Fy: 1, Ppx: 0, Ppy: 0,
		},
		Pose:   pose,
		Source: PoseSourcePredicted,
	}
}

// NewTestPrediction builds a prediction of n synthetic views whose camera
// centers are spread on a non-collinear arc around the origin.
func NewTestPrediction(n, width, height int) *Prediction {
	views := make([]*View, n)
	for i := 0; i < n; i++ {
		theta := float64(i) * 0.4
		q := quat.Number{Real: math.Cos(theta / 2), Jmag: math.Sin(theta / 2)}
		center := r3.Vector{X: 2 * math.Cos(theta), Y: 0.3 * float64(i), Z: 2 * math.Sin(theta)}
		// world-to-camera translation from the desired center: t = -R*c.
		pose := spatialmath.NewPoseFromQuat(q, r3.Vector{})
		t := pose.TransformPoint(center).Mul(-1)
		views[i] = NewTestView(width, height, 1.0+0.25*float64(i), 0.9, spatialmath.NewPoseFromQuat(q, t))
	}
	pred, err := NewPrediction("test-scene", views)
	if err != nil {
		panic(err)
	}
	return pred
}
