// Package gaussian turns fused depth predictions into initial Gaussian-splat
// primitives and camera trajectories for novel-view rendering. Optimizing the
// splats against the input images is the renderer's job; this package only
// supplies well-posed initial parameters and camera paths.
package gaussian

import (
	"image/color"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/scene"
)

// Splat is one isotropic Gaussian primitive.
type Splat struct {
	Position r3.Vector
	// Scale is the isotropic standard deviation, proportional to
	// depth/focal so distant splats start at roughly their projected pixel
	// footprint.
	Scale   float64
	Color   color.NRGBA
	Opacity float64
}

// Set is an ordered sequence of splats, consumed by an external renderer.
type Set []Splat

// FromPrediction initializes one splat per retained pixel: centered at the
// pixel's unprojected world position, sized by its depth and focal length,
// with opacity taken from confidence. Views that fail validation are dropped
// with a warning, matching the point cloud assembler.
func FromPrediction(pred *scene.Prediction, confThreshold float64, logger golog.Logger) (Set, error) {
	if pred == nil || len(pred.Views) == 0 {
		return nil, errors.New("cannot build splats from an empty prediction")
	}
	if confThreshold < 0 || confThreshold > 1 {
		return nil, errors.Errorf("confidence threshold %f outside [0,1]", confThreshold)
	}

	var out Set
	for i, view := range pred.Views {
		if err := view.CheckValid(); err != nil {
			logger.Warnf("dropping view %d from splat initialization: %s", i, err)
			continue
		}
		width, height := view.Intrinsics.Width, view.Intrinsics.Height
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				conf := view.Conf.Get(x, y)
				depth := view.Depth.GetDepth(x, y)
				if conf < confThreshold || depth <= 0 {
					continue
				}
				cam := view.Intrinsics.PixelToPoint(float64(x), float64(y), depth)
				out = append(out, Splat{
					Position: view.Pose.InverseTransformPoint(cam),
					Scale:    depth / view.Intrinsics.Fx,
					Color:    view.Image.GetXY(x, y),
					Opacity:  conf,
				})
			}
		}
	}
	return out, nil
}
