package fuse

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/depthfuse/depthfuse/scene"
)

// Residuals returns the distance between each reference camera center and the
// corresponding view's center after alignment, in reference order. Views are
// read-only here, so the per-reference computations fan out in parallel with
// each goroutine writing its own result slot.
func Residuals(ctx context.Context, pred *scene.Prediction, refs []KnownPose) ([]float64, error) {
	results := make([]float64, len(refs))
	g, _ := errgroup.WithContext(ctx)
	for i, kp := range refs {
		i, kp := i, kp
		g.Go(func() error {
			if kp.ViewIndex < 0 || kp.ViewIndex >= len(pred.Views) {
				return errors.Errorf("reference view index %d out of range", kp.ViewIndex)
			}
			if kp.Pose == nil {
				return errors.Errorf("reference pose for view %d is nil", kp.ViewIndex)
			}
			results[i] = pred.Views[kp.ViewIndex].Pose.Center().Sub(kp.Pose.Center()).Norm()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
