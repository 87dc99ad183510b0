package pointcloud

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/scene"
	"github.com/depthfuse/depthfuse/utils"
)

// ErrConfig is returned for invalid assembler parameters. Configuration
// errors fail fast, before any per-view work starts.
var ErrConfig = errors.New("invalid assembler configuration")

// Unbounded disables the point cap.
const Unbounded = math.MaxInt

// AssembleOptions configures point cloud assembly.
type AssembleOptions struct {
	// ConfThreshold drops pixels whose confidence falls below it.
	ConfThreshold float64 `json:"conf_threshold"`
	// NumMaxPoints caps the output size via deterministic uniform
	// subsampling. Use Unbounded for no cap; zero and negative are invalid.
	NumMaxPoints int `json:"num_max_points"`
}

// CheckValid validates the options.
func (opts AssembleOptions) CheckValid() error {
	if opts.ConfThreshold < 0 || opts.ConfThreshold > 1 {
		return errors.Wrapf(ErrConfig, "confidence threshold %f outside [0,1]", opts.ConfThreshold)
	}
	if opts.NumMaxPoints <= 0 {
		return errors.Wrapf(ErrConfig, "num_max_points must be positive, got %d", opts.NumMaxPoints)
	}
	return nil
}

// Assemble unprojects every confident, valid-depth pixel of the prediction
// into world space. Views are processed on parallel workers writing disjoint
// per-view partitions that are concatenated in view order, so the output is
// deterministic regardless of worker count. A view whose intrinsics fail
// validation is dropped with a warning; partial reconstructions remain
// useful. A prediction whose every pixel fails the threshold yields a valid
// empty cloud.
func Assemble(ctx context.Context, pred *scene.Prediction, opts AssembleOptions, logger golog.Logger) (*PointCloud, error) {
	if err := opts.CheckValid(); err != nil {
		return nil, err
	}
	if pred == nil || len(pred.Views) == 0 {
		return nil, errors.New("cannot assemble an empty prediction")
	}

	parts := make([][]Point, len(pred.Views))
	if err := utils.GroupWorkParallel(
		ctx,
		len(pred.Views),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				parts[workNum] = assembleView(pred.Views[workNum], workNum, opts.ConfThreshold, logger)
			}, nil
		},
	); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	cloud := NewWithPrealloc(total)
	for _, part := range parts {
		for _, p := range part {
			cloud.Append(p)
		}
	}
	if cloud.Size() > opts.NumMaxPoints {
		return cloud.Subsample(opts.NumMaxPoints)
	}
	return cloud, nil
}

// assembleView emits the world-space points of one view in pixel order.
func assembleView(view *scene.View, viewIndex int, confThreshold float64, logger golog.Logger) []Point {
	if err := view.CheckValid(); err != nil {
		logger.Warnf("dropping view %d from assembly: %s", viewIndex, err)
		return nil
	}
	width, height := view.Intrinsics.Width, view.Intrinsics.Height
	pts := make([]Point, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			conf := view.Conf.Get(x, y)
			depth := view.Depth.GetDepth(x, y)
			if conf < confThreshold || depth <= 0 {
				continue
			}
			cam := view.Intrinsics.PixelToPoint(float64(x), float64(y), depth)
			pts = append(pts, Point{
				Position:   view.Pose.InverseTransformPoint(cam),
				Color:      view.Image.GetXY(x, y),
				ViewIndex:  viewIndex,
				PixelIndex: y*width + x,
				Confidence: conf,
			})
		}
	}
	return pts
}
