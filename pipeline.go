package depthfuse

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/export"
	"github.com/depthfuse/depthfuse/fuse"
	"github.com/depthfuse/depthfuse/gaussian"
	"github.com/depthfuse/depthfuse/pointcloud"
	"github.com/depthfuse/depthfuse/scene"
)

// Result is everything one reconstruction run produced.
type Result struct {
	// Prediction is the fused prediction, mutated in place from the input.
	Prediction *scene.Prediction
	// Cloud is the assembled world-space point cloud.
	Cloud *pointcloud.PointCloud
	// Artifacts are the serialized outputs, one per configured format.
	Artifacts []export.Artifact
	// Splats and Trajectory are set only when cfg.Gaussians is enabled.
	Splats     gaussian.Set
	Trajectory *gaussian.Trajectory
}

// Reconstruct runs the full pipeline: fuse the relative prediction against
// whatever references are available, assemble the point cloud, serialize the
// configured formats, and optionally initialize Gaussian splats with a render
// trajectory. Configuration problems and empty inputs fail before any work
// starts; per-view data problems degrade with warnings instead.
func Reconstruct(ctx context.Context, in Inputs, cfg Config, logger golog.Logger) (*Result, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	if in.Relative == nil || len(in.Relative.Views) == 0 {
		return nil, errors.New("reconstruction requires a prediction with at least one view")
	}

	pred, err := fuse.Fuse(ctx, in.Relative, fuse.Options{
		Mode:   cfg.AlignMode,
		Metric: in.Metric,
		Known:  in.Known,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "fusing prediction")
	}
	logger.Infow("fused prediction",
		"scene", pred.SceneID, "views", len(pred.Views),
		"mode", cfg.AlignMode.String(), "units", pred.Units.String())

	cloud, err := pointcloud.Assemble(ctx, pred, cfg.assembleOptions(), logger)
	if err != nil {
		return nil, errors.Wrap(err, "assembling point cloud")
	}

	artifacts, err := export.Export(export.Input{Prediction: pred, Cloud: cloud}, cfg.Formats)
	if err != nil {
		return nil, errors.Wrap(err, "exporting scene")
	}

	res := &Result{Prediction: pred, Cloud: cloud, Artifacts: artifacts}
	if cfg.Gaussians {
		res.Splats, err = gaussian.FromPrediction(pred, cfg.ConfThreshold, logger)
		if err != nil {
			return nil, errors.Wrap(err, "initializing splats")
		}
		res.Trajectory, err = gaussian.NewTrajectory(cfg.TrajectoryMode, pred, cfg.TrajectoryFrames)
		if err != nil {
			return nil, errors.Wrap(err, "building render trajectory")
		}
	}
	return res, nil
}
