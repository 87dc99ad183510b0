// Package depthfuse fuses multi-view neural depth predictions into metric
// point clouds, Gaussian-splat initializations, and interchange files. The
// subpackages do the work; this package wires them into one pipeline.
package depthfuse

import (
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/export"
	"github.com/depthfuse/depthfuse/fuse"
	"github.com/depthfuse/depthfuse/gaussian"
	"github.com/depthfuse/depthfuse/pointcloud"
	"github.com/depthfuse/depthfuse/scene"
)

// Config controls one reconstruction run.
type Config struct {
	// ConfThreshold drops pixels below this confidence when assembling the
	// point cloud and the splat set.
	ConfThreshold float64 `json:"conf_threshold"`
	// NumMaxPoints caps the assembled cloud; pointcloud.Unbounded disables
	// the cap.
	NumMaxPoints int `json:"num_max_points"`
	// AlignMode selects how the relative prediction is anchored; use
	// fuse.PickMode to derive it from the available references.
	AlignMode fuse.Mode `json:"align_mode"`
	// Formats lists the outputs to serialize, in order.
	Formats []export.Format `json:"formats"`
	// Gaussians enables splat initialization and trajectory generation.
	Gaussians bool `json:"gaussians"`
	// TrajectoryMode selects the camera path generator when Gaussians is set.
	TrajectoryMode gaussian.TrajectoryMode `json:"trajectory_mode"`
	// TrajectoryFrames is the camera path length when Gaussians is set.
	TrajectoryFrames int `json:"trajectory_frames"`
}

// DefaultConfig returns the settings a caller without opinions should use.
func DefaultConfig() Config {
	return Config{
		ConfThreshold:    0.5,
		NumMaxPoints:     pointcloud.Unbounded,
		Formats:          []export.Format{export.FormatPLY},
		TrajectoryMode:   gaussian.TrajectoryOrbit,
		TrajectoryFrames: 60,
	}
}

// CheckValid returns the first configuration problem found.
func (c *Config) CheckValid() error {
	opts := c.assembleOptions()
	if err := opts.CheckValid(); err != nil {
		return err
	}
	if err := c.AlignMode.CheckValid(); err != nil {
		return err
	}
	if len(c.Formats) == 0 {
		return errors.Wrap(pointcloud.ErrConfig, "no output formats configured")
	}
	for _, f := range c.Formats {
		if err := f.CheckValid(); err != nil {
			return err
		}
	}
	if c.Gaussians {
		if err := c.TrajectoryMode.CheckValid(); err != nil {
			return err
		}
		if c.TrajectoryFrames <= 0 {
			return errors.Wrapf(pointcloud.ErrConfig,
				"trajectory frame count must be positive, got %d", c.TrajectoryFrames)
		}
	}
	return nil
}

func (c *Config) assembleOptions() pointcloud.AssembleOptions {
	return pointcloud.AssembleOptions{
		ConfThreshold: c.ConfThreshold,
		NumMaxPoints:  c.NumMaxPoints,
	}
}

// Inputs carries the predictions and references a reconstruction starts from.
type Inputs struct {
	// Relative is the primary prediction, in relative units.
	Relative *scene.Prediction
	// Metric optionally pairs Relative with an absolute-scale prediction of
	// the same views.
	Metric *scene.Prediction
	// Known optionally pins views to externally measured poses.
	Known []fuse.KnownPose
}
