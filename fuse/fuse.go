// Package fuse reconciles independently-scaled depth/pose estimates into one
// metrically consistent prediction.
package fuse

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/scene"
	"github.com/depthfuse/depthfuse/spatialmath"
)

// Mode selects how a relative prediction is anchored to a metric frame.
type Mode int

const (
	// ModeNone leaves the prediction in relative units.
	ModeNone Mode = iota
	// ModeKnownPose aligns the prediction onto externally supplied reference
	// poses. References are ground truth and fully determine scale.
	ModeKnownPose
	// ModePairedMetric aligns the prediction onto a paired absolute-scale
	// prediction of the same scene.
	ModePairedMetric
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeKnownPose:
		return "known-pose"
	case ModePairedMetric:
		return "paired-metric"
	default:
		return "invalid"
	}
}

// CheckValid returns an error for out-of-range modes.
func (m Mode) CheckValid() error {
	if m < ModeNone || m > ModePairedMetric {
		return errors.Errorf("invalid alignment mode %d", int(m))
	}
	return nil
}

// KnownPose pins one view of a prediction to an externally supplied
// reference pose.
type KnownPose struct {
	ViewIndex int
	Pose      *spatialmath.Pose
}

// Options configures a fusion call.
type Options struct {
	Mode Mode
	// Metric is the paired absolute-scale prediction for ModePairedMetric;
	// it must have the same view count and order as the relative prediction.
	Metric *scene.Prediction
	// Known are the reference poses for ModeKnownPose.
	Known []KnownPose
}

// PickMode returns the preferred alignment mode for the available inputs:
// known poses take precedence over a paired metric prediction.
func PickMode(known []KnownPose, metric *scene.Prediction) Mode {
	switch {
	case len(known) > 0:
		return ModeKnownPose
	case metric != nil:
		return ModePairedMetric
	default:
		return ModeNone
	}
}

// Fuse anchors the relative prediction per opts.Mode, mutating its views'
// poses and depth maps in place, and returns it. Alignment failure is never
// fatal: the prediction degrades to relative units with a logged warning.
// Only a nil or empty prediction and an invalid mode are errors.
func Fuse(ctx context.Context, rel *scene.Prediction, opts Options, logger golog.Logger) (*scene.Prediction, error) {
	if rel == nil || len(rel.Views) == 0 {
		return nil, errors.New("cannot fuse an empty prediction")
	}
	if err := opts.Mode.CheckValid(); err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeKnownPose:
		if err := alignToKnownPoses(ctx, rel, opts.Known, logger); err != nil {
			logger.Warnf("known-pose alignment failed, leaving prediction in relative units: %s", err)
			rel.Units = scene.UnitsRelative
		}
	case ModePairedMetric:
		if err := alignToPairedMetric(rel, opts.Metric); err != nil {
			logger.Warnf("paired-metric alignment failed, leaving prediction in relative units: %s", err)
			rel.Units = scene.UnitsRelative
		}
	case ModeNone:
		rel.Units = scene.UnitsRelative
	}
	return rel, nil
}

func alignToKnownPoses(ctx context.Context, rel *scene.Prediction, known []KnownPose, logger golog.Logger) error {
	src := make([]r3.Vector, 0, len(known))
	dst := make([]r3.Vector, 0, len(known))
	refs := make([]KnownPose, 0, len(known))
	for _, kp := range known {
		if kp.ViewIndex < 0 || kp.ViewIndex >= len(rel.Views) || kp.Pose == nil {
			logger.Warnf("skipping reference pose with invalid view index %d", kp.ViewIndex)
			continue
		}
		src = append(src, rel.Views[kp.ViewIndex].Pose.Center())
		dst = append(dst, kp.Pose.Center())
		refs = append(refs, kp)
	}

	// A single reference cannot feed the similarity solver but is still
	// ground truth: anchor the scene to it by translation alone, keeping the
	// predicted rotation and scale.
	var st *spatialmath.SimilarityTransform
	var err error
	switch {
	case len(src) == 1:
		st = spatialmath.IdentitySimilarity()
		st.Translation = dst[0].Sub(src[0])
	case rel.Units == scene.UnitsMetric:
		// Already-metric predictions only need re-registration.
		st, err = spatialmath.AlignUmeyamaFixedScale(src, dst)
	default:
		st, err = spatialmath.AlignUmeyama(src, dst)
	}
	if err != nil {
		return err
	}

	applySimilarity(rel, st)

	// References are ground truth: pin the conditioned views exactly.
	for _, kp := range refs {
		rel.Views[kp.ViewIndex].Pose = kp.Pose.Clone()
		rel.Views[kp.ViewIndex].Source = scene.PoseSourceKnown
	}
	rel.Units = scene.UnitsMetric

	if res, rerr := Residuals(ctx, rel, refs); rerr == nil {
		logger.Debugf("aligned %d views to %d reference poses, scale %f, max residual %f",
			len(rel.Views), len(refs), st.Scale, maxFloat(res))
	}
	return nil
}

func alignToPairedMetric(rel, metric *scene.Prediction) error {
	if metric == nil {
		return errors.New("no paired metric prediction supplied")
	}
	if len(metric.Views) != len(rel.Views) {
		return errors.Wrapf(spatialmath.ErrAlignment,
			"paired prediction has %d views, relative has %d", len(metric.Views), len(rel.Views))
	}
	st, err := spatialmath.AlignUmeyama(rel.CameraCenters(), metric.CameraCenters())
	if err != nil {
		return err
	}
	applySimilarity(rel, st)
	rel.Units = scene.UnitsMetric
	return nil
}

// applySimilarity moves every pose into the transformed world frame and
// rescales depths to match (depth scales linearly with the transform scale).
func applySimilarity(pred *scene.Prediction, st *spatialmath.SimilarityTransform) {
	for _, v := range pred.Views {
		v.Pose = st.ApplyPose(v.Pose)
		v.Depth.Scale(st.Scale)
	}
}

func maxFloat(xs []float64) float64 {
	m := 0.
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}
