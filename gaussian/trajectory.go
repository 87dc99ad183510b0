package gaussian

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/depthfuse/depthfuse/scene"
	"github.com/depthfuse/depthfuse/spatialmath"
)

// TrajectoryMode names a camera path generator.
type TrajectoryMode int

const (
	// TrajectoryOrbit circles the scene centroid at a radius and height
	// derived from the input camera extent.
	TrajectoryOrbit TrajectoryMode = iota
	// TrajectorySmooth interpolates a spline through the input camera
	// centers, slerping between the input orientations.
	TrajectorySmooth
)

// String implements fmt.Stringer.
func (m TrajectoryMode) String() string {
	switch m {
	case TrajectoryOrbit:
		return "orbit"
	case TrajectorySmooth:
		return "smooth-interpolation"
	default:
		return "invalid"
	}
}

// CheckValid returns an error for out-of-range modes.
func (m TrajectoryMode) CheckValid() error {
	if m < TrajectoryOrbit || m > TrajectorySmooth {
		return errors.Errorf("invalid trajectory mode %d", int(m))
	}
	return nil
}

// Trajectory is a lazy, finite, restartable sequence of camera poses for
// novel-view rendering. Poses are computed on demand; the sequence can be
// replayed with Reset.
type Trajectory struct {
	frames int
	next   int
	at     func(i int) *spatialmath.Pose
}

// Len returns the number of frames in the sequence.
func (tr *Trajectory) Len() int {
	return tr.frames
}

// Next returns the next pose, or false when the sequence is exhausted.
func (tr *Trajectory) Next() (*spatialmath.Pose, bool) {
	if tr.next >= tr.frames {
		return nil, false
	}
	pose := tr.at(tr.next)
	tr.next++
	return pose, true
}

// Reset restarts the sequence from the first frame.
func (tr *Trajectory) Reset() {
	tr.next = 0
}

// At returns the i-th pose of the sequence without advancing it.
func (tr *Trajectory) At(i int) *spatialmath.Pose {
	return tr.at(i)
}

// NewTrajectory builds a camera path over the prediction's reconstructed
// scene.
func NewTrajectory(mode TrajectoryMode, pred *scene.Prediction, frames int) (*Trajectory, error) {
	if err := mode.CheckValid(); err != nil {
		return nil, err
	}
	if pred == nil || len(pred.Views) == 0 {
		return nil, errors.New("cannot build a trajectory over an empty prediction")
	}
	if frames <= 0 {
		return nil, errors.Errorf("trajectory frame count must be positive, got %d", frames)
	}
	switch mode {
	case TrajectoryOrbit:
		return newOrbitTrajectory(pred, frames), nil
	default:
		return newSmoothTrajectory(pred, frames)
	}
}

func newOrbitTrajectory(pred *scene.Prediction, frames int) *Trajectory {
	centers := pred.CameraCenters()
	centroid := r3.Vector{}
	for _, c := range centers {
		centroid = centroid.Add(c)
	}
	centroid = centroid.Mul(1. / float64(len(centers)))

	radius := 0.
	for _, c := range centers {
		if d := c.Sub(centroid).Norm(); d > radius {
			radius = d
		}
	}
	// Back off far enough to keep the scene in frame for typical FOVs.
	radius *= 1.5
	if radius == 0 {
		radius = 1
	}

	return &Trajectory{
		frames: frames,
		at: func(i int) *spatialmath.Pose {
			theta := 2 * math.Pi * float64(i) / float64(frames)
			eye := r3.Vector{
				X: centroid.X + radius*math.Cos(theta),
				Y: centroid.Y,
				Z: centroid.Z + radius*math.Sin(theta),
			}
			return lookAtPose(eye, centroid)
		},
	}
}

func newSmoothTrajectory(pred *scene.Prediction, frames int) (*Trajectory, error) {
	n := len(pred.Views)
	if n < 2 {
		return nil, errors.New("smooth interpolation requires at least two input cameras")
	}

	centers := pred.CameraCenters()
	xs := make([]float64, n)
	ys := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	quats := make([]mgl64.Quat, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i)
		ys[0][i] = centers[i].X
		ys[1][i] = centers[i].Y
		ys[2][i] = centers[i].Z
		q := pred.Views[i].Pose.Quaternion()
		quats[i] = mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
	}

	var splines [3]interp.FittablePredictor
	for axis := 0; axis < 3; axis++ {
		if n >= 3 {
			splines[axis] = &interp.AkimaSpline{}
		} else {
			splines[axis] = &interp.PiecewiseLinear{}
		}
		if err := splines[axis].Fit(xs, ys[axis]); err != nil {
			return nil, errors.Wrap(err, "fitting camera center spline")
		}
	}

	return &Trajectory{
		frames: frames,
		at: func(i int) *spatialmath.Pose {
			t := 0.
			if frames > 1 {
				t = float64(n-1) * float64(i) / float64(frames-1)
			}
			center := r3.Vector{
				X: splines[0].Predict(t),
				Y: splines[1].Predict(t),
				Z: splines[2].Predict(t),
			}

			j := int(math.Floor(t))
			if j >= n-1 {
				j = n - 2
			}
			frac := t - float64(j)
			qa, qb := quats[j], quats[j+1]
			// Slerp along the shorter arc.
			if qa.Dot(qb) < 0 {
				qb = qb.Scale(-1)
			}
			q := mgl64.QuatSlerp(qa, qb, frac)

			gq := quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
			rotOnly := spatialmath.NewPoseFromQuat(gq, r3.Vector{})
			// world-to-camera translation from the interpolated center.
			return spatialmath.NewPoseFromQuat(gq, rotOnly.TransformPoint(center).Mul(-1))
		},
	}, nil
}

// lookAtPose builds a world-to-camera pose at eye looking toward target, with
// the camera's +z forward and +y pointing down-world, the convention the
// unprojection ray ((u-cx)/fx, (v-cy)/fy, 1) assumes.
func lookAtPose(eye, target r3.Vector) *spatialmath.Pose {
	z := target.Sub(eye).Normalize()
	up := r3.Vector{Y: 1}
	x := z.Cross(up)
	if x.Norm() < 1e-9 {
		x = r3.Vector{X: 1}
	}
	x = x.Normalize()
	y := z.Cross(x)

	rot := mat.NewDense(3, 3, []float64{
		x.X, x.Y, x.Z,
		y.X, y.Y, y.Z,
		z.X, z.Y, z.Z,
	})
	rotOnly, err := spatialmath.NewPose(rot, r3.Vector{})
	if err != nil {
		// x, y, z are orthonormal by construction.
		panic(err)
	}
	pose, _ := spatialmath.NewPose(rot, rotOnly.TransformPoint(eye).Mul(-1))
	return pose
}
