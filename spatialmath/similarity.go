package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrAlignment is returned when a similarity solve has insufficient or
// degenerate correspondences. Callers are expected to fall back to the
// identity transform and flag the result as unaligned rather than abort.
var ErrAlignment = errors.New("degenerate correspondences for similarity alignment")

// minAlignmentPoints is the smallest correspondence set that determines a
// similarity transform.
const minAlignmentPoints = 3

// SimilarityTransform maps one coordinate frame onto another with a proper
// rotation, a uniform positive scale, and a translation:
// x' = Scale * Rotation * x + Translation.
type SimilarityTransform struct {
	Rotation    *mat.Dense
	Scale       float64
	Translation r3.Vector
}

// NewSimilarityTransform validates and returns a similarity transform.
func NewSimilarityTransform(rot *mat.Dense, scale float64, trans r3.Vector) (*SimilarityTransform, error) {
	st := &SimilarityTransform{Rotation: mat.DenseCopyOf(rot), Scale: scale, Translation: trans}
	if err := st.CheckValid(); err != nil {
		return nil, err
	}
	return st, nil
}

// IdentitySimilarity returns the identity similarity transform.
func IdentitySimilarity() *SimilarityTransform {
	return &SimilarityTransform{
		Rotation: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		Scale:    1,
	}
}

// CheckValid returns an error unless the rotation is proper and the scale is
// strictly positive.
func (st *SimilarityTransform) CheckValid() error {
	if err := CheckRotationMatrix(st.Rotation); err != nil {
		return errors.Wrap(err, "invalid similarity transform")
	}
	if !(st.Scale > 0) || math.IsInf(st.Scale, 0) || math.IsNaN(st.Scale) {
		return errors.Errorf("similarity transform scale must be positive, got %f", st.Scale)
	}
	return nil
}

// ApplyPoint maps a world point through the transform.
func (st *SimilarityTransform) ApplyPoint(p r3.Vector) r3.Vector {
	r := st.Rotation
	return r3.Vector{
		X: st.Scale*(r.At(0, 0)*p.X+r.At(0, 1)*p.Y+r.At(0, 2)*p.Z) + st.Translation.X,
		Y: st.Scale*(r.At(1, 0)*p.X+r.At(1, 1)*p.Y+r.At(1, 2)*p.Z) + st.Translation.Y,
		Z: st.Scale*(r.At(2, 0)*p.X+r.At(2, 1)*p.Y+r.At(2, 2)*p.Z) + st.Translation.Z,
	}
}

// ApplyPose re-expresses a world-to-camera pose in the transformed world
// frame. Camera centers move as ApplyPoint moves points; the camera-frame
// units pick up the transform's scale, so depth values sampled along rays must
// be multiplied by Scale alongside this call.
func (st *SimilarityTransform) ApplyPose(p *Pose) *Pose {
	// Rc' = Rc * R^T, tc' = s*tc - Rc' * t
	var rot mat.Dense
	rot.Mul(p.rot, st.Rotation.T())
	out := &Pose{rot: &rot}
	rt := out.rotApply(st.Translation)
	out.trans = r3.Vector{
		X: st.Scale*p.trans.X - rt.X,
		Y: st.Scale*p.trans.Y - rt.Y,
		Z: st.Scale*p.trans.Z - rt.Z,
	}
	return out
}

// Compose returns the transform equivalent to applying inner first and then
// outer (outer ∘ inner).
func Compose(outer, inner *SimilarityTransform) *SimilarityTransform {
	var rot mat.Dense
	rot.Mul(outer.Rotation, inner.Rotation)
	return &SimilarityTransform{
		Rotation:    &rot,
		Scale:       outer.Scale * inner.Scale,
		Translation: outer.ApplyPoint(inner.Translation),
	}
}

// Invert returns the inverse similarity transform.
func (st *SimilarityTransform) Invert() *SimilarityTransform {
	var rot mat.Dense
	rot.CloneFrom(st.Rotation.T())
	inv := &SimilarityTransform{Rotation: &rot, Scale: 1. / st.Scale}
	inv.Translation = inv.ApplyPoint(st.Translation).Mul(-1)
	return inv
}

// AlignUmeyama computes the least-squares similarity transform mapping the
// src points onto the dst points (Umeyama's closed-form solution). It returns
// ErrAlignment when fewer than three correspondences are given or the point
// configuration does not determine a rotation (coincident or collinear sets).
func AlignUmeyama(src, dst []r3.Vector) (*SimilarityTransform, error) {
	return alignUmeyama(src, dst, false)
}

// AlignUmeyamaFixedScale is the fixed-scale variant used for known-pose
// conditioning: the solved transform is rigid, with scale clamped to 1.
func AlignUmeyamaFixedScale(src, dst []r3.Vector) (*SimilarityTransform, error) {
	return alignUmeyama(src, dst, true)
}

func alignUmeyama(src, dst []r3.Vector, fixedScale bool) (*SimilarityTransform, error) {
	if len(src) != len(dst) {
		return nil, errors.Wrapf(ErrAlignment, "correspondence count mismatch %d != %d", len(src), len(dst))
	}
	n := len(src)
	if n < minAlignmentPoints {
		return nil, errors.Wrapf(ErrAlignment, "need at least %d correspondences, got %d", minAlignmentPoints, n)
	}

	srcMean := centroid(src)
	dstMean := centroid(dst)

	// Cross-covariance of the centered sets and the source variance.
	cov := mat.NewDense(3, 3, nil)
	srcVar := 0.
	for i := 0; i < n; i++ {
		s := src[i].Sub(srcMean)
		d := dst[i].Sub(dstMean)
		sv := []float64{s.X, s.Y, s.Z}
		dv := []float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				cov.Set(r, c, cov.At(r, c)+dv[r]*sv[c]/float64(n))
			}
		}
		srcVar += s.Norm2() / float64(n)
	}
	if srcVar < 1e-12 {
		return nil, errors.Wrap(ErrAlignment, "source points are coincident")
	}

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, errors.Wrap(ErrAlignment, "failed to factorize cross-covariance")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	// A collinear configuration leaves rotation about the line free.
	if sv[0] < 1e-12 || sv[1] < 1e-9*sv[0] {
		return nil, errors.Wrap(ErrAlignment, "point configuration is rank deficient")
	}

	// Correct a reflection by flipping the smallest singular vector so the
	// result is a proper rotation, never a mirror.
	sign := 1.
	if mat.Det(&u)*mat.Det(&v) < 0 {
		sign = -1.
	}
	s := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, sign})

	var rot, us mat.Dense
	us.Mul(&u, s)
	rot.Mul(&us, v.T())

	scale := 1.
	if !fixedScale {
		scale = (sv[0] + sv[1] + sign*sv[2]) / srcVar
		if !(scale > 0) {
			return nil, errors.Wrapf(ErrAlignment, "solved non-positive scale %f", scale)
		}
	}

	st := &SimilarityTransform{Rotation: &rot, Scale: scale}
	st.Translation = dstMean.Sub(st.ApplyPoint(srcMean))
	if err := st.CheckValid(); err != nil {
		return nil, errors.Wrap(ErrAlignment, err.Error())
	}
	return st, nil
}

func centroid(pts []r3.Vector) r3.Vector {
	var c r3.Vector
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1. / float64(len(pts)))
}
