// Package spatialmath defines the spatial mathematical operations used to fuse
// multi-view depth predictions into one coordinate frame.
package spatialmath

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternions are the wire representation used by predictors; rotation
// matrices are used internally so that composition and inversion are exact
// matrix operations rather than renormalization-prone quaternion products.

// NormalizeQuat scales a quaternion to unit length.
func NormalizeQuat(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1./n, q)
}

// QuatToRotationMatrix converts a unit quaternion to a 3x3 rotation matrix.
// Non-unit input is normalized first.
func QuatToRotationMatrix(q quat.Number) *mat.Dense {
	q = NormalizeQuat(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// RotationMatrixToQuat converts a 3x3 rotation matrix to a unit quaternion
// using Shepperd's method, picking the numerically largest pivot.
func RotationMatrixToQuat(r *mat.Dense) quat.Number {
	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	tr := m00 + m11 + m22
	var q quat.Number
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1.0) * 2
		q = quat.Number{
			Real: 0.25 * s,
			Imag: (m21 - m12) / s,
			Jmag: (m02 - m20) / s,
			Kmag: (m10 - m01) / s,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1.0+m00-m11-m22) * 2
		q = quat.Number{
			Real: (m21 - m12) / s,
			Imag: 0.25 * s,
			Jmag: (m01 + m10) / s,
			Kmag: (m02 + m20) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1.0+m11-m00-m22) * 2
		q = quat.Number{
			Real: (m02 - m20) / s,
			Imag: (m01 + m10) / s,
			Jmag: 0.25 * s,
			Kmag: (m12 + m21) / s,
		}
	default:
		s := math.Sqrt(1.0+m22-m00-m11) * 2
		q = quat.Number{
			Real: (m10 - m01) / s,
			Imag: (m02 + m20) / s,
			Jmag: (m12 + m21) / s,
			Kmag: 0.25 * s,
		}
	}
	return NormalizeQuat(q)
}

// CheckRotationMatrix returns an error unless r is 3x3 and proper (orthonormal
// with determinant +1 within tolerance).
func CheckRotationMatrix(r *mat.Dense) error {
	rows, cols := r.Dims()
	if rows != 3 || cols != 3 {
		return errors.Errorf("rotation matrix must be 3x3, got %dx%d", rows, cols)
	}
	var rtr mat.Dense
	rtr.Mul(r.T(), r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.
			if i == j {
				want = 1.
			}
			if math.Abs(rtr.At(i, j)-want) > orthonormalTol {
				return errors.New("rotation matrix is not orthonormal")
			}
		}
	}
	if d := mat.Det(r); math.Abs(d-1) > orthonormalTol {
		return errors.Errorf("rotation matrix determinant is %f, want +1", d)
	}
	return nil
}

const orthonormalTol = 1e-6
