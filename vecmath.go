package nbody

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// Norm returns the Euclidean norm of a 3-vector.
func Norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Unit returns the unit vector of a, or the zero vector if a is (numerically) zero.
func Unit(a []float64) (b []float64) {
	n := Norm(a)
	if floats.EqualWithinAbs(n, 0, 1e-12) {
		return make([]float64, len(a))
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// Sign returns the sign of v, treating values within 1e-12 of zero as positive.
func Sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	return mat64.Dot(mat64.NewVector(len(a), a), mat64.NewVector(len(b), b))
}

// Cross returns the 3-vector cross product a x b.
func Cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Sub returns a-b component-wise.
func Sub(a, b []float64) []float64 {
	c := make([]float64, len(a))
	for i := range a {
		c[i] = a[i] - b[i]
	}
	return c
}

// Add returns a+b component-wise.
func Add(a, b []float64) []float64 {
	c := make([]float64, len(a))
	for i := range a {
		c[i] = a[i] + b[i]
	}
	return c
}

// Scale returns s*a component-wise.
func Scale(s float64, a []float64) []float64 {
	c := make([]float64, len(a))
	for i := range a {
		c[i] = s * a[i]
	}
	return c
}

// AnyNonFinite reports whether any component of v is NaN or +/-Inf.
func AnyNonFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

// DenseIdentity returns an n x n identity matrix.
func DenseIdentity(n int) *mat64.Dense {
	return ScaledDenseIdentity(n, 1)
}

// ScaledDenseIdentity returns s times the n x n identity matrix.
func ScaledDenseIdentity(n int, s float64) *mat64.Dense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j++ {
		if j%(n+1) == 0 {
			vals[j] = s
		}
	}
	return mat64.NewDense(n, n, vals)
}

// outer3x3 sets dst to the outer product s*(v vT) of a 3-vector v scaled by s.
func outer3x3(dst *mat64.Dense, v []float64, s float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, s*v[i]*v[j])
		}
	}
}

// addOuter3x3 adds scale*(a bT) to dst, a general 3x3 outer-product
// accumulation used by the relativity and radial-acceleration Jacobians.
func addOuter3x3(dst *mat64.Dense, a, b []float64, scale float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, dst.At(i, j)+scale*a[i]*b[j])
		}
	}
}

// addDiag3x3 adds scale to each diagonal entry of dst.
func addDiag3x3(dst *mat64.Dense, scale float64) {
	for i := 0; i < 3; i++ {
		dst.Set(i, i, dst.At(i, i)+scale)
	}
}

// addInverseCubeJacobian adds to dst (a 3x3 block) the Jacobian of the
// Newtonian acceleration term mu*(3 r rT/|r|^5 - I/|r|^3) with respect to r,
// scaled by the given factor. This is the common block shape that recurs for
// the central body, each perturber, and each additional perturber.
func addInverseCubeJacobian(dst *mat64.Dense, r []float64, mu, factor float64) {
	r3 := math.Pow(Norm(r), 3)
	r5 := math.Pow(Norm(r), 5)
	var outer mat64.Dense
	outer.Clone(mat64.NewDense(3, 3, nil))
	outer3x3(&outer, r, 3*mu*factor/r5)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := outer.At(i, j)
			if i == j {
				v -= mu * factor / r3
			}
			dst.Set(i, j, dst.At(i, j)+v)
		}
	}
}
