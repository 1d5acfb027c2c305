// Package gaussian holds the 3D Gaussian representation and the 1D
// normal CDF/PDF helpers shared by the scan model and the carve map.
package gaussian

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian3 is a 3D normal distribution with mean Mean and covariance
// Cov. Cov must be symmetric positive semi-definite; callers that build
// it from a propagation Jacobian are responsible for that invariant.
type Gaussian3 struct {
	Mean r3.Vec
	Cov  *mat.SymDense
}

// AlignedAxis returns the principal eigenvector of g.Cov whose dot
// product with the unit vector ray has the largest magnitude, oriented so
// the dot product is positive, along with that dot product. This finds
// the "endpoint surface normal" referenced in spec §4.3.
func (g Gaussian3) AlignedAxis(ray r3.Vec) (axis r3.Vec, dot float64) {
	var eig mat.EigenSym
	ok := eig.Factorize(g.Cov, true)
	if !ok {
		// Eigendecomposition failed: fall back to the ray itself so
		// callers still get a finite, ray-aligned axis.
		return ray, 1
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	bestDot := 0.0
	var best r3.Vec
	n, _ := vectors.Dims()
	_ = n
	for col := 0; col < 3; col++ {
		v := r3.Vec{X: vectors.At(0, col), Y: vectors.At(1, col), Z: vectors.At(2, col)}
		d := r3.Dot(v, ray)
		if math.Abs(d) > math.Abs(bestDot) {
			bestDot = d
			best = v
		}
	}
	if bestDot < 0 {
		best = r3.Scale(-1, best)
		bestDot = -bestDot
	}
	return best, bestDot
}

// VarianceAlong returns r^T Cov r, the marginal variance of g along the
// unit vector r.
func (g Gaussian3) VarianceAlong(r r3.Vec) float64 {
	cv := MulVec(g.Cov, r)
	return r3.Dot(r, cv)
}

// MulVec computes Cov*v for a 3x3 symmetric matrix and a 3-vector,
// without requiring callers to round-trip through gonum's own vector
// type.
func MulVec(cov *mat.SymDense, v r3.Vec) r3.Vec {
	vec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(cov, vec)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Scale3 returns a*cov entrywise.
func Scale3(a float64, cov *mat.SymDense) *mat.SymDense {
	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, a*cov.At(i, j))
		}
	}
	return out
}

// Add3 returns a+b entrywise.
func Add3(a, b *mat.SymDense) *mat.SymDense {
	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

// NormalCDF returns the standard or general 1D Gaussian CDF Φ(x; mu, var)
// evaluated at x, via gonum's distuv.Normal.
func NormalCDF(x, mu, variance float64) float64 {
	if variance <= 0 {
		if x >= mu {
			return 1
		}
		return 0
	}
	n := distuv.Normal{Mu: mu, Sigma: math.Sqrt(variance)}
	return n.CDF(x)
}

// NormalPDF returns the 1D Gaussian PDF evaluated at x.
func NormalPDF(x, mu, variance float64) float64 {
	if variance <= 0 {
		if x == mu {
			return math.Inf(1)
		}
		return 0
	}
	n := distuv.Normal{Mu: mu, Sigma: math.Sqrt(variance)}
	return n.Prob(x)
}

// MVN3 evaluates the 3D multivariate normal PDF of g at point x.
func MVN3(g Gaussian3, x r3.Vec) float64 {
	diff := r3.Sub(x, g.Mean)
	var chol mat.Cholesky
	ok := chol.Factorize(g.Cov)
	if !ok {
		return 0
	}
	det := chol.Det()
	if det <= 0 || math.IsInf(det, 0) {
		return 0
	}
	vec := mat.NewVecDense(3, []float64{diff.X, diff.Y, diff.Z})
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, vec); err != nil {
		return 0
	}
	quad := mat.Dot(vec, &sol)
	norm := 1.0 / math.Sqrt(math.Pow(2*math.Pi, 3)*det)
	return norm * math.Exp(-0.5*quad)
}
