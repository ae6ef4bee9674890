package cross_decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// simplsSolver works on the original preprocessed data X₀ and the cross-product
// S = X₀ᵀY₀. Each component projects S off the span of the previous loadings,
// so X₀ itself is never deflated. Weights are expressed against X₀; because
// they are orthogonal to earlier loadings, X_res r = X₀ r.
//
// A simplsSolver holds state across components and must not be reused between fits.
type simplsSolver struct {
	x0    *mat.Dense
	cross *mat.Dense
	basis []*mat.VecDense

	xNorm float64
	yNorm float64
}

func (s *simplsSolver) name() Method { return SIMPLS }

func (s *simplsSolver) extract(x []*mat.Dense, y *mat.Dense, component int) (extraction, error) {
	const op = "MBPLS.SIMPLS"

	if s.x0 == nil {
		s.x0 = concatBlocks(x)
		s.cross = crossProduct(x, y)
		s.xNorm = mat.Norm(s.x0, 2)
		s.yNorm = mat.Norm(y, 2)
	}

	r, c, sigma, err := leadingSingularPair(op, s.cross, component)
	if err != nil {
		return extraction{}, err
	}
	if vanished(sigma, s.xNorm, s.yNorm) {
		return extraction{}, errors.NewBlockNumericalError(op, "projected cross-product vanished", -1, component)
	}

	n, p := s.x0.Dims()
	t := mat.NewVecDense(n, nil)
	t.MulVec(s.x0, r)
	tt := mat.Dot(t, t)
	if tt == 0 {
		return extraction{}, errors.NewBlockNumericalError(op, "superscore vanished", -1, component)
	}

	v := mat.NewVecDense(p, nil)
	v.MulVec(s.x0.T(), t)
	v.ScaleVec(1/tt, v)
	loadingNorm := v.Norm(2)

	// Gram-Schmidt twice against the previous basis
	for pass := 0; pass < 2; pass++ {
		for _, vj := range s.basis {
			v.AddScaledVec(v, -mat.Dot(vj, v), vj)
		}
	}
	vNorm := v.Norm(2)
	if vNorm <= crossTol*loadingNorm {
		return extraction{}, errors.NewBlockNumericalError(op, "loading lies in the span of previous loadings", -1, component)
	}
	v.ScaleVec(1/vNorm, v)
	s.basis = append(s.basis, v)

	// S ← S − v(vᵀS)
	_, q := s.cross.Dims()
	vs := mat.NewVecDense(q, nil)
	vs.MulVec(s.cross.T(), v)
	var proj mat.Dense
	proj.Outer(1, v, vs)
	s.cross.Sub(s.cross, &proj)

	return extraction{w: r, c: c, iterations: 1}, nil
}
