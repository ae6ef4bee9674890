package cross_decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// svdSolver takes the leading singular pair of the residual cross-product XᵀY.
// It is exact and deterministic.
type svdSolver struct{}

func (s *svdSolver) name() Method { return SVD }

func (s *svdSolver) extract(x []*mat.Dense, y *mat.Dense, component int) (extraction, error) {
	const op = "MBPLS.SVD"

	cross := crossProduct(x, y)
	w, c, sigma, err := leadingSingularPair(op, cross, component)
	if err != nil {
		return extraction{}, err
	}
	if vanished(sigma, blockNorms(x), mat.Norm(y, 2)) {
		return extraction{}, errors.NewBlockNumericalError(op, "cross-product XᵀY vanished", -1, component)
	}
	return extraction{w: w, c: c, iterations: 1}, nil
}
