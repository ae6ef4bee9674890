package cross_decomposition

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// crossTol is the relative size below which a cross-product is treated as zero.
const crossTol = 1e-12

// extraction is the raw output of a solver for one component.
type extraction struct {
	// w is the unit X weight concatenated over all blocks.
	w *mat.VecDense
	// c is the unit Y weight.
	c *mat.VecDense
	// iterations is the number of inner iterations (1 for direct solvers).
	iterations int
}

// solver extracts the weights of one latent component from the current
// residual blocks and residual response.
type solver interface {
	name() Method
	extract(x []*mat.Dense, y *mat.Dense, component int) (extraction, error)
}

// newSolver returns a fresh strategy for one fit.
func newSolver(cfg config) (solver, error) {
	switch cfg.method {
	case SVD:
		return &svdSolver{}, nil
	case NIPALS:
		return &nipalsSolver{maxIter: cfg.maxIter, tol: cfg.tol}, nil
	case SIMPLS:
		return &simplsSolver{}, nil
	default:
		return nil, errors.NewConfigError("method", "must be one of SVD, NIPALS, SIMPLS", int(cfg.method))
	}
}

// concatBlocks joins blocks column-wise into one n × Σp matrix.
func concatBlocks(blocks []*mat.Dense) *mat.Dense {
	n, total := 0, 0
	for _, b := range blocks {
		var c int
		n, c = b.Dims()
		total += c
	}
	out := mat.NewDense(n, total, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, n, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}

// crossProduct returns XᵀY with the blocks of X stacked row-wise.
func crossProduct(x []*mat.Dense, y *mat.Dense) *mat.Dense {
	var s mat.Dense
	s.Mul(concatBlocks(x).T(), y)
	return &s
}

// blockNorms returns the Frobenius norm of the concatenated blocks.
func blockNorms(x []*mat.Dense) float64 {
	var ss float64
	for _, b := range x {
		n := mat.Norm(b, 2)
		ss += n * n
	}
	return math.Sqrt(ss)
}

// vanished reports whether a cross-product of size sigma is numerically zero
// for factors of norm xNorm and yNorm.
func vanished(sigma, xNorm, yNorm float64) bool {
	bound := xNorm * yNorm
	return bound == 0 || sigma <= crossTol*bound
}

// leadingSingularPair returns the leading left and right singular vectors of
// s and the leading singular value.
func leadingSingularPair(op string, s *mat.Dense, component int) (u, v *mat.VecDense, sigma float64, err error) {
	var svd mat.SVD
	if ok := svd.Factorize(s, mat.SVDThin); !ok {
		return nil, nil, 0, errors.NewBlockNumericalError(op, "SVD of the cross-product failed", -1, component)
	}

	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	values := svd.Values(nil)

	u = mat.VecDenseCopyOf(U.ColView(0))
	v = mat.VecDenseCopyOf(V.ColView(0))
	return u, v, values[0], nil
}
