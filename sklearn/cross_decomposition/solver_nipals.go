package cross_decomposition

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// nipalsSolver runs the block-wise power iteration:
//
//	w_b ∝ X_bᵀu, t_b = X_b w_b, s ∝ [t_1 … t_B]ᵀu, t = Σ s_b t_b, c ∝ Yᵀt, u = Yc
//
// until the superscore t stops moving.
type nipalsSolver struct {
	maxIter int
	tol     float64
}

func (s *nipalsSolver) name() Method { return NIPALS }

func (s *nipalsSolver) extract(x []*mat.Dense, y *mat.Dense, component int) (extraction, error) {
	const op = "MBPLS.NIPALS"

	n, q := y.Dims()
	xNorm, yNorm := blockNorms(x), mat.Norm(y, 2)

	u := mat.NewVecDense(n, nil)
	u.CopyVec(y.ColView(largestColumn(y)))

	nBlocks := len(x)
	blockW := make([]*mat.VecDense, nBlocks)
	blockT := make([]*mat.VecDense, nBlocks)
	super := mat.NewVecDense(nBlocks, nil)
	t := mat.NewVecDense(n, nil)
	tOld := mat.NewVecDense(n, nil)
	c := mat.NewVecDense(q, nil)
	var diff mat.VecDense

	change := 1.0
	for it := 1; it <= s.maxIter; it++ {
		// block weights and block scores from the current u
		var covNorm float64
		for b, xb := range x {
			_, p := xb.Dims()
			wb := mat.NewVecDense(p, nil)
			wb.MulVec(xb.T(), u)
			norm := wb.Norm(2)
			covNorm += norm * norm

			tb := mat.NewVecDense(n, nil)
			if norm > 0 {
				wb.ScaleVec(1/norm, wb)
				tb.MulVec(xb, wb)
			}
			blockW[b], blockT[b] = wb, tb
			super.SetVec(b, mat.Dot(tb, u))
		}
		if vanished(math.Sqrt(covNorm), xNorm, u.Norm(2)) {
			return extraction{}, errors.NewBlockNumericalError(op, "cross-product Xᵀu vanished", -1, component)
		}

		// superweights and superscore
		super.ScaleVec(1/super.Norm(2), super)
		t.Zero()
		for b := range x {
			t.AddScaledVec(t, super.AtVec(b), blockT[b])
		}
		tNorm := t.Norm(2)
		if tNorm == 0 {
			return extraction{}, errors.NewBlockNumericalError(op, "superscore vanished", -1, component)
		}

		// response weight and response score
		c.MulVec(y.T(), t)
		cNorm := c.Norm(2)
		if vanished(cNorm, tNorm, yNorm) {
			return extraction{}, errors.NewBlockNumericalError(op, "cross-product Yᵀt vanished", -1, component)
		}
		c.ScaleVec(1/cNorm, c)
		u.MulVec(y, c)

		diff.SubVec(t, tOld)
		change = diff.Norm(2) / tNorm
		if err := errors.CheckScalar(op, change, component); err != nil {
			return extraction{}, err
		}
		tOld.CopyVec(t)

		if change <= s.tol {
			return extraction{w: joinBlockWeights(blockW, super), c: mat.VecDenseCopyOf(c), iterations: it}, nil
		}
	}

	return extraction{}, errors.NewConvergenceError("NIPALS", component, s.maxIter, s.tol, change)
}

// largestColumn returns the index of the column of m with the largest sum of squares.
func largestColumn(m *mat.Dense) int {
	_, q := m.Dims()
	best, bestSS := 0, -1.0
	for j := 0; j < q; j++ {
		col := m.ColView(j)
		ss := mat.Dot(col, col)
		if ss > bestSS {
			best, bestSS = j, ss
		}
	}
	return best
}

// joinBlockWeights concatenates s_b·w_b over all blocks.
func joinBlockWeights(blockW []*mat.VecDense, super *mat.VecDense) *mat.VecDense {
	total := 0
	for _, wb := range blockW {
		total += wb.Len()
	}
	w := mat.NewVecDense(total, nil)
	offset := 0
	for b, wb := range blockW {
		for i := 0; i < wb.Len(); i++ {
			w.SetVec(offset+i, super.AtVec(b)*wb.AtVec(i))
		}
		offset += wb.Len()
	}
	return w
}
