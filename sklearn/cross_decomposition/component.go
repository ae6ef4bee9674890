package cross_decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

const (
	// degenerateTol is the superweight below which a block is treated as
	// having no covariance with the response.
	degenerateTol = 1e-12

	// residualTol is the residual block norm, relative to the initial
	// preprocessed norm, at which a block is considered exhausted.
	residualTol = 1e-10
)

// Component is one extracted latent component. Slices are indexed by block
// where noted; all vectors are in the preprocessed space.
type Component struct {
	// Index is the 1-based extraction order.
	Index int

	// Superscore is the consensus score t (n).
	Superscore []float64

	// BlockWeights are the unit block weights w_b, one slice per block.
	BlockWeights [][]float64

	// BlockScores are t_b = X_b w_b, one slice per block.
	BlockScores [][]float64

	// BlockLoadings are p_b = X_bᵀt / tᵀt, one slice per block.
	BlockLoadings [][]float64

	// YWeight is the unit response weight c.
	YWeight []float64

	// YLoading is q = Yᵀt / tᵀt.
	YLoading []float64

	// Superweights are ‖w[b]‖ of the concatenated weight; t = Σ s_b t_b.
	Superweights []float64

	// Importances are the squared superweights, summing to 1.
	Importances []float64

	// Iterations is the number of solver iterations (1 for SVD and SIMPLS).
	Iterations int
}

func (c Component) clone() Component {
	out := c
	out.Superscore = cloneFloats(c.Superscore)
	out.BlockWeights = cloneNested(c.BlockWeights)
	out.BlockScores = cloneNested(c.BlockScores)
	out.BlockLoadings = cloneNested(c.BlockLoadings)
	out.YWeight = cloneFloats(c.YWeight)
	out.YLoading = cloneFloats(c.YLoading)
	out.Superweights = cloneFloats(c.Superweights)
	out.Importances = cloneFloats(c.Importances)
	return out
}

func cloneFloats(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func cloneNested(v [][]float64) [][]float64 {
	out := make([][]float64, len(v))
	for i := range v {
		out[i] = cloneFloats(v[i])
	}
	return out
}

// engine holds the residuals of one fit and turns solver output into components.
type engine struct {
	x []*mat.Dense
	y *mat.Dense

	// initial sums of squares for the explained variance bookkeeping
	blockSS []float64
	totalSS float64
	ySS     float64

	// initial block norms for the exhausted-residual check
	blockNorm []float64

	warn func(block, component int)
}

func newEngine(x []*mat.Dense, y *mat.Dense, warn func(block, component int)) *engine {
	e := &engine{
		x:         make([]*mat.Dense, len(x)),
		y:         mat.DenseCopyOf(y),
		blockSS:   make([]float64, len(x)),
		blockNorm: make([]float64, len(x)),
		warn:      warn,
	}
	for b, xb := range x {
		e.x[b] = mat.DenseCopyOf(xb)
		norm := mat.Norm(xb, 2)
		e.blockNorm[b] = norm
		e.blockSS[b] = norm * norm
		e.totalSS += norm * norm
	}
	yNorm := mat.Norm(y, 2)
	e.ySS = yNorm * yNorm
	return e
}

// checkResiduals fails when a residual block has run out of variance.
func (e *engine) checkResiduals(component int) error {
	for b, xb := range e.x {
		if errors.IsNearZero(mat.Norm(xb, 2), e.blockNorm[b], residualTol) {
			return errors.NewBlockNumericalError("MBPLS.Fit", "residual block has zero variance", b, component)
		}
	}
	return nil
}

// explained carries the variance shares of one component.
type explained struct {
	x      float64
	blocks []float64
	y      float64
}

// step extracts component k with s, then deflates the residuals.
func (e *engine) step(s solver, k int) (Component, explained, error) {
	if err := e.checkResiduals(k); err != nil {
		return Component{}, explained{}, err
	}

	ex, err := s.extract(e.x, e.y, k)
	if err != nil {
		return Component{}, explained{}, err
	}
	applySignConvention(ex.w, ex.c)

	nBlocks := len(e.x)
	n, q := e.y.Dims()
	comp := Component{
		Index:         k,
		BlockWeights:  make([][]float64, nBlocks),
		BlockScores:   make([][]float64, nBlocks),
		BlockLoadings: make([][]float64, nBlocks),
		Superweights:  make([]float64, nBlocks),
		Importances:   make([]float64, nBlocks),
		YWeight:       cloneFloats(ex.c.RawVector().Data),
		Iterations:    ex.iterations,
	}

	// split w into unit block weights and superweights
	t := mat.NewVecDense(n, nil)
	offset := 0
	var sumSq float64
	for b, xb := range e.x {
		_, p := xb.Dims()
		wb := mat.VecDenseCopyOf(ex.w.SliceVec(offset, offset+p))
		offset += p

		sb := wb.Norm(2)
		if err := errors.CheckScalar("MBPLS.Fit", sb, k); err != nil {
			return Component{}, explained{}, err
		}
		tb := mat.NewVecDense(n, nil)
		if sb <= degenerateTol {
			wb.Zero()
			sb = 0
			e.warn(b, k)
		} else {
			wb.ScaleVec(1/sb, wb)
			tb.MulVec(xb, wb)
			t.AddScaledVec(t, sb, tb)
		}
		comp.BlockWeights[b] = cloneFloats(wb.RawVector().Data)
		comp.BlockScores[b] = cloneFloats(tb.RawVector().Data)
		comp.Superweights[b] = sb
		sumSq += sb * sb
	}

	tt := mat.Dot(t, t)
	if tt <= degenerateTol*degenerateTol*e.totalSS {
		return Component{}, explained{}, errors.NewBlockNumericalError("MBPLS.Fit", "superscore vanished", -1, k)
	}
	for b, sb := range comp.Superweights {
		comp.Importances[b] = sb * sb / sumSq
	}
	comp.Superscore = cloneFloats(t.RawVector().Data)

	// loadings and deflation
	share := explained{blocks: make([]float64, nBlocks)}
	var loadingSS float64
	for b, xb := range e.x {
		_, p := xb.Dims()
		pb := mat.NewVecDense(p, nil)
		pb.MulVec(xb.T(), t)
		pb.ScaleVec(1/tt, pb)
		comp.BlockLoadings[b] = cloneFloats(pb.RawVector().Data)

		ss := tt * mat.Dot(pb, pb)
		loadingSS += ss
		share.blocks[b] = ss / e.blockSS[b]

		var outer mat.Dense
		outer.Outer(1, t, pb)
		xb.Sub(xb, &outer)
	}

	qv := mat.NewVecDense(q, nil)
	qv.MulVec(e.y.T(), t)
	qv.ScaleVec(1/tt, qv)
	comp.YLoading = cloneFloats(qv.RawVector().Data)

	var outer mat.Dense
	outer.Outer(1, t, qv)
	e.y.Sub(e.y, &outer)

	share.x = loadingSS / e.totalSS
	if e.ySS > 0 {
		share.y = tt * mat.Dot(qv, qv) / e.ySS
	}
	return comp, share, nil
}

// applySignConvention flips w and c together so that the entry of w with the
// largest magnitude is positive.
func applySignConvention(w, c *mat.VecDense) {
	best, bestAbs := 0, -1.0
	for i := 0; i < w.Len(); i++ {
		v := w.AtVec(i)
		if v < 0 {
			v = -v
		}
		if v > bestAbs {
			best, bestAbs = i, v
		}
	}
	if w.AtVec(best) < 0 {
		w.ScaleVec(-1, w)
		c.ScaleVec(-1, c)
	}
}
