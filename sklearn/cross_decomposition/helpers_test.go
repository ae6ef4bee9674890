package cross_decomposition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomBlock fills an n × p block with standard normal draws.
func randomBlock(rng *rand.Rand, n, p int) *mat.Dense {
	data := make([]float64, n*p)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(n, p, data)
}

// synthetic returns three X blocks and a response with nTargets columns that
// depends on all blocks plus a little noise.
func synthetic(seed int64, n, nTargets int) ([]mat.Matrix, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	x1 := randomBlock(rng, n, 4)
	x2 := randomBlock(rng, n, 3)
	x3 := randomBlock(rng, n, 2)

	y := mat.NewDense(n, nTargets, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < nTargets; k++ {
			v := 2*x1.At(i, 0) - x1.At(i, 2) + 0.5*x2.At(i, 1) + 1.5*x3.At(i, k%2)
			v += float64(k+1) * 0.3 * x2.At(i, 0)
			v += 0.1 * rng.NormFloat64()
			y.Set(i, k, v)
		}
	}
	return []mat.Matrix{x1, x2, x3}, y
}

// orthogonalBlock returns an n × p random block whose columns are orthogonal
// to the centered single-column response y, so it carries no covariance.
func orthogonalBlock(y *mat.Dense, seed int64, p int) *mat.Dense {
	n, _ := y.Dims()
	yc := mat.VecDenseCopyOf(y.ColView(0))
	mean := mat.Sum(yc) / float64(n)
	for i := 0; i < n; i++ {
		yc.SetVec(i, yc.AtVec(i)-mean)
	}
	rng := rand.New(rand.NewSource(seed))
	orth := randomBlock(rng, n, p)
	for j := 0; j < p; j++ {
		col := mat.VecDenseCopyOf(orth.ColView(j))
		col.AddScaledVec(col, -mat.Dot(col, yc)/mat.Dot(yc, yc), yc)
		orth.SetCol(j, col.RawVector().Data)
	}
	return orth
}

// fitModel builds and fits an MBPLS, failing the test on error.
func fitModel(t *testing.T, X []mat.Matrix, Y mat.Matrix, opts ...Option) *MBPLS {
	t.Helper()
	pls, err := NewMBPLS(opts...)
	require.NoError(t, err)
	require.NoError(t, pls.Fit(X, Y))
	return pls
}

// assertColumnsEqualUpToSign compares matrices column by column allowing each
// column to be flipped.
func assertColumnsEqualUpToSign(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	r, c := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, r, gr)
	require.Equal(t, c, gc)

	for j := 0; j < c; j++ {
		var dot float64
		for i := 0; i < r; i++ {
			dot += want.At(i, j) * got.At(i, j)
		}
		sign := 1.0
		if dot < 0 {
			sign = -1.0
		}
		for i := 0; i < r; i++ {
			if d := math.Abs(want.At(i, j) - sign*got.At(i, j)); d > tol {
				t.Fatalf("column %d row %d: want %v, got %v (diff %g)", j, i, want.At(i, j), sign*got.At(i, j), d)
			}
		}
	}
}

// hstack joins blocks into a single block.
func hstack(blocks []mat.Matrix) *mat.Dense {
	dense := make([]*mat.Dense, len(blocks))
	for b, x := range blocks {
		dense[b] = mat.DenseCopyOf(x)
	}
	return concatBlocks(dense)
}
