package cross_decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// maxCondition is the largest condition number of PᵀW accepted when solving
// for the rotations.
const maxCondition = 1e12

// stackWeights returns the concatenated X weights s_b·w_b as columns (Σp × A).
func stackWeights(comps []Component, blockSizes []int) *mat.Dense {
	total := sum(blockSizes)
	W := mat.NewDense(total, len(comps), nil)
	for k, c := range comps {
		row := 0
		for b, wb := range c.BlockWeights {
			for _, v := range wb {
				W.Set(row, k, c.Superweights[b]*v)
				row++
			}
		}
	}
	return W
}

// stackLoadings returns the concatenated X loadings as columns (Σp × A).
func stackLoadings(comps []Component, blockSizes []int) *mat.Dense {
	total := sum(blockSizes)
	P := mat.NewDense(total, len(comps), nil)
	for k, c := range comps {
		row := 0
		for _, pb := range c.BlockLoadings {
			for _, v := range pb {
				P.Set(row, k, v)
				row++
			}
		}
	}
	return P
}

// columnsOf places one vector per component into the columns of an m × A matrix.
func columnsOf(m int, comps []Component, pick func(Component) []float64) *mat.Dense {
	out := mat.NewDense(m, len(comps), nil)
	for k, c := range comps {
		out.SetCol(k, pick(c))
	}
	return out
}

// rotations computes R = W(PᵀW)⁻¹ so that X_pre R reproduces the superscores.
func rotations(comps []Component, blockSizes []int) (*mat.Dense, error) {
	W := stackWeights(comps, blockSizes)
	P := stackLoadings(comps, blockSizes)

	var ptw mat.Dense
	ptw.Mul(P.T(), W)

	// (PᵀW)ᵀ Rᵀ = Wᵀ
	var rt mat.Dense
	if err := rt.Solve(ptw.T(), W.T()); err != nil {
		cond, ok := err.(mat.Condition)
		if !ok || float64(cond) > maxCondition {
			return nil, errors.NewNumericalError("MBPLS.Fit", "PᵀW is singular")
		}
	}

	R := mat.DenseCopyOf(rt.T())
	return R, nil
}

// coefficients returns B = R Qᵀ in the preprocessed space (Σp × q).
func coefficients(R *mat.Dense, comps []Component) *mat.Dense {
	q := len(comps[0].YLoading)
	Q := columnsOf(q, comps, func(c Component) []float64 { return c.YLoading })

	var B mat.Dense
	B.Mul(R, Q.T())
	return &B
}

func sum(v []int) int {
	total := 0
	for _, x := range v {
		total += x
	}
	return total
}
