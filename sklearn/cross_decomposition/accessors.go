package cross_decomposition

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// fittedState returns the committed fit or a NotFittedError naming method.
func (m *MBPLS) fittedState(method string) (*fitState, error) {
	if err := m.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	return m.fitted, nil
}

func (fs *fitState) checkBlock(op string, b int) error {
	if b < 0 || b >= len(fs.blockSizes) {
		return errors.NewValueError(op, fmt.Sprintf("block index %d out of range [0, %d)", b, len(fs.blockSizes)))
	}
	return nil
}

// Superscores returns the consensus scores T (n × A).
func (m *MBPLS) Superscores() (*mat.Dense, error) {
	fs, err := m.fittedState("Superscores")
	if err != nil {
		return nil, err
	}
	return columnsOf(fs.nSamples, fs.components, func(c Component) []float64 { return c.Superscore }), nil
}

// BlockScores returns the block scores t_b of block b (n × A).
func (m *MBPLS) BlockScores(b int) (*mat.Dense, error) {
	fs, err := m.fittedState("BlockScores")
	if err != nil {
		return nil, err
	}
	if err := fs.checkBlock("MBPLS.BlockScores", b); err != nil {
		return nil, err
	}
	return columnsOf(fs.nSamples, fs.components, func(c Component) []float64 { return c.BlockScores[b] }), nil
}

// BlockWeights returns the unit block weights w_b of block b (p_b × A).
func (m *MBPLS) BlockWeights(b int) (*mat.Dense, error) {
	fs, err := m.fittedState("BlockWeights")
	if err != nil {
		return nil, err
	}
	if err := fs.checkBlock("MBPLS.BlockWeights", b); err != nil {
		return nil, err
	}
	return columnsOf(fs.blockSizes[b], fs.components, func(c Component) []float64 { return c.BlockWeights[b] }), nil
}

// BlockLoadings returns the loadings p_b of block b (p_b × A).
func (m *MBPLS) BlockLoadings(b int) (*mat.Dense, error) {
	fs, err := m.fittedState("BlockLoadings")
	if err != nil {
		return nil, err
	}
	if err := fs.checkBlock("MBPLS.BlockLoadings", b); err != nil {
		return nil, err
	}
	return columnsOf(fs.blockSizes[b], fs.components, func(c Component) []float64 { return c.BlockLoadings[b] }), nil
}

// YWeights returns the unit response weights C (q × A).
func (m *MBPLS) YWeights() (*mat.Dense, error) {
	fs, err := m.fittedState("YWeights")
	if err != nil {
		return nil, err
	}
	return columnsOf(fs.nTargets, fs.components, func(c Component) []float64 { return c.YWeight }), nil
}

// YLoadings returns the response loadings Q (q × A).
func (m *MBPLS) YLoadings() (*mat.Dense, error) {
	fs, err := m.fittedState("YLoadings")
	if err != nil {
		return nil, err
	}
	return columnsOf(fs.nTargets, fs.components, func(c Component) []float64 { return c.YLoading }), nil
}

// BlockImportances returns the block importances (B × A). Each column sums to 1.
func (m *MBPLS) BlockImportances() (*mat.Dense, error) {
	fs, err := m.fittedState("BlockImportances")
	if err != nil {
		return nil, err
	}
	return columnsOf(len(fs.blockSizes), fs.components, func(c Component) []float64 { return c.Importances }), nil
}

// Superweights returns the superweights s_b (B × A).
func (m *MBPLS) Superweights() (*mat.Dense, error) {
	fs, err := m.fittedState("Superweights")
	if err != nil {
		return nil, err
	}
	return columnsOf(len(fs.blockSizes), fs.components, func(c Component) []float64 { return c.Superweights }), nil
}

// Coefficients returns the regression coefficients B in the preprocessed
// space (Σp × q), rows ordered block by block.
func (m *MBPLS) Coefficients() (*mat.Dense, error) {
	fs, err := m.fittedState("Coefficients")
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(fs.coef), nil
}

// Rotations returns R = W(PᵀW)⁻¹ (Σp × A), the map used by Transform.
func (m *MBPLS) Rotations() (*mat.Dense, error) {
	fs, err := m.fittedState("Rotations")
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(fs.rotations), nil
}

// Components returns copies of the extracted components in extraction order.
func (m *MBPLS) Components() ([]Component, error) {
	fs, err := m.fittedState("Components")
	if err != nil {
		return nil, err
	}
	out := make([]Component, len(fs.components))
	for i, c := range fs.components {
		out[i] = c.clone()
	}
	return out, nil
}

// ExplainedVarianceX returns, per component, the share of the total
// preprocessed X sum of squares reproduced by t pᵀ.
func (m *MBPLS) ExplainedVarianceX() ([]float64, error) {
	fs, err := m.fittedState("ExplainedVarianceX")
	if err != nil {
		return nil, err
	}
	return cloneFloats(fs.evX), nil
}

// ExplainedVarianceBlocks returns the per-block explained variance (B × A).
func (m *MBPLS) ExplainedVarianceBlocks() (*mat.Dense, error) {
	fs, err := m.fittedState("ExplainedVarianceBlocks")
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(fs.evBlocks), len(fs.components), nil)
	for b, row := range fs.evBlocks {
		out.SetRow(b, row)
	}
	return out, nil
}

// ExplainedVarianceY returns, per component, the share of the preprocessed Y
// sum of squares reproduced by t qᵀ.
func (m *MBPLS) ExplainedVarianceY() ([]float64, error) {
	fs, err := m.fittedState("ExplainedVarianceY")
	if err != nil {
		return nil, err
	}
	return cloneFloats(fs.evY), nil
}

// BlockSizes returns the number of variables of each block seen during Fit.
func (m *MBPLS) BlockSizes() ([]int, error) {
	fs, err := m.fittedState("BlockSizes")
	if err != nil {
		return nil, err
	}
	return append([]int(nil), fs.blockSizes...), nil
}
