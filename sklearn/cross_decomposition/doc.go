// Package cross_decomposition implements multiblock partial least squares
// (MBPLS) regression.
//
// MBPLS relates several predictor blocks X_1..X_B, measured on the same
// observations, to a response block Y through latent components. Every
// component has a consensus superscore t shared by all blocks, and each block
// contributes to it through its own weight vector. The share of each block in
// a component is reported as its block importance.
//
// Three solvers are available and agree on the superscores up to sign:
//
//   - SVD: leading singular pair of the residual cross-product XᵀY.
//   - NIPALS: block-wise power iteration, bounded by max_iter.
//   - SIMPLS: deflates the cross-product instead of the data.
//
// Basic usage:
//
//	pls, err := cross_decomposition.NewMBPLS(cross_decomposition.WithNComponents(2))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := pls.Fit([]mat.Matrix{X1, X2}, Y); err != nil {
//		log.Fatal(err)
//	}
//	importances, _ := pls.BlockImportances()
//	yPred, _ := pls.Predict([]mat.Matrix{X1new, X2new})
package cross_decomposition
