// Package unipls provides multiblock partial least squares (MBPLS) regression
// for Go, built on gonum.
//
// MBPLS relates several predictor blocks measured on the same observations,
// for example spectra and process variables, to one response block. It reports
// how much each block contributes to every latent component, which makes it a
// tool for both prediction and interpretation.
//
// # Features
//
//   - Three solvers: SVD, NIPALS and SIMPLS, agreeing on the superscores up to sign
//   - Per-block centering, standardization and block scaling
//   - Block importances, superscores, block scores, weights and loadings
//   - Typed errors with stack traces (cockroachdb/errors)
//   - Structured logging (zerolog) and Prometheus fit metrics
//   - gob persistence and JSON weight export
//
// # Installation
//
//	go get github.com/YuminosukeSato/unipls
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/unipls/sklearn/cross_decomposition"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    pls, err := cross_decomposition.NewMBPLS(
//	        cross_decomposition.WithNComponents(2),
//	        cross_decomposition.WithMethod(cross_decomposition.NIPALS),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    if err := pls.Fit([]mat.Matrix{spectra, process}, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    importances, _ := pls.BlockImportances()
//	    fmt.Println(mat.Formatted(importances))
//	}
//
// # Packages
//
//   - sklearn/cross_decomposition: the MBPLS estimator and its solvers
//   - preprocessing: StandardScaler and the multiblock BlockScaler
//   - metrics: regression metrics over response matrices (MSE, RMSE, R²)
//   - core/model: estimator interfaces, fitted-state latch, persistence
//   - core/parallel: block-parallel helpers
//   - pkg/errors: typed errors and panic recovery
//   - pkg/log: structured logging
//   - pkg/telemetry: Prometheus collectors for fits
//
// # License
//
// unipls is released under the MIT License.
package unipls
