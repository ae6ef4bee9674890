// Package log defines standard attribute keys for estimator logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so records from different estimators can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "MBPLS".
	ModelNameKey = "model.name"

	// EstimatorIDKey is a unique identifier of one estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey is the operation being performed: "fit", "predict", "transform", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or subsystem emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey is the number of observations (rows).
	SamplesKey = "data.samples"

	// FeaturesKey is the total number of predictor variables over all blocks.
	FeaturesKey = "data.features"

	// TargetsKey is the number of response columns.
	TargetsKey = "data.targets"

	// BlocksKey is the number of X blocks.
	BlocksKey = "data.blocks"

	// BlockIndexKey is the zero-based index of one X block.
	BlockIndexKey = "data.block"
)

// Latent variable models
const (
	// LatentComponentKey is the 1-based index of an extracted latent component.
	LatentComponentKey = "pls.component"

	// NComponentsKey is the number of components requested.
	NComponentsKey = "pls.n_components"

	// MethodKey is the solver used to extract components (SVD, NIPALS, SIMPLS).
	MethodKey = "pls.method"

	// BlockImportanceKey carries the block importances of one component.
	BlockImportanceKey = "pls.block_importance"

	// ExplainedVarianceYKey is the share of response variance explained by a component.
	ExplainedVarianceYKey = "pls.explained_variance_y"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// IterationKey records the iteration count of an iterative solver.
	IterationKey = "training.iteration"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records the root mean squared error of the training fit.
	RMSEKey = "metrics.rmse"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the error, e.g. "ConvergenceError".
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorNumerical         = "NUMERICAL_FAILURE"
	ErrorConfig            = "INVALID_CONFIG"
)
