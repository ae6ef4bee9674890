package cross_decomposition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/core/model"
	"github.com/YuminosukeSato/unipls/metrics"
	"github.com/YuminosukeSato/unipls/pkg/errors"
	"github.com/YuminosukeSato/unipls/pkg/log"
	"github.com/YuminosukeSato/unipls/preprocessing"
)

const modelName = "MBPLS"

// Compile-time interface checks.
var (
	_ model.MultiBlockRegressor = (*MBPLS)(nil)
	_ model.WeightExporter      = (*MBPLS)(nil)
)

// MBPLS is a multiblock partial least squares regressor.
//
// It decomposes one or more predictor blocks X_1..X_B and a response block Y
// into latent components. Each component has one consensus superscore shared
// by all blocks, per-block weights, scores and loadings, and a block
// importance per block that sums to 1.
//
// An MBPLS is fit once by one goroutine. After Fit returns, Predict, Transform
// and the accessors may be called concurrently.
type MBPLS struct {
	state  *model.StateManager
	cfg    config
	id     string
	logger log.Logger

	// fitted is nil until a fit succeeds
	fitted *fitState
}

// fitState is everything a successful fit produces. It is built privately and
// swapped in only when the whole fit succeeded.
type fitState struct {
	scaler     *preprocessing.BlockScaler
	components []Component
	rotations  *mat.Dense // R, Σp × A
	coef       *mat.Dense // B, Σp × q
	blockSizes []int
	nSamples   int
	nTargets   int

	evX      []float64
	evBlocks [][]float64 // [block][component]
	evY      []float64
}

// NewMBPLS creates an unfitted MBPLS model.
//
// Example:
//
//	pls, err := cross_decomposition.NewMBPLS(
//		cross_decomposition.WithNComponents(3),
//		cross_decomposition.WithMethod(cross_decomposition.NIPALS),
//	)
//	if err != nil {
//		return err
//	}
//	err = pls.Fit([]mat.Matrix{X1, X2}, Y)
func NewMBPLS(opts ...Option) (*MBPLS, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &MBPLS{
		state: model.NewStateManager(),
		cfg:   cfg,
		id:    uuid.NewString(),
	}
	m.initLogger()
	return m, nil
}

func (m *MBPLS) initLogger() {
	base := m.cfg.logger
	if base == nil {
		base = log.GetLoggerWithName("cross_decomposition.mbpls")
	}
	m.logger = base.With(
		log.ModelNameKey, modelName,
		log.EstimatorIDKey, m.id,
	)
}

// ID returns the unique identifier of this estimator instance.
func (m *MBPLS) ID() string {
	return m.id
}

// Method returns the solver chosen at construction.
func (m *MBPLS) Method() Method {
	return m.cfg.method
}

// NComponents returns the number of components requested at construction.
func (m *MBPLS) NComponents() int {
	return m.cfg.nComponents
}

// IsFitted reports whether a fit has completed successfully.
func (m *MBPLS) IsFitted() bool {
	return m.state.IsFitted()
}

// Fit extracts NComponents latent components from the blocks X and the
// response Y. All blocks and Y must share the same number of rows.
//
// Fit either succeeds completely or leaves the model unfitted; a failed
// refit discards the previous fit.
func (m *MBPLS) Fit(X []mat.Matrix, Y mat.Matrix) (err error) {
	start := time.Now()
	m.state.BeginFit()
	m.fitted = nil

	defer func() {
		elapsed := time.Since(start)
		if err != nil {
			m.state.Reset()
			m.fitted = nil
			m.cfg.metrics.ObserveFitError(m.cfg.method.label(), elapsed, err)
			m.logger.Error("Fit failed", err,
				log.OperationKey, log.OperationFit,
				log.MethodKey, m.cfg.method.String(),
				log.ErrorTypeKey, errors.TypeName(err),
				log.ErrorCodeKey, errorCode(err),
				log.DurationMsKey, elapsed.Milliseconds(),
			)
			return
		}
		m.cfg.metrics.ObserveFit(m.cfg.method.label(), elapsed, m.cfg.nComponents)
	}()
	defer errors.Recover(&err, "MBPLS.Fit")

	if Y == nil {
		return errors.NewModelError("MBPLS.Fit", "Y is nil", errors.ErrEmptyData)
	}
	if err := preprocessing.ValidateBlocks("MBPLS.Fit", X, Y); err != nil {
		return err
	}

	nSamples, nTargets := Y.Dims()
	blockSizes := make([]int, len(X))
	for b, xb := range X {
		_, blockSizes[b] = xb.Dims()
	}

	if m.cfg.verbose {
		m.logger.Info("Training started",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.SamplesKey, nSamples,
			log.FeaturesKey, sum(blockSizes),
			log.TargetsKey, nTargets,
			log.BlocksKey, len(X),
			log.NComponentsKey, m.cfg.nComponents,
			log.MethodKey, m.cfg.method.String(),
		)
	}

	fs, err := m.fit(X, Y, blockSizes)
	if err != nil {
		return err
	}

	m.fitted = fs
	m.state.SetFitted(blockSizes, nSamples, nTargets)

	if m.cfg.verbose {
		fields := []any{
			log.OperationKey, log.OperationFit,
			log.NComponentsKey, len(fs.components),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		}
		if yPred, err := m.Predict(X); err == nil {
			if r2, err := metrics.R2ScoreMatrix(Y, yPred); err == nil {
				fields = append(fields, log.R2ScoreKey, r2)
			}
			if rmse, err := metrics.RMSEMatrix(Y, yPred); err == nil {
				fields = append(fields, log.RMSEKey, rmse)
			}
		}
		m.logger.Info("Training completed", fields...)
	}
	return nil
}

// fit runs preprocessing and component extraction into a fresh fitState.
func (m *MBPLS) fit(X []mat.Matrix, Y mat.Matrix, blockSizes []int) (*fitState, error) {
	scaler := preprocessing.NewBlockScaler(m.cfg.standardize, m.cfg.effectiveBlockScaling())
	xs, ys, err := scaler.FitTransform(X, Y)
	if err != nil {
		return nil, err
	}

	s, err := newSolver(m.cfg)
	if err != nil {
		return nil, err
	}

	eng := newEngine(xs, ys, func(block, component int) {
		errors.Warn(errors.NewDegenerateBlockWarning(block, component))
	})

	nSamples, nTargets := ys.Dims()
	fs := &fitState{
		scaler:     scaler,
		components: make([]Component, 0, m.cfg.nComponents),
		blockSizes: blockSizes,
		nSamples:   nSamples,
		nTargets:   nTargets,
		evBlocks:   make([][]float64, len(xs)),
	}

	for k := 1; k <= m.cfg.nComponents; k++ {
		comp, share, err := eng.step(s, k)
		if err != nil {
			return nil, err
		}
		fs.components = append(fs.components, comp)
		fs.evX = append(fs.evX, share.x)
		fs.evY = append(fs.evY, share.y)
		for b := range xs {
			fs.evBlocks[b] = append(fs.evBlocks[b], share.blocks[b])
		}

		if s.name() == NIPALS {
			m.cfg.metrics.ObserveIterations(comp.Iterations)
		}
		if m.logger.Enabled(context.Background(), log.LevelDebug) {
			m.logger.Debug("Component extracted",
				log.LatentComponentKey, k,
				log.MethodKey, s.name().String(),
				log.IterationKey, comp.Iterations,
				log.BlockImportanceKey, comp.Importances,
				log.ExplainedVarianceYKey, share.y,
			)
		}
	}

	R, err := rotations(fs.components, blockSizes)
	if err != nil {
		return nil, err
	}
	fs.rotations = R
	fs.coef = coefficients(R, fs.components)
	return fs, nil
}

// preprocess checks the fitted state and applies the stored block scaling.
func (m *MBPLS) preprocess(op string, X []mat.Matrix) (*fitState, *mat.Dense, error) {
	if err := m.state.RequireFitted(modelName, op); err != nil {
		return nil, nil, err
	}
	fs := m.fitted
	xs, err := fs.scaler.TransformBlocks(X)
	if err != nil {
		return nil, nil, err
	}
	return fs, concatBlocks(xs), nil
}

// Predict returns the predicted responses in original units (n × q).
func (m *MBPLS) Predict(X []mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "MBPLS.Predict")

	fs, x, err := m.preprocess("Predict", X)
	if err != nil {
		return nil, err
	}

	var yPre mat.Dense
	yPre.Mul(x, fs.coef)
	y, err := fs.scaler.InverseTransformY(&yPre)
	if err != nil {
		return nil, err
	}
	return y, nil
}

// Transform projects new blocks onto the fitted superscores (n × A).
func (m *MBPLS) Transform(X []mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "MBPLS.Transform")

	fs, x, err := m.preprocess("Transform", X)
	if err != nil {
		return nil, err
	}

	var t mat.Dense
	t.Mul(x, fs.rotations)
	return &t, nil
}

// Score returns the uniform-average R² of Predict(X) against Y.
func (m *MBPLS) Score(X []mat.Matrix, Y mat.Matrix) (float64, error) {
	if err := m.state.RequireFitted(modelName, "Score"); err != nil {
		return 0, err
	}
	yPred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}

	r, c := Y.Dims()
	pr, _ := yPred.Dims()
	if r != pr {
		return 0, errors.NewDimensionError("MBPLS.Score", pr, r, 0)
	}
	if c != m.fitted.nTargets {
		return 0, errors.NewDimensionError("MBPLS.Score", m.fitted.nTargets, c, 1)
	}
	return metrics.R2ScoreMatrix(Y, yPred)
}

// errorCode maps an error to the error.code log attribute.
func errorCode(err error) string {
	switch errors.TypeName(err) {
	case "NotFittedError":
		return log.ErrorNotFitted
	case "DimensionError":
		return log.ErrorDimensionMismatch
	case "ConvergenceError":
		return log.ErrorConvergence
	case "ConfigError":
		return log.ErrorConfig
	default:
		return log.ErrorNumerical
	}
}
