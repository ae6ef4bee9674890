package cross_decomposition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
	"github.com/YuminosukeSato/unipls/pkg/log"
	"github.com/YuminosukeSato/unipls/pkg/telemetry"
)

func TestNewMBPLSDefaults(t *testing.T) {
	pls, err := NewMBPLS()
	require.NoError(t, err)

	assert.Equal(t, DefaultNComponents, pls.NComponents())
	assert.Equal(t, SVD, pls.Method())
	assert.False(t, pls.IsFitted())
	assert.NotEmpty(t, pls.ID())

	params := pls.GetParams()
	assert.Equal(t, 2, params["n_components"])
	assert.Equal(t, "SVD", params["method"])
	assert.Equal(t, true, params["standardize"])
	assert.Equal(t, true, params["block_scaling"])
	assert.Equal(t, 500, params["max_iter"])
	assert.Equal(t, 1e-10, params["tol"])

	noStd, err := NewMBPLS(WithStandardize(false))
	require.NoError(t, err)
	assert.Equal(t, false, noStd.GetParams()["block_scaling"])
}

func TestNewMBPLSConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		param string
	}{
		{"zero components", []Option{WithNComponents(0)}, "n_components"},
		{"negative components", []Option{WithNComponents(-3)}, "n_components"},
		{"unknown method", []Option{WithMethod(Method(9))}, "method"},
		{"zero max_iter", []Option{WithMaxIter(0)}, "max_iter"},
		{"zero tol", []Option{WithTol(0)}, "tol"},
		{"NaN tol", []Option{WithTol(math.NaN())}, "tol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pls, err := NewMBPLS(tt.opts...)
			assert.Nil(t, pls)

			var ce *errors.ConfigError
			require.True(t, errors.As(err, &ce), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.param, ce.ParamName)
		})
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"SVD", SVD, false},
		{"svd", SVD, false},
		{"Nipals", NIPALS, false},
		{" simpls ", SIMPLS, false},
		{"pca", SVD, true},
		{"", SVD, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if tt.wantErr {
				var ce *errors.ConfigError
				assert.True(t, errors.As(err, &ce))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestFitShapes(t *testing.T) {
	X, Y := synthetic(10, 40, 2)
	pls := fitModel(t, X, Y, WithNComponents(3))

	check := func(m *mat.Dense, err error, rows, cols int) {
		t.Helper()
		require.NoError(t, err)
		r, c := m.Dims()
		assert.Equal(t, rows, r)
		assert.Equal(t, cols, c)
	}

	superscores, err := pls.Superscores()
	check(superscores, err, 40, 3)
	yw, err := pls.YWeights()
	check(yw, err, 2, 3)
	imp, err := pls.BlockImportances()
	check(imp, err, 3, 3)
	coef, err := pls.Coefficients()
	check(coef, err, 9, 2)
	rot, err := pls.Rotations()
	check(rot, err, 9, 3)
	yl, err := pls.YLoadings()
	check(yl, err, 2, 3)
	sw, err := pls.Superweights()
	check(sw, err, 3, 3)
	evB, err := pls.ExplainedVarianceBlocks()
	check(evB, err, 3, 3)

	sizes, err := pls.BlockSizes()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2}, sizes)

	for b, p := range sizes {
		w, err := pls.BlockWeights(b)
		check(w, err, p, 3)
		l, err := pls.BlockLoadings(b)
		check(l, err, p, 3)
		s, err := pls.BlockScores(b)
		check(s, err, 40, 3)
	}

	comps, err := pls.Components()
	require.NoError(t, err)
	require.Len(t, comps, 3)
	for k, c := range comps {
		assert.Equal(t, k+1, c.Index)
	}
}

func TestComponentsAreCopies(t *testing.T) {
	X, y := synthetic(11, 30, 1)
	pls := fitModel(t, X, y, WithNComponents(1))

	comps, err := pls.Components()
	require.NoError(t, err)
	comps[0].Superscore[0] = 1e9
	comps[0].BlockWeights[0][0] = 1e9

	again, err := pls.Components()
	require.NoError(t, err)
	assert.NotEqual(t, 1e9, again[0].Superscore[0])
	assert.NotEqual(t, 1e9, again[0].BlockWeights[0][0])
}

func TestNotFitted(t *testing.T) {
	X, Y := synthetic(12, 20, 1)
	pls, err := NewMBPLS()
	require.NoError(t, err)

	calls := map[string]func() error{
		"Predict":                 func() error { _, err := pls.Predict(X); return err },
		"Transform":               func() error { _, err := pls.Transform(X); return err },
		"Score":                   func() error { _, err := pls.Score(X, Y); return err },
		"Superscores":             func() error { _, err := pls.Superscores(); return err },
		"BlockScores":             func() error { _, err := pls.BlockScores(0); return err },
		"BlockWeights":            func() error { _, err := pls.BlockWeights(0); return err },
		"BlockLoadings":           func() error { _, err := pls.BlockLoadings(0); return err },
		"YWeights":                func() error { _, err := pls.YWeights(); return err },
		"YLoadings":               func() error { _, err := pls.YLoadings(); return err },
		"BlockImportances":        func() error { _, err := pls.BlockImportances(); return err },
		"Coefficients":            func() error { _, err := pls.Coefficients(); return err },
		"Components":              func() error { _, err := pls.Components(); return err },
		"ExplainedVarianceX":      func() error { _, err := pls.ExplainedVarianceX(); return err },
		"ExplainedVarianceBlocks": func() error { _, err := pls.ExplainedVarianceBlocks(); return err },
		"ExplainedVarianceY":      func() error { _, err := pls.ExplainedVarianceY(); return err },
		"BlockSizes":              func() error { _, err := pls.BlockSizes(); return err },
		"ExportWeights":           func() error { _, err := pls.ExportWeights(); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var nf *errors.NotFittedError
			assert.True(t, errors.As(call(), &nf), "%s should return NotFittedError", name)
		})
	}
}

func TestBlockImportancesSumToOne(t *testing.T) {
	X, y := synthetic(13, 40, 1)
	_, Y2 := synthetic(13, 40, 2)

	for _, method := range allMethods {
		t.Run(method.String(), func(t *testing.T) {
			targets := []mat.Matrix{y}
			if method != NIPALS {
				targets = append(targets, Y2)
			}
			for _, Y := range targets {
				pls := fitModel(t, X, Y, WithNComponents(3), WithMethod(method))
				imp, err := pls.BlockImportances()
				require.NoError(t, err)

				for k := 0; k < 3; k++ {
					assert.InDelta(t, 1.0, mat.Sum(imp.ColView(k)), 1e-10)
				}
			}
		})
	}
}

func TestPredictReproducesFittedValues(t *testing.T) {
	X, Y := synthetic(14, 40, 2)

	for _, method := range []Method{SVD, SIMPLS} {
		t.Run(method.String(), func(t *testing.T) {
			pls := fitModel(t, X, Y, WithNComponents(3), WithMethod(method))

			T, err := pls.Superscores()
			require.NoError(t, err)
			Q, err := pls.YLoadings()
			require.NoError(t, err)

			var fitted mat.Dense
			fitted.Mul(T, Q.T())
			want, err := pls.fitted.scaler.InverseTransformY(&fitted)
			require.NoError(t, err)

			got, err := pls.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(want, got, 1e-8))
		})
	}
}

func TestTransformReproducesSuperscores(t *testing.T) {
	X, y := synthetic(15, 40, 1)

	for _, method := range allMethods {
		t.Run(method.String(), func(t *testing.T) {
			pls := fitModel(t, X, y, WithNComponents(3), WithMethod(method))
			want, err := pls.Superscores()
			require.NoError(t, err)
			got, err := pls.Transform(X)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(want, got, 1e-8))
		})
	}
}

func TestSuperscoresAreOrthogonal(t *testing.T) {
	X, y := synthetic(16, 40, 1)

	for _, method := range allMethods {
		t.Run(method.String(), func(t *testing.T) {
			pls := fitModel(t, X, y, WithNComponents(4), WithMethod(method))
			T, err := pls.Superscores()
			require.NoError(t, err)

			for i := 0; i < 4; i++ {
				for j := i + 1; j < 4; j++ {
					ti, tj := T.ColView(i), T.ColView(j)
					dot := mat.Dot(ti, tj)
					assert.LessOrEqual(t, math.Abs(dot), 1e-8*mat.Norm(ti, 2)*mat.Norm(tj, 2),
						"components %d and %d", i+1, j+1)
				}
			}
		})
	}
}

func TestMoreComponentsKeepEarlierOnes(t *testing.T) {
	X, Y := synthetic(17, 40, 2)

	small := fitModel(t, X, Y, WithNComponents(2))
	large := fitModel(t, X, Y, WithNComponents(4))

	ts, err := small.Superscores()
	require.NoError(t, err)
	tl, err := large.Superscores()
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ts, tl.Slice(0, 40, 0, 2), 1e-10))

	for b := 0; b < 3; b++ {
		ls, err := small.BlockLoadings(b)
		require.NoError(t, err)
		ll, err := large.BlockLoadings(b)
		require.NoError(t, err)
		r, _ := ls.Dims()
		assert.True(t, mat.EqualApprox(ls, ll.Slice(0, r, 0, 2), 1e-10))
	}
}

func TestFitIsDeterministic(t *testing.T) {
	X, Y := synthetic(18, 40, 2)

	for _, method := range allMethods {
		t.Run(method.String(), func(t *testing.T) {
			pls := fitModel(t, X, Y, WithNComponents(2), WithMethod(method), WithMaxIter(10000))
			first, err := pls.Coefficients()
			require.NoError(t, err)

			require.NoError(t, pls.Fit(X, Y))
			second, err := pls.Coefficients()
			require.NoError(t, err)
			assert.True(t, mat.Equal(first, second))
		})
	}
}

func TestSplitBlocksMatchCombinedBlock(t *testing.T) {
	X, y := synthetic(19, 40, 1)
	combined := []mat.Matrix{hstack(X)}

	tests := []struct {
		name string
		opts []Option
	}{
		{"centered only", []Option{WithStandardize(false)}},
		{"standardized without block scaling", []Option{WithStandardize(true), WithBlockScaling(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithNComponents(1)}, tt.opts...)
			split := fitModel(t, X, y, opts...)
			whole := fitModel(t, combined, y, opts...)

			ps, err := split.Predict(X)
			require.NoError(t, err)
			pw, err := whole.Predict(combined)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(ps, pw, 1e-8))
		})
	}
}

func TestConstantBlock(t *testing.T) {
	X, y := synthetic(20, 30, 1)
	constant := mat.NewDense(30, 2, nil)
	for i := 0; i < 30; i++ {
		constant.Set(i, 0, 4)
		constant.Set(i, 1, -1)
	}

	pls, err := NewMBPLS()
	require.NoError(t, err)
	err = pls.Fit([]mat.Matrix{X[0], constant}, y)

	var ne *errors.NumericalError
	require.True(t, errors.As(err, &ne), "expected NumericalError, got %v", err)
	assert.Equal(t, 1, ne.Block)
	assert.False(t, pls.IsFitted())
}

func TestNaNInput(t *testing.T) {
	X, y := synthetic(21, 30, 1)
	bad := mat.DenseCopyOf(X[2])
	bad.Set(3, 1, math.Inf(1))

	pls, err := NewMBPLS()
	require.NoError(t, err)
	err = pls.Fit([]mat.Matrix{X[0], X[1], bad}, y)

	var ne *errors.NumericalError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 2, ne.Block)
}

func TestRowMismatch(t *testing.T) {
	X, y := synthetic(22, 30, 1)
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name string
		X    []mat.Matrix
		Y    mat.Matrix
	}{
		{"block rows", []mat.Matrix{X[0], randomBlock(rng, 29, 3)}, y},
		{"response rows", X, randomBlock(rng, 31, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pls, err := NewMBPLS()
			require.NoError(t, err)
			var de *errors.DimensionError
			require.True(t, errors.As(pls.Fit(tt.X, tt.Y), &de))
			assert.Equal(t, 0, de.Axis)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	_, y := synthetic(23, 10, 1)
	pls, err := NewMBPLS()
	require.NoError(t, err)

	assert.True(t, errors.Is(pls.Fit(nil, y), errors.ErrEmptyData))
	assert.True(t, errors.Is(pls.Fit([]mat.Matrix{mat.NewDense(10, 2, nil)}, nil), errors.ErrEmptyData))

	X, _ := synthetic(23, 10, 1)
	err = pls.Fit([]mat.Matrix{nil, X[1]}, y)
	var me *errors.ModelError
	require.True(t, errors.As(err, &me), "expected ModelError, got %v", err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
	var pe *errors.PanicError
	assert.False(t, errors.As(err, &pe))
}

func TestFailedRefitLeavesModelUnfitted(t *testing.T) {
	X, y := synthetic(24, 30, 1)
	pls := fitModel(t, X, y)
	require.True(t, pls.IsFitted())

	err := pls.Fit([]mat.Matrix{X[0], mat.NewDense(30, 2, nil)}, y)
	require.Error(t, err)
	assert.False(t, pls.IsFitted())

	_, err = pls.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestPredictDimensionErrors(t *testing.T) {
	X, y := synthetic(25, 30, 1)
	pls := fitModel(t, X, y)
	rng := rand.New(rand.NewSource(2))

	t.Run("block count", func(t *testing.T) {
		_, err := pls.Predict(X[:2])
		var de *errors.DimensionError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 2, de.Axis)
		assert.Equal(t, 3, de.Expected)
	})

	t.Run("block columns", func(t *testing.T) {
		_, err := pls.Transform([]mat.Matrix{X[0], randomBlock(rng, 30, 5), X[2]})
		var de *errors.DimensionError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 1, de.Block)
		assert.Equal(t, 1, de.Axis)
	})

	t.Run("score targets", func(t *testing.T) {
		_, err := pls.Score(X, randomBlock(rng, 30, 2))
		var de *errors.DimensionError
		require.True(t, errors.As(err, &de))
	})

	t.Run("block index", func(t *testing.T) {
		_, err := pls.BlockWeights(3)
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestPredictNewSamples(t *testing.T) {
	X, Y := synthetic(26, 60, 2)
	pls := fitModel(t, X, Y, WithNComponents(6))

	rows := func(m mat.Matrix, i, j int) mat.Matrix {
		_, c := m.Dims()
		return mat.DenseCopyOf(m).Slice(i, j, 0, c)
	}
	newX := []mat.Matrix{rows(X[0], 50, 60), rows(X[1], 50, 60), rows(X[2], 50, 60)}

	pred, err := pls.Predict(newX)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 10, r)
	assert.Equal(t, 2, c)

	score, err := pls.Score(X, Y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
}

func TestExplainedVariance(t *testing.T) {
	X, Y := synthetic(27, 40, 2)
	pls := fitModel(t, X, Y, WithNComponents(3))

	evX, err := pls.ExplainedVarianceX()
	require.NoError(t, err)
	evY, err := pls.ExplainedVarianceY()
	require.NoError(t, err)
	evB, err := pls.ExplainedVarianceBlocks()
	require.NoError(t, err)

	require.Len(t, evX, 3)
	require.Len(t, evY, 3)

	var totalX, totalY float64
	for k := 0; k < 3; k++ {
		assert.Greater(t, evX[k], 0.0)
		assert.Greater(t, evY[k], 0.0)
		totalX += evX[k]
		totalY += evY[k]
	}
	assert.LessOrEqual(t, totalX, 1+1e-10)
	assert.LessOrEqual(t, totalY, 1+1e-10)

	for b := 0; b < 3; b++ {
		assert.LessOrEqual(t, mat.Sum(evB.RowView(b)), 1+1e-10)
	}
}

func TestDegenerateBlockWarning(t *testing.T) {
	X, y := synthetic(28, 30, 1)

	orth := orthogonalBlock(y, 3, 2)

	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() {
		errors.SetZerologWarnFunc(func(w error) {
			log.GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
		})
	})

	pls := fitModel(t, []mat.Matrix{X[0], orth}, y, WithNComponents(1))

	require.Len(t, warnings, 1)
	var dw *errors.DegenerateBlockWarning
	require.True(t, errors.As(warnings[0], &dw))
	assert.Equal(t, 1, dw.Block)
	assert.Equal(t, 1, dw.Component)

	imp, err := pls.BlockImportances()
	require.NoError(t, err)
	assert.Equal(t, 0.0, imp.At(1, 0))
	assert.InDelta(t, 1.0, imp.At(0, 0), 1e-12)

	w, err := pls.BlockWeights(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mat.Norm(w, 2))
}

func TestVerboseLogging(t *testing.T) {
	X, y := synthetic(29, 30, 1)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	pls := fitModel(t, X, y, WithNComponents(2), WithLogger(logger), WithVerbose(true))

	assert.True(t, logger.ContainsMessage("Training started"))
	assert.True(t, logger.ContainsMessage("Component extracted"))
	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "MBPLS"))
	assert.True(t, logger.ContainsField(log.EstimatorIDKey, pls.ID()))
	assert.True(t, logger.ContainsField(log.LatentComponentKey, 2.0))
	assert.True(t, logger.ContainsField(log.BlocksKey, 3.0))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	var completed map[string]interface{}
	for _, e := range entries {
		if e["message"] == "Training completed" {
			completed = e
		}
	}
	require.NotNil(t, completed)

	score, err := pls.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, score, completed[log.R2ScoreKey], 1e-12)

	pred, err := pls.Predict(X)
	require.NoError(t, err)
	var resid mat.Dense
	resid.Sub(y, pred)
	rmse := mat.Norm(&resid, 2) / math.Sqrt(30)
	assert.InDelta(t, rmse, completed[log.RMSEKey], 1e-12)
}

func TestQuietLogging(t *testing.T) {
	X, y := synthetic(30, 30, 1)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	fitModel(t, X, y, WithLogger(logger))
	assert.Empty(t, logger.String())
}

func TestFitErrorLogging(t *testing.T) {
	X, y := synthetic(31, 30, 1)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	pls, err := NewMBPLS(WithMethod(NIPALS), WithMaxIter(1), WithLogger(logger))
	require.NoError(t, err)
	require.Error(t, pls.Fit(X, y))

	assert.True(t, logger.ContainsMessage("Fit failed"))
	assert.True(t, logger.ContainsField(log.ErrorTypeKey, "ConvergenceError"))
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorConvergence))
}

func TestMetrics(t *testing.T) {
	X, y := synthetic(32, 30, 1)
	collector := telemetry.NewCollector()
	require.NoError(t, collector.Register(prometheus.NewRegistry()))

	fitModel(t, X, y, WithNComponents(3), WithMetrics(collector))
	fitModel(t, X, y, WithNComponents(2), WithMethod(NIPALS), WithMetrics(collector))

	assert.Equal(t, 3.0, collector.ComponentCount("svd"))
	assert.Equal(t, 2.0, collector.ComponentCount("nipals"))
	assert.Equal(t, uint64(1), collector.FitCount("svd", telemetry.ResultSuccess))

	pls, err := NewMBPLS(WithMethod(NIPALS), WithMaxIter(1), WithMetrics(collector))
	require.NoError(t, err)
	require.Error(t, pls.Fit(X, y))
	assert.Equal(t, uint64(1), collector.FitCount("nipals", telemetry.ResultError))
}

func TestSetParams(t *testing.T) {
	X, y := synthetic(33, 30, 1)
	pls := fitModel(t, X, y)

	require.NoError(t, pls.SetParams(map[string]interface{}{
		"method":       "nipals",
		"n_components": 1,
		"tol":          1e-9,
	}))
	assert.False(t, pls.IsFitted())
	assert.Equal(t, NIPALS, pls.Method())
	assert.Equal(t, 1, pls.NComponents())

	require.NoError(t, pls.Fit(X, y))
	comps, err := pls.Components()
	require.NoError(t, err)
	assert.Len(t, comps, 1)

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"unknown key", map[string]interface{}{"alpha": 1.0}},
		{"wrong type", map[string]interface{}{"n_components": "two"}},
		{"invalid value", map[string]interface{}{"n_components": 0}},
		{"bad method", map[string]interface{}{"method": "kernel"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *errors.ConfigError
			assert.True(t, errors.As(pls.SetParams(tt.params), &ce))
			assert.Equal(t, 1, pls.NComponents())
			assert.True(t, pls.IsFitted())
		})
	}

	require.NoError(t, pls.SetParams(map[string]interface{}{"method": SIMPLS, "block_scaling": false}))
	assert.Equal(t, false, pls.GetParams()["block_scaling"])
}
