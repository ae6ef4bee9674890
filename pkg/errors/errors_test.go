package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "empty data",
			err:     ErrEmptyData,
			wantMsg: "unipls: Fit: empty data: empty data",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "unipls: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
			if tt.err != nil {
				assert.True(t, Is(err, tt.err))
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("MBPLS.Fit", 10, 8, 0)
	assert.Equal(t, "unipls: MBPLS.Fit: dimension mismatch on axis 0 (rows). Expected 10, got 8", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, -1, dimErr.Block)

	blockErr := NewBlockDimensionError("MBPLS.Predict", 1, 50, 49, 1)
	assert.Equal(t, "unipls: MBPLS.Predict: dimension mismatch in block 1 on axis 1 (features). Expected 50, got 49", blockErr.Error())

	countErr := NewDimensionError("MBPLS.Predict", 2, 3, 2)
	assert.Contains(t, countErr.Error(), "(blocks)")
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("MBPLS", "Predict")
	assert.Equal(t, "unipls: MBPLS: this model is not fitted yet. Call Fit() before using Predict()", err.Error())

	var notFittedErr *NotFittedError
	assert.True(t, As(err, &notFittedErr))
	assert.Equal(t, "NotFittedError", TypeName(err))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("n_components", "must be positive", 0)
	assert.Equal(t, "unipls: invalid configuration for parameter 'n_components': must be positive (got: 0)", err.Error())

	var cfgErr *ConfigError
	require.True(t, As(err, &cfgErr))
	assert.Equal(t, "n_components", cfgErr.ParamName)
	assert.Equal(t, "ConfigError", TypeName(err))
}

func TestNumericalError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantSub []string
	}{
		{
			name:    "plain",
			err:     NewNumericalError("MBPLS.Fit", "cross-product matrix is zero"),
			wantSub: []string{"MBPLS.Fit", "cross-product matrix is zero"},
		},
		{
			name:    "block and component",
			err:     NewBlockNumericalError("MBPLS.Fit", "block has zero variance", 2, 3),
			wantSub: []string{"(block 2)", "(component 3)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sub := range tt.wantSub {
				assert.Contains(t, tt.err.Error(), sub)
			}
			var numErr *NumericalError
			assert.True(t, As(tt.err, &numErr))
			assert.Equal(t, "NumericalError", TypeName(tt.err))
		})
	}
}

func TestConvergenceError(t *testing.T) {
	err := NewConvergenceError("NIPALS", 2, 500, 1e-10, 3.5e-4)
	assert.True(t, strings.HasPrefix(err.Error(), "unipls: NIPALS failed to converge for component 2 after 500 iterations"))

	var convErr *ConvergenceError
	require.True(t, As(err, &convErr))
	assert.Equal(t, 500, convErr.Iterations)
	assert.Equal(t, 2, convErr.Component)
	assert.Equal(t, "ConvergenceError", TypeName(err))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrSingularMatrix, "while assembling coefficients")
	assert.True(t, Is(wrapped, ErrSingularMatrix))
	assert.Contains(t, wrapped.Error(), "while assembling coefficients")

	wrappedf := Wrapf(ErrEmptyData, "in %s: block %d", "Fit", 1)
	assert.True(t, Is(wrappedf, ErrEmptyData))
	assert.Contains(t, wrappedf.Error(), "in Fit: block 1")
}

func TestTypeNameWrapped(t *testing.T) {
	err := Wrap(NewNumericalError("op", "reason"), "context")
	assert.Equal(t, "NumericalError", TypeName(err))
	assert.Equal(t, "", TypeName(nil))
	assert.Equal(t, "Error", TypeName(New("plain")))
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var dimErr *DimensionError
	require.True(t, As(NewBlockDimensionError("MBPLS.Predict", 0, 5, 4, 1), &dimErr))
	logger.Error().EmbedObject(dimErr).Msg("dimension")

	out := buf.String()
	assert.Contains(t, out, `"type":"DimensionError"`)
	assert.Contains(t, out, `"axis_name":"features"`)
	assert.Contains(t, out, `"block":0`)
}

func TestWarn(t *testing.T) {
	var viaZerolog []error
	SetZerologWarnFunc(func(w error) { viaZerolog = append(viaZerolog, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewDegenerateBlockWarning(0, 1))
	require.Len(t, viaZerolog, 1)

	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewDegenerateBlockWarning(1, 2))
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "block 1")
	assert.Len(t, viaZerolog, 1, "handler takes precedence over the zerolog hook")

	SetWarningHandler(nil)
	Warn(NewDegenerateBlockWarning(2, 3))
	assert.Len(t, got, 1)
	assert.Len(t, viaZerolog, 2)
}

func TestWarnHandlerMayWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) {
		got = append(got, w)
		if len(got) == 1 {
			Warn(NewDegenerateBlockWarning(9, 9))
		}
	})
	defer SetWarningHandler(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		Warn(NewDegenerateBlockWarning(0, 1))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Warn deadlocked when called from a handler")
	}
	assert.Len(t, got, 2)
}

func TestCheckMatrix(t *testing.T) {
	data := [][]float64{{1, 2}, {3, 4}}
	m := matFunc(func(i, j int) float64 { return data[i][j] })
	assert.NoError(t, CheckMatrix("op", m, 2, 2, 0))

	data[1][0] = math.NaN()
	err := CheckMatrix("op", m, 2, 2, 1)
	require.Error(t, err)
	var numErr *NumericalError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Block)
	assert.Len(t, numErr.Values, 1)
}

func TestIsNearZero(t *testing.T) {
	assert.True(t, IsNearZero(1e-14, 1, 1e-12))
	assert.False(t, IsNearZero(1e-3, 1, 1e-12))
	assert.True(t, IsNearZero(0, 0, 1e-12))
	assert.Error(t, CheckScalar("op", math.NaN(), 1))
	assert.NoError(t, CheckScalar("op", 1.5, 1))
}

type matFunc func(i, j int) float64

func (f matFunc) At(i, j int) float64 { return f(i, j) }
