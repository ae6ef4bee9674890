// Package metrics は回帰モデルの評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// checkMatrices は2つの応答行列の形状を検査する
func checkMatrices(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return 0, 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return 0, 0, errors.NewDimensionError(op, cTrue, cPred, 1)
	}
	return rTrue, cTrue, nil
}

// sumsOfSquares は列 j の全変動と残差変動を返す
func sumsOfSquares(yTrue, yPred mat.Matrix, j int) (tss, rss float64) {
	n, _ := yTrue.Dims()

	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.At(i, j)
	}
	mean /= float64(n)

	for i := 0; i < n; i++ {
		t := yTrue.At(i, j)
		d := t - yPred.At(i, j)
		tss += (t - mean) * (t - mean)
		rss += d * d
	}
	return tss, rss
}

// R2ScoreColumns は応答の列ごとの決定係数を返す
//
// yTrue の列が定数の場合、予測が完全に一致すれば 1、そうでなければ 0 とする
// （scikit-learn の r2_score と同じ扱い）。
func R2ScoreColumns(yTrue, yPred mat.Matrix) ([]float64, error) {
	_, c, err := checkMatrices("R2ScoreColumns", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, c)
	for j := 0; j < c; j++ {
		tss, rss := sumsOfSquares(yTrue, yPred, j)
		switch {
		case tss > 0:
			scores[j] = 1 - rss/tss
		case rss == 0:
			scores[j] = 1
		default:
			scores[j] = 0
		}
	}
	return scores, nil
}

// R2ScoreMatrix は列ごとの決定係数の一様平均を返す
//
// 使用例:
//
//	r2, err := metrics.R2ScoreMatrix(Y, pls.Predict(X))
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	scores, err := R2ScoreColumns(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), nil
}

// MSEMatrix は行列形式の入力に対して全要素の平均二乗誤差を計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkMatrices("MSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var diff mat.Dense
	diff.Sub(yTrue, yPred)
	norm := mat.Norm(&diff, 2)
	return norm * norm / float64(r*c), nil
}

// RMSEMatrix は MSEMatrix の平方根を返す
func RMSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSEMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}
