package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/core/model"
	"github.com/YuminosukeSato/unipls/core/parallel"
	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// zeroVarianceTol は中心化後のブロックのノルムを元データのノルムと比べて
// 分散ゼロとみなす相対しきい値
const zeroVarianceTol = 1e-12

// BlockScaler は複数の説明変数ブロック X_1..X_B と応答 Y をまとめて前処理する
//
// 中心化は常に行う。standardize が true の場合は各列を母標準偏差で割り、Y も標準化する。
// blockScaling が true の場合は前処理後の各ブロックをフロベニウスノルムで割り、
// ブロックごとの二乗和を 1 に揃える。
type BlockScaler struct {
	state *model.StateManager

	// Standardize は各列を標準偏差で割るかどうか
	Standardize bool

	// BlockScaling は各ブロックを単位二乗和に揃えるかどうか
	BlockScaling bool

	// Blocks はブロックごとの列スケーラー
	Blocks []*StandardScaler

	// BlockFactors は列スケーリング後に各ブロックへ掛ける係数（ブロックスケーリングなしなら 1）
	BlockFactors []float64

	// Y は応答のスケーラー
	Y *StandardScaler
}

// NewBlockScaler は新しいBlockScalerを作成する
//
// 使用例:
//
//	bs := preprocessing.NewBlockScaler(true, true)
//	if err := bs.Fit([]mat.Matrix{X1, X2}, Y); err != nil {
//		return err
//	}
//	blocks, err := bs.TransformBlocks([]mat.Matrix{X1, X2})
func NewBlockScaler(standardize, blockScaling bool) *BlockScaler {
	return &BlockScaler{
		state:        model.NewStateManager(),
		Standardize:  standardize,
		BlockScaling: blockScaling,
	}
}

// IsFitted は学習済みかどうかを返す
func (bs *BlockScaler) IsFitted() bool {
	return bs.state.IsFitted()
}

// NBlocks は学習時のブロック数を返す
func (bs *BlockScaler) NBlocks() int {
	return len(bs.Blocks)
}

// BlockSizes は学習時の各ブロックの列数を返す
func (bs *BlockScaler) BlockSizes() []int {
	sizes := make([]int, len(bs.Blocks))
	for b, s := range bs.Blocks {
		sizes[b] = s.NFeatures
	}
	return sizes
}

// ValidateBlocks はブロック列と Y の形状と値を検査する。
// Y が nil の場合は X ブロックのみを検査する。
func ValidateBlocks(op string, blocks []mat.Matrix, Y mat.Matrix) error {
	if len(blocks) == 0 {
		return errors.NewModelError(op, "no X blocks", errors.ErrEmptyData)
	}

	for b, block := range blocks {
		if block == nil {
			return errors.NewModelError(op, fmt.Sprintf("block %d is nil", b), errors.ErrEmptyData)
		}
	}

	nSamples, _ := blocks[0].Dims()
	if nSamples == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	for b, block := range blocks {
		r, c := block.Dims()
		if c == 0 {
			return errors.NewModelError(op, fmt.Sprintf("block %d has no columns", b), errors.ErrEmptyData)
		}
		if r != nSamples {
			return errors.NewBlockDimensionError(op, b, nSamples, r, 0)
		}
		if err := errors.CheckMatrix(op, block, r, c, b); err != nil {
			return err
		}
	}

	if Y == nil {
		return nil
	}
	r, c := Y.Dims()
	if c == 0 {
		return errors.NewModelError(op, "Y has no columns", errors.ErrEmptyData)
	}
	if r != nSamples {
		return errors.NewDimensionError(op, nSamples, r, 0)
	}
	return errors.CheckMatrix(op, Y, r, c, -1)
}

// parallelThreshold はブロック単位の処理を並列化する要素数（全ブロックの行×列の合計）の下限
const parallelThreshold = 1 << 16

// cells は全ブロックの要素数を返す
func cells(blocks []mat.Matrix) int {
	total := 0
	for _, block := range blocks {
		r, c := block.Dims()
		total += r * c
	}
	return total
}

// Fit は各ブロックと Y の平均・標準偏差・ブロック係数を学習する
//
// ブロックごとの統計量は互いに独立なので、データが大きい場合は並列に計算する。
func (bs *BlockScaler) Fit(blocks []mat.Matrix, Y mat.Matrix) error {
	const op = "BlockScaler.Fit"

	if err := ValidateBlocks(op, blocks, Y); err != nil {
		bs.state.Reset()
		return err
	}

	bs.state.BeginFit()
	scalers := make([]*StandardScaler, len(blocks))
	factors := make([]float64, len(blocks))
	sizes := make([]int, len(blocks))

	err := parallel.ForEach(len(blocks), cells(blocks), parallelThreshold, func(b int) error {
		scaler, factor, err := bs.fitBlock(op, b, blocks[b])
		if err != nil {
			return err
		}
		scalers[b] = scaler
		factors[b] = factor
		_, sizes[b] = blocks[b].Dims()
		return nil
	})
	if err != nil {
		bs.state.Reset()
		return err
	}

	ys := NewStandardScaler(true, bs.Standardize)
	if err := ys.Fit(Y); err != nil {
		bs.state.Reset()
		return err
	}

	bs.Blocks = scalers
	bs.BlockFactors = factors
	bs.Y = ys

	nSamples, nTargets := Y.Dims()
	bs.state.SetFitted(sizes, nSamples, nTargets)
	return nil
}

// fitBlock は1つのブロックの列スケーラーとブロック係数を学習する
func (bs *BlockScaler) fitBlock(op string, b int, block mat.Matrix) (*StandardScaler, float64, error) {
	raw := mat.Norm(block, 2)

	scaler := NewStandardScaler(true, false)
	if err := scaler.Fit(block); err != nil {
		return nil, 0, err
	}
	xc, err := scaler.transform(block)
	if err != nil {
		return nil, 0, err
	}
	if errors.IsNearZero(mat.Norm(xc, 2), raw, zeroVarianceTol) {
		return nil, 0, errors.NewBlockNumericalError(op, "block has zero variance after centering", b, 0)
	}

	if bs.Standardize {
		scaler = NewStandardScaler(true, true)
		if err := scaler.Fit(block); err != nil {
			return nil, 0, err
		}
		if xc, err = scaler.transform(block); err != nil {
			return nil, 0, err
		}
	}

	factor := 1.0
	if bs.BlockScaling {
		factor = 1.0 / mat.Norm(xc, 2)
	}
	return scaler, factor, nil
}

// TransformBlocks は学習済みの統計量で各ブロックを前処理する
func (bs *BlockScaler) TransformBlocks(blocks []mat.Matrix) ([]*mat.Dense, error) {
	const op = "BlockScaler.TransformBlocks"

	if !bs.IsFitted() {
		return nil, errors.NewNotFittedError("BlockScaler", "TransformBlocks")
	}
	if len(blocks) != len(bs.Blocks) {
		return nil, errors.NewDimensionError(op, len(bs.Blocks), len(blocks), 2)
	}
	if err := ValidateBlocks(op, blocks, nil); err != nil {
		return nil, err
	}
	for b, block := range blocks {
		if _, c := block.Dims(); c != bs.Blocks[b].NFeatures {
			return nil, errors.NewBlockDimensionError(op, b, bs.Blocks[b].NFeatures, c, 1)
		}
	}

	out := make([]*mat.Dense, len(blocks))
	err := parallel.ForEach(len(blocks), cells(blocks), parallelThreshold, func(b int) error {
		xb, err := bs.Blocks[b].transform(blocks[b])
		if err != nil {
			return err
		}
		if bs.BlockFactors[b] != 1.0 {
			xb.Scale(bs.BlockFactors[b], xb)
		}
		out[b] = xb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransformY は学習済みの統計量で Y を中心化（および標準化）する
func (bs *BlockScaler) TransformY(Y mat.Matrix) (*mat.Dense, error) {
	if !bs.IsFitted() {
		return nil, errors.NewNotFittedError("BlockScaler", "TransformY")
	}
	r, c := Y.Dims()
	if err := errors.CheckMatrix("BlockScaler.TransformY", Y, r, c, -1); err != nil {
		return nil, err
	}
	return bs.Y.transform(Y)
}

// InverseTransformY は前処理空間の応答を元のスケールへ戻す
func (bs *BlockScaler) InverseTransformY(Y mat.Matrix) (*mat.Dense, error) {
	if !bs.IsFitted() {
		return nil, errors.NewNotFittedError("BlockScaler", "InverseTransformY")
	}
	out, err := bs.Y.InverseTransform(Y)
	if err != nil {
		return nil, err
	}
	return out.(*mat.Dense), nil
}

// FitTransform は学習後に同じデータを変換して返す
func (bs *BlockScaler) FitTransform(blocks []mat.Matrix, Y mat.Matrix) ([]*mat.Dense, *mat.Dense, error) {
	if err := bs.Fit(blocks, Y); err != nil {
		return nil, nil, err
	}
	xs, err := bs.TransformBlocks(blocks)
	if err != nil {
		return nil, nil, err
	}
	ys, err := bs.TransformY(Y)
	if err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}

// String はスケーラーの文字列表現を返す
func (bs *BlockScaler) String() string {
	if !bs.IsFitted() {
		return fmt.Sprintf("BlockScaler(standardize=%t, block_scaling=%t)", bs.Standardize, bs.BlockScaling)
	}
	return fmt.Sprintf("BlockScaler(standardize=%t, block_scaling=%t, block_sizes=%v)",
		bs.Standardize, bs.BlockScaling, bs.BlockSizes())
}

// RestoreBlockScaler は保存済みのブロックスケーラーと係数から学習済みのBlockScalerを復元する
func RestoreBlockScaler(standardize, blockScaling bool, blocks []*StandardScaler, factors []float64, y *StandardScaler) (*BlockScaler, error) {
	const op = "BlockScaler.Restore"
	if len(blocks) == 0 || y == nil {
		return nil, errors.NewModelError(op, "missing scalers", errors.ErrEmptyData)
	}
	if len(factors) != len(blocks) {
		return nil, errors.NewDimensionError(op, len(blocks), len(factors), 2)
	}
	bs := NewBlockScaler(standardize, blockScaling)
	bs.Blocks = blocks
	bs.BlockFactors = append([]float64(nil), factors...)
	bs.Y = y
	bs.state.SetFitted(bs.BlockSizes(), 0, y.NFeatures)
	return bs, nil
}
