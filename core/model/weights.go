package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（MBPLS等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は元のスケールでの回帰係数（説明変数 × 応答）
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts は応答ごとの切片
	Intercepts []float64 `json:"intercepts"`

	// BlockSizes は各 X ブロックの変数の数（係数の行はこの順に連結される）
	BlockSizes []int `json:"block_sizes"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValueError("ModelWeights.Validate", "model_type is required")
	}
	if mw.Version == "" {
		return errors.NewValueError("ModelWeights.Validate", "version is required")
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.NewValueError("ModelWeights.Validate", "unfitted model should not have coefficients")
	}
	if !mw.IsFitted {
		return nil
	}
	if len(mw.Coefficients) == 0 {
		return errors.NewValueError("ModelWeights.Validate", "fitted model must have coefficients")
	}

	total := 0
	for _, size := range mw.BlockSizes {
		total += size
	}
	if total != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", total, len(mw.Coefficients), 1)
	}
	for _, row := range mw.Coefficients {
		if len(row) != len(mw.Intercepts) {
			return errors.NewDimensionError("ModelWeights.Validate", len(mw.Intercepts), len(row), 1)
		}
	}
	return nil
}
