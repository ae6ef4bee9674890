package model

import "gonum.org/v1/gonum/mat"

// MultiBlockFitter は複数の説明変数ブロックと応答ブロックで学習するモデルのインターフェース
type MultiBlockFitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X []mat.Matrix, Y mat.Matrix) error
}

// MultiBlockPredictor は複数ブロックの入力から予測するモデルのインターフェース
type MultiBlockPredictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X []mat.Matrix) (mat.Matrix, error)
}

// MultiBlockTransformer は複数ブロックの入力を潜在空間へ射影するインターフェース
type MultiBlockTransformer interface {
	// Transform は入力データを潜在変数のスコアへ変換する
	Transform(X []mat.Matrix) (mat.Matrix, error)
}

// MultiBlockScorer は決定係数を計算できるモデルのインターフェース
type MultiBlockScorer interface {
	// Score は予測の決定係数 R² を返す
	Score(X []mat.Matrix, Y mat.Matrix) (float64, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータの変更を許可するモデルのインターフェース
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// MultiBlockRegressor は多ブロック回帰モデルの全機能を組み合わせたインターフェース
type MultiBlockRegressor interface {
	MultiBlockFitter
	MultiBlockPredictor
	MultiBlockTransformer
	MultiBlockScorer
	ParameterGetter
	ParameterSetter
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェース
type WeightExporter interface {
	ExportWeights() (*ModelWeights, error)
}
