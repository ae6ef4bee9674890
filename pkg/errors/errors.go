// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex sync.Mutex
	// SetWarningHandler で利用者が設定したハンドラ
	warningHandler func(w error)
	// zerologロガー（循環importを避けるため pkg/log の init で設定される）
	zerologWarnFunc func(warning error)
)

// defaultWarningHandler は標準エラー出力にログを出す
func defaultWarningHandler(w error) {
	log.Printf("unipls-Warning: %v\n", w)
}

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、DegenerateBlockWarningなどのカスタム警告の処理方法を制御できます。
// 設定したハンドラは zerolog 関数より優先されます。nilを渡すと解除します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと標準エラー出力へのハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// 優先順位は SetWarningHandler のハンドラ、zerolog関数、標準エラー出力の順です。
// ハンドラはロックの外で呼ばれるため、ハンドラ内から Warn を呼んでも構いません。
func Warn(w error) {
	warningMutex.Lock()
	handler := warningHandler
	if handler == nil {
		handler = zerologWarnFunc
	}
	if handler == nil {
		handler = defaultWarningHandler
	}
	warningMutex.Unlock()

	handler(w)
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// DegenerateBlockWarning はあるブロックが応答と共分散を持たず、
// 成分の重みがゼロになった場合に発生する警告です。
type DegenerateBlockWarning struct {
	Block     int
	Component int
}

func (w *DegenerateBlockWarning) Error() string {
	return fmt.Sprintf("block %d has no covariance with the response in component %d; its weight is set to zero", w.Block, w.Component)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DegenerateBlockWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("block", w.Block).
		Int("component", w.Component).
		Str("type", "DegenerateBlockWarning")
}

// NewDegenerateBlockWarning は新しいDegenerateBlockWarningを作成します。
func NewDegenerateBlockWarning(block, component int) *DegenerateBlockWarning {
	return &DegenerateBlockWarning{Block: block, Component: component}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("unipls: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
// Block が 0 以上の場合、どの X ブロックで不一致が起きたかを示します。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features, 2 for the number of blocks
	Block    int // -1 when the mismatch is not tied to one block
}

func (e *DimensionError) axisName() string {
	switch e.Axis {
	case 0:
		return "rows"
	case 2:
		return "blocks"
	default:
		return "features"
	}
}

func (e *DimensionError) Error() string {
	if e.Block >= 0 {
		return fmt.Sprintf("unipls: %s: dimension mismatch in block %d on axis %d (%s). Expected %d, got %d",
			e.Op, e.Block, e.Axis, e.axisName(), e.Expected, e.Got)
	}
	return fmt.Sprintf("unipls: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Int("block", e.Block).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis, Block: -1}
	return errors.WithStack(err)
}

// NewBlockDimensionError は特定のブロックに関するDimensionErrorを作成します。
func NewBlockDimensionError(op string, block, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis, Block: block}
	return errors.WithStack(err)
}

// ConfigError はモデルのハイパーパラメータが不正な場合のエラーです。
// 未対応のソルバー名や 0 以下の成分数などで発生します。
type ConfigError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unipls: invalid configuration for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigError")
}

// NewConfigError は新しいConfigErrorを作成し、スタックトレースを付与します。
func NewConfigError(param, reason string, value interface{}) error {
	err := &ConfigError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// NumericalError は数値計算が退化した場合のエラーです。
// 分散ゼロのブロック、ゼロノルムの重みベクトル、特異な交差積行列、NaN/Inf の入力などで発生します。
type NumericalError struct {
	Op        string
	Reason    string
	Block     int // -1 when not tied to one block
	Component int // 1-based component index, 0 when raised outside the component loop
	Values    []float64
}

func (e *NumericalError) Error() string {
	msg := fmt.Sprintf("unipls: %s: numerical error: %s", e.Op, e.Reason)
	if e.Block >= 0 {
		msg += fmt.Sprintf(" (block %d)", e.Block)
	}
	if e.Component > 0 {
		msg += fmt.Sprintf(" (component %d)", e.Component)
	}
	if len(e.Values) > 0 {
		valStr := ""
		for i, v := range e.Values {
			if i > 0 {
				valStr += ", "
			}
			if i >= 5 {
				valStr += "..."
				break
			}
			valStr += fmt.Sprintf("%.6g", v)
		}
		msg += fmt.Sprintf(". Values: [%s]", valStr)
	}
	return msg
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Int("block", e.Block).
		Int("component", e.Component).
		Str("type", "NumericalError")
}

// NewNumericalError は新しいNumericalErrorを作成し、スタックトレースを付与します。
func NewNumericalError(op, reason string) error {
	err := &NumericalError{Op: op, Reason: reason, Block: -1}
	return errors.WithStack(err)
}

// NewBlockNumericalError は特定のブロック・成分で発生したNumericalErrorを作成します。
func NewBlockNumericalError(op, reason string, block, component int) error {
	err := &NumericalError{Op: op, Reason: reason, Block: block, Component: component}
	return errors.WithStack(err)
}

// ConvergenceError は反復アルゴリズム（NIPALS）が上限回数内に収束しなかった場合のエラーです。
// 収束失敗は警告ではなくエラーとして報告され、途中の結果は破棄されます。
type ConvergenceError struct {
	Algorithm  string
	Iterations int
	Tol        float64
	Change     float64 // 最後の反復でのスコア変化量（相対値）
	Component  int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("unipls: %s failed to converge for component %d after %d iterations (change %.3g > tol %.3g). Consider increasing max_iter or tol",
		e.Algorithm, e.Component, e.Iterations, e.Change, e.Tol)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConvergenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Int("iterations", e.Iterations).
		Float64("tol", e.Tol).
		Float64("change", e.Change).
		Int("component", e.Component).
		Str("type", "ConvergenceError")
}

// NewConvergenceError は新しいConvergenceErrorを作成し、スタックトレースを付与します。
func NewConvergenceError(algorithm string, component, iterations int, tol, change float64) error {
	err := &ConvergenceError{
		Algorithm:  algorithm,
		Iterations: iterations,
		Tol:        tol,
		Change:     change,
		Component:  component,
	}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("unipls: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unipls: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("unipls: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// TypeName はエラーの分類名を返します（メトリクスのラベルやログに使用）。
func TypeName(err error) string {
	var (
		notFitted   *NotFittedError
		dimension   *DimensionError
		config      *ConfigError
		numerical   *NumericalError
		convergence *ConvergenceError
		modelErr    *ModelError
		panicErr    *PanicError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &convergence):
		return "ConvergenceError"
	case errors.As(err, &numerical):
		return "NumericalError"
	case errors.As(err, &dimension):
		return "DimensionError"
	case errors.As(err, &notFitted):
		return "NotFittedError"
	case errors.As(err, &config):
		return "ConfigError"
	case errors.As(err, &panicErr):
		return "PanicError"
	case errors.As(err, &modelErr):
		return "ModelError"
	default:
		return "Error"
	}
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
