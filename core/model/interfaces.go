// Package model provides the base estimator state machinery and the
// interfaces shared by nuisance models, featurizers, and CATE estimators.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the contract for wrapped estimators: any model exposing a
// single-design-matrix fit/predict pair. The target y may be a mat.Vector
// (single target) or a matrix with one column per target.
type Regressor interface {
	Fitter
	Predictor
}

// RegressorFactory produces fresh, independent Regressor instances.
//
// Cross-fitting requires one untouched model per fold; a factory makes that
// re-initialization explicit instead of relying on deep-copy semantics.
// Implementations must return a new instance on every call, sharing no
// mutable state with previously returned instances.
type RegressorFactory func() Regressor

// Coefficienter is the optional capability of linear models that expose
// their fitted coefficients directly. Coef returns a (targets × width)
// matrix, one row per target column seen during fit.
type Coefficienter interface {
	Coef() mat.Matrix
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// FitTransform はデータを変換した設計行列を返す。
	// 同じ入力に対して繰り返し呼び出しても同じ結果を返さなければならない。
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// NuisanceModel is the two-argument (features, controls) fit/predict
// contract driven by the cross-fitting orchestrator. Target and prediction
// shapes must match: a mat.Vector target yields a vector-shaped prediction.
type NuisanceModel interface {
	Fit(X, W, target mat.Matrix) error
	Predict(X, W mat.Matrix) (mat.Matrix, error)
}

// NuisanceFactory produces fresh, independent NuisanceModel instances,
// one per cross-fitting fold.
type NuisanceFactory func() NuisanceModel
