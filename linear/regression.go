// Package linear は通常最小二乗法とLassoによる線形回帰モデルを提供する
package linear

import (
	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Regression は最小二乗法による線形回帰モデル
// 複数ターゲット（yが複数列）に対応し、QR分解で正規方程式を解く
type Regression struct {
	model.BaseEstimator

	fitIntercept bool

	coef_      *mat.Dense // (ターゲット数 × 特徴量数) の係数行列
	intercept_ []float64  // ターゲットごとの切片
	nTargets   int
	yIsVector  bool
}

// RegressionOption は設定オプション
type RegressionOption func(*Regression)

// WithIntercept は切片の学習有無を設定する（デフォルト: true）
func WithIntercept(fit bool) RegressionOption {
	return func(r *Regression) {
		r.fitIntercept = fit
	}
}

// NewRegression は新しい線形回帰モデルを作成する
//
// 使用例:
//
//	ols := linear.NewRegression(linear.WithIntercept(false))
//	err := ols.Fit(X, y)
//	pred, err := ols.Predict(XTest)
func NewRegression(options ...RegressionOption) *Regression {
	r := &Regression{fitIntercept: true}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit はモデルを訓練データで学習させる
// yはベクトル（単一ターゲット）または1ターゲット1列の行列
func (r *Regression) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError("Regression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("Regression.Fit", rows, yRows, 0)
	}

	r.yIsVector = false
	if _, ok := y.(mat.Vector); ok {
		r.yIsVector = true
	}

	// 切片項のために X に 1 の列を追加
	var XFit mat.Matrix = X
	if r.fitIntercept {
		XWithIntercept := mat.NewDense(rows, cols+1, nil)
		for i := 0; i < rows; i++ {
			XWithIntercept.Set(i, 0, 1.0)
			for j := 0; j < cols; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
		XFit = XWithIntercept
	}

	// QR分解で正規方程式を解く（複数ターゲットは複数右辺として一括で解ける）
	var qr mat.QR
	qr.Factorize(XFit)

	_, fitCols := XFit.Dims()
	solution := mat.NewDense(fitCols, yCols, nil)
	if err := qr.SolveTo(solution, false, y); err != nil {
		return errors.NewModelError("Regression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckMatrix("Regression.Fit", solution, fitCols, yCols); err != nil {
		return err
	}

	// 切片と係数を分離（係数は sklearn 互換の ターゲット×特徴量 レイアウト）
	r.nTargets = yCols
	r.intercept_ = make([]float64, yCols)
	r.coef_ = mat.NewDense(yCols, cols, nil)
	for k := 0; k < yCols; k++ {
		offset := 0
		if r.fitIntercept {
			r.intercept_[k] = solution.At(0, k)
			offset = 1
		}
		for j := 0; j < cols; j++ {
			r.coef_.Set(k, j, solution.At(j+offset, k))
		}
	}

	r.SetDimensions(cols, rows)
	r.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
// 学習時のyがベクトルならベクトルを、行列なら行列を返す
func (r *Regression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regression", "Predict")
	}

	rows, cols := X.Dims()
	if cols != r.NFeatures() {
		return nil, errors.NewDimensionError("Regression.Predict", r.NFeatures(), cols, 1)
	}

	predictions := mat.NewDense(rows, r.nTargets, nil)
	for i := 0; i < rows; i++ {
		for k := 0; k < r.nTargets; k++ {
			pred := r.intercept_[k]
			for j := 0; j < cols; j++ {
				pred += X.At(i, j) * r.coef_.At(k, j)
			}
			predictions.Set(i, k, pred)
		}
	}

	if r.yIsVector {
		vec := mat.NewVecDense(rows, nil)
		vec.CopyVec(predictions.ColView(0))
		return vec, nil
	}
	return predictions, nil
}

// Coef は学習された係数を (ターゲット数 × 特徴量数) の行列として返す
func (r *Regression) Coef() mat.Matrix {
	if r.coef_ == nil {
		return nil
	}
	return r.coef_
}

// Intercept は学習された切片をターゲットごとに返す
func (r *Regression) Intercept() []float64 {
	if r.intercept_ == nil {
		return nil
	}
	out := make([]float64, len(r.intercept_))
	copy(out, r.intercept_)
	return out
}

// Score はモデルの決定係数（R²）を計算する（最初のターゲット列に対して）
func (r *Regression) Score(X, y mat.Matrix) (float64, error) {
	if !r.IsFitted() {
		return 0, errors.NewNotFittedError("Regression", "Score")
	}

	yPred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	var yMean float64
	for i := 0; i < rows; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(rows)

	var tss, rss float64
	for i := 0; i < rows; i++ {
		yTrue := y.At(i, 0)
		diff := yTrue - yPred.At(i, 0)
		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += diff * diff
	}

	if tss == 0 {
		return 0, errors.NewValueError("Regression.Score", "total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}
