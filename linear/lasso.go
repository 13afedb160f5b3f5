package linear

import (
	"math"

	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Lasso はL1正則化付き線形回帰モデル（座標降下法）
// 高次元でスパースな係数を求めるニュイサンスモデルとして使用する
type Lasso struct {
	model.BaseEstimator

	alpha        float64
	maxIter      int
	tol          float64
	fitIntercept bool

	coef_      []float64
	intercept_ float64
}

// LassoOption は設定オプション
type LassoOption func(*Lasso)

// WithAlpha は正則化の強さを設定する（デフォルト: 1.0）
func WithAlpha(alpha float64) LassoOption {
	return func(l *Lasso) {
		l.alpha = alpha
	}
}

// WithMaxIter は座標降下法の最大反復回数を設定する（デフォルト: 1000）
func WithMaxIter(maxIter int) LassoOption {
	return func(l *Lasso) {
		l.maxIter = maxIter
	}
}

// WithTol は収束判定の許容誤差を設定する（デフォルト: 1e-4）
func WithTol(tol float64) LassoOption {
	return func(l *Lasso) {
		l.tol = tol
	}
}

// WithLassoIntercept は切片の学習有無を設定する（デフォルト: true）
func WithLassoIntercept(fit bool) LassoOption {
	return func(l *Lasso) {
		l.fitIntercept = fit
	}
}

// NewLasso は新しいLassoモデルを作成する
func NewLasso(options ...LassoOption) *Lasso {
	l := &Lasso{
		alpha:        1.0,
		maxIter:      1000,
		tol:          1e-4,
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Fit はモデルを訓練データで学習させる
// yは単一ターゲット（ベクトルまたは1列の行列）でなければならない
func (l *Lasso) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError("Lasso.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("Lasso.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("Lasso.Fit", "y must be a single target")
	}
	if l.alpha < 0 {
		return errors.NewValueError("Lasso.Fit", "alpha must be non-negative")
	}

	target := make([]float64, rows)
	for i := 0; i < rows; i++ {
		target[i] = y.At(i, 0)
	}

	// 切片は中心化で処理する
	var yMean float64
	xMean := make([]float64, cols)
	if l.fitIntercept {
		for i := 0; i < rows; i++ {
			yMean += target[i]
			for j := 0; j < cols; j++ {
				xMean[j] += X.At(i, j)
			}
		}
		yMean /= float64(rows)
		for j := 0; j < cols; j++ {
			xMean[j] /= float64(rows)
		}
	}

	// 中心化済みデータと列ごとの二乗和を準備
	xc := mat.NewDense(rows, cols, nil)
	colNorm := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j) - xMean[j]
			xc.Set(i, j, v)
			colNorm[j] += v * v
		}
	}

	// 残差 r = y - X*w から開始（w = 0）
	residual := make([]float64, rows)
	for i := 0; i < rows; i++ {
		residual[i] = target[i] - yMean
	}

	coef := make([]float64, cols)
	threshold := l.alpha * float64(rows)

	converged := false
	for iter := 0; iter < l.maxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < cols; j++ {
			if colNorm[j] == 0 {
				continue
			}

			// 座標jの偏残差に対する相関
			rho := 0.0
			for i := 0; i < rows; i++ {
				rho += xc.At(i, j) * (residual[i] + xc.At(i, j)*coef[j])
			}

			// ソフト閾値処理
			newCoef := 0.0
			if rho > threshold {
				newCoef = (rho - threshold) / colNorm[j]
			} else if rho < -threshold {
				newCoef = (rho + threshold) / colNorm[j]
			}

			delta := newCoef - coef[j]
			if delta != 0 {
				for i := 0; i < rows; i++ {
					residual[i] -= xc.At(i, j) * delta
				}
				coef[j] = newCoef
			}
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}

		if maxDelta < l.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Lasso", l.maxIter, ""))
	}
	if err := errors.CheckValues("Lasso.Fit", coef, l.maxIter); err != nil {
		return err
	}

	l.coef_ = coef
	l.intercept_ = 0
	if l.fitIntercept {
		l.intercept_ = yMean
		for j := 0; j < cols; j++ {
			l.intercept_ -= coef[j] * xMean[j]
		}
	}

	l.SetDimensions(cols, rows)
	l.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Lasso", "Predict")
	}

	rows, cols := X.Dims()
	if cols != l.NFeatures() {
		return nil, errors.NewDimensionError("Lasso.Predict", l.NFeatures(), cols, 1)
	}

	predictions := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		pred := l.intercept_
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * l.coef_[j]
		}
		predictions.SetVec(i, pred)
	}
	return predictions, nil
}

// Coef は学習された係数を (1 × 特徴量数) の行列として返す
func (l *Lasso) Coef() mat.Matrix {
	if l.coef_ == nil {
		return nil
	}
	out := make([]float64, len(l.coef_))
	copy(out, l.coef_)
	return mat.NewDense(1, len(out), out)
}

// Intercept は学習された切片を返す
func (l *Lasso) Intercept() float64 {
	return l.intercept_
}
