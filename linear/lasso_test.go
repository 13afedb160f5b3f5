package linear

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/pkg/errors"
)

func TestLasso_RecoversSparseSignal(t *testing.T) {
	// y = 3*x0 - 2*x1、残り8特徴量は無関係
	rng := rand.New(rand.NewPCG(7, 7))
	const n, d = 200, 10

	X := mat.NewDense(n, d, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		y.SetVec(i, 3*X.At(i, 0)-2*X.At(i, 1)+0.01*rng.NormFloat64())
	}

	lasso := NewLasso(WithAlpha(0.01), WithMaxIter(5000), WithTol(1e-6))
	if err := lasso.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	coef := lasso.Coef()
	if math.Abs(coef.At(0, 0)-3.0) > 0.1 {
		t.Errorf("Expected coef[0] ~3.0, got %f", coef.At(0, 0))
	}
	if math.Abs(coef.At(0, 1)-(-2.0)) > 0.1 {
		t.Errorf("Expected coef[1] ~-2.0, got %f", coef.At(0, 1))
	}

	// 無関係な特徴量の係数はほぼ0に縮小される
	for j := 2; j < d; j++ {
		if math.Abs(coef.At(0, j)) > 0.05 {
			t.Errorf("Expected coef[%d] ~0, got %f", j, coef.At(0, j))
		}
	}
}

func TestLasso_StrongRegularizationShrinksToZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))
	const n = 100

	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		y.SetVec(i, 0.1*X.At(i, 0)+rng.NormFloat64())
	}

	lasso := NewLasso(WithAlpha(100.0))
	if err := lasso.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	coef := lasso.Coef()
	for j := 0; j < 3; j++ {
		if coef.At(0, j) != 0 {
			t.Errorf("Expected coef[%d] exactly 0 under strong regularization, got %f", j, coef.At(0, j))
		}
	}
}

func TestLasso_Errors(t *testing.T) {
	lasso := NewLasso()

	// 未学習のまま予測
	_, err := lasso.Predict(mat.NewDense(1, 1, []float64{1}))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Expected NotFittedError, got %v", err)
	}

	// 複数ターゲットは未対応
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 2, nil)
	err = lasso.Fit(X, y)
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("Expected ValueError for multi-target y, got %v", err)
	}
}

func TestLasso_PredictionShape(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 2, 1})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	lasso := NewLasso(WithAlpha(0.001))
	if err := lasso.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	pred, err := lasso.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if _, ok := pred.(mat.Vector); !ok {
		t.Errorf("Expected vector prediction, got %T", pred)
	}
	r, c := pred.Dims()
	if r != 4 || c != 1 {
		t.Errorf("Prediction dims = (%d, %d), want (4, 1)", r, c)
	}
}
