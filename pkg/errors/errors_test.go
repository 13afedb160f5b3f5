package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "econml: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "econml: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			// ModelError型にキャスト可能か確認
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Fit", 100, 99, 0)

	// 基本的なエラーメッセージの確認
	want := "econml: Fit: dimension mismatch on axis 0 (rows). Expected 100, got 99"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// DimensionError型にキャスト可能か確認
	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RLearner", "ConstMarginalEffect")

	// 基本的なエラーメッセージの確認
	want := "econml: RLearner: this estimator is not fitted yet. Call Fit() before using ConstMarginalEffect()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// NotFittedError型にキャスト可能か確認
	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewNotSupportedError(t *testing.T) {
	err := NewNotSupportedError("FinalWrapper", "Coef", "wrapped model does not expose coefficients")

	want := "econml: FinalWrapper does not support Coef: wrapped model does not expose coefficients"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var nsErr *NotSupportedError
	if !As(err, &nsErr) {
		t.Error("Error should be castable to *NotSupportedError")
	}
}

func TestNewNuisanceError(t *testing.T) {
	cause := fmt.Errorf("singular design")
	err := NewNuisanceError(1, "outcome", "fit", cause)

	want := "econml: outcome nuisance model failed during fit on fold 1: singular design"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// fold/targetの文脈を保持したままキャスト可能か確認
	var nuisanceErr *NuisanceError
	if !As(err, &nuisanceErr) {
		t.Fatal("Error should be castable to *NuisanceError")
	}
	if nuisanceErr.Fold != 1 || nuisanceErr.Target != "outcome" {
		t.Errorf("NuisanceError context = fold %d target %s, want fold 1 target outcome", nuisanceErr.Fold, nuisanceErr.Target)
	}

	// 委譲先のエラーがUnwrapで辿れるか確認
	if !Is(err, cause) {
		t.Error("Expected Is(err, cause) to be true through Unwrap")
	}
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("NewKFold", "nSplits must be at least 2")

	want := "econml: NewKFold: nSplits must be at least 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// ValueError型にキャスト可能か確認
	var valErr *ValueError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValueError")
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("Lasso", 1000, "loss did not decrease")

	want := "Lasso failed to converge after 1000 iterations: loss did not decrease"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}

	var convWarn *ConvergenceWarning
	if !As(warn, &convWarn) {
		t.Error("Warning should be castable to *ConvergenceWarning")
	}
}

func TestWrapAndIs(t *testing.T) {
	baseErr := ErrEmptyData

	wrapped := Wrap(baseErr, "in RLearner.Fit")

	// Is関数でチェック
	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	// エラーメッセージの確認
	if !strings.Contains(wrapped.Error(), "in RLearner.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	baseErr := ErrSingularMatrix

	wrapped := Wrapf(baseErr, "in %s: fold %d", "Fit", 0)

	if !Is(wrapped, ErrSingularMatrix) {
		t.Error("Expected Is(wrapped, ErrSingularMatrix) to be true")
	}

	expectedMsg := "in Fit: fold 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	// エラーチェーンの作成
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	// チェーン全体を確認
	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	// スタックトレースの確認（詳細表示）
	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}
