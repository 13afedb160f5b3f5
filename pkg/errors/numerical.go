package errors

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// NumericalInstabilityError は計算中にNaNやInfが検出された場合のエラーです。
// 共線性の強い設計行列や不適切な正則化パラメータが典型的な原因です。
type NumericalInstabilityError struct {
	Op        string
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	if e.Iteration >= 0 {
		return fmt.Sprintf("econml: %s: numerical instability (NaN or Inf) detected at iteration %d", e.Op, e.Iteration)
	}
	return fmt.Sprintf("econml: %s: numerical instability (NaN or Inf) detected", e.Op)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("iteration", e.Iteration).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成し、スタックトレースを付与します。
// iterationが不明な場合は-1を渡します。
func NewNumericalInstabilityError(op string, iteration int) error {
	err := &NumericalInstabilityError{Op: op, Iteration: iteration}
	return WithStack(err)
}

// CheckValues は値列にNaNまたはInfが含まれていないか検査します。
func CheckValues(op string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(op, iteration)
		}
	}
	return nil
}

// CheckMatrix は行列の全要素にNaNまたはInfが含まれていないか検査します。
func CheckMatrix(op string, m interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return NewNumericalInstabilityError(op, -1)
			}
		}
	}
	return nil
}
