package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError はrecoverされたpanicから生成されるエラーです。
// gonumの行列演算は形状不一致でpanicするため、推定器の公開APIは
// panicを構造化エラーに変換して返します。
type PanicError struct {
	// PanicValue はpanic()に渡された元の値
	PanicValue interface{}

	// StackTrace はpanic発生時のスタックトレース
	StackTrace string

	// Operation はpanicをrecoverした場所
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("econml: panic in %s: %v", e.Operation, e.PanicValue)
}

// String はスタックトレースを含む詳細情報を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("econml: panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError は新しいPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferと共に使い、panicをエラーに変換します。
//
// 使用例:
//
//	func (r *RLearner) Fit(...) (err error) {
//	    defer errors.Recover(&err, "RLearner.Fit")
//	    // ...
//	}
//
// 既にエラーが設定されている場合はpanic情報でラップします。
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)

		if *err != nil {
			*err = fmt.Errorf("econml: panic in %s: %v (original error: %w)",
				operation, r, *err)
		} else {
			*err = panicErr
		}
	}
}
