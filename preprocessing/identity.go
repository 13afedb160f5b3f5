package preprocessing

import (
	"gonum.org/v1/gonum/mat"
)

// Identity は入力をそのまま返す変換器
// featurizerを差し替え可能な箇所で「変換なし」を明示するために使う
type Identity struct{}

// NewIdentity は新しいIdentityを作成する
func NewIdentity() *Identity {
	return &Identity{}
}

// FitTransform は入力をそのまま返す
func (t *Identity) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	return X, nil
}
