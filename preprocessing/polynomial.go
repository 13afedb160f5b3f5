// Package preprocessing は特徴量変換（featurizer）を提供する
package preprocessing

import (
	"github.com/StatyMcStats/EconML/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PolynomialFeatures は多項式特徴量への変換器
// 入力特徴量の次数degree以下の全ての単項式（オプションでバイアス項）を生成する
//
// degree=1, includeBias=true の場合、出力は [1, X] となり
// 線形の最終モデルに切片を与えるデフォルトのfeaturizerとして機能する
type PolynomialFeatures struct {
	degree      int
	includeBias bool
}

// NewPolynomialFeatures は新しいPolynomialFeaturesを作成する
//
// パラメータ:
//   - degree: 生成する単項式の最大次数（1以上）
//   - includeBias: バイアス列（全て1）を含めるかどうか
func NewPolynomialFeatures(degree int, includeBias bool) *PolynomialFeatures {
	return &PolynomialFeatures{degree: degree, includeBias: includeBias}
}

// FitTransform は入力を多項式特徴量に変換する
// 状態を持たないため、同じ入力に対して常に同じ出力を返す
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if p.degree < 1 {
		return nil, errors.NewValueError("PolynomialFeatures.FitTransform", "degree must be at least 1")
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("PolynomialFeatures.FitTransform", "empty data", errors.ErrEmptyData)
	}

	combos := monomialCombinations(cols, p.degree)

	outCols := len(combos)
	offset := 0
	if p.includeBias {
		outCols++
		offset = 1
	}

	out := mat.NewDense(rows, outCols, nil)
	for i := 0; i < rows; i++ {
		if p.includeBias {
			out.Set(i, 0, 1.0)
		}
		for c, combo := range combos {
			v := 1.0
			for _, j := range combo {
				v *= X.At(i, j)
			}
			out.Set(i, offset+c, v)
		}
	}
	return out, nil
}

// monomialCombinations は次数1..degreeの単項式を表す列インデックスの
// 重複組合せを次数の昇順で列挙する
func monomialCombinations(cols, degree int) [][]int {
	var combos [][]int
	current := make([]int, 0, degree)

	var build func(start, remaining int)
	build = func(start, remaining int) {
		if remaining == 0 {
			combo := make([]int, len(current))
			copy(combo, current)
			combos = append(combos, combo)
			return
		}
		for j := start; j < cols; j++ {
			current = append(current, j)
			build(j, remaining-1)
			current = current[:len(current)-1]
		}
	}

	for d := 1; d <= degree; d++ {
		build(0, d)
	}
	return combos
}
