package preprocessing

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/StatyMcStats/EconML/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RandomFourier はランダムフーリエ特徴量への変換器
// ガウスカーネルを近似する固定のランダム射影 sqrt(2/dim)*cos(X·Ω + b) を生成する
//
// 射影パラメータ（周波数Ωと位相オフセットb）は観測された入力幅ごとに一度だけ
// 遅延生成され、同じ幅の以降の呼び出しでは再利用される。キャッシュはインスタンス
// 専有であり、インスタンス間で共有されることはない。
type RandomFourier struct {
	dim       int
	bandwidth float64

	mu     sync.Mutex
	rng    *rand.Rand
	omegas map[int]*mat.Dense // 入力幅 → (幅 × dim) の周波数行列
	biases map[int][]float64  // 入力幅 → dim個の位相オフセット
}

// NewRandomFourier は新しいRandomFourierを作成する
//
// パラメータ:
//   - dim: 生成するランダムフーリエ特徴量の数
//   - bandwidth: ガウスカーネルのバンド幅（周波数は N(0, 1/bandwidth) から抽出）
//   - seed: 射影パラメータの乱数シード
func NewRandomFourier(dim int, bandwidth float64, seed uint64) *RandomFourier {
	return &RandomFourier{
		dim:       dim,
		bandwidth: bandwidth,
		rng:       rand.New(rand.NewPCG(seed, seed)),
		omegas:    make(map[int]*mat.Dense),
		biases:    make(map[int][]float64),
	}
}

// FitTransform は入力をランダムフーリエ特徴量に変換する
// 同じ入力幅に対しては常に同じ射影を使うため、同じ入力から同じ出力が得られる
func (f *RandomFourier) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if f.dim < 1 {
		return nil, errors.NewValueError("RandomFourier.FitTransform", "dim must be at least 1")
	}
	if f.bandwidth <= 0 {
		return nil, errors.NewValueError("RandomFourier.FitTransform", "bandwidth must be positive")
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("RandomFourier.FitTransform", "empty data", errors.ErrEmptyData)
	}

	omega, bias := f.projection(cols)

	var proj mat.Dense
	proj.Mul(X, omega)

	scale := math.Sqrt(2.0 / float64(f.dim))
	out := mat.NewDense(rows, f.dim, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < f.dim; j++ {
			out.Set(i, j, scale*math.Cos(proj.At(i, j)+bias[j]))
		}
	}
	return out, nil
}

// projection は入力幅widthに対応する射影パラメータを返す
// 初回のみ抽出し、以降はキャッシュから返す
func (f *RandomFourier) projection(width int) (*mat.Dense, []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if omega, ok := f.omegas[width]; ok {
		return omega, f.biases[width]
	}

	omega := mat.NewDense(width, f.dim, nil)
	for i := 0; i < width; i++ {
		for j := 0; j < f.dim; j++ {
			omega.Set(i, j, f.rng.NormFloat64()/f.bandwidth)
		}
	}

	bias := make([]float64, f.dim)
	for j := range bias {
		bias[j] = f.rng.Float64() * 2 * math.Pi
	}

	f.omegas[width] = omega
	f.biases[width] = bias
	return omega, bias
}
