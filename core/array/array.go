// Package array provides the shape and product utilities used to assemble
// design matrices: horizontal stacking, row-wise cross products, Kronecker
// products, row-major reshaping, and a small rank-3 tensor type.
package array

import (
	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/core/parallel"
	"github.com/StatyMcStats/EconML/pkg/errors"
)

// Row loops below this size run sequentially.
const parallelThreshold = 1000

// Ones returns an r×c matrix filled with ones.
func Ones(r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 1.0
	}
	return mat.NewDense(r, c, data)
}

// IsVector reports whether m is a gonum vector, the library's encoding of a
// 1-D (single-column, axis-collapsed) target.
func IsVector(m mat.Matrix) bool {
	_, ok := m.(mat.Vector)
	return ok
}

// ToDense returns m as a *mat.Dense, copying unless m already is one.
// Vectors become single-column matrices. A nil input returns nil.
func ToDense(m mat.Matrix) *mat.Dense {
	if m == nil {
		return nil
	}
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

// HStack concatenates matrices left to right. Nil blocks are skipped, which
// is how an omitted (zero-column) control matrix flows through combine
// policies. All non-nil blocks must have the same row count.
func HStack(blocks ...mat.Matrix) (*mat.Dense, error) {
	rows, cols := 0, 0
	for _, b := range blocks {
		if b == nil {
			continue
		}
		r, c := b.Dims()
		if rows == 0 {
			rows = r
		} else if r != rows {
			return nil, errors.NewDimensionError("array.HStack", rows, r, 0)
		}
		cols += c
	}
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("array.HStack", "no columns to stack", errors.ErrEmptyData)
	}

	out := mat.NewDense(rows, cols, nil)
	offset := 0
	for _, b := range blocks {
		if b == nil {
			continue
		}
		_, c := b.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, b.At(i, j))
			}
		}
		offset += c
	}
	return out, nil
}

// CrossProduct returns the row-wise product of every column of a with every
// column of b: out[i, j*ca+l] = b[i,j] * a[i,l]. The first factor varies
// fastest, so each row equals kron(b_i, a_i). Final-stage designs built with
// CrossProduct(features, treatments) therefore share column order with the
// Kronecker rows used at effect-reconstruction time.
func CrossProduct(a, b mat.Matrix) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb {
		return nil, errors.NewDimensionError("array.CrossProduct", ra, rb, 0)
	}

	out := mat.NewDense(ra, ca*cb, nil)
	parallel.ParallelizeWithThreshold(ra, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < cb; j++ {
				bij := b.At(i, j)
				for l := 0; l < ca; l++ {
					out.Set(i, j*ca+l, bij*a.At(i, l))
				}
			}
		}
	})
	return out, nil
}

// Kron returns the Kronecker product a⊗b.
func Kron(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Kronecker(a, b)
	return &out
}

// Reshape reinterprets m row-major as an r×c matrix. The element count must
// be preserved.
func Reshape(m mat.Matrix, r, c int) (*mat.Dense, error) {
	mr, mc := m.Dims()
	if mr*mc != r*c {
		return nil, errors.NewValueError("array.Reshape",
			errors.Newf("cannot reshape %dx%d into %dx%d", mr, mc, r, c).Error())
	}

	data := make([]float64, 0, r*c)
	for i := 0; i < mr; i++ {
		for j := 0; j < mc; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return mat.NewDense(r, c, data), nil
}

// TakeRows returns the submatrix of m formed by the given row indices, in
// order. A nil m returns nil so omitted controls pass through fold slicing.
func TakeRows(m mat.Matrix, indices []int) *mat.Dense {
	if m == nil {
		return nil
	}
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}

// Tensor3 is a dense rank-3 tensor stored row-major as (d0, d1, d2).
type Tensor3 struct {
	data       []float64
	d0, d1, d2 int
}

// NewTensor3 creates a d0×d1×d2 tensor backed by data. A nil data slice
// allocates zeros; otherwise len(data) must equal d0*d1*d2.
func NewTensor3(d0, d1, d2 int, data []float64) *Tensor3 {
	if data == nil {
		data = make([]float64, d0*d1*d2)
	}
	if len(data) != d0*d1*d2 {
		panic("array: tensor data length mismatch")
	}
	return &Tensor3{data: data, d0: d0, d1: d1, d2: d2}
}

// Dims returns the tensor's dimensions.
func (t *Tensor3) Dims() (d0, d1, d2 int) {
	return t.d0, t.d1, t.d2
}

// At returns the element at (i, j, k).
func (t *Tensor3) At(i, j, k int) float64 {
	if i < 0 || i >= t.d0 || j < 0 || j >= t.d1 || k < 0 || k >= t.d2 {
		panic("array: tensor index out of range")
	}
	return t.data[(i*t.d1+j)*t.d2+k]
}

// Set assigns the element at (i, j, k).
func (t *Tensor3) Set(i, j, k int, v float64) {
	if i < 0 || i >= t.d0 || j < 0 || j >= t.d1 || k < 0 || k >= t.d2 {
		panic("array: tensor index out of range")
	}
	t.data[(i*t.d1+j)*t.d2+k] = v
}

// SliceMatrix returns the (d1 × d2) matrix at index i along the first axis.
func (t *Tensor3) SliceMatrix(i int) *mat.Dense {
	if i < 0 || i >= t.d0 {
		panic("array: tensor index out of range")
	}
	start := i * t.d1 * t.d2
	return mat.NewDense(t.d1, t.d2, t.data[start:start+t.d1*t.d2])
}
