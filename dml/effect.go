// Package dml implements orthogonal ("double") machine learning for
// heterogeneous treatment effect estimation: cross-fitted nuisance
// residualization followed by a restricted final-stage regression whose
// predictions reconstruct the constant marginal effect tensor.
package dml

import (
	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/core/array"
	"github.com/StatyMcStats/EconML/pkg/errors"
)

// Effect is the constant marginal effect θ(X) over m query samples.
//
// Internally it is an (m × d_y × d_t) tensor. Axes whose corresponding
// input was vector-valued at fit time are collapsed: the stored dimension
// is 1 and the axis is excluded from Shape. The public rank therefore
// reflects the shapes seen during fit, never the query input.
type Effect struct {
	tensor     *array.Tensor3
	yCollapsed bool
	tCollapsed bool
}

// NumSamples returns the number of query samples m.
func (e *Effect) NumSamples() int {
	m, _, _ := e.tensor.Dims()
	return m
}

// Rank returns the number of non-collapsed axes, from 1 (both Y and T
// vector-valued) to 3 (both matrix-valued).
func (e *Effect) Rank() int {
	rank := 1
	if !e.yCollapsed {
		rank++
	}
	if !e.tCollapsed {
		rank++
	}
	return rank
}

// Shape returns the public shape with collapsed axes removed:
// (m), (m, d_t), (m, d_y), or (m, d_y, d_t).
func (e *Effect) Shape() []int {
	m, dy, dt := e.tensor.Dims()
	shape := []int{m}
	if !e.yCollapsed {
		shape = append(shape, dy)
	}
	if !e.tCollapsed {
		shape = append(shape, dt)
	}
	return shape
}

// At returns the effect of treatment dimension t on outcome dimension y for
// query sample i. Collapsed axes are addressed with index 0.
func (e *Effect) At(i, y, t int) float64 {
	return e.tensor.At(i, y, t)
}

// AsVec returns the rank-1 view (m,) when both outcome and treatment axes
// are collapsed.
func (e *Effect) AsVec() (*mat.VecDense, error) {
	if e.Rank() != 1 {
		return nil, errors.NewValueError("Effect.AsVec",
			"effect has non-collapsed outcome or treatment axes")
	}
	m, _, _ := e.tensor.Dims()
	vec := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		vec.SetVec(i, e.tensor.At(i, 0, 0))
	}
	return vec, nil
}

// AsMatrix returns the rank-2 view: (m × d_t) when only the outcome axis is
// collapsed, or (m × d_y) when only the treatment axis is collapsed.
func (e *Effect) AsMatrix() (*mat.Dense, error) {
	if e.Rank() != 2 {
		return nil, errors.NewValueError("Effect.AsMatrix",
			"effect does not have exactly one non-collapsed axis besides samples")
	}
	m, dy, dt := e.tensor.Dims()
	if e.yCollapsed {
		out := mat.NewDense(m, dt, nil)
		for i := 0; i < m; i++ {
			for t := 0; t < dt; t++ {
				out.Set(i, t, e.tensor.At(i, 0, t))
			}
		}
		return out, nil
	}
	out := mat.NewDense(m, dy, nil)
	for i := 0; i < m; i++ {
		for y := 0; y < dy; y++ {
			out.Set(i, y, e.tensor.At(i, y, 0))
		}
	}
	return out, nil
}

// Tensor returns the underlying (m × d_y × d_t) tensor with collapsed axes
// kept as size-1 dimensions.
func (e *Effect) Tensor() *array.Tensor3 {
	return e.tensor
}
