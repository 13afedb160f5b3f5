package dml

import (
	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/core/array"
	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/pkg/errors"
)

// FirstStageWrapper adapts a single-design-matrix Regressor to the
// (features, controls) nuisance contract by combining X and W into one
// design matrix before delegating.
//
// Two combination policies exist. The dense policy stacks the featurized
// features next to the controls. The sparse policy, meant for the outcome
// nuisance under high-dimensional linear assumptions, crosses [X|W] with
// [1|featurize(X)|W] so every feature and control interacts with every
// other and with a bias term, yielding a wide design for sparsity-seeking
// models.
type FirstStageWrapper struct {
	model      model.Regressor
	featurizer model.Transformer
	sparse     bool
}

// NewFirstStageWrapper wraps m with the given featurizer. sparse selects
// the cross-product combination policy.
func NewFirstStageWrapper(m model.Regressor, featurizer model.Transformer, sparse bool) *FirstStageWrapper {
	return &FirstStageWrapper{model: m, featurizer: featurizer, sparse: sparse}
}

func (w *FirstStageWrapper) combine(X, W mat.Matrix) (mat.Matrix, error) {
	feats, err := w.featurizer.FitTransform(X)
	if err != nil {
		return nil, err
	}
	if !w.sparse {
		return array.HStack(feats, W)
	}

	xw, err := array.HStack(X, W)
	if err != nil {
		return nil, err
	}
	rows, _ := xw.Dims()
	right, err := array.HStack(array.Ones(rows, 1), feats, W)
	if err != nil {
		return nil, err
	}
	return array.CrossProduct(xw, right)
}

// Fit combines X and W and fits the wrapped model against target.
func (w *FirstStageWrapper) Fit(X, W, target mat.Matrix) error {
	design, err := w.combine(X, W)
	if err != nil {
		return err
	}
	return w.model.Fit(design, target)
}

// Predict combines X and W and returns the wrapped model's prediction.
func (w *FirstStageWrapper) Predict(X, W mat.Matrix) (mat.Matrix, error) {
	design, err := w.combine(X, W)
	if err != nil {
		return nil, err
	}
	return w.model.Predict(design)
}

// FinalWrapper adapts a linear-in-parameters Regressor to the final-stage
// contract: it fits on cross_product(featurize(X), T_res) against Y_res and
// reconstructs the effect tensor at predict time.
//
// Reconstruction never reads coefficients. Instead, the rows of a d_t
// identity matrix are expanded via a Kronecker product with featurize(X)
// into synthetic design rows, one per query sample per treatment dimension,
// each isolating one treatment dimension's coefficient block. A single
// batched predict over those rows yields the full tensor, which keeps
// composite final models without coefficient access usable.
type FinalWrapper struct {
	model.BaseEstimator

	model      model.Regressor
	featurizer model.Transformer

	dT, dY     int // effective (≥1) trailing dims seen at fit
	tCollapsed bool
	yCollapsed bool
	featWidth  int
}

// NewFinalWrapper wraps the final model m with the given featurizer.
func NewFinalWrapper(m model.Regressor, featurizer model.Transformer) *FinalWrapper {
	return &FinalWrapper{model: m, featurizer: featurizer}
}

// Fit records the trailing shapes of the residuals and fits the wrapped
// model on cross_product(featurize(X), T_res) against Y_res.
func (w *FinalWrapper) Fit(X, tRes, yRes mat.Matrix) error {
	w.tCollapsed = array.IsVector(tRes)
	w.yCollapsed = array.IsVector(yRes)

	tDense := array.ToDense(tRes)
	yDense := array.ToDense(yRes)
	n, dT := tDense.Dims()
	w.dT = dT
	_, w.dY = yDense.Dims()

	feats, err := w.featurizer.FitTransform(X)
	if err != nil {
		return err
	}
	design, err := array.CrossProduct(feats, tDense)
	if err != nil {
		return err
	}
	if err := w.model.Fit(design, yRes); err != nil {
		return err
	}

	_, dx := X.Dims()
	_, w.featWidth = feats.Dims()
	w.SetDimensions(dx, n)
	w.SetFitted()
	return nil
}

// Predict reconstructs the (m × d_y × d_t) effect tensor for the query
// features X from the wrapped model's predictions alone.
func (w *FinalWrapper) Predict(X mat.Matrix) (*Effect, error) {
	if !w.IsFitted() {
		return nil, errors.NewNotFittedError("FinalWrapper", "Predict")
	}

	m, dx := X.Dims()
	if dx != w.NFeatures() {
		return nil, errors.NewDimensionError("FinalWrapper.Predict", w.NFeatures(), dx, 1)
	}

	feats, err := w.featurizer.FitTransform(X)
	if err != nil {
		return nil, err
	}
	if _, fw := feats.Dims(); fw != w.featWidth {
		return nil, errors.NewDimensionError("FinalWrapper.Predict", w.featWidth, fw, 1)
	}

	// Flatten eye(d_t) row-wise; its Kronecker product with featurize(X)
	// reshapes into m·d_t synthetic rows of the fit design's width, row
	// i·d_t+k carrying featurize(X_i) in treatment block k and zeros
	// elsewhere.
	eye := mat.NewDense(w.dT, w.dT, nil)
	for k := 0; k < w.dT; k++ {
		eye.Set(k, k, 1.0)
	}
	flatEye, err := array.Reshape(eye, 1, w.dT*w.dT)
	if err != nil {
		return nil, err
	}
	synthetic, err := array.Reshape(array.Kron(flatEye, feats), m*w.dT, w.dT*w.featWidth)
	if err != nil {
		return nil, err
	}

	pred, err := w.model.Predict(synthetic)
	if err != nil {
		return nil, err
	}
	flat := array.ToDense(pred)
	if fr, fc := flat.Dims(); fr != m*w.dT || fc != w.dY {
		return nil, errors.NewDimensionError("FinalWrapper.Predict", m*w.dT*w.dY, fr*fc, 0)
	}

	// The flat output is (m·d_t × d_y); transpose the trailing axes so the
	// public tensor is sample × outcome × treatment.
	tensor := array.NewTensor3(m, w.dY, w.dT, nil)
	for i := 0; i < m; i++ {
		for k := 0; k < w.dT; k++ {
			for y := 0; y < w.dY; y++ {
				tensor.Set(i, y, k, flat.At(i*w.dT+k, y))
			}
		}
	}
	return &Effect{tensor: tensor, yCollapsed: w.yCollapsed, tCollapsed: w.tCollapsed}, nil
}

// Coef returns the wrapped model's coefficients reshaped to
// (d_y × d_t × feature width). It fails with a NotSupportedError when the
// wrapped model does not expose coefficients.
func (w *FinalWrapper) Coef() (*array.Tensor3, error) {
	if !w.IsFitted() {
		return nil, errors.NewNotFittedError("FinalWrapper", "Coef")
	}

	exposer, ok := w.model.(model.Coefficienter)
	if !ok {
		return nil, errors.NewNotSupportedError("FinalWrapper", "Coef",
			"wrapped final model does not expose coefficients")
	}

	coef := exposer.Coef()
	rows, cols := coef.Dims()
	if rows != w.dY || cols != w.dT*w.featWidth {
		return nil, errors.NewDimensionError("FinalWrapper.Coef", w.dY*w.dT*w.featWidth, rows*cols, 1)
	}

	tensor := array.NewTensor3(w.dY, w.dT, w.featWidth, nil)
	for y := 0; y < w.dY; y++ {
		for k := 0; k < w.dT; k++ {
			for l := 0; l < w.featWidth; l++ {
				tensor.Set(y, k, l, coef.At(y, k*w.featWidth+l))
			}
		}
	}
	return tensor, nil
}
