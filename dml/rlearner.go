package dml

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/core/array"
	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/metrics"
	"github.com/StatyMcStats/EconML/pkg/errors"
	"github.com/StatyMcStats/EconML/pkg/log"
)

// FinalModel is the final-stage contract: fit on features and residuals,
// predict the constant marginal effect at query features.
type FinalModel interface {
	Fit(X, tRes, yRes mat.Matrix) error
	Predict(X mat.Matrix) (*Effect, error)
}

// RLearner estimates the constant marginal effect θ(X) in the partially
// linear model Y = θ(X)·T + g(X, W) + ε via orthogonalization.
//
// Fit cross-fits the two nuisance regressions E[Y|X,W] and E[T|X,W]: the
// data is split into folds and each sample's nuisance prediction comes from
// models that never saw it during training. The residuals
// Y - E[Y|X,W] and T - E[T|X,W] are then pooled and handed to the final
// model, whose restricted regression recovers θ(X).
type RLearner struct {
	model.BaseEstimator

	modelY     model.NuisanceFactory
	modelT     model.NuisanceFactory
	modelFinal FinalModel

	nSplits int
	shuffle bool
	seed    uint64

	xOmitted bool
	modelsY  []model.NuisanceModel
	modelsT  []model.NuisanceModel
}

// RLearnerOption configures an RLearner.
type RLearnerOption func(*RLearner)

// WithNSplits sets the number of cross-fitting folds (default 2).
func WithNSplits(n int) RLearnerOption {
	return func(r *RLearner) {
		r.nSplits = n
	}
}

// WithShuffle enables index shuffling before fold assignment, using seed for
// reproducibility. Without this option the split is the deterministic
// in-order partition.
func WithShuffle(seed uint64) RLearnerOption {
	return func(r *RLearner) {
		r.shuffle = true
		r.seed = seed
	}
}

// NewRLearner creates an orthogonal learner from nuisance model factories
// and a final model. The factories are invoked once per fold so every fold
// trains on fresh model instances.
func NewRLearner(modelY, modelT model.NuisanceFactory, modelFinal FinalModel, opts ...RLearnerOption) *RLearner {
	r := &RLearner{
		modelY:     modelY,
		modelT:     modelT,
		modelFinal: modelFinal,
		nSplits:    2,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// takeTarget slices rows of a fit target while preserving its vector-ness,
// so nuisance models see the same shape on every fold that the caller
// passed to Fit.
func takeTarget(m mat.Matrix, indices []int) mat.Matrix {
	dense := array.TakeRows(m, indices)
	if !array.IsVector(m) {
		return dense
	}
	vec := mat.NewVecDense(len(indices), nil)
	for i := range indices {
		vec.SetVec(i, dense.At(i, 0))
	}
	return vec
}

// asTarget converts a pooled residual matrix back to the shape of the
// original target: a single-column matrix becomes a vector again when the
// original target was one.
func asTarget(d *mat.Dense, wasVector bool) mat.Matrix {
	if !wasVector {
		return d
	}
	n, _ := d.Dims()
	vec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		vec.SetVec(i, d.At(i, 0))
	}
	return vec
}

// Fit cross-fits the nuisance models, assembles out-of-fold residuals, and
// fits the final model on them.
//
// X carries the effect heterogeneity features and W the additional controls;
// either may be nil. A nil X means the effect is a single constant: an
// all-ones column substitutes for it so the final stage reduces to an
// intercept-only effect model.
func (r *RLearner) Fit(Y, T, X, W mat.Matrix) (err error) {
	// gonum panics on shape mismatches inside caller-supplied models.
	defer errors.Recover(&err, "RLearner.Fit")

	// Refitting starts from a clean slate: any failure below leaves the
	// estimator unfitted rather than partially updated.
	r.Reset()
	r.modelsY = nil
	r.modelsT = nil

	if Y == nil || T == nil {
		return errors.NewValueError("RLearner.Fit", "Y and T must not be nil")
	}
	n, dY := array.ToDense(Y).Dims()
	if n == 0 {
		return errors.NewModelError("RLearner.Fit", "empty input", errors.ErrEmptyData)
	}
	if tn, _ := T.Dims(); tn != n {
		return errors.NewDimensionError("RLearner.Fit", n, tn, 0)
	}
	if X != nil {
		if xn, _ := X.Dims(); xn != n {
			return errors.NewDimensionError("RLearner.Fit", n, xn, 0)
		}
	}
	if W != nil {
		if wn, _ := W.Dims(); wn != n {
			return errors.NewDimensionError("RLearner.Fit", n, wn, 0)
		}
	}

	r.xOmitted = X == nil
	if r.xOmitted {
		X = array.Ones(n, 1)
	}
	_, dX := X.Dims()
	_, dT := array.ToDense(T).Dims()

	logger := log.GetLogger().With(log.ModelNameKey, "RLearner")
	logger.Info("starting cross-fitted nuisance estimation",
		log.OperationKey, "fit",
		log.SamplesKey, n,
		log.FeaturesKey, dX,
		log.SplitsKey, r.nSplits)
	start := time.Now()

	folds, err := NewKFold(r.nSplits, r.shuffle, r.seed).Split(n)
	if err != nil {
		return err
	}

	yIsVector := array.IsVector(Y)
	tIsVector := array.IsVector(T)
	yRes := mat.NewDense(n, dY, nil)
	tRes := mat.NewDense(n, dT, nil)

	r.modelsY = make([]model.NuisanceModel, len(folds))
	r.modelsT = make([]model.NuisanceModel, len(folds))

	for f, fold := range folds {
		trainX := array.TakeRows(X, fold.TrainIndices)
		trainW := array.TakeRows(W, fold.TrainIndices)
		testX := array.TakeRows(X, fold.TestIndices)
		testW := array.TakeRows(W, fold.TestIndices)

		mY := r.modelY()
		if err := mY.Fit(trainX, trainW, takeTarget(Y, fold.TrainIndices)); err != nil {
			return errors.NewNuisanceError(f, "outcome", "fit", err)
		}
		predY, err := mY.Predict(testX, testW)
		if err != nil {
			return errors.NewNuisanceError(f, "outcome", "predict", err)
		}

		mT := r.modelT()
		if err := mT.Fit(trainX, trainW, takeTarget(T, fold.TrainIndices)); err != nil {
			return errors.NewNuisanceError(f, "treatment", "fit", err)
		}
		predT, err := mT.Predict(testX, testW)
		if err != nil {
			return errors.NewNuisanceError(f, "treatment", "predict", err)
		}

		for i, idx := range fold.TestIndices {
			for j := 0; j < dY; j++ {
				yRes.Set(idx, j, Y.At(idx, j)-predY.At(i, j))
			}
			for j := 0; j < dT; j++ {
				tRes.Set(idx, j, T.At(idx, j)-predT.At(i, j))
			}
		}

		r.modelsY[f] = mY
		r.modelsT[f] = mT
		logger.Debug("fold residuals computed",
			log.FoldKey, f,
			log.SamplesKey, len(fold.TestIndices))
	}

	if err := r.modelFinal.Fit(X, asTarget(tRes, tIsVector), asTarget(yRes, yIsVector)); err != nil {
		return errors.Wrap(err, "econml: RLearner.Fit: final model")
	}

	r.SetDimensions(dX, n)
	r.SetFitted()
	logger.Info("fit complete",
		log.OperationKey, "fit",
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// ConstMarginalEffect returns the constant marginal effect θ(X) at the query
// features. When the estimator was fitted without X, the query must also be
// nil and a single aggregate effect row is returned.
func (r *RLearner) ConstMarginalEffect(X mat.Matrix) (*Effect, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("RLearner", "ConstMarginalEffect")
	}
	if r.xOmitted {
		if X != nil {
			return nil, errors.NewValueError("RLearner.ConstMarginalEffect",
				"estimator was fitted without X; query features must be nil")
		}
		X = array.Ones(1, 1)
	} else if X == nil {
		return nil, errors.NewValueError("RLearner.ConstMarginalEffect",
			"estimator was fitted with X; query features must not be nil")
	}
	return r.modelFinal.Predict(X)
}

// Coef returns the final model's coefficient tensor when the final model
// exposes one.
func (r *RLearner) Coef() (*array.Tensor3, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("RLearner", "Coef")
	}
	exposer, ok := r.modelFinal.(interface {
		Coef() (*array.Tensor3, error)
	})
	if !ok {
		return nil, errors.NewNotSupportedError("RLearner", "Coef",
			"final model does not expose coefficients")
	}
	return exposer.Coef()
}

// ModelsY returns the per-fold fitted outcome nuisance models.
func (r *RLearner) ModelsY() []model.NuisanceModel {
	return r.modelsY
}

// ModelsT returns the per-fold fitted treatment nuisance models.
func (r *RLearner) ModelsT() []model.NuisanceModel {
	return r.modelsT
}

// Score evaluates the fitted effect model on held-out data: nuisance
// predictions from the stored fold models are averaged, residuals formed,
// and the mean squared error of θ(X)·T_res against Y_res returned. Lower
// is better.
func (r *RLearner) Score(Y, T, X, W mat.Matrix) (float64, error) {
	if !r.IsFitted() {
		return 0, errors.NewNotFittedError("RLearner", "Score")
	}
	if Y == nil || T == nil {
		return 0, errors.NewValueError("RLearner.Score", "Y and T must not be nil")
	}
	n, dY := array.ToDense(Y).Dims()
	if tn, _ := T.Dims(); tn != n {
		return 0, errors.NewDimensionError("RLearner.Score", n, tn, 0)
	}

	queryX := X
	if r.xOmitted {
		if X != nil {
			return 0, errors.NewValueError("RLearner.Score",
				"estimator was fitted without X; query features must be nil")
		}
		X = array.Ones(n, 1)
	} else if X == nil {
		return 0, errors.NewValueError("RLearner.Score",
			"estimator was fitted with X; query features must not be nil")
	}

	yRes, err := r.averageResiduals(Y, X, W, r.modelsY)
	if err != nil {
		return 0, err
	}
	tRes, err := r.averageResiduals(T, X, W, r.modelsT)
	if err != nil {
		return 0, err
	}
	_, dT := tRes.Dims()

	var eff *Effect
	if r.xOmitted {
		single, err := r.ConstMarginalEffect(queryX)
		if err != nil {
			return 0, err
		}
		eff = single
	} else {
		eff, err = r.modelFinal.Predict(X)
		if err != nil {
			return 0, err
		}
	}

	// θ(x_i)·T_res,i per outcome, flattened so the pooled error is a single
	// vector MSE.
	actual := mat.NewVecDense(n*dY, nil)
	fitted := mat.NewVecDense(n*dY, nil)
	for i := 0; i < n; i++ {
		effRow := 0
		if !r.xOmitted {
			effRow = i
		}
		for y := 0; y < dY; y++ {
			var pred float64
			for t := 0; t < dT; t++ {
				pred += eff.At(effRow, y, t) * tRes.At(i, t)
			}
			actual.SetVec(i*dY+y, yRes.At(i, y))
			fitted.SetVec(i*dY+y, pred)
		}
	}
	return metrics.MSE(actual, fitted)
}

// averageResiduals subtracts the average of the fold models' predictions
// from the target.
func (r *RLearner) averageResiduals(target, X, W mat.Matrix, models []model.NuisanceModel) (*mat.Dense, error) {
	n, d := array.ToDense(target).Dims()
	avg := mat.NewDense(n, d, nil)
	for _, m := range models {
		pred, err := m.Predict(X, W)
		if err != nil {
			return nil, err
		}
		avg.Add(avg, array.ToDense(pred))
	}
	avg.Scale(1.0/float64(len(models)), avg)

	res := mat.NewDense(n, d, nil)
	res.Sub(array.ToDense(target), avg)
	return res, nil
}
