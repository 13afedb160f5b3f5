package dml

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/StatyMcStats/EconML/core/array"
	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/linear"
	"github.com/StatyMcStats/EconML/pkg/errors"
	"github.com/StatyMcStats/EconML/preprocessing"
)

// meanRegressor predicts the per-column mean of its fit target. It is the
// simplest possible nuisance model: residuals become centered targets.
type meanRegressor struct {
	means    []float64
	isVector bool
}

func newMeanRegressor() *meanRegressor { return &meanRegressor{} }

func (m *meanRegressor) Fit(X, y mat.Matrix) error {
	m.isVector = array.IsVector(y)
	d := array.ToDense(y)
	n, c := d.Dims()
	m.means = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += d.At(i, j)
		}
		m.means[j] = sum / float64(n)
	}
	return nil
}

func (m *meanRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	if m.isVector {
		v := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			v.SetVec(i, m.means[0])
		}
		return v, nil
	}
	out := mat.NewDense(n, len(m.means), nil)
	for i := 0; i < n; i++ {
		for j := range m.means {
			out.Set(i, j, m.means[j])
		}
	}
	return out, nil
}

// recordingNuisance remembers the feature rows it was trained on and
// predicts zero.
type recordingNuisance struct {
	fitX *mat.Dense
}

func (r *recordingNuisance) Fit(X, W, target mat.Matrix) error {
	r.fitX = array.ToDense(X)
	return nil
}

func (r *recordingNuisance) Predict(X, W mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	return mat.NewVecDense(n, nil), nil
}

// failingNuisance fails on the configured stage.
type failingNuisance struct {
	failFit bool
}

func (f *failingNuisance) Fit(X, W, target mat.Matrix) error {
	if f.failFit {
		return errors.New("boom")
	}
	return nil
}

func (f *failingNuisance) Predict(X, W mat.Matrix) (mat.Matrix, error) {
	if !f.failFit {
		return nil, errors.New("boom")
	}
	n, _ := X.Dims()
	return mat.NewVecDense(n, nil), nil
}

func meanNuisance(featurizer model.Transformer) model.NuisanceFactory {
	return func() model.NuisanceModel {
		return NewFirstStageWrapper(newMeanRegressor(), featurizer, false)
	}
}

func olsFinal() FinalModel {
	return NewFinalWrapper(linear.NewRegression(linear.WithIntercept(false)), preprocessing.NewIdentity())
}

func TestRLearner_RecoversConstantEffect(t *testing.T) {
	r := rand.New(rand.NewPCG(23, 23))
	n := 100
	theta := 1.5

	X := randomDense(r, n, 1)
	T := mat.NewVecDense(n, nil)
	Y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		tv := r.NormFloat64()
		T.SetVec(i, tv)
		Y.SetVec(i, theta*tv+0.1*r.NormFloat64())
	}

	featurizer := preprocessing.NewPolynomialFeatures(1, true)
	est := NewRLearner(
		meanNuisance(featurizer),
		meanNuisance(featurizer),
		NewFinalWrapper(linear.NewRegression(linear.WithIntercept(false)), featurizer),
	)
	if err := est.Fit(Y, T, X, nil); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	m := 7
	Xq := randomDense(r, m, 1)
	eff, err := est.ConstMarginalEffect(Xq)
	if err != nil {
		t.Fatalf("ConstMarginalEffect() error = %v", err)
	}
	if eff.Rank() != 1 {
		t.Fatalf("Rank() = %d, want 1", eff.Rank())
	}
	vec, err := eff.AsVec()
	if err != nil {
		t.Fatalf("AsVec() error = %v", err)
	}
	if vec.Len() != m {
		t.Fatalf("effect length = %d, want %d", vec.Len(), m)
	}
	for i := 0; i < m; i++ {
		if math.Abs(vec.AtVec(i)-theta) > 0.15 {
			t.Errorf("effect[%d] = %v, want ≈ %v", i, vec.AtVec(i), theta)
		}
	}

	// Repeated queries must agree: the final stage is immutable after fit.
	again, err := est.ConstMarginalEffect(Xq)
	if err != nil {
		t.Fatalf("ConstMarginalEffect() second call error = %v", err)
	}
	againVec, _ := again.AsVec()
	for i := 0; i < m; i++ {
		if vec.AtVec(i) != againVec.AtVec(i) {
			t.Errorf("effect[%d] changed between identical queries", i)
		}
	}

	// The persisted nuisance models, one pair per fold.
	if len(est.ModelsY()) != 2 || len(est.ModelsT()) != 2 {
		t.Errorf("persisted nuisance models = (%d, %d), want (2, 2)", len(est.ModelsY()), len(est.ModelsT()))
	}

	score, err := est.Score(Y, T, X, nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// Residual noise is 0.1, so the effect-model MSE should be near 0.01.
	if score > 0.05 {
		t.Errorf("Score() = %v, want < 0.05", score)
	}
}

func TestRLearner_MismatchedRowsAndUnfittedQuery(t *testing.T) {
	r := rand.New(rand.NewPCG(29, 29))
	Y := mat.NewVecDense(100, nil)
	T := mat.NewVecDense(99, nil)
	X := randomDense(r, 100, 1)

	est := NewRLearner(
		meanNuisance(preprocessing.NewIdentity()),
		meanNuisance(preprocessing.NewIdentity()),
		olsFinal(),
	)

	var dimErr *errors.DimensionError
	if err := est.Fit(Y, T, X, nil); !errors.As(err, &dimErr) {
		t.Errorf("Fit() with mismatched rows error = %v, want DimensionError", err)
	}

	var notFitted *errors.NotFittedError
	if _, err := est.ConstMarginalEffect(X); !errors.As(err, &notFitted) {
		t.Errorf("ConstMarginalEffect() after failed fit error = %v, want NotFittedError", err)
	}
	if _, err := est.Coef(); !errors.As(err, &notFitted) {
		t.Errorf("Coef() after failed fit error = %v, want NotFittedError", err)
	}
}

func TestRLearner_OmittedFeaturesSingleAggregateEffect(t *testing.T) {
	r := rand.New(rand.NewPCG(31, 31))
	n := 80
	theta := -0.75

	T := mat.NewVecDense(n, nil)
	Y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		tv := r.NormFloat64()
		T.SetVec(i, tv)
		Y.SetVec(i, theta*tv+0.1*r.NormFloat64())
	}

	est := NewRLearner(
		meanNuisance(preprocessing.NewIdentity()),
		meanNuisance(preprocessing.NewIdentity()),
		olsFinal(),
	)
	if err := est.Fit(Y, T, nil, nil); err != nil {
		t.Fatalf("Fit() without X error = %v", err)
	}

	eff, err := est.ConstMarginalEffect(nil)
	if err != nil {
		t.Fatalf("ConstMarginalEffect(nil) error = %v", err)
	}
	vec, err := eff.AsVec()
	if err != nil {
		t.Fatalf("AsVec() error = %v", err)
	}
	if vec.Len() != 1 {
		t.Fatalf("aggregate effect length = %d, want 1", vec.Len())
	}
	if math.Abs(vec.AtVec(0)-theta) > 0.15 {
		t.Errorf("aggregate effect = %v, want ≈ %v", vec.AtVec(0), theta)
	}

	var valueErr *errors.ValueError
	if _, err := est.ConstMarginalEffect(mat.NewDense(3, 1, nil)); !errors.As(err, &valueErr) {
		t.Errorf("ConstMarginalEffect() with X after X-less fit error = %v, want ValueError", err)
	}
}

func TestRLearner_NuisancePredictionsAreOutOfFold(t *testing.T) {
	var created []*recordingNuisance
	factory := func() model.NuisanceModel {
		m := &recordingNuisance{}
		created = append(created, m)
		return m
	}

	n := 6
	X := mat.NewDense(n, 1, []float64{0, 1, 2, 3, 4, 5})
	T := mat.NewVecDense(n, []float64{1, -1, 2, -2, 3, -3})
	Y := mat.NewVecDense(n, []float64{1, -1, 2, -2, 3, -3})

	est := NewRLearner(factory, factory, olsFinal())
	if err := est.Fit(Y, T, X, nil); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// Creation order per fold: outcome model, then treatment model.
	if len(created) != 4 {
		t.Fatalf("created %d nuisance models, want 4", len(created))
	}
	wantTrain := [][]float64{
		{3, 4, 5}, {3, 4, 5}, // fold 0 trains on the second half
		{0, 1, 2}, {0, 1, 2}, // fold 1 on the first
	}
	for m, want := range wantTrain {
		rows, _ := created[m].fitX.Dims()
		if rows != len(want) {
			t.Fatalf("model %d trained on %d rows, want %d", m, rows, len(want))
		}
		for i, v := range want {
			if created[m].fitX.At(i, 0) != v {
				t.Errorf("model %d trained on row value %v, want %v", m, created[m].fitX.At(i, 0), v)
			}
		}
	}
}

func TestRLearner_NuisanceErrorsCarryFoldContext(t *testing.T) {
	r := rand.New(rand.NewPCG(37, 37))
	n := 10
	X := randomDense(r, n, 1)
	Y := mat.NewVecDense(n, nil)
	T := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		Y.SetVec(i, r.NormFloat64())
		T.SetVec(i, r.NormFloat64())
	}

	tests := []struct {
		name       string
		modelY     model.NuisanceFactory
		modelT     model.NuisanceFactory
		wantTarget string
		wantStage  string
	}{
		{
			name:       "outcome fit failure",
			modelY:     func() model.NuisanceModel { return &failingNuisance{failFit: true} },
			modelT:     meanNuisance(preprocessing.NewIdentity()),
			wantTarget: "outcome",
			wantStage:  "fit",
		},
		{
			name:       "treatment predict failure",
			modelY:     meanNuisance(preprocessing.NewIdentity()),
			modelT:     func() model.NuisanceModel { return &failingNuisance{failFit: false} },
			wantTarget: "treatment",
			wantStage:  "predict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := NewRLearner(tt.modelY, tt.modelT, olsFinal())
			err := est.Fit(Y, T, X, nil)

			var nuisanceErr *errors.NuisanceError
			if !errors.As(err, &nuisanceErr) {
				t.Fatalf("Fit() error = %v, want NuisanceError", err)
			}
			if nuisanceErr.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", nuisanceErr.Target, tt.wantTarget)
			}
			if nuisanceErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", nuisanceErr.Stage, tt.wantStage)
			}
			if nuisanceErr.Fold != 0 {
				t.Errorf("Fold = %d, want 0", nuisanceErr.Fold)
			}
			if est.IsFitted() {
				t.Error("estimator must not be marked fitted after a nuisance failure")
			}
		})
	}
}

func TestRLearner_ShuffledFoldsStillRecoverEffect(t *testing.T) {
	r := rand.New(rand.NewPCG(41, 41))
	n := 100
	theta := 2.0

	X := randomDense(r, n, 1)
	T := mat.NewVecDense(n, nil)
	Y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		tv := r.NormFloat64()
		T.SetVec(i, tv)
		Y.SetVec(i, theta*tv+0.1*r.NormFloat64())
	}

	featurizer := preprocessing.NewPolynomialFeatures(1, true)
	est := NewRLearner(
		meanNuisance(featurizer),
		meanNuisance(featurizer),
		NewFinalWrapper(linear.NewRegression(linear.WithIntercept(false)), featurizer),
		WithNSplits(5),
		WithShuffle(99),
	)
	if err := est.Fit(Y, T, X, nil); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if len(est.ModelsY()) != 5 {
		t.Errorf("persisted outcome models = %d, want 5", len(est.ModelsY()))
	}

	eff, err := est.ConstMarginalEffect(X)
	if err != nil {
		t.Fatalf("ConstMarginalEffect() error = %v", err)
	}
	vec, err := eff.AsVec()
	if err != nil {
		t.Fatalf("AsVec() error = %v", err)
	}
	for i := 0; i < vec.Len(); i++ {
		if math.Abs(vec.AtVec(i)-theta) > 0.15 {
			t.Errorf("effect[%d] = %v, want ≈ %v", i, vec.AtVec(i), theta)
			break
		}
	}
}
