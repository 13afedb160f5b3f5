package dml

import (
	"github.com/StatyMcStats/EconML/core/model"
	"github.com/StatyMcStats/EconML/linear"
	"github.com/StatyMcStats/EconML/preprocessing"
)

// estimatorConfig collects the knobs shared by the estimator presets.
type estimatorConfig struct {
	finalModel model.Regressor
	featurizer model.Transformer
	nSplits    int
	shuffle    bool
	seed       uint64

	dim         int
	bandwidth   float64
	fourierSeed uint64
}

func defaultConfig() estimatorConfig {
	return estimatorConfig{
		nSplits:   2,
		dim:       20,
		bandwidth: 1.0,
	}
}

// EstimatorOption configures an estimator preset.
type EstimatorOption func(*estimatorConfig)

// WithFinalModel overrides the default final-stage model. It must be linear
// in its inputs for the recovered effect to be the constant marginal effect.
func WithFinalModel(m model.Regressor) EstimatorOption {
	return func(c *estimatorConfig) {
		c.finalModel = m
	}
}

// WithFeaturizer overrides the featurizer applied to X in both the nuisance
// and final stages.
func WithFeaturizer(t model.Transformer) EstimatorOption {
	return func(c *estimatorConfig) {
		c.featurizer = t
	}
}

// WithSplits sets the number of cross-fitting folds (default 2).
func WithSplits(n int) EstimatorOption {
	return func(c *estimatorConfig) {
		c.nSplits = n
	}
}

// WithFoldShuffle enables shuffled fold assignment with the given seed.
func WithFoldShuffle(seed uint64) EstimatorOption {
	return func(c *estimatorConfig) {
		c.shuffle = true
		c.seed = seed
	}
}

// WithDim sets the random feature dimension of the kernel preset
// (default 20).
func WithDim(dim int) EstimatorOption {
	return func(c *estimatorConfig) {
		c.dim = dim
	}
}

// WithBandwidth sets the RBF kernel bandwidth of the kernel preset
// (default 1.0).
func WithBandwidth(bw float64) EstimatorOption {
	return func(c *estimatorConfig) {
		c.bandwidth = bw
	}
}

// WithKernelSeed seeds the random feature projections of the kernel preset.
func WithKernelSeed(seed uint64) EstimatorOption {
	return func(c *estimatorConfig) {
		c.fourierSeed = seed
	}
}

func (c *estimatorConfig) rlearnerOptions() []RLearnerOption {
	opts := []RLearnerOption{WithNSplits(c.nSplits)}
	if c.shuffle {
		opts = append(opts, WithShuffle(c.seed))
	}
	return opts
}

// firstStage wraps a regressor factory into a per-fold nuisance factory with
// the given combination policy.
func firstStage(factory model.RegressorFactory, featurizer model.Transformer, sparse bool) model.NuisanceFactory {
	return func() model.NuisanceModel {
		return NewFirstStageWrapper(factory(), featurizer, sparse)
	}
}

// DMLCateEstimator is the dense double machine learning preset: both
// nuisance designs stack featurize(X) next to W, and the final stage is an
// interceptless linear regression on the residual cross products.
type DMLCateEstimator struct {
	*RLearner
}

// NewDMLCateEstimator builds the dense preset from per-fold nuisance
// regressor factories. Defaults: degree-1 polynomial featurizer with bias,
// interceptless least squares final model, 2 folds.
func NewDMLCateEstimator(modelY, modelT model.RegressorFactory, opts ...EstimatorOption) *DMLCateEstimator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.featurizer == nil {
		cfg.featurizer = preprocessing.NewPolynomialFeatures(1, true)
	}
	if cfg.finalModel == nil {
		cfg.finalModel = linear.NewRegression(linear.WithIntercept(false))
	}

	return &DMLCateEstimator{
		RLearner: NewRLearner(
			firstStage(modelY, cfg.featurizer, false),
			firstStage(modelT, cfg.featurizer, false),
			NewFinalWrapper(cfg.finalModel, cfg.featurizer),
			cfg.rlearnerOptions()...,
		),
	}
}

// SparseLinearDMLCateEstimator is the high-dimensional linear preset: the
// outcome nuisance design is the sparse cross-product expansion of [X|W]
// against [1|featurize(X)|W], suited to sparsity-seeking nuisance models
// when the true nuisance relationships are linear with many controls. The
// treatment nuisance keeps the dense policy.
type SparseLinearDMLCateEstimator struct {
	*RLearner
}

// NewSparseLinearDMLCateEstimator builds the sparse-linear preset. Nil
// nuisance factories default to Lasso; the final model defaults to
// interceptless least squares, as in the dense preset.
func NewSparseLinearDMLCateEstimator(modelY, modelT model.RegressorFactory, opts ...EstimatorOption) *SparseLinearDMLCateEstimator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.featurizer == nil {
		cfg.featurizer = preprocessing.NewPolynomialFeatures(1, true)
	}
	if cfg.finalModel == nil {
		cfg.finalModel = linear.NewRegression(linear.WithIntercept(false))
	}
	if modelY == nil {
		modelY = func() model.Regressor { return linear.NewLasso() }
	}
	if modelT == nil {
		modelT = func() model.Regressor { return linear.NewLasso() }
	}

	return &SparseLinearDMLCateEstimator{
		RLearner: NewRLearner(
			firstStage(modelY, cfg.featurizer, true),
			firstStage(modelT, cfg.featurizer, false),
			NewFinalWrapper(cfg.finalModel, cfg.featurizer),
			cfg.rlearnerOptions()...,
		),
	}
}

// KernelDMLCateEstimator is the kernel preset: effect heterogeneity is
// captured through random Fourier features approximating an RBF kernel,
// layered under the dense combination policy. The projection for each input
// width is drawn once and reused for every later call with that width, so
// fit-time and predict-time designs agree.
type KernelDMLCateEstimator struct {
	*RLearner
}

// NewKernelDMLCateEstimator builds the kernel preset from per-fold nuisance
// regressor factories. Defaults: 20 random features, bandwidth 1.0,
// interceptless least squares final model.
func NewKernelDMLCateEstimator(modelY, modelT model.RegressorFactory, opts ...EstimatorOption) *KernelDMLCateEstimator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.featurizer == nil {
		cfg.featurizer = preprocessing.NewRandomFourier(cfg.dim, cfg.bandwidth, cfg.fourierSeed)
	}
	if cfg.finalModel == nil {
		cfg.finalModel = linear.NewRegression(linear.WithIntercept(false))
	}

	return &KernelDMLCateEstimator{
		RLearner: NewRLearner(
			firstStage(modelY, cfg.featurizer, false),
			firstStage(modelT, cfg.featurizer, false),
			NewFinalWrapper(cfg.finalModel, cfg.featurizer),
			cfg.rlearnerOptions()...,
		),
	}
}
