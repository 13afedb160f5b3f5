package log

// Shared attribute keys for structured estimator logging. Using a fixed
// vocabulary keeps log output queryable across estimators.
const (
	// OperationKey identifies the estimator operation ("fit", "predict").
	OperationKey = "operation"

	// ModelNameKey identifies the estimator type emitting the message.
	ModelNameKey = "model"

	// FoldKey identifies a cross-fitting fold index.
	FoldKey = "fold"

	// TargetKey identifies a nuisance target ("outcome", "treatment").
	TargetKey = "target"

	// SamplesKey carries a sample (row) count.
	SamplesKey = "n_samples"

	// FeaturesKey carries a feature (column) count.
	FeaturesKey = "n_features"

	// SplitsKey carries the configured number of cross-fitting splits.
	SplitsKey = "n_splits"

	// DurationMsKey carries an elapsed time in milliseconds.
	DurationMsKey = "duration_ms"

	// ErrorKey carries an error value.
	ErrorKey = "error"
)
