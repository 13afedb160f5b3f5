// Package econml provides orthogonal (double) machine learning for
// heterogeneous treatment effect estimation in Go.
//
// EconML estimates the constant marginal effect of a treatment T on an
// outcome Y, allowing the effect to vary with observed features X while
// controlling for additional confounders W. The core algorithm is the
// R-learner: nuisance models for E[Y|X,W] and E[T|X,W] are cross-fitted so
// every residual is predicted out of fold, and a restricted linear final
// stage on the residuals recovers the effect.
//
// # Quick Start
//
// Estimate a heterogeneous effect with the dense preset:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/StatyMcStats/EconML/core/model"
//	    "github.com/StatyMcStats/EconML/dml"
//	    "github.com/StatyMcStats/EconML/linear"
//	)
//
//	func main() {
//	    nuisance := func() model.Regressor { return linear.NewRegression() }
//	    est := dml.NewDMLCateEstimator(nuisance, nuisance)
//
//	    if err := est.Fit(Y, T, X, W); err != nil {
//	        log.Fatal(err)
//	    }
//	    effect, err := est.ConstMarginalEffect(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("effect shape:", effect.Shape())
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - dml: cross-fitting orchestrator, model wrappers, and estimator presets
//   - linear: final-stage and nuisance linear models (least squares, Lasso)
//   - preprocessing: featurizers (polynomial, random Fourier, identity)
//   - metrics: evaluation metrics (MSE, RMSE, MAE, R²)
//   - core/model: shared interfaces and base estimator state
//   - core/array: design-matrix assembly (stacking, cross products, tensors)
//   - pkg/errors: structured errors and warnings
//   - pkg/log: structured logging for estimator diagnostics
//
// # Estimator Presets
//
// Three preset wirings cover the common cases:
//
//	dml.NewDMLCateEstimator(...)             // dense nuisance designs
//	dml.NewSparseLinearDMLCateEstimator(...) // high-dimensional linear nuisances
//	dml.NewKernelDMLCateEstimator(...)       // random Fourier feature heterogeneity
//
// Every preset accepts caller-supplied nuisance model factories, so any
// model implementing the fit/predict contract can serve as a first stage.
//
// # License
//
// EconML is released under the MIT License.
package econml
