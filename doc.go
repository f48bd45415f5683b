// Package regressio is a unifying regression-model façade for Go.
//
// It lets a caller pick any supported backend regressor through a single
// configuration surface and run fit, predict, score, cross-validation,
// hyperparameter search, and nested cross-validation workflows uniformly.
//
// The interesting machinery lives in the model-selection packages:
//
//   - modelselection: parallel k-fold cross-validation, grid / randomized /
//     Bayesian hyperparameter search, and a nested cross-validation
//     orchestrator that keeps the inner search strictly inside each outer
//     training partition.
//   - supervised: the Regressor façade, including base boosting with inbuilt
//     cross-validation, an incumbent-vs-candidate selection gate that falls
//     back to a trivial copy-forward baseline whenever the fitted candidate
//     does not beat it.
//
// Supporting packages follow the usual layering: dataset (named-column
// tables and target slicing), metrics (regression metrics with multioutput
// policies), preprocessing, pipeline (composed transform + estimator
// objects), and backend estimators under linear, neighbors, and ensemble.
//
// Basic usage:
//
//	reg, err := supervised.New(supervised.ChoiceRidge,
//	    supervised.WithCV(5),
//	    supervised.WithScoring("neg_mean_absolute_error"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	scores, err := reg.CrossValScore(X, y)
package regressio
