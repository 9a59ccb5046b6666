// Package gbobjective provides pluggable objective functions for gradient
// boosting: the component that turns the current predictions and the
// training labels into per-row gradient pairs for the tree grower.
//
// # Packages
//
//   - objective: the Objective interface, the built-in losses and the
//     name registry.
//   - objective/leaf: weighted quantile leaf values and their
//     aggregation across data partitions.
//   - metrics: the evaluation metric named by each objective's
//     DefaultEvalMetric.
//   - core/tree: the regression tree an objective may refine after
//     structure search.
//   - core/collective: the allreduce used to combine leaf statistics.
//   - core/parallel: row-parallel helpers shared by the kernels.
//   - pkg/config, pkg/errors, pkg/log: runtime configuration from the
//     environment, the error taxonomy and structured logging.
//
// # Quick Start
//
//	obj, err := objective.Create("binary:logistic", objective.DefaultContext())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := obj.Configure(objective.Args{"scale_pos_weight": "2"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	info := objective.NewMetaInfo(labels, nil)
//	margins, _ := objective.InitMargin(obj, info, 0.5)
//	gpair := make([]objective.GradientPair, len(margins))
//	if err := obj.GetGradient(margins, info, 0, gpair); err != nil {
//	    log.Fatal(err)
//	}
//
//	name, value, _ := metrics.ForObjective(obj, info, margins)
//
// # Objectives
//
// Regression: reg:squarederror, reg:squaredlogerror, reg:pseudohubererror,
// reg:absoluteerror, reg:quantileerror, reg:logistic, reg:gamma,
// reg:tweedie, reg:fair, count:poisson. Classification: binary:logistic,
// binary:logitraw, binary:hinge, multi:softmax, multi:softprob. Survival:
// survival:cox. Ranking: rank:pairwise, rank:ndcg, rank:map.
//
// Run "objplot list" (cmd/objplot) for the full table with descriptions.
package gbobjective
