package metrics

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbobjective/objective"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// ForObjective は obj の既定評価指標をマージン margins に対して計算し、
// 指標名と値を返します。margins は変更されません。
func ForObjective(obj objective.Objective, info *objective.MetaInfo, margins []float64) (string, float64, error) {
	name := obj.DefaultEvalMetric()
	if info == nil || info.Labels == nil {
		return name, 0, errors.NewValueError("metrics.ForObjective", "missing labels")
	}
	if _, err := obj.Targets(info); err != nil {
		return name, 0, err
	}

	rows, cols := info.Labels.Dims()
	labels := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			labels = append(labels, info.Labels.At(i, j))
		}
	}
	in := Input{
		Labels:    labels,
		LabelCols: cols,
		Preds:     obj.EvalTransform(append([]float64(nil), margins...)),
		Weights:   info.Weights,
		GroupPtr:  info.GroupPtr,
	}
	if raw, ok := obj.Config()["quantile_alpha"]; ok {
		alphas, err := parseAlphas(raw)
		if err != nil {
			return name, 0, err
		}
		in.Alphas = alphas
	}
	v, err := Evaluate(name, in)
	return name, v, err
}

// parseAlphas は "[0.1,0.9]" 形式の分位点リストを読み取ります。
func parseAlphas(raw string) ([]float64, error) {
	fields := strings.Split(strings.Trim(raw, "[] "), ",")
	alphas := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.NewConfigurationError("metrics.ForObjective", "quantile_alpha", "invalid list", raw)
		}
		alphas = append(alphas, v)
	}
	return alphas, nil
}
