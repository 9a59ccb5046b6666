// Package metrics は目的関数の既定評価指標（DefaultEvalMetric）を計算します。
//
// 指標名は "rmse" のような基本名に、"@" で区切ったパラメータ
// （"ndcg@5", "error@0.7", "tweedie-nloglik@1.5"）と、
// 関連度のないグループを0とする末尾の "-"（"ndcg-", "map@3-"）を付けられます。
// 予測値は目的関数のEvalTransformを適用済みである必要があります。
package metrics

import (
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Input は評価対象のデータです。
type Input struct {
	// Labels は行×LabelCols の行優先ラベルです。
	Labels []float64
	// LabelCols はラベル列数です。0は1とみなします。
	LabelCols int
	// Preds は行×出力数の行優先予測値です。
	Preds []float64
	// Weights は行ごと（ランキングではグループごと）の重みです。空なら全て1。
	Weights []float64
	// GroupPtr はランキングのグループ境界です。空なら全行で1グループ。
	GroupPtr []int
	// Alphas は "quantile" 指標の分位点です。空なら0.5。
	Alphas []float64
}

func (in Input) cols() int {
	if in.LabelCols <= 0 {
		return 1
	}
	return in.LabelCols
}

func (in Input) rows() int {
	return len(in.Labels) / in.cols()
}

func (in Input) weight(i int) float64 {
	if len(in.Weights) == 0 {
		return 1
	}
	return in.Weights[i]
}

// outputs は1行あたりの予測数を返し、形状の整合性を検証します。
func (in Input) outputs(op string) (int, error) {
	rows := in.rows()
	if rows == 0 || len(in.Preds) == 0 {
		return 0, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	if len(in.Labels)%in.cols() != 0 {
		return 0, errors.NewDimensionError(op, "labels", rows*in.cols(), len(in.Labels))
	}
	if len(in.Preds)%rows != 0 {
		return 0, errors.NewDimensionError(op, "predictions", rows, len(in.Preds))
	}
	return len(in.Preds) / rows, nil
}

func (in Input) checkWeights(op string, want int) error {
	if len(in.Weights) != 0 && len(in.Weights) != want {
		return errors.NewDimensionError(op, "weights", want, len(in.Weights))
	}
	return nil
}

// parsedName は解析済みの指標名です。
type parsedName struct {
	name     string
	param    float64
	hasParam bool
	minus    bool
}

type metricFunc func(in Input, s parsedName) (float64, error)

var registry = map[string]metricFunc{
	"rmse":            rmse,
	"rmsle":           rmsle,
	"mae":             mae,
	"mphe":            mphe,
	"poisson-nloglik": poissonNLogLik,
	"gamma-nloglik":   gammaNLogLik,
	"tweedie-nloglik": tweedieNLogLik,
	"quantile":        quantile,
	"logloss":         logLoss,
	"error":           binaryError,
	"auc":             auc,
	"mlogloss":        multiLogLoss,
	"merror":          multiError,
	"cox-nloglik":     coxNLogLik,
	"ndcg":            ndcg,
	"map":             meanAP,
}

// Names は登録済みの指標名をソートして返します。
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func parse(name string) (parsedName, error) {
	s := parsedName{name: name}
	if strings.HasSuffix(s.name, "-") {
		s.minus = true
		s.name = strings.TrimSuffix(s.name, "-")
	}
	if base, param, ok := strings.Cut(s.name, "@"); ok {
		v, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return parsedName{}, errors.NewConfigurationError("metrics.Evaluate", "metric", "invalid parameter", name)
		}
		s.name, s.param, s.hasParam = base, v, true
	}
	return s, nil
}

// Evaluate は名前で指定された指標を計算します。
func Evaluate(name string, in Input) (float64, error) {
	s, err := parse(name)
	if err != nil {
		return 0, err
	}
	fn, ok := registry[s.name]
	if !ok {
		return 0, errors.NewNotFoundError("metric", name, Names())
	}
	return fn(in, s)
}
