package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// eps は対数を取る前の予測値の下限です。
const eps = 1e-16

// cellWeights は要素ごとの重みを返します。重みがなければnilです。
func cellWeights(in Input, perRow int) []float64 {
	if len(in.Weights) == 0 {
		return nil
	}
	w := make([]float64, len(in.Weights)*perRow)
	for i := range w {
		w[i] = in.Weights[i/perRow]
	}
	return w
}

// weightedMean は損失の重み付き平均を計算します。
func weightedMean(op string, losses, w []float64) (float64, error) {
	if w != nil && floats.Sum(w) <= 0 {
		return 0, errors.NewValueError(op, "total weight is zero")
	}
	return stat.Mean(losses, w), nil
}

// elementwise は予測値とラベルが1対1で対応する指標の共通処理です。
func elementwise(op string, in Input, loss func(y, p float64) float64) (float64, error) {
	k, err := in.outputs(op)
	if err != nil {
		return 0, err
	}
	if k != in.cols() {
		return 0, errors.NewDimensionError(op, "predictions", len(in.Labels), len(in.Preds))
	}
	if err := in.checkWeights(op, in.rows()); err != nil {
		return 0, err
	}
	losses := make([]float64, len(in.Preds))
	for i, p := range in.Preds {
		losses[i] = loss(in.Labels[i], p)
	}
	return weightedMean(op, losses, cellWeights(in, k))
}

// rmse は平均二乗誤差の平方根を計算します。
func rmse(in Input, _ parsedName) (float64, error) {
	v, err := elementwise("rmse", in, func(y, p float64) float64 {
		d := y - p
		return d * d
	})
	return math.Sqrt(v), err
}

// rmsle は log1p 空間での RMSE を計算します。
func rmsle(in Input, _ parsedName) (float64, error) {
	v, err := elementwise("rmsle", in, func(y, p float64) float64 {
		d := math.Log1p(p) - math.Log1p(y)
		return d * d
	})
	return math.Sqrt(v), err
}

// mae は平均絶対誤差を計算します。
func mae(in Input, _ parsedName) (float64, error) {
	return elementwise("mae", in, func(y, p float64) float64 {
		return math.Abs(y - p)
	})
}

// mphe は平均Pseudo-Huber誤差を計算します。"@" でスロープを指定できます（既定1）。
func mphe(in Input, s parsedName) (float64, error) {
	slope := 1.0
	if s.hasParam {
		if s.param <= 0 {
			return 0, errors.NewConfigurationError("mphe", "huber_slope", "must be > 0", s.param)
		}
		slope = s.param
	}
	return elementwise("mphe", in, func(y, p float64) float64 {
		z := (p - y) / slope
		return slope * slope * (math.Sqrt(1+z*z) - 1)
	})
}

// poissonNLogLik はポアソン分布の負の対数尤度を計算します。
func poissonNLogLik(in Input, _ parsedName) (float64, error) {
	return elementwise("poisson-nloglik", in, func(y, p float64) float64 {
		p = math.Max(p, eps)
		lg, _ := math.Lgamma(y + 1)
		return p - y*math.Log(p) + lg
	})
}

// gammaNLogLik は形状パラメータ1のガンマ分布の負の対数尤度を計算します。
func gammaNLogLik(in Input, _ parsedName) (float64, error) {
	return elementwise("gamma-nloglik", in, func(y, p float64) float64 {
		p = math.Max(p, eps)
		return y/p + math.Log(p)
	})
}

// tweedieNLogLik はTweedie分布の負の対数尤度（正規化項を除く）を計算します。
// "@" で分散べき ρ を指定します（既定1.5）。
func tweedieNLogLik(in Input, s parsedName) (float64, error) {
	rho := 1.5
	if s.hasParam {
		rho = s.param
	}
	if rho < 1 || rho >= 2 {
		return 0, errors.NewConfigurationError("tweedie-nloglik", "tweedie_variance_power", "must be in [1, 2)", rho)
	}
	return elementwise("tweedie-nloglik", in, func(y, p float64) float64 {
		p = math.Max(p, eps)
		lp := math.Log(p)
		b := math.Exp((2-rho)*lp) / (2 - rho)
		if rho == 1 {
			return b - y*lp
		}
		return b - y*math.Exp((1-rho)*lp)/(1-rho)
	})
}

// quantile は分位点ごとのピンボール損失の平均です。
// 予測値の列 t はラベル列 t % LabelCols と分位点 Alphas[t / LabelCols] に対応します。
func quantile(in Input, _ parsedName) (float64, error) {
	const op = "quantile"
	alphas := in.Alphas
	if len(alphas) == 0 {
		alphas = []float64{0.5}
	}
	k, err := in.outputs(op)
	if err != nil {
		return 0, err
	}
	cols := in.cols()
	if k != cols*len(alphas) {
		return 0, errors.NewDimensionError(op, "predictions", in.rows()*cols*len(alphas), len(in.Preds))
	}
	if err := in.checkWeights(op, in.rows()); err != nil {
		return 0, err
	}
	losses := make([]float64, len(in.Preds))
	for i, p := range in.Preds {
		row, t := i/k, i%k
		y, a := in.Labels[row*cols+t%cols], alphas[t/cols]
		d := y - p
		if d >= 0 {
			losses[i] = a * d
		} else {
			losses[i] = (a - 1) * d
		}
	}
	return weightedMean(op, losses, cellWeights(in, k))
}
