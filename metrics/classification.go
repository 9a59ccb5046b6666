package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// binary は単一出力の分類指標の形状を検証します。
func binary(op string, in Input) error {
	k, err := in.outputs(op)
	if err != nil {
		return err
	}
	if k != 1 || in.cols() != 1 {
		return errors.NewDimensionError(op, "predictions", in.rows(), len(in.Preds))
	}
	return in.checkWeights(op, in.rows())
}

// logLoss は二値交差エントロピーを計算します。確率は [eps, 1-eps] に丸めます。
func logLoss(in Input, _ parsedName) (float64, error) {
	return elementwise("logloss", in, func(y, p float64) float64 {
		p = errors.ClipValue(p, eps, 1-eps)
		return -(y*math.Log(p) + (1-y)*math.Log(1-p))
	})
}

// binaryError は閾値（既定0.5、"error@t" で指定）による誤分類率です。
func binaryError(in Input, s parsedName) (float64, error) {
	threshold := 0.5
	if s.hasParam {
		threshold = s.param
	}
	return elementwise("error", in, func(y, p float64) float64 {
		if (p > threshold) != (y > 0.5) {
			return 1
		}
		return 0
	})
}

// auc はROC曲線下面積を計算します。同じ予測値の行は台形として扱い、
// 0/1以外のラベルは正例の重み y と負例の重み 1-y に分けます。
func auc(in Input, _ parsedName) (float64, error) {
	const op = "auc"
	if err := binary(op, in); err != nil {
		return 0, err
	}
	n := len(in.Preds)
	order := make([]int, n)
	sorted := append([]float64(nil), in.Preds...)
	floats.Argsort(sorted, order)

	var area, tp, fp float64
	for hi := n; hi > 0; {
		lo := hi - 1
		for lo > 0 && sorted[lo-1] == sorted[hi-1] {
			lo--
		}
		var gp, gn float64
		for _, i := range order[lo:hi] {
			w := in.weight(i)
			gp += w * in.Labels[i]
			gn += w * (1 - in.Labels[i])
		}
		area += gn * (tp + gp/2)
		tp += gp
		fp += gn
		hi = lo
	}
	if tp <= 0 || fp <= 0 {
		return 0, errors.NewValueError(op, "labels must contain both classes")
	}
	return area / (tp * fp), nil
}

// multiclass は行あたりK個の確率とクラス番号ラベルを検証し、Kを返します。
func multiclass(op string, in Input) (int, error) {
	k, err := in.outputs(op)
	if err != nil {
		return 0, err
	}
	if in.cols() != 1 {
		return 0, errors.NewDimensionError(op, "label columns", 1, in.cols())
	}
	if err := in.checkWeights(op, in.rows()); err != nil {
		return 0, err
	}
	for _, y := range in.Labels {
		if y < 0 || y >= float64(k) || y != math.Trunc(y) {
			return 0, errors.NewValueError(op, "label is not a class index")
		}
	}
	return k, nil
}

// multiLogLoss は多クラス交差エントロピーを計算します。
func multiLogLoss(in Input, _ parsedName) (float64, error) {
	const op = "mlogloss"
	k, err := multiclass(op, in)
	if err != nil {
		return 0, err
	}
	losses := make([]float64, in.rows())
	for i, y := range in.Labels {
		p := math.Max(in.Preds[i*k+int(y)], eps)
		losses[i] = -math.Log(p)
	}
	return weightedMean(op, losses, cellWeights(in, 1))
}

// multiError は最大確率のクラスがラベルと異なる行の割合です。
func multiError(in Input, _ parsedName) (float64, error) {
	const op = "merror"
	k, err := multiclass(op, in)
	if err != nil {
		return 0, err
	}
	losses := make([]float64, in.rows())
	for i, y := range in.Labels {
		if floats.MaxIdx(in.Preds[i*k:(i+1)*k]) != int(y) {
			losses[i] = 1
		}
	}
	return weightedMean(op, losses, cellWeights(in, 1))
}
