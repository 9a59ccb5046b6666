package main

import (
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gbobjective/objective"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// curveSet は1つのラベルに対する損失・勾配・ヘシアンの曲線です。
// 目的関数が損失を公開しない場合 Loss は nil です。
type curveSet struct {
	Loss plotter.XYs
	Grad plotter.XYs
	Hess plotter.XYs
}

// sampleCurves は [lo, hi] を n 点で等分したマージンについて曲線を計算します。
func sampleCurves(obj objective.Objective, label, lo, hi float64, n int) (curveSet, error) {
	if n < 2 || !(lo < hi) {
		return curveSet{}, errors.NewValueError("objplot.sampleCurves", "need at least two points on a non-empty range")
	}
	labels := make([]float64, n)
	margins := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range margins {
		labels[i] = label
		margins[i] = lo + float64(i)*step
	}

	info := objective.NewMetaInfo(labels, nil)
	nt, err := obj.Targets(info)
	if err != nil {
		return curveSet{}, err
	}
	if nt != 1 {
		return curveSet{}, errors.NewValueError("objplot.sampleCurves", obj.Name()+" has more than one output per row")
	}
	gpair := make([]objective.GradientPair, n)
	if err := obj.GetGradient(margins, info, 0, gpair); err != nil {
		return curveSet{}, err
	}

	var out curveSet
	out.Grad = make(plotter.XYs, n)
	out.Hess = make(plotter.XYs, n)
	lf, hasLoss := obj.(objective.LossFunc)
	if hasLoss {
		out.Loss = make(plotter.XYs, n)
	}
	for i, m := range margins {
		out.Grad[i] = plotter.XY{X: m, Y: gpair[i].Grad}
		out.Hess[i] = plotter.XY{X: m, Y: gpair[i].Hess}
		if hasLoss {
			out.Loss[i] = plotter.XY{X: m, Y: lf.Loss(m, label)}
		}
	}
	return out, nil
}

// parseArgs は "key=value,key=value" を目的関数の引数に変換します。
func parseArgs(raw string) (objective.Args, error) {
	args := objective.Args{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	for _, kv := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.NewConfigurationError("objplot", "args", "expected key=value", kv)
		}
		args[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return args, nil
}

// render は曲線を1枚の図に描いて path に保存します。拡張子で形式が決まります。
func render(title string, c curveSet, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "margin"
	p.Legend.Top = true

	lines := []interface{}{"gradient", c.Grad, "hessian", c.Hess}
	if c.Loss != nil {
		lines = append([]interface{}{"loss", c.Loss}, lines...)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return errors.Wrap(err, "add lines")
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
