package objective

import (
	"context"
	"math"

	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/objective/leaf"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

// adaptive covers the absolute and pinball losses. Their Hessian is zero
// almost everywhere, so the unit Hessian only shapes the tree and leaf
// values are replaced by residual quantiles once the structure is fixed.
//
// Output t of a row uses label column t % labelCols and alpha
// alphas[t / labelCols].
type adaptive struct {
	base
	quantile bool
	alphas   []float64
}

func newAbsoluteError(name string, ctx *Context) Objective {
	return &adaptive{base: newBase(name, ctx), alphas: []float64{0.5}}
}

func newQuantileError(name string, ctx *Context) Objective {
	return &adaptive{base: newBase(name, ctx), quantile: true, alphas: []float64{0.5}}
}

func (a *adaptive) Configure(args Args) error {
	p := newParamParser(a.op("Configure"), args)
	if a.quantile {
		a.alphas = p.FloatList("quantile_alpha", []float64{0.5}, closed(0, 1))
	}
	return a.finish(p, a.Config())
}

func (a *adaptive) Config() Args {
	if !a.quantile {
		return Args{}
	}
	return Args{"quantile_alpha": formatFloatList(a.alphas)}
}

func (a *adaptive) Task() Task {
	return Task{Kind: TaskRegression, UpdatesLeaf: true, MultiTarget: true}
}

func (a *adaptive) Targets(info *MetaInfo) (int, error) {
	return info.NumLabelCols() * len(a.alphas), nil
}

func (a *adaptive) cell(t, labelCols int) (col int, alpha float64) {
	return t % labelCols, a.alphas[t/labelCols]
}

func (a *adaptive) GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error {
	if err := a.ready("GetGradient"); err != nil {
		return err
	}
	nt, _ := a.Targets(info)
	if err := a.checkShapes("GetGradient", preds, info, nt, out); err != nil {
		return err
	}
	if err := validate(a.op("GetGradient"), info, finiteLabels, info.NumRows(), a.ctx); err != nil {
		return err
	}

	labelCols := info.NumLabelCols()
	return a.elementwise(preds, info, nt, iteration, out, func(row, t int, m float64) (float64, float64, float64) {
		col, alpha := a.cell(t, labelCols)
		g := a.grad(m, info.Label(row, col), alpha)
		return g, 1, info.Weight(row)
	})
}

func (a *adaptive) grad(m, y, alpha float64) float64 {
	if !a.quantile {
		switch {
		case m > y:
			return 1
		case m < y:
			return -1
		default:
			return 0
		}
	}
	if y-m >= 0 {
		return -alpha
	}
	return 1 - alpha
}

// Loss implements LossFunc for the first alpha.
func (a *adaptive) Loss(margin, label float64) float64 {
	if !a.quantile {
		return math.Abs(margin - label)
	}
	d := label - margin
	if d >= 0 {
		return a.alphas[0] * d
	}
	return (a.alphas[0] - 1) * d
}

func (a *adaptive) PredTransform(preds []float64) []float64 { return preds }
func (a *adaptive) EvalTransform(preds []float64) []float64 { return preds }

func (a *adaptive) ProbToMargin(base float64) (float64, error) {
	return identityLink.toMargin(a.op("ProbToMargin"), base)
}

func (a *adaptive) DefaultEvalMetric() string {
	if a.quantile {
		return "quantile"
	}
	return "mae"
}

// UpdateTreeLeaf sets every leaf of t to the alpha-quantile of the
// residuals y - p of its rows. Partitions that hold no rows of a leaf are
// left out of the cross-partition mean; a leaf with no rows anywhere keeps
// its Newton value.
func (a *adaptive) UpdateTreeLeaf(ctx context.Context, position []int, info *MetaInfo, preds []float64, t *tree.RegTree) error {
	if err := a.ready("UpdateTreeLeaf"); err != nil {
		return err
	}
	op := a.op("UpdateTreeLeaf")
	nt, _ := a.Targets(info)
	rows := info.NumRows()
	if len(position) != rows {
		return errors.NewDimensionError(op, "leaf positions", rows, len(position))
	}
	if len(preds) != rows*nt {
		return errors.NewDimensionError(op, "predictions", rows*nt, len(preds))
	}
	if t.Target < 0 || t.Target >= nt {
		return errors.NewConfigurationError(op, "tree.target", "out of range for this dataset", t.Target)
	}

	col, alpha := a.cell(t.Target, info.NumLabelCols())
	residuals := make([]float64, rows)
	for i := range residuals {
		residuals[i] = info.Label(i, col) - preds[i*nt+t.Target]
	}
	var weights []float64
	if len(info.Weights) > 0 {
		weights = info.Weights
	}

	leaves := t.LeafIDs()
	q, err := leaf.Quantiles(position, leaves, residuals, weights, alpha)
	if err != nil {
		return err
	}
	comm := a.ctx.comm()
	if err := leaf.Aggregate(ctx, comm, q, a.ctx.syncTimeout()); err != nil {
		a.log.Error("leaf quantile aggregation failed", err,
			log.RankKey, comm.Rank(), log.WorldSizeKey, comm.WorldSize())
		return err
	}
	n, err := leaf.Apply(t, leaves, q)
	if err != nil {
		return err
	}
	a.log.Debug("leaf values updated",
		log.OperationKey, log.OperationUpdateLeaf,
		log.LeavesKey, n,
		log.TargetsKey, t.Target,
		log.RankKey, comm.Rank(),
	)
	return nil
}
