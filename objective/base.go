package objective

import (
	"context"
	"time"

	"github.com/YuminosukeSato/gbobjective/core/parallel"
	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

// base holds what every variant shares: its name, the process context and
// the configured flag.
type base struct {
	name       string
	ctx        *Context
	log        log.Logger
	configured bool
}

func newBase(name string, ctx *Context) base {
	if ctx == nil {
		ctx = DefaultContext()
	}
	return base{
		name: name,
		ctx:  ctx,
		log:  ctx.logger().With(log.ObjectiveKey, name, log.ComponentKey, "objective"),
	}
}

// Name implements Objective.
func (b *base) Name() string { return b.name }

func (b *base) op(method string) string { return b.name + "." + method }

func (b *base) ready(method string) error {
	if !b.configured {
		return errors.Wrapf(errors.ErrNotConfigured, "%s", b.op(method))
	}
	return nil
}

// finish records the outcome of a Configure call.
func (b *base) finish(p *paramParser, cfg Args) error {
	if err := p.Err(); err != nil {
		b.log.Error("configuration rejected", err, log.OperationKey, log.OperationConfigure)
		return err
	}
	if unknown := p.Unknown(); len(unknown) > 0 {
		b.log.Debug("ignoring unknown configuration keys", log.UnknownKeysKey, unknown)
	}
	b.configured = true
	b.log.Debug("configured", log.ParamsKey, map[string]string(cfg))
	return nil
}

// singleTarget rejects label matrices with more than one column.
func (b *base) singleTarget(info *MetaInfo) (int, error) {
	if cols := info.NumLabelCols(); cols > 1 {
		return 0, errors.NewConfigurationError(b.op("Targets"), "labels",
			"multi-target labels are not supported by this objective", cols)
	}
	return 1, nil
}

// UpdateTreeLeaf is the default no-op leaf update.
func (b *base) UpdateTreeLeaf(context.Context, []int, *MetaInfo, []float64, *tree.RegTree) error {
	return nil
}

// checkShapes verifies buffer lengths against rows × targets.
func (b *base) checkShapes(method string, preds []float64, info *MetaInfo, nt int, out []GradientPair) error {
	want := info.NumRows() * nt
	if len(preds) != want {
		return errors.NewDimensionError(b.op(method), "predictions", want, len(preds))
	}
	if len(out) != len(preds) {
		return errors.NewDimensionError(b.op(method), "gradient buffer", len(preds), len(out))
	}
	return nil
}

// elementFunc returns the unweighted pair and the weight for one (row, target).
type elementFunc func(row, target int, margin float64) (grad, hess, weight float64)

// elementwise fills out for independent (row, target) cells, splitting rows
// across workers once the row count passes the context threshold.
func (b *base) elementwise(preds []float64, info *MetaInfo, nt, iteration int, out []GradientPair, fn elementFunc) error {
	op := b.op("GetGradient")
	rows := info.NumRows()
	start := time.Now()

	err := parallel.ParallelizeWithThreshold(rows, b.ctx.threshold(), b.ctx.threads(), func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			for t := 0; t < nt; t++ {
				idx := i*nt + t
				g, h, w := fn(i, t, preds[idx])
				if w == 0 {
					out[idx] = GradientPair{}
					continue
				}
				if err := errors.CheckPair(op, g, h, i, t, iteration); err != nil {
					return err
				}
				out[idx] = weighted(g, h, w)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if b.log.Enabled(context.Background(), log.LevelDebug) {
		b.log.Debug("gradient computed",
			log.OperationKey, log.OperationGetGradient,
			log.RowsKey, rows,
			log.TargetsKey, nt,
			log.IterationKey, iteration,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return nil
}
