package objective

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// cox is the Cox proportional hazards partial likelihood. |y| is the event
// time; y < 0 marks a right-censored row. Tied times share a risk set
// (Breslow).
type cox struct {
	base
}

func newCox(name string, ctx *Context) Objective {
	return &cox{base: newBase(name, ctx)}
}

func (c *cox) Configure(args Args) error {
	return c.finish(newParamParser(c.op("Configure"), args), Args{})
}

func (c *cox) Config() Args { return Args{} }

func (c *cox) Task() Task { return Task{Kind: TaskSurvival} }

func (c *cox) Targets(info *MetaInfo) (int, error) { return c.singleTarget(info) }

// riskOrder returns row indices sorted by ascending |y|, ties in row order.
func riskOrder(info *MetaInfo) []int {
	order := make([]int, info.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(info.Label(order[a], 0)) < math.Abs(info.Label(order[b], 0))
	})
	return order
}

func (c *cox) GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error {
	if err := c.ready("GetGradient"); err != nil {
		return err
	}
	op := c.op("GetGradient")
	if _, err := c.Targets(info); err != nil {
		return err
	}
	if err := c.checkShapes("GetGradient", preds, info, 1, out); err != nil {
		return err
	}
	if err := validate(op, info, survivalLabels, info.NumRows(), c.ctx); err != nil {
		return err
	}

	order := riskOrder(info)

	// Sum of exp(p) over the current risk set; rows leave it once time
	// moves past their |y|.
	riskSum := 0.0
	for _, i := range order {
		riskSum += math.Exp(preds[i])
	}

	var rk, sk, pending, lastExp, lastTime float64
	for _, i := range order {
		expP := math.Exp(preds[i])
		y := info.Label(i, 0)
		t := math.Abs(y)

		pending += lastExp
		if lastTime < t {
			riskSum -= pending
			pending = 0
		}

		event := 0.0
		if y > 0 {
			event = 1
			rk += 1 / riskSum
			sk += 1 / (riskSum * riskSum)
		}

		g := expP*rk - event
		h := expP*rk - expP*expP*sk
		if err := errors.CheckPair(op, g, h, i, 0, iteration); err != nil {
			return err
		}
		if w := info.Weight(i); w == 0 {
			out[i] = GradientPair{}
		} else {
			out[i] = weighted(g, h, w)
		}

		lastTime = t
		lastExp = expP
	}
	return nil
}

func (c *cox) PredTransform(preds []float64) []float64 { return expLink.apply(preds) }
func (c *cox) EvalTransform(preds []float64) []float64 { return c.PredTransform(preds) }

func (c *cox) ProbToMargin(base float64) (float64, error) {
	return expLink.toMargin(c.op("ProbToMargin"), base)
}

func (c *cox) DefaultEvalMetric() string { return "cox-nloglik" }
