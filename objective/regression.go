package objective

import "math"

// regKernel is the per-row loss of an element-wise objective.
type regKernel interface {
	configure(p *paramParser)
	config(cfg Args)
	// pair returns the unweighted gradient and Hessian at margin m.
	pair(m, y float64) (grad, hess float64)
	loss(m, y float64) float64
	labels() LabelDomain
}

// labelWeighter scales the row weight by a label-dependent factor.
type labelWeighter interface {
	labelWeight(y float64) float64
}

// metricNamer overrides regVariant.metric when the name depends on parameters.
type metricNamer interface {
	metricName() string
}

// regVariant is the fixed description of one element-wise variant.
type regVariant struct {
	kind      TaskKind
	constHess bool
	multi     bool
	link      link
	metric    string
}

// regression is an objective whose gradient at (row, target) depends only
// on that cell's margin and label.
type regression struct {
	base
	v      regVariant
	kernel regKernel
}

func regressionFactory(v regVariant, kernel func() regKernel) func(name string, ctx *Context) Objective {
	return func(name string, ctx *Context) Objective {
		return &regression{base: newBase(name, ctx), v: v, kernel: kernel()}
	}
}

func (r *regression) Configure(args Args) error {
	p := newParamParser(r.op("Configure"), args)
	r.kernel.configure(p)
	return r.finish(p, r.Config())
}

func (r *regression) Config() Args {
	cfg := Args{}
	r.kernel.config(cfg)
	return cfg
}

func (r *regression) Task() Task {
	return Task{Kind: r.v.kind, ConstHess: r.v.constHess, MultiTarget: r.v.multi}
}

func (r *regression) Targets(info *MetaInfo) (int, error) {
	if r.v.multi {
		return info.NumLabelCols(), nil
	}
	return r.singleTarget(info)
}

func (r *regression) GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error {
	if err := r.ready("GetGradient"); err != nil {
		return err
	}
	nt, err := r.Targets(info)
	if err != nil {
		return err
	}
	if err := r.checkShapes("GetGradient", preds, info, nt, out); err != nil {
		return err
	}
	if err := validate(r.op("GetGradient"), info, r.kernel.labels(), info.NumRows(), r.ctx); err != nil {
		return err
	}

	lw, scaled := r.kernel.(labelWeighter)
	return r.elementwise(preds, info, nt, iteration, out, func(row, t int, m float64) (float64, float64, float64) {
		y := info.Label(row, t)
		w := info.Weight(row)
		if scaled {
			w *= lw.labelWeight(y)
		}
		g, h := r.kernel.pair(m, y)
		return g, h, w
	})
}

func (r *regression) PredTransform(preds []float64) []float64 {
	return r.v.link.apply(preds)
}

func (r *regression) EvalTransform(preds []float64) []float64 {
	return r.PredTransform(preds)
}

func (r *regression) ProbToMargin(base float64) (float64, error) {
	return r.v.link.toMargin(r.op("ProbToMargin"), base)
}

func (r *regression) DefaultEvalMetric() string {
	if n, ok := r.kernel.(metricNamer); ok {
		return n.metricName()
	}
	return r.v.metric
}

// Loss implements LossFunc.
func (r *regression) Loss(margin, label float64) float64 {
	return r.kernel.loss(margin, label)
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

type squaredError struct{}

func (squaredError) configure(*paramParser)               {}
func (squaredError) config(Args)                          {}
func (squaredError) labels() LabelDomain                  { return finiteLabels }
func (squaredError) pair(m, y float64) (float64, float64) { return m - y, 1 }
func (squaredError) loss(m, y float64) float64            { return 0.5 * (m - y) * (m - y) }

// squaredLogError clamps predictions just above -1 so log1p stays defined.
type squaredLogError struct{}

const minLogPred = -1 + 1e-6

func (squaredLogError) configure(*paramParser) {}
func (squaredLogError) config(Args)            {}
func (squaredLogError) labels() LabelDomain    { return aboveMinusOneLabels }

func (squaredLogError) pair(m, y float64) (float64, float64) {
	p := math.Max(m, minLogPred)
	d := math.Log1p(p) - math.Log1p(y)
	den := p + 1
	return d / den, (1 - d) / (den * den)
}

func (squaredLogError) loss(m, y float64) float64 {
	d := math.Log1p(math.Max(m, minLogPred)) - math.Log1p(y)
	return 0.5 * d * d
}

type pseudoHuber struct {
	slope float64
}

func (k *pseudoHuber) configure(p *paramParser) {
	k.slope = p.Float("huber_slope", 1, greaterThan(0))
}

func (k *pseudoHuber) config(cfg Args)     { cfg["huber_slope"] = formatFloat(k.slope) }
func (k *pseudoHuber) labels() LabelDomain { return finiteLabels }

func (k *pseudoHuber) pair(m, y float64) (float64, float64) {
	z := m - y
	s := 1 + (z/k.slope)*(z/k.slope)
	rs := math.Sqrt(s)
	return z / rs, 1 / (s * rs)
}

func (k *pseudoHuber) loss(m, y float64) float64 {
	z := (m - y) / k.slope
	return k.slope * k.slope * (math.Sqrt(1+z*z) - 1)
}

type fair struct {
	c float64
}

func (k *fair) configure(p *paramParser) {
	k.c = p.Float("fair_c", 1, greaterThan(0))
}

func (k *fair) config(cfg Args)     { cfg["fair_c"] = formatFloat(k.c) }
func (k *fair) labels() LabelDomain { return finiteLabels }

func (k *fair) pair(m, y float64) (float64, float64) {
	z := m - y
	den := math.Abs(z) + k.c
	return k.c * z / den, k.c * k.c / (den * den)
}

func (k *fair) loss(m, y float64) float64 {
	a := math.Abs(m-y) / k.c
	return k.c * k.c * (a - math.Log1p(a))
}

// logistic is the log loss on sigmoid(m). Rows labelled 1 are weighted by
// scale_pos_weight.
type logistic struct {
	scalePos float64
}

func (k *logistic) configure(p *paramParser) {
	k.scalePos = p.Float("scale_pos_weight", 1, atLeast(0))
}

func (k *logistic) config(cfg Args)     { cfg["scale_pos_weight"] = formatFloat(k.scalePos) }
func (k *logistic) labels() LabelDomain { return unitIntervalLabels }

func (k *logistic) labelWeight(y float64) float64 {
	if y == 1 {
		return k.scalePos
	}
	return 1
}

func (k *logistic) pair(m, y float64) (float64, float64) {
	p := sigmoid(m)
	return p - y, p * (1 - p)
}

func (k *logistic) loss(m, y float64) float64 {
	return softplus(m) - y*m
}

// hinge uses labels {0,1} mapped to {-1,+1}. The unit Hessian on the active
// side is a surrogate for the piecewise-linear loss.
type hinge struct{}

func (hinge) configure(*paramParser) {}
func (hinge) config(Args)            {}
func (hinge) labels() LabelDomain    { return unitIntervalLabels }

func (hinge) pair(m, y float64) (float64, float64) {
	s := 2*y - 1
	if m*s < 1 {
		return -s, 1
	}
	return 0, HessianFloor
}

func (hinge) loss(m, y float64) float64 {
	return math.Max(0, 1-(2*y-1)*m)
}

// poisson inflates the Hessian by exp(max_delta_step) to damp the Newton step.
type poisson struct {
	maxDeltaStep float64
}

func (k *poisson) configure(p *paramParser) {
	k.maxDeltaStep = p.Float("max_delta_step", 0.7, atLeast(0))
}

func (k *poisson) config(cfg Args)     { cfg["max_delta_step"] = formatFloat(k.maxDeltaStep) }
func (k *poisson) labels() LabelDomain { return nonNegativeLabels }

func (k *poisson) pair(m, y float64) (float64, float64) {
	return math.Exp(m) - y, math.Exp(m + k.maxDeltaStep)
}

func (k *poisson) loss(m, y float64) float64 {
	return math.Exp(m) - y*m
}

type gamma struct{}

func (gamma) configure(*paramParser) {}
func (gamma) config(Args)            {}
func (gamma) labels() LabelDomain    { return positiveLabels }

func (gamma) pair(m, y float64) (float64, float64) {
	r := y * math.Exp(-m)
	return 1 - r, r
}

func (gamma) loss(m, y float64) float64 {
	return y*math.Exp(-m) + m
}

type tweedie struct {
	rho float64
}

func (k *tweedie) configure(p *paramParser) {
	k.rho = p.Float("tweedie_variance_power", 1.5, halfOpen(1, 2))
}

func (k *tweedie) config(cfg Args)     { cfg["tweedie_variance_power"] = formatFloat(k.rho) }
func (k *tweedie) labels() LabelDomain { return nonNegativeLabels }

func (k *tweedie) metricName() string {
	return "tweedie-nloglik@" + formatFloat(k.rho)
}

func (k *tweedie) pair(m, y float64) (float64, float64) {
	a := math.Exp((1 - k.rho) * m)
	b := math.Exp((2 - k.rho) * m)
	return -y*a + b, -y*(1-k.rho)*a + (2-k.rho)*b
}

func (k *tweedie) loss(m, y float64) float64 {
	b := math.Exp((2-k.rho)*m) / (2 - k.rho)
	if k.rho == 1 {
		return -y*m + b
	}
	return -y*math.Exp((1-k.rho)*m)/(1-k.rho) + b
}
