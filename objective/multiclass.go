package objective

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gbobjective/core/parallel"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// softmax is multinomial cross-entropy over num_class outputs per row.
// With argmax set, PredTransform returns class indices while EvalTransform
// still returns probabilities.
type softmax struct {
	base
	numClass int
	argmax   bool
}

func newSoftprob(name string, ctx *Context) Objective {
	return &softmax{base: newBase(name, ctx)}
}

func newSoftmax(name string, ctx *Context) Objective {
	return &softmax{base: newBase(name, ctx), argmax: true}
}

func (s *softmax) Configure(args Args) error {
	p := newParamParser(s.op("Configure"), args)
	p.Require("num_class")
	s.numClass = p.Int("num_class", 0, atLeast(1))
	return s.finish(p, s.Config())
}

func (s *softmax) Config() Args {
	return Args{"num_class": strconv.Itoa(s.numClass)}
}

func (s *softmax) Task() Task {
	return Task{Kind: TaskClassification}
}

func (s *softmax) Targets(info *MetaInfo) (int, error) {
	if _, err := s.singleTarget(info); err != nil {
		return 0, err
	}
	return s.numClass, nil
}

func (s *softmax) GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error {
	if err := s.ready("GetGradient"); err != nil {
		return err
	}
	op := s.op("GetGradient")
	k, err := s.Targets(info)
	if err != nil {
		return err
	}
	if err := s.checkShapes("GetGradient", preds, info, k, out); err != nil {
		return err
	}
	if err := validate(op, info, classLabels(k), info.NumRows(), s.ctx); err != nil {
		return err
	}

	return parallel.ParallelizeWithThreshold(info.NumRows(), s.ctx.threshold(), s.ctx.threads(), func(lo, hi int) error {
		prob := make([]float64, k)
		for i := lo; i < hi; i++ {
			row := out[i*k : (i+1)*k]
			w := info.Weight(i)
			if w == 0 {
				clear(row)
				continue
			}
			copy(prob, preds[i*k:(i+1)*k])
			softmaxInPlace(prob)
			y := int(info.Label(i, 0))
			for c, p := range prob {
				g := p
				if c == y {
					g = p - 1
				}
				h := p * (1 - p)
				if err := errors.CheckPair(op, g, h, i, c, iteration); err != nil {
					return err
				}
				row[c] = weighted(g, h, w)
			}
		}
		return nil
	})
}

// softmaxInPlace normalizes v with the maximum subtracted first.
func softmaxInPlace(v []float64) {
	mx := floats.Max(v)
	for i := range v {
		v[i] = math.Exp(v[i] - mx)
	}
	floats.Scale(1/floats.Sum(v), v)
}

func (s *softmax) probabilities(preds []float64) []float64 {
	k := s.numClass
	if k < 1 {
		return preds
	}
	for i := 0; i+k <= len(preds); i += k {
		softmaxInPlace(preds[i : i+k])
	}
	return preds
}

func (s *softmax) PredTransform(preds []float64) []float64 {
	k := s.numClass
	if !s.argmax || k < 1 {
		return s.probabilities(preds)
	}
	rows := len(preds) / k
	for i := 0; i < rows; i++ {
		preds[i] = float64(floats.MaxIdx(preds[i*k : (i+1)*k]))
	}
	return preds[:rows]
}

func (s *softmax) EvalTransform(preds []float64) []float64 {
	return s.probabilities(preds)
}

// ProbToMargin is the identity; a scalar baseline applies to every class.
func (s *softmax) ProbToMargin(base float64) (float64, error) {
	return identityLink.toMargin(s.op("ProbToMargin"), base)
}

func (s *softmax) DefaultEvalMetric() string {
	if s.argmax {
		return "merror"
	}
	return "mlogloss"
}

// RowLoss is the cross-entropy of one row of margins against class y.
func (s *softmax) RowLoss(margins []float64, y int) float64 {
	return errors.LogSumExp(margins) - margins[y]
}
