package objective

import (
	"math"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// link maps margins to the prediction space and back.
type link struct {
	name    string
	forward func(m float64) float64
	// inverse reports false when v lies outside the image of forward.
	inverse func(v float64) (float64, bool)
	domain  string
}

var (
	identityLink = link{
		name:    "identity",
		forward: func(m float64) float64 { return m },
		inverse: func(v float64) (float64, bool) { return v, errors.IsFinite(v) },
		domain:  "must be finite",
	}

	sigmoidLink = link{
		name:    "sigmoid",
		forward: sigmoid,
		inverse: func(v float64) (float64, bool) {
			if !(v > 0 && v < 1) {
				return 0, false
			}
			return -math.Log(1/v - 1), true
		},
		domain: "must be in (0, 1)",
	}

	expLink = link{
		name:    "exp",
		forward: errors.StabilizeExp,
		inverse: func(v float64) (float64, bool) {
			if !(v > 0) || math.IsInf(v, 1) {
				return 0, false
			}
			return math.Log(v), true
		},
		domain: "must be > 0",
	}

	// hingeLink thresholds the margin at zero. Its inverse is the identity
	// since a class label carries no margin information.
	hingeLink = link{
		name: "threshold",
		forward: func(m float64) float64 {
			if m > 0 {
				return 1
			}
			return 0
		},
		inverse: identityLink.inverse,
		domain:  identityLink.domain,
	}
)

func (l link) apply(preds []float64) []float64 {
	for i, m := range preds {
		preds[i] = l.forward(m)
	}
	return preds
}

func (l link) toMargin(op string, v float64) (float64, error) {
	m, ok := l.inverse(v)
	if !ok {
		return 0, errors.NewConfigurationError(op, "base_score", l.domain, v)
	}
	return m, nil
}

// sigmoid is 1/(1+e^-m) without overflow for large |m|.
func sigmoid(m float64) float64 {
	if m >= 0 {
		return 1 / (1 + math.Exp(-m))
	}
	e := math.Exp(m)
	return e / (1 + e)
}

// softplus is log(1+e^m) without overflow.
func softplus(m float64) float64 {
	if m > 0 {
		return m + math.Log1p(math.Exp(-m))
	}
	return math.Log1p(math.Exp(m))
}
