// Package leaf recomputes tree leaf values from residual quantiles for losses
// whose Hessian vanishes at the optimum.
//
// Each partition computes local per-leaf quantiles with Quantiles, combines
// them across partitions with Aggregate and writes them with Apply. The
// combined value is the mean of the local quantiles of partitions that hold
// rows in the leaf. This approximates the global quantile; it is exact only
// when a single partition holds all of a leaf's rows.
package leaf

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gbobjective/core/collective"
	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Quantiles returns, for every id in leaves, the alpha-quantile of the
// residuals of the rows assigned to it. Unit weights interpolate between
// order statistics; explicit weights take the weighted empirical quantile. position[i] is
// the node of row i; negative positions and zero-weight rows are skipped.
// Leaves without rows get NaN. A nil weights slice means unit weights.
func Quantiles(position, leaves []int, residuals, weights []float64, alpha float64) ([]float64, error) {
	const op = "leaf.Quantiles"
	if len(residuals) != len(position) {
		return nil, errors.NewDimensionError(op, "residuals", len(position), len(residuals))
	}
	if weights != nil && len(weights) != len(position) {
		return nil, errors.NewDimensionError(op, "weights", len(position), len(weights))
	}
	if !(alpha >= 0 && alpha <= 1) {
		return nil, errors.NewConfigurationError(op, "alpha", "must be in [0, 1]", alpha)
	}

	slot := make(map[int]int, len(leaves))
	for i, nid := range leaves {
		slot[nid] = i
	}

	rows := make([][]int, len(leaves))
	for i, nid := range position {
		if nid < 0 {
			continue
		}
		s, ok := slot[nid]
		if !ok {
			return nil, errors.NewValueError(op, "row assigned to a node that is not a leaf")
		}
		if weights != nil && weights[i] == 0 {
			continue
		}
		rows[s] = append(rows[s], i)
	}

	out := make([]float64, len(leaves))
	for s, idx := range rows {
		if len(idx) == 0 {
			out[s] = math.NaN()
			continue
		}
		x := make([]float64, len(idx))
		for k, i := range idx {
			x[k] = residuals[i]
		}
		var w []float64
		if weights != nil {
			perm := make([]int, len(x))
			floats.Argsort(x, perm)
			w = make([]float64, len(x))
			for k, p := range perm {
				w[k] = weights[idx[p]]
			}
			out[s] = stat.Quantile(alpha, stat.Empirical, x, w)
			continue
		}
		floats.Argsort(x, make([]int, len(x)))
		out[s] = interpolated(alpha, x)
	}
	return out, nil
}

// interpolated is the unweighted alpha-quantile of sorted x: the value at
// position alpha*(n+1), linear between neighbouring order statistics and
// clamped to the extremes.
func interpolated(alpha float64, x []float64) float64 {
	n := float64(len(x))
	if alpha <= 1/(n+1) {
		return x[0]
	}
	if alpha >= n/(n+1) {
		return x[len(x)-1]
	}
	pos := alpha * (n + 1)
	k := math.Floor(pos)
	i := int(k) - 1
	return x[i] + (pos-k)*(x[i+1]-x[i])
}

// Aggregate averages local quantiles across every partition of comm, in
// place. NaN entries mark leaves without local rows and do not count toward
// the mean; a leaf with no rows on any partition stays NaN. The reduction
// must finish within timeout.
func Aggregate(ctx context.Context, comm collective.Communicator, quantiles []float64, timeout time.Duration) error {
	const op = "leaf.Aggregate"
	if comm == nil || comm.WorldSize() <= 1 {
		return nil
	}

	n := len(quantiles)
	buf := make([]float64, 2*n)
	for i, q := range quantiles {
		if math.IsNaN(q) {
			continue
		}
		buf[i] = 1
		buf[n+i] = q
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := comm.AllreduceSum(rctx, buf); err != nil {
		return errors.NewSynchronizationError(op, comm.Rank(), timeout, err)
	}

	for i := range quantiles {
		if buf[i] == 0 {
			quantiles[i] = math.NaN()
			continue
		}
		quantiles[i] = buf[n+i] / buf[i]
	}
	return nil
}

// Apply writes values to the matching leaves of t and moves it to the
// leaf-updated state. NaN values leave the Newton estimate in place. It
// returns the number of leaves changed.
func Apply(t *tree.RegTree, leaves []int, values []float64) (int, error) {
	if len(values) != len(leaves) {
		return 0, errors.NewDimensionError("leaf.Apply", "leaf values", len(leaves), len(values))
	}
	update := make(map[int]float64, len(leaves))
	for i, nid := range leaves {
		if math.IsNaN(values[i]) {
			continue
		}
		update[nid] = values[i]
	}
	if err := t.ApplyLeafValues(update); err != nil {
		return 0, err
	}
	return len(update), nil
}
