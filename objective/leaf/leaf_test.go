package leaf

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/gbobjective/core/collective"
	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

func stump(t *testing.T) *tree.RegTree {
	t.Helper()
	tr, err := tree.NewRegTree([]tree.Node{
		{NodeID: 0, ParentID: -1, LeftChild: 1, RightChild: 2},
		{NodeID: 1, ParentID: 0, LeftChild: -1, RightChild: -1, LeafValue: 0.25},
		{NodeID: 2, ParentID: 0, LeftChild: -1, RightChild: -1, LeafValue: -0.5},
	}, 0, 1)
	require.NoError(t, err)
	return tr
}

func TestQuantiles(t *testing.T) {
	position := []int{1, 1, 1, 2, 2, -1}
	residuals := []float64{3, 1, 2, 10, 20, 100}

	t.Run("unweighted median", func(t *testing.T) {
		q, err := Quantiles(position, []int{1, 2}, residuals, nil, 0.5)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 15}, q)
	})

	t.Run("even count interpolates", func(t *testing.T) {
		q, err := Quantiles([]int{1, 1, 1, 1}, []int{1}, []float64{4, 1, 3, 2}, nil, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 2.5, q[0])

		q, err = Quantiles([]int{1, 1, 1, 1}, []int{1}, []float64{4, 1, 3, 2}, nil, 0.3)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, q[0], 1e-12)
	})

	t.Run("extremes", func(t *testing.T) {
		lo, err := Quantiles(position, []int{1, 2}, residuals, nil, 0)
		require.NoError(t, err)
		hi, err := Quantiles(position, []int{1, 2}, residuals, nil, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 10}, lo)
		assert.Equal(t, []float64{3, 20}, hi)
	})

	t.Run("weights shift the quantile", func(t *testing.T) {
		weights := []float64{8, 1, 1, 1, 1, 1}
		q, err := Quantiles(position, []int{1, 2}, residuals, weights, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 3.0, q[0])
		// residuals must not be reordered by the call
		assert.Equal(t, []float64{3, 1, 2, 10, 20, 100}, residuals)
	})

	t.Run("empty leaf is NaN", func(t *testing.T) {
		q, err := Quantiles([]int{1, -1}, []int{1, 2}, []float64{1, 5}, nil, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 1.0, q[0])
		assert.True(t, math.IsNaN(q[1]))
	})

	t.Run("zero weight rows are skipped", func(t *testing.T) {
		q, err := Quantiles([]int{1, 1}, []int{1}, []float64{1, 5}, []float64{0, 1}, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 5.0, q[0])
	})
}

func TestQuantilesErrors(t *testing.T) {
	_, err := Quantiles([]int{1}, []int{1}, []float64{1, 2}, nil, 0.5)
	assert.Error(t, err)

	_, err = Quantiles([]int{1}, []int{1}, []float64{1}, []float64{1, 1}, 0.5)
	assert.Error(t, err)

	_, err = Quantiles([]int{1}, []int{1}, []float64{1}, nil, 1.5)
	assert.True(t, errors.IsConfiguration(err))

	_, err = Quantiles([]int{0}, []int{1, 2}, []float64{1}, nil, 0.5)
	assert.Error(t, err, "internal node in position")
}

func TestAggregateExcludesEmptyPartitions(t *testing.T) {
	members := collective.NewLocalGroup(2)

	// Rank 0 has no rows in leaf 0; rank 1 holds {1, 2, 3}.
	perRank := [][][]float64{
		{{}, {4}},
		{{1, 2, 3}, {6}},
	}

	results := make([][]float64, 2)
	var g errgroup.Group
	for _, m := range members {
		g.Go(func() error {
			rank := m.Rank()
			var position []int
			var residuals []float64
			for leafIdx, vals := range perRank[rank] {
				for _, v := range vals {
					position = append(position, leafIdx+1)
					residuals = append(residuals, v)
				}
			}
			q, err := Quantiles(position, []int{1, 2}, residuals, nil, 0.5)
			if err != nil {
				return err
			}
			if err := Aggregate(context.Background(), m, q, time.Second); err != nil {
				return err
			}
			results[rank] = q
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for rank, q := range results {
		assert.Equal(t, 2.0, q[0], "rank %d: leaf 0 equals the quantile of the non-empty partition", rank)
		assert.Equal(t, 5.0, q[1], "rank %d: leaf 1 averages local medians", rank)
	}
}

func TestAggregateKeepsGloballyEmptyLeaf(t *testing.T) {
	members := collective.NewLocalGroup(2)
	results := make([][]float64, 2)

	var g errgroup.Group
	for _, m := range members {
		g.Go(func() error {
			q := []float64{math.NaN(), float64(m.Rank())}
			results[m.Rank()] = q
			return Aggregate(context.Background(), m, q, time.Second)
		})
	}
	require.NoError(t, g.Wait())
	assert.True(t, math.IsNaN(results[0][0]))
	assert.Equal(t, 0.5, results[1][1])
}

func TestAggregateTimeout(t *testing.T) {
	members := collective.NewLocalGroup(2)

	err := Aggregate(context.Background(), members[0], []float64{1}, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsSynchronization(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAggregateSinglePartition(t *testing.T) {
	q := []float64{1, math.NaN()}
	require.NoError(t, Aggregate(context.Background(), collective.Single{}, q, time.Second))
	assert.Equal(t, 1.0, q[0])
	assert.True(t, math.IsNaN(q[1]))
}

func TestApply(t *testing.T) {
	tr := stump(t)

	n, err := Apply(tr, []int{1, 2}, []float64{3, math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3.0, tr.LeafValue(1))
	assert.Equal(t, -0.5, tr.LeafValue(2), "NaN keeps the Newton value")
	assert.Equal(t, tree.StateLeafUpdated, tr.State())

	_, err = Apply(tr, []int{1}, []float64{1})
	assert.True(t, errors.Is(err, errors.ErrTreeFrozen))

	_, err = Apply(stump(t), []int{1, 2}, []float64{1})
	assert.Error(t, err)
}
