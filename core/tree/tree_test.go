package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

func stump(t *testing.T) *RegTree {
	t.Helper()
	nodes := []Node{
		{NodeID: 0, ParentID: -1, LeftChild: 1, RightChild: 2, SplitFeature: 0, Threshold: 0.5},
		{NodeID: 1, ParentID: 0, LeftChild: -1, RightChild: -1, LeafValue: -1.0},
		{NodeID: 2, ParentID: 0, LeftChild: -1, RightChild: -1, LeafValue: 2.0},
	}
	tr, err := NewRegTree(nodes, 0, 0.1)
	require.NoError(t, err)
	return tr
}

func TestNewRegTreeValidation(t *testing.T) {
	testCases := []struct {
		name  string
		nodes []Node
	}{
		{name: "empty", nodes: nil},
		{name: "id mismatch", nodes: []Node{{NodeID: 1, LeftChild: -1, RightChild: -1}}},
		{name: "single child", nodes: []Node{{NodeID: 0, LeftChild: 1, RightChild: -1}, {NodeID: 1, LeftChild: -1, RightChild: -1}}},
		{name: "missing child", nodes: []Node{{NodeID: 0, LeftChild: 1, RightChild: 5}, {NodeID: 1, LeftChild: -1, RightChild: -1}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegTree(tc.nodes, 0, 1)
			assert.Error(t, err)
		})
	}
}

func TestLeafIDsAndPredict(t *testing.T) {
	tr := stump(t)

	assert.Equal(t, []int{1, 2}, tr.LeafIDs())
	assert.True(t, tr.IsLeaf(1))
	assert.False(t, tr.IsLeaf(0))
	assert.False(t, tr.IsLeaf(7))

	assert.Equal(t, 1, tr.Leaf([]float64{0.2}))
	assert.Equal(t, 2, tr.Leaf([]float64{0.9}))
	assert.Equal(t, 2, tr.Leaf([]float64{math.NaN()}), "missing values follow DefaultLeft=false")
	assert.InDelta(t, -0.1, tr.Predict([]float64{0.2}), 1e-12)
	assert.InDelta(t, 0.2, tr.Predict([]float64{0.9}), 1e-12)
}

func TestStateMachine(t *testing.T) {
	tr := stump(t)
	assert.Equal(t, StateBuilt, tr.State())

	require.NoError(t, tr.SetLeafValue(1, 0.5))
	assert.Error(t, tr.SetLeafValue(0, 0.5), "internal nodes cannot hold leaf values")
	assert.Error(t, tr.Freeze(), "freeze must follow the leaf update")

	require.NoError(t, tr.ApplyLeafValues(map[int]float64{2: 3.0}))
	assert.Equal(t, StateLeafUpdated, tr.State())
	assert.Equal(t, 0.5, tr.LeafValue(1))
	assert.Equal(t, 3.0, tr.LeafValue(2))

	err := tr.SetLeafValue(1, 9)
	assert.True(t, errors.Is(err, errors.ErrTreeFrozen))
	assert.Error(t, tr.MarkLeafUpdated())

	require.NoError(t, tr.Freeze())
	assert.Equal(t, StateFrozen, tr.State())
	assert.True(t, errors.Is(tr.Freeze(), errors.ErrTreeFrozen))
	assert.True(t, errors.Is(tr.ApplyLeafValues(map[int]float64{1: 0}), errors.ErrTreeFrozen))
	assert.Equal(t, "frozen", tr.State().String())
}

func TestApplyLeafValuesRejectsBadInput(t *testing.T) {
	tr := stump(t)

	assert.Error(t, tr.ApplyLeafValues(map[int]float64{0: 1}))
	assert.True(t, errors.IsNumeric(tr.ApplyLeafValues(map[int]float64{1: math.NaN()})))
	assert.Equal(t, StateBuilt, tr.State(), "a rejected update leaves the tree untouched")
	assert.Equal(t, -1.0, tr.LeafValue(1))
}

func TestMarkLeafUpdated(t *testing.T) {
	tr := stump(t)
	require.NoError(t, tr.MarkLeafUpdated())
	require.NoError(t, tr.Freeze())
	assert.Equal(t, []float64{-1.0, 2.0}, []float64{tr.LeafValue(1), tr.LeafValue(2)})
}
