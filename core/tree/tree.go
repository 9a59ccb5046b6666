// Package tree holds the regression tree produced by the external grower and
// the per-round state machine that guards its leaf values.
package tree

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Node represents a single node in a regression tree.
type Node struct {
	NodeID     int // Unique identifier, equal to the index in Tree.Nodes
	ParentID   int // Parent node ID (-1 for root)
	LeftChild  int // Left child node ID (-1 if leaf)
	RightChild int // Right child node ID (-1 if leaf)

	// Split information (for non-leaf nodes)
	SplitFeature int
	Threshold    float64
	DefaultLeft  bool // Direction for missing values

	// Leaf information (for leaf nodes)
	LeafValue float64
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// State is the lifecycle position of a tree within one boosting round.
type State int

const (
	// StateBuilt: structure fixed, leaves hold Newton-step values.
	StateBuilt State = iota
	// StateLeafUpdated: the leaf-update pass has run (possibly as a no-op).
	StateLeafUpdated
	// StateFrozen: terminal for the round; no further mutation.
	StateFrozen
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "tree-built"
	case StateLeafUpdated:
		return "leaf-updated"
	case StateFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RegTree is a regression tree fitted to one output column.
// Mutating methods take an internal lock; the leaf-update pass is expected to
// be the single writer for the round.
type RegTree struct {
	TreeIndex     int     // Index of the tree in the ensemble
	Target        int     // Output column this tree fits
	ShrinkageRate float64 // Learning rate applied at prediction time

	Nodes []Node

	mu    sync.Mutex
	state State
}

// NewRegTree wraps grower output. Node IDs must equal their slice index and
// children must reference existing nodes.
func NewRegTree(nodes []Node, target int, shrinkage float64) (*RegTree, error) {
	if len(nodes) == 0 {
		return nil, errors.NewValueError("tree.NewRegTree", "tree has no nodes")
	}
	for i := range nodes {
		n := &nodes[i]
		if n.NodeID != i {
			return nil, errors.NewValueError("tree.NewRegTree", fmt.Sprintf("node %d has id %d", i, n.NodeID))
		}
		if (n.LeftChild == -1) != (n.RightChild == -1) {
			return nil, errors.NewValueError("tree.NewRegTree", fmt.Sprintf("node %d has exactly one child", i))
		}
		for _, c := range []int{n.LeftChild, n.RightChild} {
			if c != -1 && (c <= 0 || c >= len(nodes)) {
				return nil, errors.NewValueError("tree.NewRegTree", fmt.Sprintf("node %d references missing child %d", i, c))
			}
		}
	}
	return &RegTree{Target: target, ShrinkageRate: shrinkage, Nodes: nodes, state: StateBuilt}, nil
}

// State returns the current lifecycle state.
func (t *RegTree) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LeafIDs returns the ids of all leaves in ascending order.
func (t *RegTree) LeafIDs() []int {
	ids := make([]int, 0, (len(t.Nodes)+1)/2)
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			ids = append(ids, i)
		}
	}
	return ids
}

// IsLeaf reports whether nid names a leaf of this tree.
func (t *RegTree) IsLeaf(nid int) bool {
	return nid >= 0 && nid < len(t.Nodes) && t.Nodes[nid].IsLeaf()
}

// LeafValue returns the raw (unshrunk) value of leaf nid.
func (t *RegTree) LeafValue(nid int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Nodes[nid].LeafValue
}

// SetLeafValue changes a leaf while the tree is still in StateBuilt.
func (t *RegTree) SetLeafValue(nid int, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateBuilt {
		return errors.Wrapf(errors.ErrTreeFrozen, "set leaf %d in state %s", nid, t.state)
	}
	if !t.IsLeaf(nid) {
		return errors.NewValueError("tree.SetLeafValue", fmt.Sprintf("node %d is not a leaf", nid))
	}
	t.Nodes[nid].LeafValue = value
	return nil
}

// ApplyLeafValues replaces the given leaves and moves the tree to
// StateLeafUpdated in one step. Leaves not present in values keep their
// current value.
func (t *RegTree) ApplyLeafValues(values map[int]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateBuilt {
		return errors.Wrapf(errors.ErrTreeFrozen, "apply leaf values in state %s", t.state)
	}
	ids := make([]int, 0, len(values))
	for nid, v := range values {
		if !t.IsLeaf(nid) {
			return errors.NewValueError("tree.ApplyLeafValues", fmt.Sprintf("node %d is not a leaf", nid))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewNumericError("tree.ApplyLeafValues", nid, t.Target, []float64{v}, t.TreeIndex)
		}
		ids = append(ids, nid)
	}
	sort.Ints(ids)
	for _, nid := range ids {
		t.Nodes[nid].LeafValue = values[nid]
	}
	t.state = StateLeafUpdated
	return nil
}

// MarkLeafUpdated records that the leaf-update pass ran without changes.
func (t *RegTree) MarkLeafUpdated() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateBuilt {
		return errors.Wrapf(errors.ErrTreeFrozen, "mark leaf-updated in state %s", t.state)
	}
	t.state = StateLeafUpdated
	return nil
}

// Freeze makes the tree terminal for the round. It must follow the leaf-update pass.
func (t *RegTree) Freeze() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateLeafUpdated:
		t.state = StateFrozen
		return nil
	case StateFrozen:
		return errors.Wrap(errors.ErrTreeFrozen, "freeze")
	default:
		return errors.NewValueError("tree.Freeze", "leaf update has not run yet")
	}
}

// Leaf returns the id of the leaf reached by features.
func (t *RegTree) Leaf(features []float64) int {
	nodeID := 0
	for {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return nodeID
		}
		v := features[node.SplitFeature]
		switch {
		case math.IsNaN(v):
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
		case v <= node.Threshold:
			nodeID = node.LeftChild
		default:
			nodeID = node.RightChild
		}
	}
}

// Predict returns the shrunk leaf value reached by features.
func (t *RegTree) Predict(features []float64) float64 {
	return t.LeafValue(t.Leaf(features)) * t.ShrinkageRate
}
