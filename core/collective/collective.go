// Package collective defines the minimal cross-partition reduction used by the
// leaf-update pass, plus single-partition and in-process implementations.
package collective

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Communicator reduces values across all partitions of a training job.
type Communicator interface {
	// Rank is this partition's index in [0, WorldSize()).
	Rank() int
	// WorldSize is the number of partitions.
	WorldSize() int
	// AllreduceSum replaces data with the element-wise sum over all
	// partitions. It blocks until every partition contributed or ctx ends.
	AllreduceSum(ctx context.Context, data []float64) error
}

// Single is the communicator of a job with one partition.
type Single struct{}

func (Single) Rank() int      { return 0 }
func (Single) WorldSize() int { return 1 }

func (Single) AllreduceSum(ctx context.Context, _ []float64) error {
	return ctx.Err()
}

// round accumulates one all-reduce call across the group.
type round struct {
	sum     []float64
	arrived int
	aborted bool
	done    chan struct{}
}

// localGroup connects partitions that live in the same process.
type localGroup struct {
	mu      sync.Mutex
	size    int
	current *round
}

type localMember struct {
	group *localGroup
	rank  int
}

// NewLocalGroup returns size communicators sharing an in-process reduction.
// Each member must be driven from its own goroutine.
func NewLocalGroup(size int) []Communicator {
	g := &localGroup{size: size}
	members := make([]Communicator, size)
	for i := range members {
		members[i] = &localMember{group: g, rank: i}
	}
	return members
}

func (m *localMember) Rank() int      { return m.rank }
func (m *localMember) WorldSize() int { return m.group.size }

func (m *localMember) AllreduceSum(ctx context.Context, data []float64) error {
	g := m.group

	g.mu.Lock()
	r := g.current
	if r == nil {
		r = &round{sum: make([]float64, len(data)), done: make(chan struct{})}
		g.current = r
	}
	if len(r.sum) != len(data) {
		g.mu.Unlock()
		return errors.NewDimensionError("collective.AllreduceSum", "reduction buffer", len(r.sum), len(data))
	}
	floats.Add(r.sum, data)
	r.arrived++
	if r.arrived == g.size {
		g.current = nil
		close(r.done)
	}
	g.mu.Unlock()

	select {
	case <-r.done:
		return r.result(data)
	case <-ctx.Done():
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-r.done:
		// completed or aborted while we waited for the lock
		return r.result(data)
	default:
	}
	// Abandon the whole round so the next call of every member starts clean.
	r.aborted = true
	if g.current == r {
		g.current = nil
	}
	close(r.done)
	return ctx.Err()
}

// result copies the finished sum into data. Call only after r.done is closed.
func (r *round) result(data []float64) error {
	if r.aborted {
		return errors.ErrRoundAborted
	}
	copy(data, r.sum)
	return nil
}
