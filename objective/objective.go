// Package objective implements the loss functions that turn boosting
// predictions into gradient pairs for the tree grower.
//
// An Objective is created by name from a Registry, configured exactly once
// with string key/value arguments, and then used for a whole training
// session. GetGradient is safe to call concurrently on disjoint buffers;
// Configure must happen before any other call.
//
//	obj, err := objective.Create("reg:squarederror", objective.DefaultContext())
//	if err != nil { ... }
//	if err := obj.Configure(objective.Args{}); err != nil { ... }
//	gpair := make([]objective.GradientPair, len(preds))
//	err = obj.GetGradient(preds, info, iter, gpair)
package objective

import (
	"context"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbobjective/core/collective"
	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/pkg/config"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

// HessianFloor is the smallest unweighted second-order value reported by any kernel.
const HessianFloor = errors.HessianFloor

// Objective is one configured loss function.
type Objective interface {
	// Name is the registered name.
	Name() string

	// Configure parses recognized keys; unknown keys are tolerated.
	Configure(args Args) error

	// Config returns every recognized key with its current value, formatted
	// so that Configure(Config()) reproduces the same state.
	Config() Args

	// GetGradient fills out with one pair per prediction.
	GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error

	// PredTransform maps margins to the served prediction space in place and
	// returns the transformed slice, which may be shorter than preds.
	PredTransform(preds []float64) []float64

	// EvalTransform maps margins to the space metrics are computed in.
	EvalTransform(preds []float64) []float64

	// ProbToMargin converts a user baseline into margin space.
	ProbToMargin(base float64) (float64, error)

	// Task describes the loss to the tree grower.
	Task() Task

	// Targets is the number of outputs per row for info.
	Targets(info *MetaInfo) (int, error)

	// UpdateTreeLeaf recomputes leaf values after the structure is fixed.
	// A no-op unless Task().UpdatesLeaf.
	UpdateTreeLeaf(ctx context.Context, position []int, info *MetaInfo, preds []float64, t *tree.RegTree) error

	// DefaultEvalMetric is the metric name used absent a caller override.
	DefaultEvalMetric() string
}

// LossFunc is implemented by element-wise objectives that can report the
// loss they differentiate.
type LossFunc interface {
	Loss(margin, label float64) float64
}

// GradientPair holds the first and second derivative of the loss for one
// (row, target).
type GradientPair struct {
	Grad float64
	Hess float64
}

// Add accumulates other into p.
func (p *GradientPair) Add(other GradientPair) {
	p.Grad += other.Grad
	p.Hess += other.Hess
}

// weighted applies the Hessian floor, then scales by the row weight.
func weighted(grad, hess, w float64) GradientPair {
	return GradientPair{Grad: grad * w, Hess: errors.ClampHessian(hess) * w}
}

// TaskKind is the loss family reported to the tree grower.
type TaskKind int

const (
	TaskRegression TaskKind = iota
	TaskBinary
	TaskClassification
	TaskSurvival
	TaskRanking
)

func (k TaskKind) String() string {
	switch k {
	case TaskRegression:
		return "regression"
	case TaskBinary:
		return "binary"
	case TaskClassification:
		return "classification"
	case TaskSurvival:
		return "survival"
	case TaskRanking:
		return "ranking"
	default:
		return "unknown"
	}
}

// Task is the immutable description of a loss consumed by the tree grower.
type Task struct {
	Kind TaskKind
	// ConstHess is true when the Hessian does not depend on the prediction.
	ConstHess bool
	// UpdatesLeaf is true when leaf values must be recomputed after the tree
	// is built because the Hessian vanishes at the optimum.
	UpdatesLeaf bool
	// MultiTarget is true when label matrices with several columns are accepted.
	MultiTarget bool
}

// MetaInfo carries labels and optional per-row data for one dataset.
type MetaInfo struct {
	// Labels is rows × label columns.
	Labels *mat.Dense
	// Weights is empty (all ones), one per row, or one per group for ranking.
	Weights []float64
	// GroupPtr holds ranking group boundaries: GroupPtr[0] == 0 and the last
	// element equals the number of rows. Empty means a single group.
	GroupPtr []int
	// BaseMargin optionally overrides the initial margin per (row, target).
	BaseMargin []float64
}

// NumRows returns the number of labelled rows.
func (m *MetaInfo) NumRows() int {
	if m == nil || m.Labels == nil || m.Labels.IsEmpty() {
		return 0
	}
	r, _ := m.Labels.Dims()
	return r
}

// NumLabelCols returns the number of label columns.
func (m *MetaInfo) NumLabelCols() int {
	if m == nil || m.Labels == nil || m.Labels.IsEmpty() {
		return 1
	}
	_, c := m.Labels.Dims()
	return c
}

// Label returns the label of row in column col.
func (m *MetaInfo) Label(row, col int) float64 {
	return m.Labels.At(row, col)
}

// Weight returns the weight at index i (row, or group for ranking), 1 when absent.
func (m *MetaInfo) Weight(i int) float64 {
	if len(m.Weights) == 0 {
		return 1
	}
	return m.Weights[i]
}

// Groups returns the group boundaries, treating all rows as one group when
// none were given.
func (m *MetaInfo) Groups() []int {
	if len(m.GroupPtr) > 0 {
		return m.GroupPtr
	}
	return []int{0, m.NumRows()}
}

// NewMetaInfo builds a MetaInfo with a single label column.
func NewMetaInfo(labels, weights []float64) *MetaInfo {
	info := &MetaInfo{Weights: weights}
	if len(labels) > 0 {
		info.Labels = mat.NewDense(len(labels), 1, append([]float64(nil), labels...))
	}
	return info
}

// InitMargin returns the starting margins for the first round: the base
// margin when provided, otherwise baseScore converted through ProbToMargin
// and broadcast to every (row, target).
func InitMargin(obj Objective, info *MetaInfo, baseScore float64) ([]float64, error) {
	nt, err := obj.Targets(info)
	if err != nil {
		return nil, err
	}
	n := info.NumRows() * nt
	if len(info.BaseMargin) > 0 {
		if len(info.BaseMargin) != n {
			return nil, errors.NewDimensionError(obj.Name()+".InitMargin", "base margin", n, len(info.BaseMargin))
		}
		if err := errors.CheckNumericalStability(obj.Name()+".InitMargin", info.BaseMargin, 0); err != nil {
			return nil, err
		}
		return append([]float64(nil), info.BaseMargin...), nil
	}
	m, err := obj.ProbToMargin(baseScore)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = m
	}
	return out, nil
}

// Context carries process-level collaborators shared by objectives.
type Context struct {
	// Threads bounds the worker count; 0 means one per CPU.
	Threads int
	// ParallelThreshold is the minimum row count before work is split.
	ParallelThreshold int
	// Seed is the default seed for objectives that sample.
	Seed int64
	// Comm reduces leaf statistics across partitions; nil means a single partition.
	Comm collective.Communicator
	// SyncTimeout bounds every cross-partition wait.
	SyncTimeout time.Duration
	// Logger receives diagnostics; nil discards them.
	Logger log.Logger
}

// DefaultContext returns a single-partition context that logs nothing.
func DefaultContext() *Context {
	return &Context{
		ParallelThreshold: 4096,
		SyncTimeout:       30 * time.Second,
		Comm:              collective.Single{},
		Logger:            log.NewNopLogger(),
	}
}

// NewContext builds a context from runtime settings, logging to stderr.
// cfg is validated first, since it may not have come through config.Load.
func NewContext(cfg config.Runtime) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	return &Context{
		Threads:           cfg.Threads,
		ParallelThreshold: cfg.ParallelThreshold,
		Seed:              cfg.Seed,
		Comm:              collective.Single{},
		SyncTimeout:       cfg.SyncTimeout,
		Logger:            log.NewZerologLogger(os.Stderr, level),
	}, nil
}

func (c *Context) logger() log.Logger {
	if c == nil || c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}

func (c *Context) comm() collective.Communicator {
	if c == nil || c.Comm == nil {
		return collective.Single{}
	}
	return c.Comm
}

func (c *Context) syncTimeout() time.Duration {
	if c == nil || c.SyncTimeout <= 0 {
		return 30 * time.Second
	}
	return c.SyncTimeout
}

func (c *Context) threads() int {
	if c == nil {
		return 0
	}
	return c.Threads
}

func (c *Context) threshold() int {
	if c == nil {
		return 0
	}
	return c.ParallelThreshold
}
