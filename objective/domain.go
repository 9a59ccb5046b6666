package objective

import (
	"math"
	"sync"

	"github.com/YuminosukeSato/gbobjective/core/parallel"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// LabelDomain is the set of label values a variant accepts. Labels are
// always required to be finite in addition to Valid.
type LabelDomain struct {
	Reason string
	Valid  func(y float64) bool
}

// Contains reports whether y lies in the domain.
func (d LabelDomain) Contains(y float64) bool {
	if !errors.IsFinite(y) {
		return false
	}
	return d.Valid == nil || d.Valid(y)
}

var (
	finiteLabels = LabelDomain{Reason: "label must be finite"}

	unitIntervalLabels = LabelDomain{
		Reason: "label must be in [0, 1]",
		Valid:  func(y float64) bool { return y >= 0 && y <= 1 },
	}

	nonNegativeLabels = LabelDomain{
		Reason: "label must be >= 0",
		Valid:  func(y float64) bool { return y >= 0 },
	}

	positiveLabels = LabelDomain{
		Reason: "label must be > 0",
		Valid:  func(y float64) bool { return y > 0 },
	}

	aboveMinusOneLabels = LabelDomain{
		Reason: "label must be > -1",
		Valid:  func(y float64) bool { return y > -1 },
	}

	survivalLabels = LabelDomain{
		Reason: "label must be non-zero; negative values mark censored rows",
		Valid:  func(y float64) bool { return y != 0 },
	}
)

// classLabels accepts integer class indices in [0, k).
func classLabels(k int) LabelDomain {
	return LabelDomain{
		Reason: "label must be an integer class index in [0, num_class)",
		Valid: func(y float64) bool {
			return y >= 0 && y < float64(k) && y == math.Trunc(y)
		},
	}
}

// validWeight accepts finite non-negative weights.
func validWeight(w float64) bool {
	return errors.IsFinite(w) && w >= 0
}

// validate checks every label column and every weight of info in one pass.
// weightCount is the expected number of weights when any are given (rows,
// or groups for ranking). The reported rows are sorted ascending.
func validate(op string, info *MetaInfo, dom LabelDomain, weightCount int, ctx *Context) error {
	if len(info.Weights) != 0 && len(info.Weights) != weightCount {
		return errors.NewDimensionError(op, "weights", weightCount, len(info.Weights))
	}

	rows := info.NumRows()
	cols := info.NumLabelCols()
	badLabel := make([]bool, rows)
	var mu sync.Mutex
	anyBad := false

	err := parallel.ParallelizeWithThreshold(rows, ctx.threshold(), ctx.threads(), func(start, end int) error {
		found := false
		for i := start; i < end; i++ {
			for c := 0; c < cols; c++ {
				if !dom.Contains(info.Labels.At(i, c)) {
					badLabel[i] = true
					found = true
					break
				}
			}
		}
		if found {
			mu.Lock()
			anyBad = true
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if anyBad {
		return errors.NewDataError(op, dom.Reason, markedRows(badLabel))
	}

	if len(info.Weights) > 0 {
		badWeight := make([]bool, len(info.Weights))
		anyBad = false
		for i, w := range info.Weights {
			if !validWeight(w) {
				badWeight[i] = true
				anyBad = true
			}
		}
		if anyBad {
			return errors.NewDataError(op, "weight must be finite and >= 0", markedRows(badWeight))
		}
	}
	return nil
}

func markedRows(marks []bool) []int {
	var rows []int
	for i, bad := range marks {
		if bad {
			rows = append(rows, i)
		}
	}
	return rows
}

// validateGroups checks that ptr describes contiguous groups covering rows.
func validateGroups(op string, ptr []int, rows int) error {
	if len(ptr) == 0 {
		return nil
	}
	if ptr[0] != 0 || ptr[len(ptr)-1] != rows {
		return errors.NewConfigurationError(op, "group_ptr", "must start at 0 and end at the number of rows", ptr)
	}
	for i := 1; i < len(ptr); i++ {
		if ptr[i] < ptr[i-1] {
			return errors.NewConfigurationError(op, "group_ptr", "must be non-decreasing", ptr)
		}
	}
	return nil
}
