package objective

import (
	"context"

	"github.com/YuminosukeSato/gbobjective/core/tree"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// UpdateLeaves finishes a freshly built tree for obj. Objectives whose task
// reports UpdatesLeaf recompute the leaf values; for the rest the Newton
// values are accepted as they are. The tree is frozen on success.
func UpdateLeaves(ctx context.Context, obj Objective, position []int, info *MetaInfo, preds []float64, t *tree.RegTree) error {
	if t.State() != tree.StateBuilt {
		return errors.Wrapf(errors.ErrTreeFrozen, "%s: leaf update in state %s", obj.Name(), t.State())
	}
	if obj.Task().UpdatesLeaf {
		if err := obj.UpdateTreeLeaf(ctx, position, info, preds, t); err != nil {
			return err
		}
		// An objective may find nothing to change.
		if t.State() == tree.StateBuilt {
			if err := t.MarkLeafUpdated(); err != nil {
				return err
			}
		}
	} else if err := t.MarkLeafUpdated(); err != nil {
		return err
	}
	return t.Freeze()
}
