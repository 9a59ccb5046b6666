// Standard attribute keys for objective-function logging. Keys follow a
// hierarchical naming convention ("objective.name", "data.rows") so that log
// records can be filtered uniformly.

package log

// Objective context.
const (
	// ObjectiveKey is the registered name of the objective.
	ObjectiveKey = "objective.name"

	// ParamsKey carries the recognized configuration of an objective.
	ParamsKey = "objective.params"

	// UnknownKeysKey lists configuration keys that were tolerated but ignored.
	UnknownKeysKey = "objective.unknown_keys"

	// OperationKey names the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// RowsKey is the number of rows in the batch.
	RowsKey = "data.rows"

	// TargetsKey is the number of outputs per row.
	TargetsKey = "data.targets"

	// GroupsKey is the number of query groups for ranking objectives.
	GroupsKey = "data.groups"

	// LeavesKey is the number of leaves touched by a leaf update.
	LeavesKey = "tree.leaves"
)

// Training progress.
const (
	// IterationKey records the boosting round.
	IterationKey = "training.iteration"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Distributed execution.
const (
	// RankKey identifies the partition within a collective group.
	RankKey = "collective.rank"

	// WorldSizeKey is the number of partitions in the group.
	WorldSizeKey = "collective.world_size"
)

// Error context.
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
	ErrorTypeKey      = "error.type"
)

// Standard operation values.
const (
	OperationConfigure     = "configure"
	OperationGetGradient   = "get_gradient"
	OperationUpdateLeaf    = "update_tree_leaf"
	OperationPredTransform = "pred_transform"
)
