// Package log defines standard attribute keys for tree-model operations.
//
// Using these keys consistently across the module keeps log output
// filterable: every record about the same tree carries the same
// hierarchical key names (e.g. "tree.nodes", "data.features").

package log

// Tree structure context.
// These attributes describe the tree a log record refers to.
const (
	// TreeNodesKey is the total allocated node count, tombstones included.
	TreeNodesKey = "tree.nodes"

	// TreeRootsKey is the number of tree roots.
	TreeRootsKey = "tree.roots"

	// TreeDeletedKey is the number of tombstoned nodes on the free list.
	TreeDeletedKey = "tree.deleted"

	// TreeMaxDepthKey is the maximum depth statistic carried by the tree.
	TreeMaxDepthKey = "tree.max_depth"

	// TreeLeafVectorKey is the per-leaf vector width (0 for scalar leaves).
	TreeLeafVectorKey = "tree.size_leaf_vector"
)

// Data shape context.
const (
	// SamplesKey is the number of rows being predicted or explained.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// BytesKey is the size in bytes of a serialized tree.
	BytesKey = "data.bytes"
)

// Operation context.
const (
	// OperationKey names the operation being performed.
	// Standard values: "save", "load", "predict", "contributions",
	// "contributions_approx".
	OperationKey = "tree.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "tree.component"

	// DurationMsKey is the wall-clock duration of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey is the goroutine count of a parallel batch operation.
	WorkersKey = "perf.workers"
)
