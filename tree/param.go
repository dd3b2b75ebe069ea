package tree

// Param holds the meta parameters of one tree. The struct layout mirrors
// the serialized parameter block exactly: six meaningful int32 fields
// followed by 31 reserved words that are written and read verbatim.
type Param struct {
	// NumRoots is the number of start roots.
	NumRoots int32
	// NumNodes is the total number of allocated nodes, tombstones included.
	NumNodes int32
	// NumDeleted is the number of tombstoned nodes on the free list.
	NumDeleted int32
	// MaxDepth is a statistic of the tree, not a constraint.
	MaxDepth int32
	// NumFeature is the number of features used for tree construction.
	NumFeature int32
	// SizeLeafVector is the per-leaf vector width, for vector trees.
	// Zero means scalar leaves and no leaf-vector pool.
	SizeLeafVector int32
	// Reserved keeps the parameter block 64-bit aligned and allows future
	// fields without a layout change.
	Reserved [31]int32
}
