package tree

const (
	noParent = int32(-1)

	// High bit of the parent field flags "this node is a left child".
	leftChildBit = uint32(1) << 31
	// High bit of the split-index field flags "missing values go left".
	defaultLeftBit = uint32(1) << 31
	// Low 31 bits of the split-index field hold the feature index.
	splitIndexMask = defaultLeftBit - 1

	// A deleted node has every bit of its split-index field set. Real
	// feature indices use at most 31 bits, so the sentinel is otherwise
	// unreachable.
	deletedSentinel = ^uint32(0)
)

// Node is one vertex of the tree: 5 machine words, matching the
// serialized record layout. A leaf carries a value in the info word, an
// internal node carries its split threshold there.
type Node struct {
	parent int32 // high bit: is-left-child; -1 marks a root
	cleft  int32 // -1 defines a leaf
	cright int32
	sindex uint32 // low 31 bits: feature index; high bit: default-left
	info   float32
}

// LeftChild returns the index of the left child.
func (n Node) LeftChild() int32 { return n.cleft }

// RightChild returns the index of the right child.
func (n Node) RightChild() int32 { return n.cright }

// DefaultChild returns the child that receives rows whose split feature
// is missing.
func (n Node) DefaultChild() int32 {
	if n.DefaultLeft() {
		return n.cleft
	}
	return n.cright
}

// SplitIndex returns the feature index of the split condition.
func (n Node) SplitIndex() uint32 { return n.sindex & splitIndexMask }

// DefaultLeft reports whether missing values go to the left child.
func (n Node) DefaultLeft() bool { return n.sindex&defaultLeftBit != 0 }

// IsLeaf reports whether the node is a leaf.
func (n Node) IsLeaf() bool { return n.cleft == -1 }

// LeafValue returns the value of a leaf node.
func (n Node) LeafValue() float32 { return n.info }

// SplitCond returns the split threshold of an internal node. Values
// strictly below it go left, ties go right.
func (n Node) SplitCond() float32 { return n.info }

// Parent returns the index of the parent node. Only meaningful when the
// node is not a root.
func (n Node) Parent() int32 { return int32(uint32(n.parent) & splitIndexMask) }

// IsLeftChild reports whether the node is the left child of its parent.
func (n Node) IsLeftChild() bool { return uint32(n.parent)&leftChildBit != 0 }

// IsDeleted reports whether the node is a tombstone.
func (n Node) IsDeleted() bool { return n.sindex == deletedSentinel }

// IsRoot reports whether the node is a root.
func (n Node) IsRoot() bool { return n.parent == noParent }

func (n *Node) setSplit(splitIndex uint32, splitCond float32, defaultLeft bool) {
	if defaultLeft {
		splitIndex |= defaultLeftBit
	}
	n.sindex = splitIndex
	n.info = splitCond
}

// setLeaf keeps the right-child slot available for extra bookkeeping,
// matching the on-disk record.
func (n *Node) setLeaf(value float32, right int32) {
	n.info = value
	n.cleft = -1
	n.cright = right
}

func (n *Node) setParent(pidx int32, isLeftChild bool) {
	u := uint32(pidx)
	if isLeftChild {
		u |= leftChildBit
	}
	n.parent = int32(u)
}

func (n *Node) markDelete() {
	n.sindex = deletedSentinel
}

// NodeStat holds per-node training statistics, index-aligned with the
// node arena.
type NodeStat struct {
	// LossChg is the loss reduction caused by the node's split.
	LossChg float32
	// SumHess is the accumulated hessian weight, a proxy for the amount
	// of training data flowing through the node.
	SumHess float32
	// BaseWeight is the weight the node would carry as a leaf.
	BaseWeight float32
	// LeafChildCnt counts leaf children discovered so far during growth.
	LeafChildCnt int32
}
