// Package tree implements the in-memory model and read path of a single
// regression tree from a gradient-boosted ensemble.
//
// Nodes live in a growable arena addressed by int32 index; deletions are
// tombstones, never physical removal, so externally held node ids stay
// valid for the lifetime of the tree. Mutating operations assume a single
// writer. Once the structure is frozen, Predict and the contribution
// calculators are read-only and safe for concurrent use as long as each
// caller owns its FVec and output scratch.
package tree

import (
	"math"

	"github.com/YuminosukeSato/regtree/pkg/errors"
)

// Tree is an arena-allocated binary decision tree with free-list reuse.
type Tree struct {
	param Param
	nodes []Node
	// free node space, reused by AllocNode; len == param.NumDeleted
	deletedNodes []int32
	stats        []NodeStat
	// leaf vector pool: NumNodes * SizeLeafVector floats, empty when the
	// width is zero
	leafVector []float32

	// hessian-weighted subtree means, rebuilt when version moves
	meanValues  []float32
	meanVersion uint64
	// version counts structural and value mutations; it invalidates the
	// mean-value cache
	version uint64
}

// New returns a tree holding a single root leaf with value 0.
func New() *Tree {
	t := &Tree{}
	t.param.NumRoots = 1
	t.param.NumNodes = 1
	t.InitModel()
	return t
}

// InitModel resets the tree to Param().NumRoots root leaves, all with
// value 0 and no parent.
func (t *Tree) InitModel() {
	t.param.NumNodes = t.param.NumRoots
	t.param.NumDeleted = 0
	t.nodes = make([]Node, t.param.NumNodes)
	t.stats = make([]NodeStat, t.param.NumNodes)
	t.leafVector = make([]float32, int(t.param.NumNodes)*int(t.param.SizeLeafVector))
	t.deletedNodes = t.deletedNodes[:0]
	for i := range t.nodes {
		t.nodes[i].setLeaf(0, -1)
		t.nodes[i].setParent(noParent, true)
	}
	t.bump()
}

// Param returns the tree's meta parameters. The training routine sets
// NumFeature and SizeLeafVector here before growing the tree.
func (t *Tree) Param() *Param { return &t.param }

// Nodes returns the node arena, tombstones included. Treat it as
// read-only; mutations go through the Tree methods so the mean-value
// cache stays coherent.
func (t *Tree) Nodes() []Node { return t.nodes }

// Stat returns the training statistics of a node. Statistics are
// populated upstream before any contribution calculation uses them.
func (t *Tree) Stat(nid int32) *NodeStat { return &t.stats[nid] }

// LeafVec returns the slice of extra leaf values for a node, or nil when
// the tree has scalar leaves.
func (t *Tree) LeafVec(nid int32) []float32 {
	if len(t.leafVector) == 0 {
		return nil
	}
	w := int(t.param.SizeLeafVector)
	return t.leafVector[int(nid)*w : int(nid)*w+w]
}

// NumExtraNodes returns the number of live non-root nodes.
func (t *Tree) NumExtraNodes() int32 {
	return t.param.NumNodes - t.param.NumRoots - t.param.NumDeleted
}

// bump records a structural or value mutation.
func (t *Tree) bump() { t.version++ }

// AllocNode returns a node id for the caller to initialize, reusing a
// tombstoned slot when one exists. The returned node is uninitialized and
// must be set to leaf or split state before it becomes reachable from a
// live parent.
func (t *Tree) AllocNode() int32 {
	t.bump()
	if t.param.NumDeleted != 0 {
		nid := t.deletedNodes[len(t.deletedNodes)-1]
		t.deletedNodes = t.deletedNodes[:len(t.deletedNodes)-1]
		t.param.NumDeleted--
		return nid
	}
	nid := t.param.NumNodes
	if nid == math.MaxInt32 {
		panic(errors.AssertionFailedf("number of nodes in the tree exceed 2^31"))
	}
	t.param.NumNodes++
	t.nodes = append(t.nodes, Node{})
	t.stats = append(t.stats, NodeStat{})
	for i := int32(0); i < t.param.SizeLeafVector; i++ {
		t.leafVector = append(t.leafVector, 0)
	}
	return nid
}

// DeleteNode tombstones a node and pushes it onto the free list. The
// parent and child fields are left intact to allow diagnostic traceback.
// Roots are never deletable.
func (t *Tree) DeleteNode(nid int32) {
	if nid < t.param.NumRoots {
		panic(errors.AssertionFailedf("cannot delete root node %d", nid))
	}
	t.bump()
	t.deletedNodes = append(t.deletedNodes, nid)
	t.nodes[nid].markDelete()
	t.param.NumDeleted++
}

// SetSplit turns a node into an internal node splitting on the given
// feature at the given threshold. defaultLeft selects the child that
// receives rows whose feature value is missing.
func (t *Tree) SetSplit(nid int32, splitIndex uint32, splitCond float32, defaultLeft bool) {
	t.bump()
	t.nodes[nid].setSplit(splitIndex, splitCond, defaultLeft)
}

// SetLeaf turns a node into a leaf holding the given value.
func (t *Tree) SetLeaf(nid int32, value float32) {
	t.bump()
	t.nodes[nid].setLeaf(value, -1)
}

// AddChilds allocates a left and a right child for a node and wires the
// parent links. The caller sets the node's split afterwards.
func (t *Tree) AddChilds(nid int32) {
	pleft := t.AllocNode()
	pright := t.AllocNode()
	t.nodes[nid].cleft = pleft
	t.nodes[nid].cright = pright
	t.nodes[pleft].setParent(nid, true)
	t.nodes[pright].setParent(nid, false)
}

// AddRightChild attaches a single new right child to a currently
// childless node and returns its id. The node keeps no left child until
// the caller gives it one; it must be fully initialized before it is
// reachable from a live parent.
func (t *Tree) AddRightChild(nid int32) int32 {
	if t.nodes[nid].cleft != -1 || t.nodes[nid].cright != -1 {
		panic(errors.AssertionFailedf("node %d already has children", nid))
	}
	pright := t.AllocNode()
	t.nodes[nid].cright = pright
	t.nodes[pright].setParent(nid, false)
	return pright
}

// ChangeToLeaf collapses a node whose children are both leaves into a
// leaf holding value, deleting the children.
func (t *Tree) ChangeToLeaf(rid int32, value float32) {
	if !t.nodes[t.nodes[rid].cleft].IsLeaf() {
		panic(errors.AssertionFailedf("left child of node %d is not a leaf", rid))
	}
	if !t.nodes[t.nodes[rid].cright].IsLeaf() {
		panic(errors.AssertionFailedf("right child of node %d is not a leaf", rid))
	}
	t.DeleteNode(t.nodes[rid].cleft)
	t.DeleteNode(t.nodes[rid].cright)
	t.SetLeaf(rid, value)
}

// CollapseToLeaf collapses an arbitrary subtree into a single leaf
// holding value, post-order. Intermediate collapses use a placeholder
// value of 0; only the final value at rid is meaningful.
func (t *Tree) CollapseToLeaf(rid int32, value float32) {
	if t.nodes[rid].IsLeaf() {
		return
	}
	if !t.nodes[t.nodes[rid].cleft].IsLeaf() {
		t.CollapseToLeaf(t.nodes[rid].cleft, 0)
	}
	if !t.nodes[t.nodes[rid].cright].IsLeaf() {
		t.CollapseToLeaf(t.nodes[rid].cright, 0)
	}
	t.ChangeToLeaf(rid, value)
}

// GetDepth counts the edges from nid up to its root. When passRightChild
// is set, edges entered as a right child are not counted, supporting
// depth conventions where only left descent deepens the tree.
func (t *Tree) GetDepth(nid int32, passRightChild bool) int {
	depth := 0
	for !t.nodes[nid].IsRoot() {
		if !passRightChild || t.nodes[nid].IsLeftChild() {
			depth++
		}
		nid = t.nodes[nid].Parent()
	}
	return depth
}

// MaxDepthAt returns the depth of the deepest leaf under nid; 0 at a leaf.
func (t *Tree) MaxDepthAt(nid int32) int {
	if t.nodes[nid].IsLeaf() {
		return 0
	}
	l := t.MaxDepthAt(t.nodes[nid].cleft) + 1
	r := t.MaxDepthAt(t.nodes[nid].cright) + 1
	if l > r {
		return l
	}
	return r
}

// MaxDepth returns the maximum depth over all roots.
func (t *Tree) MaxDepth() int {
	maxd := 0
	for i := int32(0); i < t.param.NumRoots; i++ {
		if d := t.MaxDepthAt(i); d > maxd {
			maxd = d
		}
	}
	return maxd
}
