package tree

// GetNext returns the child to descend into from pid. Missing values go
// to the node's default child; otherwise values strictly below the
// threshold go left and ties go right.
func (t *Tree) GetNext(pid int32, fvalue float32, isMissing bool) int32 {
	if isMissing {
		return t.nodes[pid].DefaultChild()
	}
	if fvalue < t.nodes[pid].SplitCond() {
		return t.nodes[pid].LeftChild()
	}
	return t.nodes[pid].RightChild()
}

// GetLeafIndex returns the id of the leaf the feature vector is routed
// to, starting from rootID. Cost is O(tree depth).
func (t *Tree) GetLeafIndex(feat *FVec, rootID int32) int32 {
	pid := rootID
	for !t.nodes[pid].IsLeaf() {
		splitIndex := int(t.nodes[pid].SplitIndex())
		pid = t.GetNext(pid, feat.Fvalue(splitIndex), feat.IsMissing(splitIndex))
	}
	return pid
}

// Predict returns the leaf value the feature vector is routed to.
func (t *Tree) Predict(feat *FVec, rootID int32) float32 {
	pid := t.GetLeafIndex(feat, rootID)
	return t.nodes[pid].LeafValue()
}
