package tree

import (
	"github.com/YuminosukeSato/regtree/pkg/errors"
)

// FillNodeMeanValues computes the hessian-weighted mean of subtree leaf
// values for every node. The cache is keyed on the tree's mutation
// version: any structural or value mutation since the last fill triggers
// a recompute, and a coherent cache makes the call a no-op.
//
// Hessian statistics must already be populated upstream. An internal node
// with a zero hessian weight makes the means below it undefined; such
// nodes are reported through the warning handler and the NaN propagates.
func (t *Tree) FillNodeMeanValues() {
	if t.meanVersion == t.version && len(t.meanValues) == int(t.param.NumNodes) {
		return
	}
	t.meanValues = make([]float32, t.param.NumNodes)
	for rootID := int32(0); rootID < t.param.NumRoots; rootID++ {
		t.fillNodeMeanValue(rootID)
	}
	t.meanVersion = t.version
}

func (t *Tree) fillNodeMeanValue(nid int32) float32 {
	var result float32
	node := &t.nodes[nid]
	if node.IsLeaf() {
		result = node.LeafValue()
	} else {
		if t.stats[nid].SumHess == 0 {
			errors.Warn(errors.NewDegenerateSplitWarning(int(nid), float64(t.stats[nid].SumHess)))
		}
		result = t.fillNodeMeanValue(node.cleft) * t.stats[node.cleft].SumHess
		result += t.fillNodeMeanValue(node.cright) * t.stats[node.cright].SumHess
		result /= t.stats[nid].SumHess
	}
	t.meanValues[nid] = result
	return result
}

// CalculateContributionsApprox attributes the prediction to features by
// walking the decision path and crediting each step's change in cached
// mean value to the feature that caused the step. It is cheap and
// inexact: only features on the path receive credit.
//
// out must have length feat.Size()+1; the last slot accumulates the bias
// (the root's mean value). This follows the idea of
// http://blog.datadive.net/interpreting-random-forests/
func (t *Tree) CalculateContributionsApprox(feat *FVec, rootID int32, out []float32) error {
	if len(out) != feat.Size()+1 {
		return errors.NewDimensionError("CalculateContributionsApprox", feat.Size()+1, len(out), 1)
	}
	t.FillNodeMeanValues()

	pid := rootID
	nodeValue := t.meanValues[pid]
	out[feat.Size()] += nodeValue
	if t.nodes[pid].IsLeaf() {
		return nil
	}
	var splitIndex int
	for !t.nodes[pid].IsLeaf() {
		splitIndex = int(t.nodes[pid].SplitIndex())
		pid = t.GetNext(pid, feat.Fvalue(splitIndex), feat.IsMissing(splitIndex))
		newValue := t.meanValues[pid]
		out[splitIndex] += newValue - nodeValue
		nodeValue = newValue
	}
	out[splitIndex] += t.nodes[pid].LeafValue() - nodeValue
	return nil
}
