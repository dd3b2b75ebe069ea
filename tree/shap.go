package tree

import (
	"github.com/YuminosukeSato/regtree/pkg/errors"
)

// pathElement records one distinct split feature on the current descent.
// pweight is included for convenience and is not tied to the other
// attributes: the pweight of the i'th element is the permutation weight
// of paths with i-1 ones in them.
type pathElement struct {
	featureIndex int
	zeroFraction float32
	oneFraction  float32
	pweight      float32
}

// extendPath appends one split to the decision path and re-derives every
// earlier element's permutation weight via the backward recurrence,
// normalized by 1/(depth+1).
func extendPath(uniquePath []pathElement, uniqueDepth int, zeroFraction, oneFraction float32, featureIndex int) {
	uniquePath[uniqueDepth].featureIndex = featureIndex
	uniquePath[uniqueDepth].zeroFraction = zeroFraction
	uniquePath[uniqueDepth].oneFraction = oneFraction
	if uniqueDepth == 0 {
		uniquePath[uniqueDepth].pweight = 1
	} else {
		uniquePath[uniqueDepth].pweight = 0
	}
	for i := uniqueDepth - 1; i >= 0; i-- {
		uniquePath[i+1].pweight += oneFraction * uniquePath[i].pweight * float32(i+1) /
			float32(uniqueDepth+1)
		uniquePath[i].pweight = zeroFraction * uniquePath[i].pweight * float32(uniqueDepth-i) /
			float32(uniqueDepth+1)
	}
}

// unwindPath undoes a previous extension at pathIndex, reversing the
// weight recurrence and compacting the later elements down one slot.
// Needed when a split repeats a feature already on the path: its effect
// must merge rather than double-count.
//
// The zeroFraction division in the else branch is unguarded, exactly as
// in the reference algorithm; a zero-hessian split propagates NaN/Inf
// into the output rather than being silently repaired.
func unwindPath(uniquePath []pathElement, uniqueDepth, pathIndex int) {
	oneFraction := uniquePath[pathIndex].oneFraction
	zeroFraction := uniquePath[pathIndex].zeroFraction
	nextOnePortion := uniquePath[uniqueDepth].pweight

	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := uniquePath[i].pweight
			uniquePath[i].pweight = nextOnePortion * float32(uniqueDepth+1) /
				(float32(i+1) * oneFraction)
			nextOnePortion = tmp - uniquePath[i].pweight*zeroFraction*float32(uniqueDepth-i)/
				float32(uniqueDepth+1)
		} else {
			uniquePath[i].pweight = (uniquePath[i].pweight * float32(uniqueDepth+1)) /
				(zeroFraction * float32(uniqueDepth-i))
		}
	}

	for i := pathIndex; i < uniqueDepth; i++ {
		uniquePath[i].featureIndex = uniquePath[i+1].featureIndex
		uniquePath[i].zeroFraction = uniquePath[i+1].zeroFraction
		uniquePath[i].oneFraction = uniquePath[i+1].oneFraction
	}
}

// unwoundPathSum computes, without mutating the path, what the total leaf
// permutation weight would sum to if unwindPath were applied at
// pathIndex. It carries the same unguarded zeroFraction division as
// unwindPath.
func unwoundPathSum(uniquePath []pathElement, uniqueDepth, pathIndex int) float32 {
	oneFraction := uniquePath[pathIndex].oneFraction
	zeroFraction := uniquePath[pathIndex].zeroFraction
	nextOnePortion := uniquePath[uniqueDepth].pweight

	var total float32
	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := nextOnePortion * float32(uniqueDepth+1) /
				(float32(i+1) * oneFraction)
			total += tmp
			nextOnePortion = uniquePath[i].pweight - tmp*zeroFraction*
				(float32(uniqueDepth-i)/float32(uniqueDepth+1))
		} else {
			total += (uniquePath[i].pweight / zeroFraction) /
				(float32(uniqueDepth-i) / float32(uniqueDepth+1))
		}
	}
	return total
}

// treeShap is the recursive computation of SHAP values for one tree and
// one input, after https://arxiv.org/abs/1706.06060.
//
// parentUniquePath is a shared depth-indexed scratch buffer sized once
// per top-level call; each recursion level copies the parent's path into
// its own slot of the buffer instead of allocating.
func (t *Tree) treeShap(feat *FVec, phi []float32, nodeIndex int32, uniqueDepth int,
	parentUniquePath []pathElement, parentZeroFraction, parentOneFraction float32,
	parentFeatureIndex int, condition int, conditionFeature uint32,
	conditionFraction float32,
) {
	node := t.nodes[nodeIndex]

	// stop if we have no weight coming down to us
	if conditionFraction == 0 {
		return
	}

	// extend the unique path
	uniquePath := parentUniquePath[uniqueDepth+1:]
	copy(uniquePath, parentUniquePath[:uniqueDepth+1])

	if condition == 0 || conditionFeature != uint32(parentFeatureIndex) {
		extendPath(uniquePath, uniqueDepth, parentZeroFraction, parentOneFraction, parentFeatureIndex)
	}
	splitIndex := node.SplitIndex()

	// leaf node
	if node.IsLeaf() {
		for i := 1; i <= uniqueDepth; i++ {
			w := unwoundPathSum(uniquePath, uniqueDepth, i)
			el := uniquePath[i]
			phi[el.featureIndex] += w * (el.oneFraction - el.zeroFraction) *
				node.LeafValue() * conditionFraction
		}
		return
	}

	// internal node: find which branch is "hot" (the one x follows)
	var hotIndex int32
	if feat.IsMissing(int(splitIndex)) {
		hotIndex = node.DefaultChild()
	} else if feat.Fvalue(int(splitIndex)) < node.SplitCond() {
		hotIndex = node.LeftChild()
	} else {
		hotIndex = node.RightChild()
	}
	coldIndex := node.RightChild()
	if hotIndex != node.LeftChild() {
		coldIndex = node.LeftChild()
	}
	w := t.stats[nodeIndex].SumHess
	hotZeroFraction := t.stats[hotIndex].SumHess / w
	coldZeroFraction := t.stats[coldIndex].SumHess / w
	incomingZeroFraction := float32(1)
	incomingOneFraction := float32(1)

	// see if we have already split on this feature,
	// if so we undo that split so we can redo it for this node
	pathIndex := 0
	for ; pathIndex <= uniqueDepth; pathIndex++ {
		if uint32(uniquePath[pathIndex].featureIndex) == splitIndex {
			break
		}
	}
	if pathIndex != uniqueDepth+1 {
		incomingZeroFraction = uniquePath[pathIndex].zeroFraction
		incomingOneFraction = uniquePath[pathIndex].oneFraction
		unwindPath(uniquePath, uniqueDepth, pathIndex)
		uniqueDepth--
	}

	// divide up the conditionFraction among the recursive calls
	hotConditionFraction := conditionFraction
	coldConditionFraction := conditionFraction
	if condition > 0 && splitIndex == conditionFeature {
		coldConditionFraction = 0
		uniqueDepth--
	} else if condition < 0 && splitIndex == conditionFeature {
		hotConditionFraction *= hotZeroFraction
		coldConditionFraction *= coldZeroFraction
		uniqueDepth--
	}

	t.treeShap(feat, phi, hotIndex, uniqueDepth+1, uniquePath,
		hotZeroFraction*incomingZeroFraction, incomingOneFraction,
		int(splitIndex), condition, conditionFeature, hotConditionFraction)

	t.treeShap(feat, phi, coldIndex, uniqueDepth+1, uniquePath,
		coldZeroFraction*incomingZeroFraction, 0,
		int(splitIndex), condition, conditionFeature, coldConditionFraction)
}

// CalculateContributions computes exact Shapley-value feature
// attributions (https://arxiv.org/abs/1706.06060) of the tree's
// prediction on one input.
//
// out must have length feat.Size()+1. Each feature's attribution
// accumulates into its slot; the last slot takes the bias (the root's
// hessian-weighted mean value) when the calculation is unconditioned.
// condition pins conditionFeature to off (-1) or on (1); 0 leaves it
// free. The path scratch is sized from the subtree's actual maximum
// depth, so deep trees cost memory proportional to depth squared, not a
// fixed constant.
func (t *Tree) CalculateContributions(feat *FVec, rootID int32, out []float32, condition int, conditionFeature uint32) error {
	if len(out) != feat.Size()+1 {
		return errors.NewDimensionError("CalculateContributions", feat.Size()+1, len(out), 1)
	}
	t.FillNodeMeanValues()

	// find the expected value of the tree's predictions
	if condition == 0 {
		out[feat.Size()] += t.meanValues[rootID]
	}

	// preallocate space for the unique path data
	maxd := t.MaxDepthAt(rootID) + 2
	uniquePathData := make([]pathElement, (maxd*(maxd+1))/2)

	t.treeShap(feat, out, rootID, 0, uniquePathData, 1, 1, -1, condition, conditionFeature, 1)
	return nil
}
