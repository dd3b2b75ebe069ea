// Package regtree provides the in-memory model and read path of a single
// regression tree from a gradient-boosted ensemble, including exact
// TreeSHAP feature attribution.
//
// The module is organized into several packages:
//
//   - tree: the core package — arena-allocated binary tree with free-list
//     reuse, O(depth) prediction, exact and approximate feature
//     contributions, and a fixed binary codec for one tree
//   - pkg/errors: structured error handling built on cockroachdb/errors
//   - pkg/log: slog-based structured logging with stacktrace extraction
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/regtree/tree"
//	)
//
//	func main() {
//	    t := tree.New()
//	    t.Param().NumFeature = 2
//	    t.AddChilds(0)
//	    t.SetSplit(0, 0, 0.5, true)
//	    t.SetLeaf(1, 1.0)
//	    t.SetLeaf(2, 3.0)
//	    t.Stat(0).SumHess = 10
//	    t.Stat(1).SumHess = 6
//	    t.Stat(2).SumHess = 4
//
//	    var fv tree.FVec
//	    fv.Init(2)
//	    row := []tree.SparseEntry{{Index: 0, Fvalue: 0.2}}
//	    fv.Fill(row)
//	    defer fv.Drop(row)
//
//	    fmt.Println(t.Predict(&fv, 0))
//
//	    out := make([]float32, 3)
//	    if err := t.CalculateContributions(&fv, 0, out, 0, 0); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(out)
//	}
//
// Once a tree is structurally frozen, Predict and the contribution
// calculators are read-only and safe for concurrent use, provided each
// goroutine supplies its own FVec and output slice.
package regtree
