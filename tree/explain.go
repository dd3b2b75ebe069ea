package tree

import (
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regtree/pkg/errors"
	treelog "github.com/YuminosukeSato/regtree/pkg/log"
)

// Explainer computes batch predictions and feature attributions for a
// structurally frozen tree over a gonum matrix of rows. NaN entries are
// treated as missing values.
//
// An Explainer owns one reusable FVec, so a single instance must not be
// shared across goroutines; concurrent callers create one Explainer each.
type Explainer struct {
	tree *Tree
	fvec FVec
	row  []SparseEntry
}

// NewExplainer creates an Explainer for the given tree.
func NewExplainer(t *Tree) *Explainer {
	e := &Explainer{tree: t}
	e.fvec.Init(int(t.param.NumFeature))
	return e
}

// fillRow scatters row i of X into the reusable feature vector and
// returns the sparse row needed to drop it again.
func (e *Explainer) fillRow(X mat.Matrix, i, cols int) []SparseEntry {
	e.row = e.row[:0]
	for j := 0; j < cols; j++ {
		v := X.At(i, j)
		if math.IsNaN(v) {
			continue
		}
		e.row = append(e.row, SparseEntry{Index: uint32(j), Fvalue: float32(v)})
	}
	e.fvec.Fill(e.row)
	return e.row
}

func (e *Explainer) checkShape(op string, X mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if cols != int(e.tree.param.NumFeature) {
		return 0, 0, errors.NewDimensionError(op, int(e.tree.param.NumFeature), cols, 1)
	}
	return rows, cols, nil
}

// Predict returns the tree's prediction for every row of X.
func (e *Explainer) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols, err := e.checkShape("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		row := e.fillRow(X, i, cols)
		out.SetVec(i, float64(e.tree.Predict(&e.fvec, 0)))
		e.fvec.Drop(row)
	}
	return out, nil
}

// Contributions returns exact per-feature attributions for every row of
// X. The result has one column per feature plus a final bias column; each
// row sums to the tree's prediction for that row.
func (e *Explainer) Contributions(X mat.Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Contributions")
	return e.contributions(X, "contributions", func(row *FVec, out []float32) error {
		return e.tree.CalculateContributions(row, 0, out, 0, 0)
	})
}

// ContributionsApprox returns the fast, inexact attributions for every
// row of X, in the same shape as Contributions.
func (e *Explainer) ContributionsApprox(X mat.Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "ContributionsApprox")
	return e.contributions(X, "contributions_approx", func(row *FVec, out []float32) error {
		return e.tree.CalculateContributionsApprox(row, 0, out)
	})
}

func (e *Explainer) contributions(X mat.Matrix, op string, calc func(*FVec, []float32) error) (*mat.Dense, error) {
	rows, cols, err := e.checkShape(op, X)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	out := mat.NewDense(rows, cols+1, nil)
	contribs := make([]float32, cols+1)
	for i := 0; i < rows; i++ {
		for j := range contribs {
			contribs[j] = 0
		}
		row := e.fillRow(X, i, cols)
		err := calc(&e.fvec, contribs)
		e.fvec.Drop(row)
		if err != nil {
			return nil, err
		}
		for j, v := range contribs {
			out.Set(i, j, float64(v))
		}
	}

	slog.Debug("calculated contributions",
		treelog.OperationKey, op,
		treelog.SamplesKey, rows,
		treelog.FeaturesKey, cols,
		treelog.DurationMsKey, time.Since(start).Milliseconds())
	return out, nil
}
