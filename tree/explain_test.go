package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regtree/pkg/errors"
)

func scenarioMatrix() *mat.Dense {
	return mat.NewDense(4, 2, []float64{
		0.2, 2.0,
		0.2, 1.0,
		0.9, 0.0,
		0.2, math.NaN(), // feature 1 missing
	})
}

func TestExplainerPredict(t *testing.T) {
	tr := scenarioTree()
	e := NewExplainer(tr)

	got, err := e.Predict(scenarioMatrix())
	require.NoError(t, err)

	assert.Equal(t, 4, got.Len())
	assert.InDelta(t, 2.0, got.AtVec(0), 1e-6)
	assert.InDelta(t, 1.0, got.AtVec(1), 1e-6)
	assert.InDelta(t, 3.0, got.AtVec(2), 1e-6)
	// missing feature 1 follows the default-left branch
	assert.InDelta(t, 1.0, got.AtVec(3), 1e-6)
}

func TestExplainerContributionsMatchesSingleRow(t *testing.T) {
	tr := scenarioTree()
	e := NewExplainer(tr)
	X := scenarioMatrix()

	got, err := e.Contributions(X)
	require.NoError(t, err)

	rows, _ := X.Dims()
	r, c := got.Dims()
	assert.Equal(t, rows, r)
	assert.Equal(t, 3, c)

	for i := 0; i < rows; i++ {
		var fv FVec
		fv.Init(2)
		row := make([]SparseEntry, 0, 2)
		for j := 0; j < 2; j++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				row = append(row, SparseEntry{Index: uint32(j), Fvalue: float32(v)})
			}
		}
		fv.Fill(row)
		want := make([]float32, 3)
		require.NoError(t, tr.CalculateContributions(&fv, 0, want, 0, 0))
		for j := 0; j < 3; j++ {
			assert.InDelta(t, float64(want[j]), got.At(i, j), 1e-6, "row %d col %d", i, j)
		}
		fv.Drop(row)
	}
}

func TestExplainerContributionRowsSumToPrediction(t *testing.T) {
	tr := scenarioTree()
	e := NewExplainer(tr)
	X := scenarioMatrix()

	contribs, err := e.Contributions(X)
	require.NoError(t, err)
	preds, err := e.Predict(X)
	require.NoError(t, err)

	rows, cols := contribs.Dims()
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += contribs.At(i, j)
		}
		assert.InDelta(t, preds.AtVec(i), sum, 1e-5, "row %d", i)
	}
}

func TestExplainerContributionsApprox(t *testing.T) {
	tr := scenarioTree()
	e := NewExplainer(tr)
	X := scenarioMatrix()

	got, err := e.ContributionsApprox(X)
	require.NoError(t, err)

	rows, _ := X.Dims()
	for i := 0; i < rows; i++ {
		var fv FVec
		fv.Init(2)
		row := make([]SparseEntry, 0, 2)
		for j := 0; j < 2; j++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				row = append(row, SparseEntry{Index: uint32(j), Fvalue: float32(v)})
			}
		}
		fv.Fill(row)
		want := make([]float32, 3)
		require.NoError(t, tr.CalculateContributionsApprox(&fv, 0, want))
		for j := 0; j < 3; j++ {
			assert.InDelta(t, float64(want[j]), got.At(i, j), 1e-6, "row %d col %d", i, j)
		}
		fv.Drop(row)
	}
}

func TestExplainerShapeMismatch(t *testing.T) {
	tr := scenarioTree()
	e := NewExplainer(tr)
	X := mat.NewDense(2, 5, nil)

	var dimErr *errors.DimensionError

	_, err := e.Predict(X)
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))

	_, err = e.Contributions(X)
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))

	_, err = e.ContributionsApprox(X)
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))
}

func TestExplainerReusesScratchAcrossRows(t *testing.T) {
	// rows with disjoint sparsity patterns must not leak values into each
	// other through the shared feature vector
	tr := scenarioTree()
	e := NewExplainer(tr)

	X := mat.NewDense(3, 2, []float64{
		0.2, 2.0,
		math.NaN(), math.NaN(),
		0.9, math.NaN(),
	})
	got, err := e.Predict(X)
	require.NoError(t, err)

	// all-missing row routes default-left twice
	assert.InDelta(t, 1.0, got.AtVec(1), 1e-6)
	assert.InDelta(t, 3.0, got.AtVec(2), 1e-6)
}
