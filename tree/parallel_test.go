package tree

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regtree/pkg/errors"
)

func randomBatch(rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		if uniform01() < 0.1 {
			data[i] = math.NaN()
		} else {
			data[i] = stdNormal()
		}
	}
	return mat.NewDense(rows, cols, data)
}

func TestContributionsParallelMatchesSequential(t *testing.T) {
	const nFeatures = 4
	tr := New()
	tr.Param().NumFeature = nFeatures
	buildRandomSubtree(tr, 0, 4, nFeatures)

	X := randomBatch(100, nFeatures)

	want, err := NewExplainer(tr).Contributions(X)
	require.NoError(t, err)

	got, err := tr.ContributionsParallel(context.Background(), X, BatchOptions{Workers: 4, ChunkSize: 7})
	require.NoError(t, err)

	assert.True(t, mat.Equal(want, got))
}

func TestContributionsApproxParallelMatchesSequential(t *testing.T) {
	tr := scenarioTree()
	X := scenarioMatrix()

	want, err := NewExplainer(tr).ContributionsApprox(X)
	require.NoError(t, err)

	got, err := tr.ContributionsApproxParallel(context.Background(), X, BatchOptions{Workers: 3, ChunkSize: 1})
	require.NoError(t, err)

	assert.True(t, mat.Equal(want, got))
}

func TestContributionsParallelDefaults(t *testing.T) {
	tr := scenarioTree()
	got, err := tr.ContributionsParallel(context.Background(), scenarioMatrix(), BatchOptions{})
	require.NoError(t, err)
	r, c := got.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
}

func TestContributionsParallelShapeMismatch(t *testing.T) {
	tr := scenarioTree()
	_, err := tr.ContributionsParallel(context.Background(), mat.NewDense(2, 9, nil), BatchOptions{})
	require.Error(t, err)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestContributionsParallelCanceledContext(t *testing.T) {
	const nFeatures = 3
	tr := New()
	tr.Param().NumFeature = nFeatures
	buildRandomSubtree(tr, 0, 4, nFeatures)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// small chunks force the feeder to observe the canceled context
	_, err := tr.ContributionsParallel(ctx, randomBatch(10000, nFeatures), BatchOptions{Workers: 2, ChunkSize: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
