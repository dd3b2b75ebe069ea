package tree

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regtree/pkg/errors"
	treelog "github.com/YuminosukeSato/regtree/pkg/log"
)

// BatchOptions configures parallel batch explanation.
type BatchOptions struct {
	// Workers is the number of goroutines; 0 means GOMAXPROCS.
	Workers int
	// ChunkSize is the number of rows handed to a worker at a time; 0
	// picks a default.
	ChunkSize int
}

const defaultChunkSize = 256

type rowChunk struct {
	start, end int
}

// ContributionsParallel computes exact per-feature attributions for every
// row of X across a pool of workers. The tree must be structurally frozen
// for the duration of the call; each worker owns its own Explainer, so no
// scratch state is shared. Output layout matches Explainer.Contributions.
func (t *Tree) ContributionsParallel(ctx context.Context, X mat.Matrix, opts BatchOptions) (*mat.Dense, error) {
	return t.runParallel(ctx, X, opts, "contributions_parallel", func(e *Explainer, row *FVec, out []float32) error {
		return t.CalculateContributions(row, 0, out, 0, 0)
	})
}

// ContributionsApproxParallel is the parallel form of the fast path-delta
// attribution.
func (t *Tree) ContributionsApproxParallel(ctx context.Context, X mat.Matrix, opts BatchOptions) (*mat.Dense, error) {
	// the mean-value cache is filled once up front so workers only read it
	t.FillNodeMeanValues()
	return t.runParallel(ctx, X, opts, "contributions_approx_parallel", func(e *Explainer, row *FVec, out []float32) error {
		return t.CalculateContributionsApprox(row, 0, out)
	})
}

func (t *Tree) runParallel(ctx context.Context, X mat.Matrix, opts BatchOptions, op string, calc func(*Explainer, *FVec, []float32) error) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != int(t.param.NumFeature) {
		return nil, errors.NewDimensionError(op, int(t.param.NumFeature), cols, 1)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	// exact contributions read the mean-value cache; fill it before the
	// workers start so they never race on it
	t.FillNodeMeanValues()

	start := time.Now()
	out := mat.NewDense(rows, cols+1, nil)

	chunks := make(chan rowChunk)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := NewExplainer(t)
			contribs := make([]float32, cols+1)
			for chunk := range chunks {
				for i := chunk.start; i < chunk.end; i++ {
					for j := range contribs {
						contribs[j] = 0
					}
					row := e.fillRow(X, i, cols)
					err := calc(e, &e.fvec, contribs)
					e.fvec.Drop(row)
					if err != nil {
						errCh <- err
						return
					}
					// workers write disjoint rows of the shared output
					for j, v := range contribs {
						out.Set(i, j, float64(v))
					}
				}
			}
		}()
	}

	var sendErr error
feed:
	for s := 0; s < rows; s += chunkSize {
		end := s + chunkSize
		if end > rows {
			end = rows
		}
		select {
		case chunks <- rowChunk{start: s, end: end}:
		case <-ctx.Done():
			sendErr = errors.Wrap(ctx.Err(), op)
			break feed
		case err := <-errCh:
			sendErr = err
			break feed
		}
	}
	close(chunks)
	wg.Wait()
	close(errCh)

	if sendErr == nil {
		for err := range errCh {
			if err != nil {
				sendErr = err
				break
			}
		}
	}
	if sendErr != nil {
		return nil, sendErr
	}

	slog.Debug("calculated contributions",
		treelog.OperationKey, op,
		treelog.SamplesKey, rows,
		treelog.FeaturesKey, cols,
		treelog.WorkersKey, workers,
		treelog.DurationMsKey, time.Since(start).Milliseconds())
	return out, nil
}
