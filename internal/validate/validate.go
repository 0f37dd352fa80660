// Package validate measures how well a reduced projection layer preserves
// the retrieval behavior of the full layer, using nearest-neighbor overlap
// over a set of sample pre-projection vectors.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/objones25/winnow/internal/weights"
)

var (
	// ErrDimensionMismatch is returned when samples or matrices disagree on
	// the input dimension
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrTooFewSamples is returned when the sample set cannot support the
	// requested neighborhood size
	ErrTooFewSamples = errors.New("too few samples")
)

// Config holds validation configuration
type Config struct {
	Neighbors   int // neighborhood size per sample
	MaxParallel int // concurrent per-sample workers, 0 = NumCPU
}

// DefaultConfig returns default validation configuration
func DefaultConfig() Config {
	return Config{
		Neighbors:   10,
		MaxParallel: 0,
	}
}

// Report summarizes one overlap measurement.
type Report struct {
	Samples    int
	Neighbors  int
	MeanRecall float64 // mean fraction of full-space neighbors preserved
}

// Overlap projects the sample vectors through both layers and reports the
// mean fraction of each sample's top-N cosine neighbors (in the full
// embedding space) that survive in the reduced space. 1.0 means retrieval
// neighborhoods are unchanged by the pruning.
func Overlap(ctx context.Context, full, reduced *weights.Matrix, samples [][]float32, cfg Config) (Report, error) {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = DefaultConfig().Neighbors
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = runtime.NumCPU()
	}

	if full.Rows != reduced.Rows {
		return Report{}, fmt.Errorf("%w: full has %d input features, reduced has %d",
			ErrDimensionMismatch, full.Rows, reduced.Rows)
	}
	if len(samples) <= cfg.Neighbors {
		return Report{}, fmt.Errorf("%w: %d samples for %d neighbors",
			ErrTooFewSamples, len(samples), cfg.Neighbors)
	}
	for i, s := range samples {
		if len(s) != full.Rows {
			return Report{}, fmt.Errorf("%w: sample %d has %d features, want %d",
				ErrDimensionMismatch, i, len(s), full.Rows)
		}
	}

	sampleMat := toDense(samples)
	var fullEmb, reducedEmb mat.Dense
	fullEmb.Mul(sampleMat, full.Dense())
	reducedEmb.Mul(sampleMat, reduced.Dense())

	n := len(samples)
	recalls := make([]float64, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxParallel)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fullNN := nearest(&fullEmb, i, cfg.Neighbors)
			reducedNN := nearest(&reducedEmb, i, cfg.Neighbors)

			inFull := make(map[int]bool, len(fullNN))
			for _, j := range fullNN {
				inFull[j] = true
			}
			shared := 0
			for _, j := range reducedNN {
				if inFull[j] {
					shared++
				}
			}
			recalls[i] = float64(shared) / float64(cfg.Neighbors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var sum float64
	for _, r := range recalls {
		sum += r
	}
	return Report{
		Samples:    n,
		Neighbors:  cfg.Neighbors,
		MeanRecall: sum / float64(n),
	}, nil
}

// nearest returns the indices of the k rows most cosine-similar to row i,
// excluding i itself. Ties resolve to the lower index so results are
// deterministic.
func nearest(emb *mat.Dense, i, k int) []int {
	n, _ := emb.Dims()
	self := mat.Row(nil, i, emb)

	type scored struct {
		idx int
		sim float64
	}
	candidates := make([]scored, 0, n-1)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		candidates = append(candidates, scored{j, cosine(self, mat.Row(nil, j, emb))})
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].sim != candidates[b].sim {
			return candidates[a].sim > candidates[b].sim
		}
		return candidates[a].idx < candidates[b].idx
	})

	out := make([]int, k)
	for j := 0; j < k; j++ {
		out[j] = candidates[j].idx
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func toDense(samples [][]float32) *mat.Dense {
	rows := len(samples)
	cols := len(samples[0])
	data := make([]float64, rows*cols)
	for i, s := range samples {
		for j, v := range s {
			data[i*cols+j] = float64(v)
		}
	}
	return mat.NewDense(rows, cols, data)
}
