// Package prune selects which output features of a trained linear
// projection layer can be removed without losing information that the
// remaining features already carry.
//
// The heuristic works purely on weight structure. Each output feature is
// summarized by its influence set, the top-k input features by absolute
// weight. Two output features that share many influence slots are assumed
// to encode overlapping information, so the feature whose total overlap is
// largest is removed first, and every remaining feature's overlap score is
// discounted accordingly before the next pick. The loop stops when the drop
// budget is spent or no overlap remains.
package prune

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/objones25/winnow/internal/monitor"
)

// Result holds the outcome of one pruning run.
type Result struct {
	// Kept lists the retained output features, ascending.
	Kept []int `json:"kept"`

	// DropOrder lists dropped output features in the order they were
	// removed.
	DropOrder []int `json:"drop_order"`

	// Scores is the final drop score per output feature. Dropped features
	// hold a negative sentinel; features at zero were never dropped but are
	// excluded from Kept all the same.
	Scores []int `json:"scores"`
}

// Prune runs the full selection pipeline over a projection weight matrix.
// weights is row-major with one row per input feature and one column per
// output feature.
func Prune(ctx context.Context, weights [][]float32, cfg Config) (*Result, error) {
	start := time.Now()

	res, err := run(ctx, weights, cfg)
	monitor.PruneLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		monitor.PruneOperations.WithLabelValues("error").Inc()
		return nil, err
	}
	monitor.PruneOperations.WithLabelValues("success").Inc()
	monitor.FeaturesDropped.Add(float64(len(res.DropOrder)))
	monitor.FeaturesKept.Set(float64(len(res.Kept)))

	log.Debug().
		Int("input_dim", len(weights)).
		Int("output_dim", len(weights[0])).
		Int("dropped", len(res.DropOrder)).
		Int("kept", len(res.Kept)).
		Dur("took", time.Since(start)).
		Msg("prune pipeline finished")

	return res, nil
}

func run(ctx context.Context, weights [][]float32, cfg Config) (*Result, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, NewError("prune", ErrEmptyMatrix, "")
	}
	outputDim := len(weights[0])
	if cfg.DropNumber < 0 || cfg.DropNumber > outputDim {
		return nil, NewError("prune", ErrInvalidParameter,
			fmt.Sprintf("drop_number %d out of range [0, %d]", cfg.DropNumber, outputDim))
	}

	sets, err := InfluenceSets(weights, cfg.TopK)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError("prune", err, "before redundancy build")
	}

	r, scores := Redundancy(sets, len(weights), cfg.Workers)

	dropOrder, err := GreedyDrop(ctx, r, scores, cfg.DropNumber)
	if err != nil {
		return nil, err
	}

	return &Result{
		Kept:      KeptFeatures(scores),
		DropOrder: dropOrder,
		Scores:    scores,
	}, nil
}
