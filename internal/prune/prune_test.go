package prune_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objones25/winnow/internal/prune"
)

func randomWeights(t *testing.T, inputDim, outputDim int, seed int64) [][]float32 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	weights := make([][]float32, inputDim)
	for i := range weights {
		weights[i] = make([]float32, outputDim)
		for j := range weights[i] {
			weights[i][j] = float32(rng.NormFloat64())
		}
	}
	return weights
}

func TestPruneDeterministic(t *testing.T) {
	weights := randomWeights(t, 128, 64, 42)
	cfg := prune.Config{TopK: 16, DropNumber: 20}

	first, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)
	second, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.DropOrder, second.DropOrder)
	assert.Equal(t, first.Kept, second.Kept)
	assert.Equal(t, first.Scores, second.Scores)
}

func TestPrunePartitionsFeatures(t *testing.T) {
	weights := randomWeights(t, 100, 50, 7)
	cfg := prune.Config{TopK: 10, DropNumber: 15}

	res, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.DropOrder), cfg.DropNumber)

	// Every output feature lands in exactly one bucket: dropped, kept, or
	// zeroed out without being dropped.
	seen := make(map[int]string)
	for _, d := range res.DropOrder {
		seen[d] = "dropped"
	}
	for _, k := range res.Kept {
		prev, dup := seen[k]
		require.False(t, dup, "feature %d in both kept and %s", k, prev)
		seen[k] = "kept"
	}
	for i, s := range res.Scores {
		switch {
		case s > 0:
			assert.Equal(t, "kept", seen[i], "feature %d", i)
		case s == 0:
			_, present := seen[i]
			assert.False(t, present, "zero-score feature %d should be in no bucket", i)
		default:
			assert.Equal(t, "dropped", seen[i], "feature %d", i)
		}
	}
}

func TestPruneTwinColumns(t *testing.T) {
	// Columns 0 and 1 are identical, columns 2 and 3 are identical, the
	// pairs are disjoint. One drop removes a twin; its partner's score
	// drops to zero and is excluded from the kept set without being
	// recorded as dropped.
	weights := [][]float32{
		{5, 5, 0.1, 0.1},
		{4, 4, 0.2, 0.2},
		{0.1, 0.1, 5, 5},
		{0.2, 0.2, 4, 4},
	}
	cfg := prune.Config{TopK: 2, DropNumber: 1}

	res, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, res.DropOrder)
	assert.Equal(t, []int{2, 3}, res.Kept)
	assert.Equal(t, 0, res.Scores[1])
}

func TestPruneUniformInfluence(t *testing.T) {
	// With top-k covering the whole input dimension every influence set is
	// the full index set, so redundancy is uniform and the drop order is
	// decided purely by the index tie-break.
	weights := randomWeights(t, 3, 4, 11)
	cfg := prune.Config{TopK: 3, DropNumber: 4}

	res, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)

	// The last survivor reaches score zero, so only three of the four
	// budgeted drops happen and nothing remains kept.
	assert.Equal(t, []int{0, 1, 2}, res.DropOrder)
	assert.Empty(t, res.Kept)
	assert.Equal(t, 0, res.Scores[3])
}

func TestPruneZeroBudget(t *testing.T) {
	weights := randomWeights(t, 20, 10, 3)
	cfg := prune.Config{TopK: 5, DropNumber: 0}

	res, err := prune.Prune(context.Background(), weights, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.DropOrder)
}

func TestPruneErrors(t *testing.T) {
	weights := randomWeights(t, 8, 4, 1)

	tests := []struct {
		name    string
		weights [][]float32
		cfg     prune.Config
		check   func(error) bool
	}{
		{"empty matrix", nil, prune.Config{TopK: 1, DropNumber: 1}, prune.IsEmptyMatrix},
		{"top_k too large", weights, prune.Config{TopK: 9, DropNumber: 1}, prune.IsInvalidParameter},
		{"negative drop budget", weights, prune.Config{TopK: 2, DropNumber: -1}, prune.IsInvalidParameter},
		{"drop budget above output dim", weights, prune.Config{TopK: 2, DropNumber: 5}, prune.IsInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prune.Prune(context.Background(), tt.weights, tt.cfg)
			require.Error(t, err)
			assert.True(t, tt.check(err), "error = %v", err)
		})
	}
}

func BenchmarkPrune(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	inputDim, outputDim := 512, 256
	weights := make([][]float32, inputDim)
	for i := range weights {
		weights[i] = make([]float32, outputDim)
		for j := range weights[i] {
			weights[i][j] = float32(rng.NormFloat64())
		}
	}
	cfg := prune.Config{TopK: 64, DropNumber: 64}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := prune.Prune(context.Background(), weights, cfg); err != nil {
			b.Fatalf("Prune() error = %v", err)
		}
	}
}
