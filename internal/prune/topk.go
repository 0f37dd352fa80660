package prune

import (
	"fmt"
	"math"
	"sort"
)

// InfluenceSets selects, for every output feature (column) of the weight
// matrix, the indices of the topK input features (rows) with the largest
// absolute weight. Rows with equal magnitude are ranked by lower index, so
// the result is deterministic. Each returned set is sorted ascending.
//
// weights is row-major: weights[i][j] is the weight from input feature i to
// output feature j. All rows must have the same length.
func InfluenceSets(weights [][]float32, topK int) ([][]int, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, NewError("influence_sets", ErrEmptyMatrix, "")
	}

	inputDim := len(weights)
	outputDim := len(weights[0])
	for i, row := range weights {
		if len(row) != outputDim {
			return nil, NewError("influence_sets", ErrInvalidParameter,
				fmt.Sprintf("row %d has %d columns, want %d", i, len(row), outputDim))
		}
	}

	if topK < 1 || topK > inputDim {
		return nil, NewError("influence_sets", ErrInvalidParameter,
			fmt.Sprintf("top_k %d out of range [1, %d]", topK, inputDim))
	}

	sets := make([][]int, outputDim)
	order := make([]int, inputDim)
	for j := 0; j < outputDim; j++ {
		for i := range order {
			order[i] = i
		}
		// Stable sort keeps equal magnitudes in index order.
		sort.SliceStable(order, func(a, b int) bool {
			return math.Abs(float64(weights[order[a]][j])) > math.Abs(float64(weights[order[b]][j]))
		})

		set := make([]int, topK)
		copy(set, order[:topK])
		sort.Ints(set)
		sets[j] = set
	}

	return sets, nil
}
