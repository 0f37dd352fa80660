package prune

import (
	"context"
	"fmt"
	"math"
)

// droppedScore marks a feature that has been removed. It is below any
// attainable score, so a dropped feature never wins the argmax and never
// contributes positively to later iterations.
const droppedScore = math.MinInt

// GreedyDrop removes up to dropNumber output features, most redundant
// first. Each iteration picks the feature with the highest drop score (ties
// broken by lowest index), records it, subtracts its pairwise redundancy
// r[d][i] from every other live score, and parks its own score at a
// sentinel. The loop stops early when the best remaining score is zero:
// everything left shares no influence with anything else, so dropping more
// would discard information that nothing covers.
//
// scores is mutated in place; the caller keeps ownership of the final
// vector. The context is checked once per iteration so interactive callers
// can abandon a long run.
func GreedyDrop(ctx context.Context, r [][]int, scores []int, dropNumber int) ([]int, error) {
	if dropNumber < 0 || dropNumber > len(scores) {
		return nil, NewError("greedy_drop", ErrInvalidParameter,
			fmt.Sprintf("drop_number %d out of range [0, %d]", dropNumber, len(scores)))
	}

	dropOrder := make([]int, 0, dropNumber)
	for iter := 0; iter < dropNumber; iter++ {
		if err := ctx.Err(); err != nil {
			return dropOrder, NewError("greedy_drop", err, fmt.Sprintf("after %d drops", len(dropOrder)))
		}

		d := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] > scores[d] {
				d = i
			}
		}
		if scores[d] <= 0 {
			break
		}

		dropOrder = append(dropOrder, d)
		for i := range scores {
			if i != d && scores[i] != droppedScore {
				scores[i] -= r[d][i]
			}
		}
		scores[d] = droppedScore
	}

	return dropOrder, nil
}

// KeptFeatures returns the ascending indices of output features whose final
// drop score is strictly positive. Features that ended at exactly zero are
// excluded along with the dropped ones: a zero score means no measured
// shared influence, and the selection policy treats such features as
// disposable too.
func KeptFeatures(scores []int) []int {
	kept := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			kept = append(kept, i)
		}
	}
	return kept
}
