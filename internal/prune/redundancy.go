package prune

import (
	"runtime"
	"sync"
)

// Redundancy builds the pairwise shared-influence matrix for the given
// influence sets and the initial drop score for every output feature.
//
// r[i][j] is the size of the intersection of sets[i] and sets[j]; the matrix
// is symmetric and r[i][i] is the set size. scores[i] is the row sum
// excluding the diagonal: how many influence slots feature i shares with
// every other feature.
//
// inputDim bounds the index values in sets and sizes the membership bitset.
// workers bounds parallelism; zero or negative means one worker per CPU.
// Each unordered pair is computed by exactly one worker, so parallel and
// serial runs produce identical matrices.
func Redundancy(sets [][]int, inputDim, workers int) ([][]int, []int) {
	outputDim := len(sets)
	r := make([][]int, outputDim)
	for i := range r {
		r[i] = make([]int, outputDim)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > outputDim {
		workers = outputDim
	}

	var wg sync.WaitGroup
	chunkSize := (outputDim + workers - 1) / workers

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			member := make([]bool, inputDim)
			for i := start; i < end && i < outputDim; i++ {
				for _, idx := range sets[i] {
					member[idx] = true
				}
				r[i][i] = len(sets[i])
				for j := i + 1; j < outputDim; j++ {
					var shared int
					for _, idx := range sets[j] {
						if member[idx] {
							shared++
						}
					}
					r[i][j] = shared
					r[j][i] = shared
				}
				for _, idx := range sets[i] {
					member[idx] = false
				}
			}
		}(w*chunkSize, (w+1)*chunkSize)
	}
	wg.Wait()

	scores := make([]int, outputDim)
	for i := 0; i < outputDim; i++ {
		sum := 0
		for j := 0; j < outputDim; j++ {
			if j != i {
				sum += r[i][j]
			}
		}
		scores[i] = sum
	}

	return r, scores
}
