package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// WeightedIndex returns an index into weights with probability proportional
// to its weight. Weights must be non-negative with a positive sum; anything
// else is a programming error and panics.
func WeightedIndex(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			panic(fmt.Sprintf("sim: invalid selection weight %v at index %d", w, i))
		}
		total += w
	}
	if total <= 0 {
		panic("sim: weighted selection needs at least one positive weight")
	}

	u := rng.Float64() * total
	for i, w := range weights {
		if u < w {
			return i
		}
		u -= w
	}
	// Float rounding can leave u just past the last bucket.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}

// WeightedChoice picks one candidate with probability proportional to the
// parallel weight. Candidates and weights must have the same length.
func WeightedChoice[T any](rng *rand.Rand, candidates []T, weights []float64) T {
	if len(candidates) != len(weights) {
		panic(fmt.Sprintf("sim: %d candidates but %d weights", len(candidates), len(weights)))
	}
	return candidates[WeightedIndex(rng, weights)]
}

// UniformChoice picks one candidate with equal probability. Candidates must
// be non-empty.
func UniformChoice[T any](rng *rand.Rand, candidates []T) T {
	if len(candidates) == 0 {
		panic("sim: uniform selection from an empty set")
	}
	return candidates[rng.Intn(len(candidates))]
}
