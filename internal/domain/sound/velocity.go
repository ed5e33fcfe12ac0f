package sound

import "math"

// Velocity returns the percentage change between the first and last sample,
// rounded to an integer. Fewer than two samples, or a non-positive first
// sample, yield 0.
func Velocity(samples ...float64) int {
	if len(samples) < 2 {
		return 0
	}

	first := samples[0]
	last := samples[len(samples)-1]
	if first <= 0 || math.IsNaN(first) || math.IsNaN(last) {
		return 0
	}

	return int(math.Round((last - first) / first * 100))
}

// EstimateUses approximates a usage count from a chart rank. Rank 1 maps to
// 100000 uses; ranks below 1 are treated as 1.
func EstimateUses(rank int) int64 {
	if rank < 1 {
		rank = 1
	}
	return int64(math.Round(100000 / float64(rank)))
}

// ObservedVelocity picks the velocity source for an observation: the reported
// series when one came with it, otherwise the previous stored count against
// the new one. A sound with no history and no series has velocity 0.
func ObservedVelocity(obs Observation, previousUses *int64) int {
	if obs.Series != nil {
		return Velocity(obs.Series...)
	}
	if previousUses == nil {
		return 0
	}
	return Velocity(float64(*previousUses), float64(obs.Uses))
}
