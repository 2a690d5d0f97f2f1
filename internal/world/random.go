package world

import (
	"hash/fnv"
	"math"
	"math/rand"
)

const centralSpawnRegionRatio = 0.5

// DeterministicSeedValue derives a stable non-zero seed for a subsystem from
// the world seed.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG returns a generator seeded for the labelled subsystem.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

func RandomAngle(rng *rand.Rand) float64 {
	return rng.Float64() * 2 * math.Pi
}

func RandomDistance(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// CentralTopLeftRange bounds the top-left corner of a box of the given size
// so it lands in the central half of the axis.
func CentralTopLeftRange(total, center, margin, size float64) (float64, float64) {
	if total <= 0 {
		return margin, margin
	}

	regionHalf := total * centralSpawnRegionRatio / 2
	min := center - regionHalf
	max := center + regionHalf - size

	if min < margin {
		min = margin
	}
	maxLimit := total - margin - size
	if max > maxLimit {
		max = maxLimit
	}
	if max < min {
		max = min
	}

	return min, max
}
