package world

import (
	"fmt"
	"math/rand"
	"slices"
)

// Obstacle is an axis-aligned box standing on the ground. X/Y is the
// footprint's minimum corner, Width spans X, Depth spans Y and Height is
// vertical.
type Obstacle struct {
	ID      string   `json:"id" yaml:"id"`
	Surface string   `json:"surface,omitempty" yaml:"surface,omitempty"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	X       float64  `json:"x" yaml:"x"`
	Y       float64  `json:"y" yaml:"y"`
	Width   float64  `json:"width" yaml:"width"`
	Depth   float64  `json:"depth" yaml:"depth"`
	Height  float64  `json:"height" yaml:"height"`
}

// HasTag reports whether the obstacle carries tag.
func (o Obstacle) HasTag(tag string) bool {
	return slices.Contains(o.Tags, tag)
}

func (o Obstacle) hasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if o.HasTag(tag) {
			return true
		}
	}
	return false
}

// Trigger volumes never block movement or navigation.
func (o Obstacle) blocksMovement() bool {
	return !o.HasTag(TagTrigger)
}

// GenerateObstacles scatters count blocking boxes around the map centre. The
// spawn point in the middle is kept clear.
func GenerateObstacles(cfg Config, rng *rand.Rand, count int, existing []Obstacle) []Obstacle {
	if count <= 0 || rng == nil {
		return nil
	}
	cfg = cfg.normalized()
	worldW, worldH := cfg.Width, cfg.Height
	centerX, centerY := worldW/2, worldH/2

	obstacles := make([]Obstacle, 0, count)
	attempts := 0
	maxAttempts := count * 20

	for len(obstacles) < count && attempts < maxAttempts {
		attempts++

		width := ObstacleMinWidth + rng.Float64()*(ObstacleMaxWidth-ObstacleMinWidth)
		depth := ObstacleMinDepth + rng.Float64()*(ObstacleMaxDepth-ObstacleMinDepth)
		height := ObstacleMinHeight + rng.Float64()*(ObstacleMaxHeight-ObstacleMinHeight)

		globalMinX := ObstacleSpawnMargin
		globalMaxX := worldW - ObstacleSpawnMargin - width
		globalMinY := ObstacleSpawnMargin
		globalMaxY := worldH - ObstacleSpawnMargin - depth
		if globalMaxX <= globalMinX || globalMaxY <= globalMinY {
			break
		}

		minX, maxX := CentralTopLeftRange(worldW, centerX, ObstacleSpawnMargin, width)
		if maxX <= minX {
			minX, maxX = globalMinX, globalMaxX
		}
		minY, maxY := CentralTopLeftRange(worldH, centerY, ObstacleSpawnMargin, depth)
		if maxY <= minY {
			minY, maxY = globalMinY, globalMaxY
		}

		candidate := Obstacle{
			ID:      fmt.Sprintf("obstacle-%d", len(obstacles)+1),
			Surface: "concrete",
			X:       RandomDistance(rng, minX, maxX),
			Y:       RandomDistance(rng, minY, maxY),
			Width:   width,
			Depth:   depth,
			Height:  height,
		}
		if height < DefaultEyeHeight {
			candidate.Tags = []string{TagCover}
		}

		if circleRectOverlap(centerX, centerY, SpawnSafeRadius, candidate) {
			continue
		}
		if overlapsAny(candidate, existing) || overlapsAny(candidate, obstacles) {
			continue
		}
		obstacles = append(obstacles, candidate)
	}
	return obstacles
}

func overlapsAny(candidate Obstacle, others []Obstacle) bool {
	for _, obs := range others {
		if obstaclesOverlap(candidate, obs, ActorRadius*2) {
			return true
		}
	}
	return false
}
