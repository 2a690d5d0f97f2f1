package world

import "npc-director/server/internal/geom"

// circleRectOverlap reports whether a circle intersects an obstacle footprint.
func circleRectOverlap(cx, cy, radius float64, obs Obstacle) bool {
	closestX := geom.Clamp(cx, obs.X, obs.X+obs.Width)
	closestY := geom.Clamp(cy, obs.Y, obs.Y+obs.Depth)
	dx := cx - closestX
	dy := cy - closestY
	return dx*dx+dy*dy < radius*radius
}

// obstaclesOverlap checks for footprint overlap with optional padding.
func obstaclesOverlap(a, b Obstacle, padding float64) bool {
	return a.X-padding < b.X+b.Width+padding &&
		a.X+a.Width+padding > b.X-padding &&
		a.Y-padding < b.Y+b.Depth+padding &&
		a.Y+a.Depth+padding > b.Y-padding
}
