package world

import "strings"

// Config describes the reference world layout.
type Config struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	NavCellSize float64 `json:"navCellSize"`
	Seed        string  `json:"seed"`
	// Obstacles are placed verbatim; RandomObstacles more are scattered
	// around the map centre from the seed.
	Obstacles       []Obstacle `json:"obstacles,omitempty"`
	RandomObstacles int        `json:"randomObstacles"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	if normalized.NavCellSize <= 0 {
		normalized.NavCellSize = DefaultNavCellSize
	}
	if normalized.RandomObstacles < 0 {
		normalized.RandomObstacles = 0
	}
	return normalized
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		NavCellSize: DefaultNavCellSize,
		Seed:        DefaultSeed,
	}
}
