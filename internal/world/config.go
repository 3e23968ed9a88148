package world

import (
	"errors"
	"fmt"

	"github.com/talgya/hexfront/internal/hex"
)

// Configuration errors, reported by Validate before generation starts.
var (
	ErrNoTileTypes  = errors.New("no tile types configured")
	ErrZeroWeights  = errors.New("all tile spawn weights are zero")
	ErrGridSize     = errors.New("grid dimensions must be positive")
	ErrClusterCount = errors.New("mountain cluster count must be at least 1")
	ErrLakeChance   = errors.New("lake chance must be within [0, 1]")
	ErrMinDistance  = errors.New("minimum alien base distance must be non-negative")
	ErrForestQuota  = errors.New("forest quota cannot be satisfied by background cells")
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width       int             `yaml:"width" json:"width"`
	Height      int             `yaml:"height" json:"height"`
	Orientation hex.Orientation `yaml:"-" json:"orientation"`
	TileTypes   []TileType      `yaml:"tile_types" json:"tile_types"`

	MountainClusters     int     `yaml:"mountain_clusters" json:"mountain_clusters"`
	LakeChance           float64 `yaml:"lake_chance" json:"lake_chance"`
	MinAlienBaseDistance int     `yaml:"min_alien_base_distance" json:"min_alien_base_distance"`

	Seed int64 `yaml:"seed" json:"seed"` // 0 = random
}

// DefaultGenConfig returns the stock 20x20 flat-topped map.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:                20,
		Height:               20,
		Orientation:          hex.FlatTopped,
		TileTypes:            DefaultTileTypes(),
		MountainClusters:     3,
		LakeChance:           0.1,
		MinAlienBaseDistance: 4,
	}
}

// SmallTestConfig returns a tiny deterministic map for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 10
	cfg.Height = 10
	cfg.MinAlienBaseDistance = 2
	cfg.Seed = 42
	return cfg
}

// Bounds returns the grid size as hex bounds.
func (c GenConfig) Bounds() hex.Bounds {
	return hex.Bounds{Width: c.Width, Height: c.Height}
}

// Validate checks the configuration errors that must stop generation.
func (c GenConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrGridSize, c.Width, c.Height)
	}
	if len(c.TileTypes) == 0 {
		return ErrNoTileTypes
	}
	total := 0.0
	for _, t := range c.TileTypes {
		if t.SpawnWeight < 0 {
			return fmt.Errorf("tile type %q: negative spawn weight %v", t.Name, t.SpawnWeight)
		}
		total += t.SpawnWeight
	}
	if total <= 0 {
		return ErrZeroWeights
	}
	if c.MountainClusters < 1 {
		return fmt.Errorf("%w: got %d", ErrClusterCount, c.MountainClusters)
	}
	if c.LakeChance < 0 || c.LakeChance > 1 {
		return fmt.Errorf("%w: got %v", ErrLakeChance, c.LakeChance)
	}
	if c.MinAlienBaseDistance < 0 {
		return fmt.Errorf("%w: got %d", ErrMinDistance, c.MinAlienBaseDistance)
	}
	return nil
}
