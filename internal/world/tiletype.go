// Package world provides the terrain generator and the finished tile grid.
// A map is generated in four ordered passes over a dense grid of tile-type
// indices: base fill, mountain clusters, rivers and lakes, then the alien base.
package world

// Designated tile-type names. The generator looks types up by name; a missing
// type disables the pass that places it.
const (
	TilePlains    = "Plains"
	TileForest    = "Forest"
	TileMountains = "Mountains"
	TileRiver     = "River"
	TileAlienBase = "Alien Base"
)

// TileType is a configured terrain category. Immutable once loaded.
type TileType struct {
	Name string `yaml:"name" json:"name"`

	// Height range for the mesh consumer. Not used by generation.
	MinHeight float64 `yaml:"min_height" json:"min_height"`
	MaxHeight float64 `yaml:"max_height" json:"max_height"`

	Material    string  `yaml:"material" json:"material"`         // Opaque to the generator
	SpawnWeight float64 `yaml:"spawn_weight" json:"spawn_weight"` // Relative frequency, >= 0
}

// DefaultTileTypes returns the stock five-category tile set.
func DefaultTileTypes() []TileType {
	return []TileType{
		{Name: TilePlains, MinHeight: 0.5, MaxHeight: 0.8, Material: "plains", SpawnWeight: 0.5},
		{Name: TileForest, MinHeight: 0.7, MaxHeight: 1.1, Material: "forest", SpawnWeight: 0.2},
		{Name: TileMountains, MinHeight: 1.5, MaxHeight: 2.5, Material: "mountains", SpawnWeight: 0.15},
		{Name: TileRiver, MinHeight: 0.2, MaxHeight: 0.3, Material: "river", SpawnWeight: 0.1},
		{Name: TileAlienBase, MinHeight: 1.0, MaxHeight: 1.2, Material: "alien_base", SpawnWeight: 0.05},
	}
}

// indexOf returns the position of the named type in types, or -1.
func indexOf(types []TileType, name string) int {
	for i, t := range types {
		if t.Name == name {
			return i
		}
	}
	return -1
}
