// Map generation: quota computation followed by four ordered placement passes.
// All passes draw from one random source in a fixed order (fill, mountains,
// rivers, alien base); changing that order changes every map for a seed.
package world

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/hexfront/internal/hex"
)

const (
	mountainSpreadChance = 0.7 // Chance a neighbor of a new mountain joins the frontier
	lakeSpreadChance     = 0.5 // Chance a neighbor of a lake cell joins the river path
	maxRiverAttempts     = 50  // Random-walk trials before the river pass gives up
	minRiverSteps        = 3   // A walk may only end on an edge after this many steps
)

// generator carries the state of a single run.
type generator struct {
	cfg    GenConfig
	rng    *rand.Rand
	m      *Map
	bounds hex.Bounds
	quotas Quotas

	background int // Index of the fill type ("Plains", or the first type when absent)
	plains     int // -1 when not configured; only Plains and Forest cells convert
	forest     int // -1 when not configured
	mountain   int
}

// Generate creates a complete map from cfg. A zero seed picks a random one,
// recorded on the returned map so the run can be reproduced.
func Generate(cfg GenConfig) (*Map, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return generate(cfg, seed, rand.New(rand.NewSource(seed)))
}

// GenerateFrom creates a map drawing from a caller-owned random source.
// The map records cfg.Seed as given.
func GenerateFrom(cfg GenConfig, rng *rand.Rand) (*Map, error) {
	return generate(cfg, cfg.Seed, rng)
}

func generate(cfg GenConfig, seed int64, rng *rand.Rand) (*Map, error) {
	g, err := newGenerator(cfg, seed, rng)
	if err != nil {
		return nil, err
	}

	g.fillBaseTerrain()
	g.placeMountainClusters()
	g.generateRivers()
	g.placeAlienBase()

	slog.Debug("map generated", "map", g.m.String(), "counts", g.m.Counts())
	return g.m, nil
}

// newGenerator validates cfg and computes quotas. No cells are placed yet.
func newGenerator(cfg GenConfig, seed int64, rng *rand.Rand) (*generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	g := &generator{
		cfg:        cfg,
		rng:        rng,
		m:          newMap(cfg, seed),
		bounds:     cfg.Bounds(),
		quotas:     ComputeQuotas(cfg.TileTypes, cfg.Width*cfg.Height),
		background: indexOf(cfg.TileTypes, TilePlains),
		plains:     indexOf(cfg.TileTypes, TilePlains),
		forest:     indexOf(cfg.TileTypes, TileForest),
		mountain:   indexOf(cfg.TileTypes, TileMountains),
	}
	if g.background < 0 {
		g.background = 0
	}
	if err := g.checkForestQuota(); err != nil {
		return nil, err
	}
	g.m.Quotas = g.quotas
	return g, nil
}

// checkForestQuota rejects configurations where the forest rejection
// sampling could never finish.
func (g *generator) checkForestQuota() error {
	if g.forest < 0 {
		return nil
	}
	target := g.quotas[TileForest]
	if target <= 0 {
		return nil
	}
	if g.plains < 0 {
		return fmt.Errorf("%w: no Plains cells to convert", ErrForestQuota)
	}
	if target > g.bounds.Area() {
		return fmt.Errorf("%w: quota %d > %d cells", ErrForestQuota, target, g.bounds.Area())
	}
	return nil
}

func (g *generator) randomCell() hex.Coord {
	col := g.rng.Intn(g.bounds.Width)
	row := g.rng.Intn(g.bounds.Height)
	return hex.Coord{Col: col, Row: row}
}

// randomEdgeCell picks one of the four edges, then a position along it.
func (g *generator) randomEdgeCell() hex.Coord {
	w, h := g.bounds.Width, g.bounds.Height
	switch g.rng.Intn(4) {
	case 0: // top
		return hex.Coord{Col: g.rng.Intn(w), Row: 0}
	case 1: // bottom
		return hex.Coord{Col: g.rng.Intn(w), Row: h - 1}
	case 2: // left
		return hex.Coord{Col: 0, Row: g.rng.Intn(h)}
	default: // right
		return hex.Coord{Col: w - 1, Row: g.rng.Intn(h)}
	}
}

func (g *generator) neighbors(c hex.Coord) []hex.Coord {
	return hex.Neighbors(c, g.cfg.Orientation, g.bounds)
}

func (g *generator) isMountain(c hex.Coord) bool {
	return g.mountain >= 0 && g.m.get(c) == g.mountain
}

// fillBaseTerrain sets every cell to the background type, then converts
// randomly sampled background cells to forest until the quota is met.
func (g *generator) fillBaseTerrain() {
	for i := range g.m.cells {
		g.m.cells[i] = g.background
	}

	if g.forest < 0 {
		return
	}
	target := g.quotas[TileForest]
	placed := 0

	// Not reachable once checkForestQuota passed; stops a bad caller from spinning forever.
	limit := 64*g.bounds.Area() + 1024
	for attempts := 0; placed < target; attempts++ {
		if attempts >= limit {
			slog.Warn("forest fill hit attempt limit", "placed", placed, "target", target)
			break
		}
		c := g.randomCell()
		if g.m.get(c) == g.plains {
			g.m.set(c, g.forest)
			placed++
		}
	}
	slog.Debug("base terrain filled", "forest", placed)
}

// placeMountainClusters grows mountain clusters breadth-first from random
// seeds. Only Plains and Forest cells convert; rivers, earlier mountains,
// and a non-Plains background are never overwritten.
func (g *generator) placeMountainClusters() {
	if g.mountain < 0 {
		return
	}
	target := g.quotas[TileMountains]
	perCluster := max(1, target/g.cfg.MountainClusters)
	placed := 0

	for i := 0; i < g.cfg.MountainClusters && placed < target; i++ {
		start := g.randomCell()

		queue := []hex.Coord{start}
		visited := mapset.New[hex.Coord]()
		visited.Put(start)

		clusterPlaced := 0
		clusterTarget := min(perCluster, target-placed)

		for len(queue) > 0 && clusterPlaced < clusterTarget {
			current := queue[0]
			queue = queue[1:]

			if !g.convertible(current) {
				continue
			}
			g.m.set(current, g.mountain)
			clusterPlaced++
			placed++

			for _, n := range g.neighbors(current) {
				if !visited.Has(n) && g.rng.Float64() < mountainSpreadChance {
					visited.Put(n)
					queue = append(queue, n)
				}
			}
		}
	}
	slog.Debug("mountains placed", "placed", placed, "target", target)
}

// convertible reports whether a mountain may replace the cell at c.
func (g *generator) convertible(c hex.Coord) bool {
	v := g.m.get(c)
	return (g.plains >= 0 && v == g.plains) || (g.forest >= 0 && v == g.forest)
}

// generateRivers carves rivers with unweighted random walks from the map
// edge. A walk ends on reaching another edge, or at the step cap. Lake
// pockets branch off the channel with probability LakeChance.
func (g *generator) generateRivers() {
	river := indexOf(g.cfg.TileTypes, TileRiver)
	if river < 0 {
		return
	}
	target := g.quotas[TileRiver]
	maxLength := g.bounds.Width + g.bounds.Height
	placed := 0
	attempts := 0

	for placed < target && attempts < maxRiverAttempts {
		attempts++

		current := g.randomEdgeCell()
		var path []hex.Coord
		visited := mapset.New[hex.Coord]()

		for steps := 0; steps < maxLength && placed < target; {
			if !visited.Has(current) {
				visited.Put(current)
				if !g.isMountain(current) {
					path = append(path, current)
					if g.rng.Float64() < g.cfg.LakeChance && placed < target-2 {
						path = g.growLake(current, path, visited)
					}
				}
			}

			ns := g.neighbors(current)
			if len(ns) == 0 {
				break
			}
			current = ns[g.rng.Intn(len(ns))]
			steps++

			if g.bounds.IsEdge(current) && steps > minRiverSteps {
				break
			}
		}

		// Cells already carrying river still count towards the quota.
		for _, c := range path {
			if placed >= target {
				break
			}
			if !g.isMountain(c) {
				g.m.set(c, river)
				placed++
			}
		}
	}

	if placed < target {
		slog.Warn("river quota not met", "placed", placed, "target", target, "attempts", attempts)
	}
	slog.Debug("rivers placed", "placed", placed, "attempts", attempts)
}

// growLake appends a random subset of c's neighbors to the river path.
func (g *generator) growLake(c hex.Coord, path []hex.Coord, visited mapset.Set[hex.Coord]) []hex.Coord {
	for _, n := range g.neighbors(c) {
		if !visited.Has(n) && !g.isMountain(n) && g.rng.Float64() < lakeSpreadChance {
			path = append(path, n)
			visited.Put(n)
		}
	}
	return path
}

// placeAlienBase grows one contiguous alien base breadth-first from an
// interior seed. Every reached cell is overwritten, whatever it held.
func (g *generator) placeAlienBase() {
	alien := indexOf(g.cfg.TileTypes, TileAlienBase)
	if alien < 0 {
		return
	}
	target := g.quotas[TileAlienBase]
	if target <= 0 {
		return
	}

	col := g.interior(g.bounds.Width)
	row := g.interior(g.bounds.Height)
	start := hex.Coord{Col: col, Row: row}

	queue := []hex.Coord{start}
	visited := mapset.New[hex.Coord]()
	visited.Put(start)

	placed := 0
	for len(queue) > 0 && placed < target {
		current := queue[0]
		queue = queue[1:]
		g.m.set(current, alien)
		placed++

		for _, n := range g.neighbors(current) {
			if !visited.Has(n) {
				visited.Put(n)
				queue = append(queue, n)
			}
		}
	}
	slog.Debug("alien base placed", "seed", start, "placed", placed)
}

// interior draws a seed position from [2, max(3, n-2)), clamped into the grid.
func (g *generator) interior(n int) int {
	hi := max(3, n-2)
	v := 2 + g.rng.Intn(hi-2)
	return min(v, n-1)
}
