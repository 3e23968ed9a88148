package world

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexfront/internal/hex"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewSource(12345))
}

func weighted(pairs ...any) []TileType {
	var types []TileType
	for i := 0; i < len(pairs); i += 2 {
		types = append(types, TileType{Name: pairs[i].(string), SpawnWeight: pairs[i+1].(float64)})
	}
	return types
}

func TestComputeQuotas_Scenario(t *testing.T) {
	types := weighted(TilePlains, 5.0, TileForest, 2.0, TileMountains, 2.0, TileRiver, 1.0)
	q := ComputeQuotas(types, 100)

	assert.Equal(t, Quotas{TilePlains: 50, TileForest: 20, TileMountains: 20, TileRiver: 10}, q)
	assert.Equal(t, 100, q.Total())
}

func TestComputeQuotas_FirstTypeAbsorbsRounding(t *testing.T) {
	t.Run("Shortfall", func(t *testing.T) {
		q := ComputeQuotas(weighted("A", 1.0, "B", 1.0, "C", 1.0), 10)
		assert.Equal(t, Quotas{"A": 4, "B": 3, "C": 3}, q)
	})
	t.Run("TiesToEven", func(t *testing.T) {
		q := ComputeQuotas(weighted("A", 1.0, "B", 1.0), 5)
		assert.Equal(t, Quotas{"A": 3, "B": 2}, q)
	})
	t.Run("Overshoot", func(t *testing.T) {
		q := ComputeQuotas(weighted("A", 1.0, "B", 1.0), 7)
		assert.Equal(t, Quotas{"A": 3, "B": 4}, q)
	})
	t.Run("ZeroWeightFirst", func(t *testing.T) {
		q := ComputeQuotas(weighted("A", 0.0, "B", 1.0, "C", 1.0), 9)
		assert.Equal(t, 9, q.Total())
		assert.Equal(t, 1, q["A"])
	})
}

func TestComputeQuotas_AlwaysReconciles(t *testing.T) {
	rng := newTestRNG()
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(8)
		types := make([]TileType, n)
		for j := range types {
			types[j] = TileType{Name: string(rune('A' + j)), SpawnWeight: rng.Float64()}
		}
		total := 1 + rng.Intn(400)
		assert.Equal(t, total, ComputeQuotas(types, total).Total())
	}
}

func TestValidate(t *testing.T) {
	base := DefaultGenConfig()

	cases := []struct {
		name   string
		mutate func(*GenConfig)
		want   error
	}{
		{"ZeroWidth", func(c *GenConfig) { c.Width = 0 }, ErrGridSize},
		{"NegativeHeight", func(c *GenConfig) { c.Height = -3 }, ErrGridSize},
		{"NoTypes", func(c *GenConfig) { c.TileTypes = nil }, ErrNoTileTypes},
		{"AllZero", func(c *GenConfig) { c.TileTypes = weighted(TilePlains, 0.0, TileForest, 0.0) }, ErrZeroWeights},
		{"NoClusters", func(c *GenConfig) { c.MountainClusters = 0 }, ErrClusterCount},
		{"LakeChance", func(c *GenConfig) { c.LakeChance = 1.5 }, ErrLakeChance},
		{"MinDistance", func(c *GenConfig) { c.MinAlienBaseDistance = -1 }, ErrMinDistance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.TileTypes = DefaultTileTypes()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)

			_, err = Generate(cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.NoError(t, base.Validate())
}

func testConfigs() []GenConfig {
	var cfgs []GenConfig
	sizes := [][2]int{{1, 1}, {2, 2}, {3, 5}, {5, 5}, {10, 10}, {17, 9}, {30, 24}}
	for _, o := range []hex.Orientation{hex.FlatTopped, hex.PointyTopped} {
		for i, s := range sizes {
			cfg := DefaultGenConfig()
			cfg.Width, cfg.Height = s[0], s[1]
			cfg.Orientation = o
			cfg.Seed = int64(100 + i)
			cfgs = append(cfgs, cfg)
		}
	}
	return cfgs
}

func TestGenerate_EveryCellAssigned(t *testing.T) {
	for _, cfg := range testConfigs() {
		m, err := Generate(cfg)
		require.NoError(t, err)

		for row := 0; row < cfg.Height; row++ {
			for col := 0; col < cfg.Width; col++ {
				_, ok := m.TileAt(col, row)
				require.True(t, ok, "%v: cell (%d,%d) unassigned", m, col, row)
			}
		}

		total := 0
		for _, n := range m.Counts() {
			total += n
		}
		assert.Equal(t, cfg.Width*cfg.Height, total)
		assert.Equal(t, cfg.Width*cfg.Height, m.Quotas.Total())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, cfg := range testConfigs() {
		a, err := Generate(cfg)
		require.NoError(t, err)
		b, err := Generate(cfg)
		require.NoError(t, err)
		assert.Equal(t, a.cells, b.cells, "%v", a)
	}

	cfg := SmallTestConfig()
	a, err := GenerateFrom(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := GenerateFrom(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, a.cells, b.cells)
}

func TestGenerate_RandomSeedIsRecorded(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Seed = 0
	m, err := Generate(cfg)
	require.NoError(t, err)
	require.NotZero(t, m.Seed)

	cfg.Seed = m.Seed
	again, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, m.cells, again.cells)
}

func TestGenerate_AlienBaseContiguous(t *testing.T) {
	for _, cfg := range testConfigs() {
		m, err := Generate(cfg)
		require.NoError(t, err)

		bases := m.AlienBaseCells()
		want := min(m.Quotas[TileAlienBase], m.CellCount())
		if want <= 0 {
			assert.Empty(t, bases)
			continue
		}
		require.Len(t, bases, want, "%v", m)

		reached := map[hex.Coord]bool{bases[0]: true}
		queue := []hex.Coord{bases[0]}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range m.Neighbors(cur) {
				if !reached[n] && m.Is(n, TileAlienBase) {
					reached[n] = true
					queue = append(queue, n)
				}
			}
		}
		assert.Len(t, reached, len(bases), "%v: alien base is not connected", m)
	}
}

func TestFillBaseTerrain_MeetsForestQuota(t *testing.T) {
	cfg := DefaultGenConfig()
	g, err := newGenerator(cfg, 1, newTestRNG())
	require.NoError(t, err)

	g.fillBaseTerrain()

	counts := g.m.Counts()
	assert.Equal(t, g.quotas[TileForest], counts[TileForest])
	assert.Equal(t, cfg.Width*cfg.Height-g.quotas[TileForest], counts[TilePlains])
}

func TestFillBaseTerrain_FullForest(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height = 6, 6
	cfg.TileTypes = weighted(TilePlains, 0.0, TileForest, 1.0)

	m, err := GenerateFrom(cfg, newTestRNG())
	require.NoError(t, err)
	assert.Equal(t, 36, m.Counts()[TileForest])
}

func TestGenerate_ForestAsBackgroundIsRejected(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.TileTypes = weighted(TileForest, 1.0, TileRiver, 1.0)

	_, err := Generate(cfg)
	assert.ErrorIs(t, err, ErrForestQuota)
}

func TestPlaceMountainClusters_NeverOverwritesRiverOrMountain(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.MountainClusters = 4
	g, err := newGenerator(cfg, 1, newTestRNG())
	require.NoError(t, err)
	g.fillBaseTerrain()

	river := indexOf(cfg.TileTypes, TileRiver)
	protected := map[hex.Coord]int{}
	b := g.bounds
	for i := 0; i < b.Area(); i += 3 {
		c := b.At(i)
		kind := river
		if i%2 == 0 {
			kind = g.mountain
		}
		g.m.set(c, kind)
		protected[c] = kind
	}
	before := g.m.Counts()[TileMountains]

	g.placeMountainClusters()

	for c, kind := range protected {
		assert.Equal(t, kind, g.m.get(c), "cell %v was overwritten", c)
	}
	placed := g.m.Counts()[TileMountains] - before
	assert.LessOrEqual(t, placed, g.quotas[TileMountains])
}

func TestPlaceMountainClusters_RiverBackgroundUntouched(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height = 10, 10
	cfg.TileTypes = weighted(TileRiver, 1.0, TileMountains, 1.0)
	g, err := newGenerator(cfg, 1, newTestRNG())
	require.NoError(t, err)

	g.fillBaseTerrain()
	require.Equal(t, map[string]int{TileRiver: 100}, g.m.Counts())

	g.placeMountainClusters()
	assert.Equal(t, map[string]int{TileRiver: 100}, g.m.Counts())
}

func TestGenerate_ForestWithoutPlainsIsRejected(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.TileTypes = weighted(TileRiver, 1.0, TileForest, 1.0)

	_, err := Generate(cfg)
	assert.ErrorIs(t, err, ErrForestQuota)
}

func TestPlaceMountainClusters_ReachesQuotaOnOpenGround(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height = 30, 30
	cfg.MountainClusters = 1
	g, err := newGenerator(cfg, 1, newTestRNG())
	require.NoError(t, err)
	g.fillBaseTerrain()

	g.placeMountainClusters()

	got := g.m.Counts()[TileMountains]
	assert.Positive(t, got)
	assert.LessOrEqual(t, got, g.quotas[TileMountains])
}

func TestGenerateRivers_SkipMountains(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		cfg := DefaultGenConfig()
		cfg.LakeChance = 0.3
		g, err := newGenerator(cfg, seed, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		g.fillBaseTerrain()
		g.placeMountainClusters()
		mountains := g.m.Cells(TileMountains)

		g.generateRivers()

		for _, c := range mountains {
			assert.True(t, g.m.Is(c, TileMountains), "seed %d: mountain %v became %v", seed, c, g.m.get(c))
		}
		assert.LessOrEqual(t, g.m.Counts()[TileRiver], g.quotas[TileRiver])
		assert.Positive(t, g.m.Counts()[TileRiver])
	}
}

func TestPlaceAlienBase_OverwritesEverything(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height = 8, 8
	cfg.TileTypes = weighted(TilePlains, 0.0, TileMountains, 0.0, TileAlienBase, 1.0)
	g, err := newGenerator(cfg, 1, newTestRNG())
	require.NoError(t, err)
	for i := range g.m.cells {
		g.m.cells[i] = g.mountain
	}

	g.placeAlienBase()

	assert.Equal(t, 64, g.m.Counts()[TileAlienBase])
}

func TestGenerate_MissingTypesSkipPasses(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.TileTypes = weighted(TilePlains, 3.0, TileForest, 1.0)

	m, err := Generate(cfg)
	require.NoError(t, err)

	counts := m.Counts()
	assert.Equal(t, 400, counts[TilePlains]+counts[TileForest])
	assert.Empty(t, m.AlienBaseCells())
	_, ok := m.NearestAlienBaseDistance(hex.Coord{})
	assert.False(t, ok)
}

func TestGenerate_NoPlainsFallsBackToFirstType(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.TileTypes = weighted(TileMountains, 1.0, TileRiver, 1.0)

	m, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{TileMountains: 400}, m.Counts())
}

func TestTileAt_OutOfBounds(t *testing.T) {
	m, err := Generate(SmallTestConfig())
	require.NoError(t, err)

	_, ok := m.TileAt(-1, 0)
	assert.False(t, ok)
	_, ok = m.TileAt(0, m.Height)
	assert.False(t, ok)
	tile, ok := m.TileAt(0, 0)
	assert.True(t, ok)
	assert.NotEmpty(t, tile.Name)
}
