// Command hexfront generates a hex map and serves a turn-based session over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexfront/internal/api"
	"github.com/talgya/hexfront/internal/config"
	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/persistence"
	"github.com/talgya/hexfront/internal/snapshot"
	"github.com/talgya/hexfront/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path or URL of hexfront.yaml")
	port := flag.Int("port", 8080, "HTTP port")
	dbPath := flag.String("db", "data/hexfront.db", "SQLite database path")
	seed := flag.Int64("seed", 0, "map seed (0 = random)")
	width := flag.Int("width", 20, "map width in cells")
	height := flag.Int("height", 20, "map height in cells")
	pointy := flag.Bool("pointy", false, "use pointy-topped hexes")
	restore := flag.String("restore", "", "start from a snapshot file instead of the database")
	printMap := flag.Bool("print-map", false, "print the map as letters and exit")
	turnInterval := flag.Duration("turn-interval", 0, "end a turn automatically at this interval (0 = admin only)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Hexfront starting")

	// ── Configuration ─────────────────────────────────────────────────
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fromFile, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cfg := config.DefaultConfig()
	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.Map.Seed = *seed
	cfg.Map.Width = *width
	cfg.Map.Height = *height
	if *pointy {
		cfg.Orientation = "pointy"
	}
	config.Merge(cfg, fromFile, explicit)
	if err := cfg.Finish(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate Session ─────────────────────────────────────
	var session *game.Session
	switch {
	case *restore != "":
		session, err = fromSnapshot(*restore, cfg)
	case db.HasSessionState():
		session, err = fromDatabase(db, cfg)
	default:
		session, err = freshSession(cfg)
	}
	if err != nil {
		slog.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	m := session.Map
	cfg.Map.Seed = m.Seed
	for name, n := range m.Counts() {
		slog.Info("tiles", "type", name, "count", humanize.Comma(int64(n)))
	}
	slog.Info("session ready",
		"id", session.ID,
		"seed", m.Seed,
		"size", fmt.Sprintf("%dx%d", m.Width, m.Height),
		"orientation", m.Orientation,
		"cells", humanize.Comma(int64(m.CellCount())),
		"turn", session.Turn(),
		"units", len(session.Units()),
		"cities", len(session.Cities()),
	)

	if *printMap {
		fmt.Print(m.ASCII())
		return
	}

	if err := db.SaveSession(session); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	session.OnTurnEnd = func(turn int) {
		if err := db.SaveSession(session); err != nil {
			slog.Error("turn save failed", "turn", turn, "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn(config.AdminKeyEnv + " not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Session:     session,
		Gen:         cfg.Map,
		DB:          db,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		SnapshotDir: cfg.SnapshotDir,
		MapLimit:    cfg.MapLimit,
		MapWindow:   time.Duration(cfg.MapWindow) * time.Second,
	}
	srv := apiServer.Start()

	// ── Turn Clock ────────────────────────────────────────────────────
	clockCtx, stopClock := context.WithCancel(context.Background())
	defer stopClock()
	if *turnInterval > 0 {
		go game.NewClock(session, *turnInterval).Run(clockCtx)
	}

	fmt.Printf("\nHexfront is up: %s cells, turn %d.\n", humanize.Comma(int64(m.CellCount())), session.Turn())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop.")

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	stopClock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	slog.Info("final save...")
	if err := db.SaveSession(session); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Hexfront stopped. Session saved.")
}

// freshSession generates a new map and places the first settler.
func freshSession(cfg *config.Config) (*game.Session, error) {
	slog.Info("no saved session found, generating new map...")
	m, err := world.Generate(cfg.Map)
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}
	s := game.NewSession(m, cfg.Map.MinAlienBaseDistance, rand.New(rand.NewSource(m.Seed+1)))
	u, err := s.SpawnSettler()
	if err != nil {
		return nil, fmt.Errorf("spawn settler: %w", err)
	}
	slog.Info("settler placed", "unit", u.ID, "position", u.Position)
	return s, nil
}

// fromDatabase regenerates the saved map from its stored generation config
// and loads the session state on top of it. The config file's map settings
// do not apply to a saved session.
func fromDatabase(db *persistence.DB, cfg *config.Config) (*game.Session, error) {
	slog.Info("found saved session, loading...")
	m, err := db.LoadMap()
	if err != nil {
		return nil, err
	}
	cfg.Map = m.Config()
	return db.LoadSession(m, cfg.Map.MinAlienBaseDistance, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// fromSnapshot rebuilds the session from a compressed snapshot file.
func fromSnapshot(path string, cfg *config.Config) (*game.Session, error) {
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	slog.Info("restoring snapshot", "path", path, "session", h.SessionID, "turn", h.Turn,
		"taken", humanize.Time(h.CreatedAt))
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	cfg.Map = snap.Gen
	cfg.Map.Seed = snap.Seed
	return snap.Restore(rand.New(rand.NewSource(time.Now().UnixNano())))
}
