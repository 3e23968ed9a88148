// Package api provides the HTTP API for the map and the game session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/persistence"
	"github.com/talgya/hexfront/internal/snapshot"
	"github.com/talgya/hexfront/internal/world"
)

const maxStreamConns = 8

// Server serves the session over HTTP.
type Server struct {
	Session     *game.Session
	Gen         world.GenConfig // config the map was generated from
	DB          *persistence.DB // optional
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	SnapshotDir string // Empty = no snapshot files

	MapLimit  int
	MapWindow time.Duration

	started     time.Time
	relief      []float64
	upgrader    websocket.Upgrader
	streamConns int32
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.relief == nil {
		s.relief = world.Relief(s.Session.Map, s.Session.Map.Seed)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	limit, window := s.MapLimit, s.MapWindow
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	mapLimiter := NewRateLimiter(limit, window)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/map", RateLimitMiddleware(mapLimiter, s.handleBulkMap))
	mux.HandleFunc("/api/v1/map/", s.handleTileDetail)
	mux.HandleFunc("/api/v1/spawn", s.handleSpawn)
	mux.HandleFunc("/api/v1/units", s.handleUnits)
	mux.HandleFunc("/api/v1/cities", s.handleCities)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/turn", s.adminOnly(s.handleTurn))
	mux.HandleFunc("/api/v1/move", s.adminOnly(s.handleMove))
	mux.HandleFunc("/api/v1/capital", s.adminOnly(s.handleCapital))
	mux.HandleFunc("/api/v1/build", s.adminOnly(s.handleBuild))
	mux.HandleFunc("/api/v1/settler", s.adminOnly(s.handleSettler))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server
// can be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth and POST.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXFRONT_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := s.Session.Map
	writeJSON(w, map[string]any{
		"name":        "Hexfront",
		"session_id":  s.Session.ID,
		"turn":        s.Session.Turn(),
		"eden_stress": s.Session.EdenStress(),
		"seed":        m.Seed,
		"width":       m.Width,
		"height":      m.Height,
		"orientation": m.Orientation.String(),
		"tiles":       m.Counts(),
		"units":       len(s.Session.Units()),
		"cities":      len(s.Session.Cities()),
		"started":     humanize.Time(s.started),
	})
}

type tileEntry struct {
	Col    int     `json:"col"`
	Row    int     `json:"row"`
	Type   string  `json:"type"`
	Height float64 `json:"height"`
}

// handleBulkMap returns every tile for the renderer.
func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	m := s.Session.Map
	tiles := make([]tileEntry, 0, m.CellCount())
	for i, c := range m.Bounds().Cells() {
		t, ok := m.TileAt(c.Col, c.Row)
		if !ok {
			continue
		}
		tiles = append(tiles, tileEntry{Col: c.Col, Row: c.Row, Type: t.Name, Height: s.relief[i]})
	}

	writeJSON(w, map[string]any{
		"width":       m.Width,
		"height":      m.Height,
		"orientation": m.Orientation.String(),
		"seed":        m.Seed,
		"tile_types":  m.Types,
		"tiles":       tiles,
		"units":       s.Session.Units(),
		"cities":      s.Session.Cities(),
	})
}

// handleTileDetail serves GET /api/v1/map/:col/:row.
func (s *Server) handleTileDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api/v1/map/:col/:row → [0]="api" [1]="v1" [2]="map" [3]=col [4]=row
	if len(parts) != 5 {
		http.Error(w, "usage: /api/v1/map/:col/:row", http.StatusBadRequest)
		return
	}
	col, err1 := strconv.Atoi(parts[3])
	row, err2 := strconv.Atoi(parts[4])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	m := s.Session.Map
	t, ok := m.TileAt(col, row)
	if !ok {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	c := hex.Coord{Col: col, Row: row}

	type neighbor struct {
		Col  int    `json:"col"`
		Row  int    `json:"row"`
		Type string `json:"type"`
	}
	neighbors := make([]neighbor, 0, 6)
	for _, n := range m.Neighbors(c) {
		nt, _ := m.TileAt(n.Col, n.Row)
		neighbors = append(neighbors, neighbor{Col: n.Col, Row: n.Row, Type: nt.Name})
	}

	var units []game.Unit
	for _, u := range s.Session.Units() {
		if u.Position == c {
			units = append(units, u)
		}
	}

	detail := map[string]any{
		"col":       col,
		"row":       row,
		"type":      t.Name,
		"material":  t.Material,
		"height":    s.relief[m.Bounds().Index(c)],
		"cube":      hex.ToCube(c, m.Orientation),
		"neighbors": neighbors,
		"units":     units,
	}
	if d, ok := m.NearestAlienBaseDistance(c); ok {
		detail["alien_base_distance"] = d
	}
	for _, city := range s.Session.Cities() {
		if city.Position == c {
			detail["city"] = city
		}
	}
	writeJSON(w, detail)
}

// handleSpawn lists the Plains cells far enough from the alien base.
func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	minDist := s.Session.MinAlienBaseDistance
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "min must be a non-negative integer", http.StatusBadRequest)
			return
		}
		minDist = n
	}
	candidates := s.Session.Map.SpawnCandidates(minDist)
	if candidates == nil {
		candidates = []hex.Coord{}
	}
	writeJSON(w, map[string]any{
		"min_distance": minDist,
		"candidates":   candidates,
	})
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	type unitSummary struct {
		game.Unit
		ValidMoves []hex.Coord `json:"valid_moves"`
	}
	units := s.Session.Units()
	out := make([]unitSummary, 0, len(units))
	for _, u := range units {
		out = append(out, unitSummary{Unit: u, ValidMoves: s.Session.ValidMoves(u.ID)})
	}
	writeJSON(w, out)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	type citySummary struct {
		game.City
		TotalProduction int         `json:"total_production"`
		TotalScience    int         `json:"total_science"`
		Territory       []hex.Coord `json:"territory"`
	}
	cities := s.Session.Cities()
	out := make([]citySummary, 0, len(cities))
	for _, c := range cities {
		territory, _ := s.Session.Territory(c.ID)
		out = append(out, citySummary{
			City:            c,
			TotalProduction: c.TotalProduction(),
			TotalScience:    c.TotalScience(),
			Territory:       territory,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Session.Events(0)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []game.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []game.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	turn := s.Session.EndTurn()
	writeJSON(w, map[string]any{"turn": turn})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID uint64 `json:"unit_id"`
		Col    int    `json:"col"`
		Row    int    `json:"row"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	u, err := s.Session.MoveUnit(game.UnitID(req.UnitID), hex.Coord{Col: req.Col, Row: req.Row})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, u)
}

func (s *Server) handleCapital(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID uint64 `json:"unit_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.Session.StartCapital(game.UnitID(req.UnitID)); err != nil {
		writeGameError(w, err)
		return
	}
	u, _ := s.Session.Unit(game.UnitID(req.UnitID))
	writeJSON(w, u)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CityID   uint64 `json:"city_id"`
		Building string `json:"building"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	kind, err := game.ParseBuildingKind(req.Building)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := s.Session.Build(game.CityID(req.CityID), kind)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleSettler(w http.ResponseWriter, r *http.Request) {
	u, err := s.Session.SpawnSettler()
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, u)
}

// handleSnapshot saves to the database and, when configured, writes a
// compressed snapshot file.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil && s.SnapshotDir == "" {
		http.Error(w, "persistence not available", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"turn":    s.Session.Turn(),
		"message": "snapshot saved",
	}
	if s.DB != nil {
		if err := s.DB.SaveSession(s.Session); err != nil {
			slog.Error("snapshot save failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
	}
	if s.SnapshotDir != "" {
		snap := snapshot.Capture(s.Session, s.Gen)
		name := fmt.Sprintf("%s-turn%04d.zst", snap.Header.SessionID, snap.Header.Turn)
		path := filepath.Join(s.SnapshotDir, name)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			slog.Error("snapshot write failed", "path", path, "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		resp["path"] = path
	}
	writeJSON(w, resp)
}

// writeGameError maps session errors onto HTTP status codes.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusConflict
	switch {
	case errors.Is(err, game.ErrUnknownUnit), errors.Is(err, game.ErrUnknownCity):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrUnknownBuilding):
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// countStreamConn reserves a stream slot; the caller must release it.
func (s *Server) countStreamConn() bool {
	if atomic.AddInt32(&s.streamConns, 1) > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		return false
	}
	return true
}
