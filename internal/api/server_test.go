package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/persistence"
	"github.com/talgya/hexfront/internal/world"
)

const (
	testAdminKey = "test-key"
	testLayout   = `
PPPPP
PPMPP
PPPPP
PPPPA
PPPPP
`
)

func newTestServer(t *testing.T, configure func(*Server)) (*httptest.Server, *Server) {
	t.Helper()
	gen := world.DefaultGenConfig()
	m, err := world.ParseASCII(gen, testLayout)
	require.NoError(t, err)

	s := &Server{
		Session:  game.NewSession(m, 2, rand.New(rand.NewSource(1))),
		Gen:      gen,
		AdminKey: testAdminKey,
	}
	if configure != nil {
		configure(s)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func post(t *testing.T, ts *httptest.Server, path, key string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestStatus(t *testing.T) {
	ts, s := newTestServer(t, nil)
	var status map[string]any
	resp := getJSON(t, ts, "/api/v1/status", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, s.Session.ID, status["session_id"])
	assert.EqualValues(t, 1, status["turn"])
	assert.Equal(t, "flat", status["orientation"])
}

func TestBulkMap(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var body struct {
		Width int         `json:"width"`
		Tiles []tileEntry `json:"tiles"`
	}
	resp := getJSON(t, ts, "/api/v1/map", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, body.Width)
	require.Len(t, body.Tiles, 25)
	assert.Equal(t, world.TileMountains, body.Tiles[7].Type)
	for _, tile := range body.Tiles {
		assert.Greater(t, tile.Height, 0.0)
	}
}

func TestBulkMap_RateLimited(t *testing.T) {
	ts, _ := newTestServer(t, func(s *Server) {
		s.MapLimit = 2
		s.MapWindow = time.Hour
	})
	for i := 0; i < 2; i++ {
		resp := getJSON(t, ts, "/api/v1/map", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := getJSON(t, ts, "/api/v1/map", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestTileDetail(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var detail map[string]any
	resp := getJSON(t, ts, "/api/v1/map/3/3", &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, world.TilePlains, detail["type"])
	assert.EqualValues(t, 1, detail["alien_base_distance"])
	assert.Len(t, detail["neighbors"], 6)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/v1/map/9/9", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/v1/map/a/b", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/v1/map/1", nil).StatusCode)
}

func TestSpawn(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var body struct {
		Candidates []hex.Coord `json:"candidates"`
	}
	resp := getJSON(t, ts, "/api/v1/spawn?min=100", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Candidates)

	resp = getJSON(t, ts, "/api/v1/spawn?min=1", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Candidates, 23)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/v1/spawn?min=-1", nil).StatusCode)
}

func TestAdminAuth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/turn", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/turn", "wrong", nil).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, ts, "/api/v1/turn", nil).StatusCode)

	resp := post(t, ts, "/api/v1/turn", testAdminKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body["turn"])

	closed, _ := newTestServer(t, func(s *Server) { s.AdminKey = "" })
	assert.Equal(t, http.StatusForbidden, post(t, closed, "/api/v1/turn", "", nil).StatusCode)
}

func TestMove(t *testing.T) {
	ts, s := newTestServer(t, nil)
	u, err := s.Session.SpawnUnit(game.UnitScout, hex.Coord{Col: 1, Row: 1})
	require.NoError(t, err)

	resp := post(t, ts, "/api/v1/move", testAdminKey, map[string]any{"unit_id": u.ID, "col": 1, "row": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var moved game.Unit
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&moved))
	assert.Equal(t, hex.Coord{Col: 1, Row: 2}, moved.Position)
	assert.Equal(t, game.UnitScout, moved.Kind)

	resp = post(t, ts, "/api/v1/move", testAdminKey, map[string]any{"unit_id": u.ID, "col": 2, "row": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, ts, "/api/v1/move", testAdminKey, map[string]any{"unit_id": 404, "col": 0, "row": 0})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/move", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestCapitalAndBuild(t *testing.T) {
	ts, s := newTestServer(t, nil)
	u, err := s.Session.SpawnUnit(game.UnitSettler, hex.Coord{Col: 1, Row: 3})
	require.NoError(t, err)

	resp := post(t, ts, "/api/v1/capital", testAdminKey, map[string]any{"unit_id": u.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, ts, "/api/v1/capital", testAdminKey, map[string]any{"unit_id": u.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	post(t, ts, "/api/v1/turn", testAdminKey, nil)

	var cities []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/cities", &cities).StatusCode)
	require.Len(t, cities, 1)
	assert.Equal(t, "Capital", cities[0]["name"])
	assert.Len(t, cities[0]["territory"], 7)
	cityID := cities[0]["id"]

	resp = post(t, ts, "/api/v1/build", testAdminKey, map[string]any{"city_id": cityID, "building": "Factory"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = post(t, ts, "/api/v1/build", testAdminKey, map[string]any{"city_id": cityID, "building": "Castle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	post(t, ts, "/api/v1/turn", testAdminKey, nil)
	post(t, ts, "/api/v1/turn", testAdminKey, nil)
	resp = post(t, ts, "/api/v1/build", testAdminKey, map[string]any{"city_id": cityID, "building": "FloodBarrier"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.Session.EdenStress())
}

func TestSettlerAndLists(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp := post(t, ts, "/api/v1/settler", testAdminKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var units []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/units", &units).StatusCode)
	require.Len(t, units, 1)
	assert.Equal(t, "Settler", units[0]["kind"])
	assert.NotEmpty(t, units[0]["valid_moves"])

	var events []game.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/events?category=unit", &events).StatusCode)
	require.Len(t, events, 1)
	assert.Equal(t, "unit", events[0].Category)
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	db, err := persistence.Open(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts, _ := newTestServer(t, func(s *Server) {
		s.DB = db
		s.SnapshotDir = filepath.Join(dir, "snaps")
	})
	resp := post(t, ts, "/api/v1/snapshot", testAdminKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	path, _ := body["path"].(string)
	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.True(t, db.HasSessionState())

	none, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, none, "/api/v1/snapshot", testAdminKey, nil).StatusCode)
}

func TestStream(t *testing.T) {
	ts, s := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() game.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var e game.Event
		require.NoError(t, json.Unmarshal(msg, &e))
		return e
	}

	assert.Equal(t, "Turn 1 started", read().Description)

	// The subscription is registered before catch-up is sent.
	s.Session.EndTurn()
	assert.Equal(t, "Turn 1 ending", read().Description)
	assert.Equal(t, "Turn 2 started", read().Description)
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
