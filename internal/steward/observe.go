// Package steward implements a rule-based player for a running session.
// It observes the session via the public API, decides on a plan of steps,
// and acts via the admin endpoints.
package steward

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/hex"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status Status     `json:"status"`
	Units  []UnitInfo `json:"units"`
	Cities []CityInfo `json:"cities"`

	// Options scores each settler's valid moves by distance from the alien base.
	Options map[uint64][]MoveOption `json:"options"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	SessionID   string         `json:"session_id"`
	Turn        int            `json:"turn"`
	EdenStress  int            `json:"eden_stress"`
	Seed        int64          `json:"seed"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Orientation string         `json:"orientation"`
	Tiles       map[string]int `json:"tiles"`
	Units       int            `json:"units"`
	Cities      int            `json:"cities"`
}

// UnitInfo mirrors items from GET /api/v1/units.
type UnitInfo struct {
	ID                uint64      `json:"id"`
	Kind              string      `json:"kind"`
	Position          hex.Coord   `json:"position"`
	RemainingMovement int         `json:"remaining_movement"`
	BuildingCapital   bool        `json:"building_capital"`
	ValidMoves        []hex.Coord `json:"valid_moves"`
}

// CityInfo mirrors items from GET /api/v1/cities.
type CityInfo struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Position        hex.Coord `json:"position"`
	Production      int       `json:"production"`
	TotalProduction int       `json:"total_production"`
	TotalScience    int       `json:"total_science"`
	Buildings       []string  `json:"buildings"`
}

// TileInfo mirrors the subset of GET /api/v1/map/:col/:row the steward reads.
type TileInfo struct {
	Type              string `json:"type"`
	AlienBaseDistance *int   `json:"alien_base_distance"`
}

// MoveOption is a candidate step for a settler.
type MoveOption struct {
	To                hex.Coord `json:"to"`
	Type              string    `json:"type"`
	AlienBaseDistance int       `json:"alien_base_distance"` // -1 when the map has no alien base
}

// Observer fetches session state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status, units and cities, then scores settler moves.
func (o *Observer) Observe() (*Snapshot, error) {
	snap := &Snapshot{Options: make(map[uint64][]MoveOption)}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/units", &snap.Units); err != nil {
		return nil, fmt.Errorf("fetch units: %w", err)
	}
	if err := o.fetchJSON("/api/v1/cities", &snap.Cities); err != nil {
		return nil, fmt.Errorf("fetch cities: %w", err)
	}

	for _, u := range snap.Units {
		if u.Kind != game.UnitSettler.String() || u.BuildingCapital {
			continue
		}
		for _, c := range u.ValidMoves {
			var tile TileInfo
			if err := o.fetchJSON(fmt.Sprintf("/api/v1/map/%d/%d", c.Col, c.Row), &tile); err != nil {
				return nil, fmt.Errorf("fetch tile %v: %w", c, err)
			}
			opt := MoveOption{To: c, Type: tile.Type, AlienBaseDistance: -1}
			if tile.AlienBaseDistance != nil {
				opt.AlienBaseDistance = *tile.AlienBaseDistance
			}
			snap.Options[u.ID] = append(snap.Options[u.ID], opt)
		}
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
