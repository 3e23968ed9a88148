package steward

import (
	"log/slog"
	"slices"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/world"
)

// Step actions.
const (
	ActionSettler = "settler"
	ActionCapital = "capital"
	ActionMove    = "move"
	ActionBuild   = "build"
	ActionTurn    = "turn"
)

// buildOrder is the preference order for city buildings.
var buildOrder = []game.BuildingKind{
	game.BuildingResearchLab,
	game.BuildingFactory,
	game.BuildingFloodBarrier,
}

// Step is one admin call in a plan.
type Step struct {
	Action    string    `json:"action"`
	UnitID    uint64    `json:"unit_id,omitempty"`
	CityID    uint64    `json:"city_id,omitempty"`
	Target    hex.Coord `json:"target,omitempty"`
	Building  string    `json:"building,omitempty"`
	Rationale string    `json:"rationale"`
}

// Decide builds the plan for one cycle. Every plan ends with a turn.
func Decide(snap *Snapshot, h *Health, mem *Memory) []Step {
	var plan []Step

	if len(snap.Units) == 0 && len(snap.Cities) == 0 {
		plan = append(plan, Step{Action: ActionSettler, Rationale: "no units or cities"})
	}

	for _, u := range snap.Units {
		if u.Kind != game.UnitSettler.String() || u.BuildingCapital {
			continue
		}
		if len(snap.Cities) == 0 && !mem.Rejected(u.Position) {
			plan = append(plan, Step{Action: ActionCapital, UnitID: u.ID, Rationale: "try founding here"})
			continue
		}
		if opt, ok := bestMove(snap.Options[u.ID], mem); ok && u.RemainingMovement > 0 {
			plan = append(plan, Step{
				Action:    ActionMove,
				UnitID:    u.ID,
				Target:    opt.To,
				Rationale: "move away from the alien base",
			})
		}
	}

	for _, c := range snap.Cities {
		if kind, ok := nextBuilding(c, h); ok {
			plan = append(plan, Step{
				Action:    ActionBuild,
				CityID:    c.ID,
				Building:  kind.String(),
				Rationale: "affordable",
			})
		}
	}

	plan = append(plan, Step{Action: ActionTurn, Rationale: "end of cycle"})
	return plan
}

// bestMove prefers Plains, then the largest distance from the alien base,
// skipping cells where a capital was already rejected.
func bestMove(opts []MoveOption, mem *Memory) (MoveOption, bool) {
	var best MoveOption
	found := false
	for _, o := range opts {
		if mem.Rejected(o.To) {
			continue
		}
		if !found || better(o, best) {
			best, found = o, true
		}
	}
	return best, found
}

func better(a, b MoveOption) bool {
	aPlains, bPlains := a.Type == world.TilePlains, b.Type == world.TilePlains
	if aPlains != bPlains {
		return aPlains
	}
	return a.AlienBaseDistance > b.AlienBaseDistance
}

// nextBuilding returns the first affordable building the city lacks.
func nextBuilding(c CityInfo, h *Health) (game.BuildingKind, bool) {
	for _, kind := range buildOrder {
		st := kind.Stats()
		if slices.Contains(c.Buildings, st.Name) {
			continue
		}
		if st.StressPerTurn > 0 && !h.allowsPolluters() {
			slog.Debug("steward skipping polluter", "city", c.Name, "building", st.Name, "level", h.CrisisLevel)
			continue
		}
		if c.Production >= st.Cost {
			return kind, true
		}
		// Save up for the preferred building.
		return 0, false
	}
	return 0, false
}
