package steward

import (
	"slices"

	"github.com/talgya/hexfront/internal/game"
)

// Crisis levels, worst first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelHealthy  = "HEALTHY"
)

// Stress thresholds for the crisis levels.
const (
	criticalStress = 30
	warningStress  = 20
	lookahead      = 5 // turns
)

// Health holds derived signals computed from a Snapshot before deciding.
type Health struct {
	EdenStress    int
	StressPerTurn int // from Factories and other polluting buildings
	Projected     int // stress after lookahead turns
	Cities        int
	IdleSettlers  int
	CrisisLevel   string
}

// Triage computes a Health from the snapshot's data.
func Triage(snap *Snapshot) *Health {
	h := &Health{
		EdenStress: snap.Status.EdenStress,
		Cities:     len(snap.Cities),
	}

	for _, c := range snap.Cities {
		for _, name := range c.Buildings {
			kind, err := game.ParseBuildingKind(name)
			if err != nil {
				continue
			}
			h.StressPerTurn += kind.Stats().StressPerTurn
		}
	}
	for _, u := range snap.Units {
		if u.Kind == game.UnitSettler.String() && !u.BuildingCapital {
			h.IdleSettlers++
		}
	}
	h.Projected = h.EdenStress + lookahead*h.StressPerTurn

	switch {
	case h.EdenStress >= criticalStress:
		h.CrisisLevel = LevelCritical
	case h.EdenStress >= warningStress || h.Projected >= criticalStress:
		h.CrisisLevel = LevelWarning
	case h.StressPerTurn > 0:
		h.CrisisLevel = LevelWatch
	default:
		h.CrisisLevel = LevelHealthy
	}
	return h
}

// allowsPolluters reports whether new stress-per-turn buildings are acceptable.
func (h *Health) allowsPolluters() bool {
	return slices.Contains([]string{LevelHealthy, LevelWatch}, h.CrisisLevel)
}
