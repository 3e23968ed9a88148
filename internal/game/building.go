package game

import (
	"errors"
	"fmt"
	"strings"
)

// BuildingKind tags a building variant. Numbers come from buildingTable.
type BuildingKind uint8

const (
	BuildingFactory BuildingKind = iota
	BuildingResearchLab
	BuildingFloodBarrier
)

// BuildingStats is the static behavior of a building kind.
type BuildingStats struct {
	Name            string `json:"name"`
	Cost            int    `json:"cost"`
	ProductionBonus int    `json:"production_bonus"`
	ScienceBonus    int    `json:"science_bonus"`
	StressOnBuild   int    `json:"stress_on_build"`
	StressPerTurn   int    `json:"stress_per_turn"`
}

var buildingTable = [...]BuildingStats{
	BuildingFactory:      {Name: "Factory", Cost: 20, ProductionBonus: 4, StressPerTurn: 2},
	BuildingResearchLab:  {Name: "Research Lab", Cost: 15, ScienceBonus: 4},
	BuildingFloodBarrier: {Name: "Flood Barrier", Cost: 10, StressOnBuild: 1},
}

var ErrUnknownBuilding = errors.New("unknown building kind")

// Stats returns the behavior row for the kind.
func (k BuildingKind) Stats() BuildingStats {
	if int(k) < len(buildingTable) {
		return buildingTable[k]
	}
	return BuildingStats{Name: "Unknown"}
}

func (k BuildingKind) String() string {
	return k.Stats().Name
}

// ParseBuildingKind accepts the display name ("Research Lab") or a compact
// form without spaces ("ResearchLab"), case-sensitive.
func ParseBuildingKind(name string) (BuildingKind, error) {
	for k, st := range buildingTable {
		if st.Name == name || strings.ReplaceAll(st.Name, " ", "") == name {
			return BuildingKind(k), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownBuilding)
}

func (k BuildingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BuildingKind) UnmarshalText(b []byte) error {
	v, err := ParseBuildingKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
