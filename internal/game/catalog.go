package game

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// UnitType identifies the occupant of a board cell. The zero value doubles as
// "empty" on the wire, so masked cells and vacant cells are indistinguishable
// to clients.
type UnitType uint8

const (
	UnitEmpty UnitType = iota
	UnitInfantry
	UnitTank
	UnitBomber
	UnitFighter
	UnitCity
	UnitMissileSilo
	UnitHeadquarters

	unitTypeCount
)

var unitTypeNames = map[UnitType]string{
	UnitEmpty:        "empty",
	UnitInfantry:     "infantry",
	UnitTank:         "tank",
	UnitBomber:       "bomber",
	UnitFighter:      "fighter",
	UnitCity:         "city",
	UnitMissileSilo:  "missile_silo",
	UnitHeadquarters: "headquarters",
}

func (t UnitType) String() string {
	if name, ok := unitTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unit(%d)", uint8(t))
}

// ParseUnitType resolves a designer-facing unit name.
func ParseUnitType(name string) (UnitType, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for t, n := range unitTypeNames {
		if n == needle {
			return t, true
		}
	}
	return UnitEmpty, false
}

// UnitStats holds the tunables consulted by placement, movement, combat and
// visibility. Distances are Manhattan throughout.
type UnitStats struct {
	Cost        int
	Strength    int
	MoveRange   int
	SightRadius int
	Immobile    bool
	Placeable   bool
}

// Catalog is the resolved unit-stat table for one game instance.
type Catalog struct {
	stats [unitTypeCount]UnitStats
}

// Stats returns the tunables for a unit type. Unknown types resolve to the
// zero stats, which reject every placement and move.
func (c *Catalog) Stats(t UnitType) UnitStats {
	if c == nil || t >= unitTypeCount {
		return UnitStats{}
	}
	return c.stats[t]
}

// DefaultCatalog returns the shipped stat table. Combat is resolved by flat
// strength comparison with attacker winning ties; City and Headquarters have
// strength zero and are therefore always captured when reached.
func DefaultCatalog() *Catalog {
	c := &Catalog{}
	c.stats[UnitInfantry] = UnitStats{Cost: 3, Strength: 2, MoveRange: 1, SightRadius: 2, Placeable: true}
	c.stats[UnitTank] = UnitStats{Cost: 6, Strength: 4, MoveRange: 2, SightRadius: 2, Placeable: true}
	c.stats[UnitBomber] = UnitStats{Cost: 8, Strength: 3, MoveRange: 3, SightRadius: 1, Placeable: true}
	c.stats[UnitFighter] = UnitStats{Cost: 7, Strength: 3, MoveRange: 4, SightRadius: 3, Placeable: true}
	c.stats[UnitCity] = UnitStats{Cost: 10, Strength: 0, SightRadius: 2, Immobile: true, Placeable: true}
	c.stats[UnitMissileSilo] = UnitStats{Cost: 9, Strength: 1, SightRadius: 4, Immobile: true, Placeable: true}
	c.stats[UnitHeadquarters] = UnitStats{Strength: 0, SightRadius: 3, Immobile: true}
	return c
}

// UnitDefinition is a single designer-authored catalog override as it appears
// on disk. The struct is exported so tooling (cmd/unitschema) can reflect the
// configuration contract shared with designers.
type UnitDefinition struct {
	Type        string `json:"type" jsonschema:"title=Unit type,description=Unit name the override applies to.,pattern=^[a-z_]+$,minLength=1,required"`
	Cost        *int   `json:"cost,omitempty" jsonschema:"title=Command point cost,minimum=0"`
	Strength    *int   `json:"strength,omitempty" jsonschema:"title=Combat strength,description=Flat strength compared on capture; attacker wins ties.,minimum=0"`
	MoveRange   *int   `json:"moveRange,omitempty" jsonschema:"title=Movement range,description=Maximum Manhattan distance per move.,minimum=0"`
	SightRadius *int   `json:"sightRadius,omitempty" jsonschema:"title=Sight radius,description=Manhattan fog-of-war radius.,minimum=0"`
	Immobile    *bool  `json:"immobile,omitempty" jsonschema:"title=Immobile,description=Immobile units are capture targets and never move."`
	Placeable   *bool  `json:"placeable,omitempty" jsonschema:"title=Placeable,description=Whether players may place this unit with command points."`
}

// CatalogFile is the canonical on-disk format: an array of overrides applied
// on top of the default table.
type CatalogFile []UnitDefinition

// LoadCatalog reads designer overrides and applies them to the default stat
// table. Unknown unit names and negative values are rejected.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file CatalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	catalog := DefaultCatalog()
	seen := make(map[UnitType]bool, len(file))
	for i, def := range file {
		unit, ok := ParseUnitType(def.Type)
		if !ok || unit == UnitEmpty {
			return nil, fmt.Errorf("catalog entry %d: unknown unit type %q", i, def.Type)
		}
		if seen[unit] {
			return nil, fmt.Errorf("catalog entry %d: duplicate unit type %q", i, def.Type)
		}
		seen[unit] = true
		stats := catalog.stats[unit]
		if def.Cost != nil {
			stats.Cost = *def.Cost
		}
		if def.Strength != nil {
			stats.Strength = *def.Strength
		}
		if def.MoveRange != nil {
			stats.MoveRange = *def.MoveRange
		}
		if def.SightRadius != nil {
			stats.SightRadius = *def.SightRadius
		}
		if def.Immobile != nil {
			stats.Immobile = *def.Immobile
		}
		if def.Placeable != nil {
			stats.Placeable = *def.Placeable
		}
		if stats.Cost < 0 || stats.Strength < 0 || stats.MoveRange < 0 || stats.SightRadius < 0 {
			return nil, fmt.Errorf("catalog entry %d: negative value for %q", i, def.Type)
		}
		catalog.stats[unit] = stats
	}
	return catalog, nil
}

// PlaceableUnits lists the unit names players may buy, in name order. Used by
// the lobby endpoint describing the wargame.
func (c *Catalog) PlaceableUnits() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, int(unitTypeCount))
	for t := UnitType(1); t < unitTypeCount; t++ {
		if c.stats[t].Placeable {
			names = append(names, t.String())
		}
	}
	sort.Strings(names)
	return names
}
