package domain

import "strings"

// Quality is the system-wide tier applied to items, pets and concepts.
// Values are ordered: common < uncommon < rare < epic < legendary < mythic.
type Quality string

const (
	QualityCommon    Quality = "common"
	QualityUncommon  Quality = "uncommon"
	QualityRare      Quality = "rare"
	QualityEpic      Quality = "epic"
	QualityLegendary Quality = "legendary"
	QualityMythic    Quality = "mythic"
)

// Qualities lists every system quality in ascending rank order.
var Qualities = []Quality{
	QualityCommon,
	QualityUncommon,
	QualityRare,
	QualityEpic,
	QualityLegendary,
	QualityMythic,
}

// Rank returns the 1-based position of q in the system ordering, or 0 when
// q is not a known quality.
func (q Quality) Rank() int {
	for i, v := range Qualities {
		if v == q {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether q is one of the system qualities.
func (q Quality) Valid() bool {
	return q.Rank() > 0
}

// Less reports whether q ranks strictly below other.
func (q Quality) Less(other Quality) bool {
	return q.Rank() < other.Rank()
}

// ParseQuality normalizes and validates a quality string.
func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	return q, q.Valid()
}

// LocationLevel is the geographic tier of a Location, from largest to
// smallest.
type LocationLevel string

const (
	LevelGalaxy     LocationLevel = "galaxy"
	LevelPlanet     LocationLevel = "planet"
	LevelContinent  LocationLevel = "continent"
	LevelDomain     LocationLevel = "domain"
	LevelState      LocationLevel = "state"
	LevelPrefecture LocationLevel = "prefecture"
	LevelCity       LocationLevel = "city"
	LevelTown       LocationLevel = "town"
	LevelVillage    LocationLevel = "village"
)

// LocationLevels lists levels from the outermost to the innermost.
var LocationLevels = []LocationLevel{
	LevelGalaxy,
	LevelPlanet,
	LevelContinent,
	LevelDomain,
	LevelState,
	LevelPrefecture,
	LevelCity,
	LevelTown,
	LevelVillage,
}

// Depth returns the 0-based depth of l (galaxy is 0), or -1 when unknown.
// Worlds may nest levels freely; depth is informational.
func (l LocationLevel) Depth() int {
	for i, v := range LocationLevels {
		if v == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is a known level.
func (l LocationLevel) Valid() bool {
	return l.Depth() >= 0
}

// ParseLocationLevel normalizes and validates a level string.
func ParseLocationLevel(s string) (LocationLevel, bool) {
	l := LocationLevel(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}

// AcquisitionKind classifies what a character obtained during an event.
type AcquisitionKind string

const (
	AcquireSkill     AcquisitionKind = "skill"
	AcquireTechnique AcquisitionKind = "technique"
	AcquireBeast     AcquisitionKind = "beast"
	AcquireTreasure  AcquisitionKind = "treasure"
	AcquireMaterial  AcquisitionKind = "material"
	AcquireOther     AcquisitionKind = "other"
)

// AcquisitionKinds lists every acquisition kind.
var AcquisitionKinds = []AcquisitionKind{
	AcquireSkill,
	AcquireTechnique,
	AcquireBeast,
	AcquireTreasure,
	AcquireMaterial,
	AcquireOther,
}

// Valid reports whether k is a known kind.
func (k AcquisitionKind) Valid() bool {
	for _, v := range AcquisitionKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ParseAcquisitionKind normalizes and validates a kind string.
func ParseAcquisitionKind(s string) (AcquisitionKind, bool) {
	k := AcquisitionKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}
