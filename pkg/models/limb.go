package models

// Limb is one of the two anatomical categories at the top of the tree.
type Limb string

const (
	LimbLegs Limb = "legs"
	LimbArms Limb = "arms"
)

// AmputationLevel is a fixed sub-classification of a limb. Its ID is the key
// of every per-level content map.
type AmputationLevel struct {
	ID         string
	Limb       Limb
	Title      string
	ShortTitle string
}

var limbNames = map[Limb]string{
	LimbLegs: "Ноги",
	LimbArms: "Руки",
}

// amputationLevels is ordered: legs first, then arms. The create-subtopic
// wizard walks it by index.
var amputationLevels = []AmputationLevel{
	{ID: "legs_foot", Limb: LimbLegs, Title: "Стопа (сохранен голеностопный сустав)", ShortTitle: "Стопа"},
	{ID: "legs_shin", Limb: LimbLegs, Title: "Голень (сохранен коленный сустав)", ShortTitle: "Голень"},
	{ID: "legs_thigh", Limb: LimbLegs, Title: "Бедро (сохранен тазобедренный сустав)", ShortTitle: "Бедро"},
	{ID: "legs_hip_disarticulation", Limb: LimbLegs, Title: "Вычленение в тазобедренном суставе", ShortTitle: "Вычленение в тазобедренном суставе"},
	{ID: "arms_hand", Limb: LimbArms, Title: "Кисть", ShortTitle: "Кисть"},
	{ID: "arms_forearm", Limb: LimbArms, Title: "Предплечье", ShortTitle: "Предплечье"},
	{ID: "arms_shoulder", Limb: LimbArms, Title: "Плечо", ShortTitle: "Плечо"},
	{ID: "arms_shoulder_disarticulation", Limb: LimbArms, Title: "Вычленение в плечевом суставе", ShortTitle: "Вычленение в плечевом суставе"},
}

// Limbs returns the limb categories in display order.
func Limbs() []Limb {
	return []Limb{LimbLegs, LimbArms}
}

// ParseLimb converts a raw identifier into a Limb.
func ParseLimb(s string) (Limb, bool) {
	l := Limb(s)
	if _, ok := limbNames[l]; !ok {
		return "", false
	}
	return l, true
}

// Name returns the display name of the limb.
func (l Limb) Name() string {
	return limbNames[l]
}

// AllAmputationLevels returns a copy of the ordered level catalog.
func AllAmputationLevels() []AmputationLevel {
	out := make([]AmputationLevel, len(amputationLevels))
	copy(out, amputationLevels)
	return out
}

// LevelsForLimb returns the four levels of a limb in order.
func LevelsForLimb(limb Limb) []AmputationLevel {
	var out []AmputationLevel
	for _, lvl := range amputationLevels {
		if lvl.Limb == limb {
			out = append(out, lvl)
		}
	}
	return out
}

// LevelByIndex returns the level at position idx of the full catalog.
func LevelByIndex(idx int) (AmputationLevel, bool) {
	if idx < 0 || idx >= len(amputationLevels) {
		return AmputationLevel{}, false
	}
	return amputationLevels[idx], true
}

// LevelByID looks a level up by its key.
func LevelByID(id string) (AmputationLevel, bool) {
	for _, lvl := range amputationLevels {
		if lvl.ID == id {
			return lvl, true
		}
	}
	return AmputationLevel{}, false
}

// IsLevelID reports whether id is an amputation level key.
func IsLevelID(id string) bool {
	_, ok := LevelByID(id)
	return ok
}

// LevelCount is the number of levels in the full catalog.
func LevelCount() int {
	return len(amputationLevels)
}
