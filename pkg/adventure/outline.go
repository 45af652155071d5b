package adventure

import "strings"

// StageCount is the fixed number of macro-phases in every adventure.
const StageCount = 3

// Stage is one macro-phase of an adventure.
type Stage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Objective   string `json:"objective"`
}

// Outline is the three-stage skeleton of an adventure. It is created once
// per adventure and never mutated.
type Outline struct {
	Title       string  `json:"title"`
	OverallGoal string  `json:"overallGoal"`
	Stages      []Stage `json:"stages"`
}

// Stage returns the stage at index, clamped to the valid range.
func (o *Outline) Stage(index int) Stage {
	if o == nil || len(o.Stages) == 0 {
		return Stage{}
	}
	if index < 0 {
		index = 0
	}
	if index >= len(o.Stages) {
		index = len(o.Stages) - 1
	}
	return o.Stages[index]
}

// WorldDetails is the setting lore generated once per adventure and
// referenced by every later narrative prompt.
type WorldDetails struct {
	WorldName                   string   `json:"worldName"`
	GenreClarification          string   `json:"genreClarification"`
	KeyEnvironmentalFeatures    []string `json:"keyEnvironmentalFeatures"`
	DominantSocietiesOrFactions []string `json:"dominantSocietiesOrFactions"`
	UniqueCreaturesOrMonsters   []string `json:"uniqueCreaturesOrMonsters"`
	MagicSystemOverview         string   `json:"magicSystemOverview"`
	BriefHistoryHook            string   `json:"briefHistoryHook"`
	CulturalNormsOrTaboos       []string `json:"culturalNormsOrTaboos"`
}

// ListOrNA renders a list field for display, using "N/A" when empty.
func ListOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}
