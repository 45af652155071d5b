package state

import (
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// Snapshot is the restartable subset of a GameState written to durable
// client storage. Field names follow the client storage format.
type Snapshot struct {
	SelectedGenre                      adventure.Genre         `json:"selectedGenre"`
	SelectedPersona                    adventure.Persona       `json:"selectedPersona"`
	AdventureOutline                   *adventure.Outline      `json:"adventureOutline"`
	WorldDetails                       *adventure.WorldDetails `json:"worldDetails"`
	CurrentSegment                     *adventure.StorySegment `json:"currentSegment"`
	CurrentStageIndex                  int                     `json:"currentStageIndex"`
	Inventory                          []InventoryItem         `json:"inventory"`
	Journal                            []JournalEntry          `json:"journal"`
	IsGameEnded                        bool                    `json:"isGameEnded"`
	IsGameFailed                       bool                    `json:"isGameFailed"`
	ImageGenerationPermanentlyDisabled bool                    `json:"imageGenerationPermanentlyDisabled"`
	SavedAt                            time.Time               `json:"savedAt"`
}

// ToSnapshot copies the savable subset of gs.
func (gs *GameState) ToSnapshot(at time.Time) Snapshot {
	c := gs.Clone()
	return Snapshot{
		SelectedGenre:                      c.Selection.Genre,
		SelectedPersona:                    c.Selection.Persona,
		AdventureOutline:                   c.Outline,
		WorldDetails:                       c.World,
		CurrentSegment:                     c.CurrentSegment,
		CurrentStageIndex:                  c.CurrentStage,
		Inventory:                          c.Inventory,
		Journal:                            c.Journal,
		IsGameEnded:                        c.IsGameEnded,
		IsGameFailed:                       c.IsGameFailed,
		ImageGenerationPermanentlyDisabled: c.ImageGenerationPermanentlyDisabled,
		SavedAt:                            at,
	}
}

// Restore overwrites the savable fields of gs from snap and puts the
// session into the playing phase. Loading flags, errors and retry metadata
// are reset since nothing is in flight after a resume.
func (gs *GameState) Restore(snap Snapshot) {
	gs.Selection = adventure.Selection{Genre: snap.SelectedGenre, Persona: snap.SelectedPersona}
	gs.LastPersona = snap.SelectedPersona
	gs.Outline = snap.AdventureOutline
	gs.World = snap.WorldDetails
	gs.CurrentSegment = snap.CurrentSegment.Clone()
	gs.CurrentStage = snap.CurrentStageIndex
	gs.Inventory = append(make([]InventoryItem, 0, len(snap.Inventory)), snap.Inventory...)
	gs.Journal = append(make([]JournalEntry, 0, len(snap.Journal)), snap.Journal...)
	gs.IsGameEnded = snap.IsGameEnded
	gs.IsGameFailed = snap.IsGameFailed
	if snap.ImageGenerationPermanentlyDisabled {
		gs.ImageGenerationPermanentlyDisabled = true
	}

	gs.RetryInfo = nil
	gs.Error = nil
	gs.Examination = ""
	gs.IsLoadingOutline = false
	gs.IsLoadingWorld = false
	gs.IsLoadingStory = false
	gs.IsLoadingImage = false
	gs.IsLoadingExamination = false

	gs.Phase = PhasePlaying
	if gs.Ended() {
		gs.Phase = PhaseEnded
	}
}
