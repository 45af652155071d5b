package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// Phase is the mutually exclusive top-level state of an adventure.
type Phase string

const (
	PhaseSelectingGenre    Phase = "selecting_genre"
	PhaseSelectingPersona  Phase = "selecting_persona"
	PhaseGeneratingOutline Phase = "generating_outline"
	PhaseGeneratingWorld   Phase = "generating_world"
	PhasePlaying           Phase = "playing"
	PhaseEnded             Phase = "ended"
)

// GameState is the aggregate root of one adventure session. Exactly one is
// live per session and it is only mutated by the game state machine.
type GameState struct {
	ID uuid.UUID `json:"id"`

	// Epoch increases on every restart or genre reselection. Responses that
	// carry an older epoch are discarded.
	Epoch uint64 `json:"epoch"`
	// SegmentSeq increases each time a segment is accepted. Image results
	// carry the sequence they were requested for.
	SegmentSeq uint64 `json:"segment_seq"`

	Phase           Phase                   `json:"phase"`
	Selection       adventure.Selection     `json:"selection"`
	LastPersona     adventure.Persona       `json:"last_persona,omitempty"`
	Outline         *adventure.Outline      `json:"outline,omitempty"`
	World           *adventure.WorldDetails `json:"world,omitempty"`
	CurrentSegment  *adventure.StorySegment `json:"current_segment,omitempty"`
	CurrentStage    int                     `json:"current_stage_index"`
	Inventory       []InventoryItem         `json:"inventory"`
	Journal         []JournalEntry          `json:"journal"`
	RetryInfo       *RetryInfo              `json:"retry_info,omitempty"`
	Error           *GameError              `json:"error,omitempty"`
	Examination     string                  `json:"examination,omitempty"`
	ImageQuotaNoted bool                    `json:"image_quota_noted,omitempty"`

	IsLoadingOutline     bool `json:"is_loading_outline"`
	IsLoadingWorld       bool `json:"is_loading_world"`
	IsLoadingStory       bool `json:"is_loading_story"`
	IsLoadingImage       bool `json:"is_loading_image"`
	IsLoadingExamination bool `json:"is_loading_examination"`
	IsGameEnded          bool `json:"is_game_ended"`
	IsGameFailed         bool `json:"is_game_failed"`

	ImageGenerationEnabled             bool `json:"image_generation_enabled"`
	ImageGenerationPermanentlyDisabled bool `json:"image_generation_permanently_disabled"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewGameState returns a fresh session waiting for a genre.
func NewGameState(imagesEnabled bool) *GameState {
	return &GameState{
		ID:                     uuid.New(),
		Phase:                  PhaseSelectingGenre,
		Inventory:              make([]InventoryItem, 0),
		Journal:                make([]JournalEntry, 0),
		ImageGenerationEnabled: imagesEnabled,
	}
}

// NarrativeBusy reports whether a request that must not interleave with
// another player action is in flight. Image loading is deliberately absent.
func (gs *GameState) NarrativeBusy() bool {
	return gs.IsLoadingOutline || gs.IsLoadingWorld || gs.IsLoadingStory || gs.IsLoadingExamination
}

// Ended reports whether the adventure reached a terminal scene.
func (gs *GameState) Ended() bool {
	return gs.IsGameEnded || gs.IsGameFailed
}

// HasNarrativeError reports whether an error that blocks narrative progress
// is pending.
func (gs *GameState) HasNarrativeError() bool {
	return gs.Error != nil && gs.Error.Scope == ScopeNarrative
}

// CanGenerateImage reports whether the image feature is usable at all.
func (gs *GameState) CanGenerateImage() bool {
	return gs.ImageGenerationEnabled && !gs.ImageGenerationPermanentlyDisabled
}

// CurrentStageInfo returns the active stage of the outline.
func (gs *GameState) CurrentStageInfo() adventure.Stage {
	return gs.Outline.Stage(gs.CurrentStage)
}

// Clone returns a deep copy safe to hand to readers outside the state
// machine. Outline and world are shared since they are never mutated.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.CurrentSegment = gs.CurrentSegment.Clone()
	c.Inventory = append(make([]InventoryItem, 0, len(gs.Inventory)), gs.Inventory...)
	c.Journal = append(make([]JournalEntry, 0, len(gs.Journal)), gs.Journal...)
	if gs.RetryInfo != nil {
		r := *gs.RetryInfo
		c.RetryInfo = &r
	}
	if gs.Error != nil {
		e := *gs.Error
		e.Actions = append([]Action(nil), gs.Error.Actions...)
		c.Error = &e
	}
	return &c
}
