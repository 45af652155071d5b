package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

// Builder constructs narrative requests from the live game state using a
// fluent interface.
type Builder struct {
	gs           *state.GameState
	rating       string
	choice       *adventure.Choice
	customAction string
	historyLimit int
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: 8, // recent journal entries quoted for continuity
		rating:       RatingPG13,
	}
}

// WithGameState sets the state the prompt describes.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithRating sets the content rating.
func (b *Builder) WithRating(rating string) *Builder {
	b.rating = rating
	return b
}

// WithChoice asks for the scene that follows a chosen option.
func (b *Builder) WithChoice(c adventure.Choice) *Builder {
	b.choice = &c
	return b
}

// WithCustomAction asks for the outcome of a free-text action.
func (b *Builder) WithCustomAction(text string) *Builder {
	b.customAction = strings.TrimSpace(text)
	return b
}

// WithHistoryLimit sets how many journal entries are quoted.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build returns the request for the next story segment. Without a choice
// or custom action it asks for the opening scene.
func (b *Builder) Build() (string, error) {
	var sb strings.Builder
	if err := b.writeContext(&sb); err != nil {
		return "", err
	}

	switch {
	case b.customAction != "":
		fmt.Fprintf(&sb, "\n\nThe player attempts: %q\n", b.customAction)
		sb.WriteString("Narrate the outcome of this action. If it cannot be done in this scene or world, begin the scene with \"" +
			ImpossibleActionMarker + "\" and explain why, then offer new choices.")
	case b.choice != nil:
		fmt.Fprintf(&sb, "\n\nThe player chose: %q\n", b.choice.Text)
		sb.WriteString("Outcome to narrate: " + b.choice.OutcomePrompt)
		if b.choice.LeadsToFailure {
			sb.WriteString("\nThis choice ends the adventure in failure. Set isFailureScene to true and offer no choices.")
		}
	default:
		sb.WriteString("\n\nWrite the opening scene of the adventure, introducing the first stage.")
	}

	sb.WriteString("\n\n" + segmentRules)
	sb.WriteString("\n\n" + RatingPrompt(b.rating))
	sb.WriteString("\n\n" + JSONOnly)
	return sb.String(), nil
}

// BuildExamine returns the request for a closer look at the current scene.
func (b *Builder) BuildExamine() (string, error) {
	if b.gs != nil && b.gs.CurrentSegment == nil {
		return "", fmt.Errorf("there is no scene to examine")
	}
	var sb strings.Builder
	if err := b.writeContext(&sb); err != nil {
		return "", err
	}
	sb.WriteString("\n\nThe player examines the current scene closely. Describe details, textures and clues they notice. " +
		"Do not advance the story, introduce events, or change the situation. Return the text as examinationText.")
	sb.WriteString("\n\n" + RatingPrompt(b.rating))
	sb.WriteString("\n\n" + JSONOnly)
	return sb.String(), nil
}

// BuildFeasibility returns the request judging whether the custom action
// can be attempted.
func (b *Builder) BuildFeasibility() (string, error) {
	if b.customAction == "" {
		return "", fmt.Errorf("custom action is required")
	}
	var sb strings.Builder
	if err := b.writeContext(&sb); err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "\n\nThe player wants to: %q\n", b.customAction)
	sb.WriteString("Decide whether this action is possible for the player in the current scene and world. " +
		"Answer with isPossible and a one-sentence reason.")
	sb.WriteString("\n\n" + JSONOnly)
	return sb.String(), nil
}

func (b *Builder) writeContext(sb *strings.Builder) error {
	if b.gs == nil {
		return fmt.Errorf("gamestate is required")
	}
	gs := b.gs
	if !gs.Selection.Complete() {
		return fmt.Errorf("selection is incomplete")
	}
	if gs.Outline == nil {
		return fmt.Errorf("outline is required")
	}
	if gs.World == nil {
		return fmt.Errorf("world details are required")
	}

	genre, _ := gs.Selection.Genre.Info()
	persona, _ := gs.Selection.Persona.Info()
	fmt.Fprintf(sb, NarratorPrompt, genre.Name, persona.Name, persona.Description)

	o := gs.Outline
	fmt.Fprintf(sb, "\n\nAdventure: %s\nOverall goal: %s\n", o.Title, o.OverallGoal)
	for i, st := range o.Stages {
		marker := ""
		if i == gs.CurrentStage {
			marker = " (CURRENT)"
		}
		fmt.Fprintf(sb, "Stage %d%s: %s. %s Objective: %s\n", i+1, marker, st.Title, st.Description, st.Objective)
	}
	if gs.CurrentStage == len(o.Stages)-1 {
		sb.WriteString("This is the final stage. Completing its objective should lead to a final scene.\n")
	}

	w := gs.World
	fmt.Fprintf(sb, "\nWorld: %s (%s)\n", w.WorldName, w.GenreClarification)
	fmt.Fprintf(sb, "Environment: %s\n", adventure.ListOrNA(w.KeyEnvironmentalFeatures))
	fmt.Fprintf(sb, "Factions: %s\n", adventure.ListOrNA(w.DominantSocietiesOrFactions))
	fmt.Fprintf(sb, "Creatures: %s\n", adventure.ListOrNA(w.UniqueCreaturesOrMonsters))
	fmt.Fprintf(sb, "Magic/technology: %s\n", w.MagicSystemOverview)
	fmt.Fprintf(sb, "History: %s\n", w.BriefHistoryHook)
	fmt.Fprintf(sb, "Customs: %s\n", adventure.ListOrNA(w.CulturalNormsOrTaboos))

	names := make([]string, 0, len(gs.Inventory))
	for _, item := range gs.Inventory {
		names = append(names, item.Name)
	}
	fmt.Fprintf(sb, "\nInventory: %s\n", adventure.ListOrNA(names))

	b.writeHistory(sb)

	if seg := gs.CurrentSegment; seg != nil {
		sb.WriteString("\nCurrent scene:\n" + seg.SceneDescription + "\n")
	}
	return nil
}

// writeHistory quotes the most recent narrative journal entries.
func (b *Builder) writeHistory(sb *strings.Builder) {
	if b.historyLimit <= 0 {
		return
	}
	var recent []state.JournalEntry
	for _, e := range b.gs.Journal {
		switch e.Type {
		case state.JournalChoice, state.JournalCustomAction, state.JournalItemFound:
			recent = append(recent, e)
		}
	}
	if len(recent) == 0 {
		return
	}
	if len(recent) > b.historyLimit {
		recent = recent[len(recent)-b.historyLimit:]
	}
	sb.WriteString("\nRecent events:\n")
	for _, e := range recent {
		fmt.Fprintf(sb, "- %s\n", e.Content)
	}
}

const segmentRules = `Rules for the next scene:
- Offer 2 to 4 choices. Set signalsStageCompletion on a choice only when it completes the current stage objective.
- Set leadsToFailure on a choice only when picking it ends the adventure badly.
- When the final stage objective is achieved, set isFinalScene to true and offer no choices.
- When the adventure is lost, set isFailureScene to true and offer no choices.
- If the player must type a word or phrase (a password, a riddle answer), set isUserInputCommandOnly to true and leave choices empty.
- Include itemFound only when the player picks up an item in this scene.
- imagePrompt is a short visual description of the scene without any text or names.`
