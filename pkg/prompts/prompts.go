package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// Content rating values accepted by RatingPrompt.
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG-13"
	RatingR    = "R"
)

// Content rating prompts
const ContentRatingG = `Write content suitable for young children. Avoid violence, romance and scary elements. Use simple language and positive messages. `
const ContentRatingPG = `Write content suitable for children and families. Mild peril or tension is okay, but avoid strong language, explicit violence, or dark themes. `
const ContentRatingPG13 = `Write content appropriate for teenagers. You may include mild swearing, action scenes, and complex emotional themes, but avoid explicit adult situations or graphic violence. `
const ContentRatingR = `Write with full freedom for adult audiences. All content should progress the story. `

// ImpossibleActionMarker is the phrase the narrator is told to open with
// when a free-text action cannot be performed.
const ImpossibleActionMarker = "That action is not possible"

// JSONOnly closes every structured request.
const JSONOnly = "Respond with a single JSON object only. Do not wrap it in markdown and do not add commentary."

const NarratorPrompt = `You are the narrator of an interactive %s text adventure. The player is a %s: %s
Write in the second person, present tense. Keep each scene to two or three short paragraphs and always leave the player with a meaningful decision.`

const outlineTemplate = `Create the outline of a new %s text adventure for a %s.

Genre: %s
Player persona: %s

The adventure has exactly 3 stages. Each stage needs a title, a description of what happens, and the objective the player must complete to move on. Also give the adventure a title and an overall goal.`

const worldTemplate = `Describe the world for the %s adventure "%s".

Overall goal: %s
Stages:
%s
Provide the world name, a clarification of how the %s genre is interpreted here, key environmental features, dominant societies or factions, unique creatures or monsters, an overview of the magic or technology system, a brief history hook tied to the goal, and cultural norms or taboos. Lists may be empty but must be present.`

const imageTemplate = "%s. Style: %s. No text, captions or watermarks."

// RatingPrompt returns the instruction for a content rating, defaulting to
// PG-13.
func RatingPrompt(rating string) string {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case RatingG:
		return ContentRatingG
	case RatingPG:
		return ContentRatingPG
	case RatingR:
		return ContentRatingR
	default:
		return ContentRatingPG13
	}
}

// Outline builds the outline request for a selection.
func Outline(sel adventure.Selection, rating string) (string, error) {
	if !sel.Complete() {
		return "", fmt.Errorf("selection is incomplete: genre %q persona %q", sel.Genre, sel.Persona)
	}
	genre, _ := sel.Genre.Info()
	persona, _ := sel.Persona.Info()

	var sb strings.Builder
	fmt.Fprintf(&sb, outlineTemplate, genre.Name, persona.Name, genre.Description, persona.Description)
	sb.WriteString("\n\n" + RatingPrompt(rating))
	sb.WriteString("\n\n" + JSONOnly)
	return sb.String(), nil
}

// World builds the world-details request for an outline.
func World(sel adventure.Selection, outline *adventure.Outline, rating string) (string, error) {
	if !sel.Complete() {
		return "", fmt.Errorf("selection is incomplete")
	}
	if outline == nil {
		return "", fmt.Errorf("outline is required")
	}

	var stages strings.Builder
	for i, st := range outline.Stages {
		fmt.Fprintf(&stages, "%d. %s: %s (objective: %s)\n", i+1, st.Title, st.Description, st.Objective)
	}

	name := sel.Genre.DisplayName()
	var sb strings.Builder
	fmt.Fprintf(&sb, worldTemplate, name, outline.Title, outline.OverallGoal, stages.String(), name)
	sb.WriteString("\n\n" + RatingPrompt(rating))
	sb.WriteString("\n\n" + JSONOnly)
	return sb.String(), nil
}

// Image decorates a segment's image prompt with the genre's visual style.
func Image(genre adventure.Genre, scenePrompt string) string {
	style := "painterly illustration"
	if info, ok := genre.Info(); ok && info.ImageStyle != "" {
		style = info.ImageStyle
	}
	return fmt.Sprintf(imageTemplate, strings.TrimRight(strings.TrimSpace(scenePrompt), "."), style)
}

// IsImpossibleOutcome reports whether a scene narrates a refused action.
func IsImpossibleOutcome(scene string) bool {
	return strings.Contains(strings.ToLower(scene), strings.ToLower(ImpossibleActionMarker))
}
