package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	sidePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var actionLabels = map[state.Action]string{
	state.ActionRetry:                "/retry",
	state.ActionContinueWithoutImage: "/continue",
	state.ActionRetryImage:           "/retry-image",
	state.ActionStartNewGame:         "/restart",
}

// renderStory builds the main panel: the current scene, its choices, any
// examination overlay and the error surface.
func renderStory(gs *state.GameState, width int) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder

	title := "ADVENTURE ENGINE"
	if gs.Outline != nil && gs.Outline.Title != "" {
		title = strings.ToUpper(gs.Outline.Title)
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	switch {
	case gs.IsLoadingOutline:
		b.WriteString(loadingStyle.Render("Plotting your adventure...") + "\n\n")
	case gs.IsLoadingWorld:
		b.WriteString(loadingStyle.Render("Building the world...") + "\n\n")
	}

	if seg := gs.CurrentSegment; seg != nil {
		if gs.Outline != nil {
			stage := gs.CurrentStageInfo()
			b.WriteString(promptStyle.Render(fmt.Sprintf("Stage %d of %d: %s", gs.CurrentStage+1, adventure.StageCount, stage.Title)) + "\n\n")
		}
		b.WriteString(narratorStyle.Render(wordwrap.String(seg.SceneDescription, width)) + "\n\n")
		b.WriteString(imageLine(gs) + "\n\n")

		switch {
		case gs.IsGameFailed:
			b.WriteString(errorStyle.Render("Your adventure has come to a grim end.") + "\n")
			b.WriteString(promptStyle.Render("Type /restart to begin a new one.") + "\n\n")
		case gs.IsGameEnded:
			b.WriteString(titleStyle.Render("Victory! Your adventure is complete.") + "\n")
			b.WriteString(promptStyle.Render("Type /restart to begin a new one.") + "\n\n")
		case seg.IsUserInputCommandOnly:
			b.WriteString(promptStyle.Render("What do you do? Describe your action below.") + "\n\n")
		default:
			for i, c := range seg.Choices {
				b.WriteString(choiceStyle.Render(fmt.Sprintf("%d.", i+1)) + " " + wordwrap.String(c.Text, width-4) + "\n")
			}
			b.WriteString("\n")
		}
	}

	if gs.IsLoadingStory {
		b.WriteString(loadingStyle.Render("The story unfolds...") + "\n\n")
	}
	if gs.IsLoadingExamination {
		b.WriteString(loadingStyle.Render("You look closer...") + "\n\n")
	}
	if gs.Examination != "" {
		b.WriteString(userStyle.Render("You look closer:") + "\n")
		b.WriteString(wordwrap.String(gs.Examination, width) + "\n")
		b.WriteString(promptStyle.Render("(/dismiss to close)") + "\n\n")
	}

	if e := gs.Error; e != nil {
		b.WriteString(renderError(e, width))
	}
	return b.String()
}

func imageLine(gs *state.GameState) string {
	seg := gs.CurrentSegment
	switch {
	case gs.IsLoadingImage:
		return loadingStyle.Render("[Painting the illustration...]")
	case seg != nil && seg.ImageURL != "":
		return promptStyle.Render("[Illustration ready: /image to save it]")
	case gs.ImageGenerationPermanentlyDisabled:
		return promptStyle.Render("[Illustrations disabled]")
	default:
		return ""
	}
}

func renderError(e *state.GameError, width int) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(wordwrap.String("Error: "+e.Message, width)) + "\n")
	var actions []string
	for _, a := range e.Actions {
		if label, ok := actionLabels[a]; ok {
			actions = append(actions, label)
		}
	}
	if len(actions) > 0 {
		b.WriteString(promptStyle.Render("Options: "+strings.Join(actions, "  ")) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// renderSidebar shows the selection, progress and inventory.
func renderSidebar(gs *state.GameState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")

	b.WriteString("Genre:\n")
	b.WriteString(orNone(gs.Selection.Genre.DisplayName()) + "\n\n")
	b.WriteString("Persona:\n")
	b.WriteString(orNone(gs.Selection.Persona.DisplayName()) + "\n\n")

	if gs.World != nil {
		b.WriteString("World:\n")
		b.WriteString(gs.World.WorldName + "\n\n")
	}
	if gs.Outline != nil {
		b.WriteString("Goal:\n")
		b.WriteString(gs.Outline.OverallGoal + "\n\n")
		b.WriteString("Progress:\n")
		b.WriteString(fmt.Sprintf("Stage %d/%d\n\n", gs.CurrentStage+1, adventure.StageCount))
	}

	b.WriteString("Inventory:\n")
	if len(gs.Inventory) == 0 {
		b.WriteString("Empty\n")
	}
	for _, item := range gs.Inventory {
		b.WriteString(fmt.Sprintf("• %s\n", item.Name))
	}

	b.WriteString("\n")
	b.WriteString("Commands:\n")
	b.WriteString("• Ctrl+C: Quit\n")
	b.WriteString("• Enter: Send\n")
	b.WriteString("• /help: Help\n")
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "Not chosen"
	}
	return s
}

func renderInventory(gs *state.GameState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Inventory:") + "\n")
	if len(gs.Inventory) == 0 {
		b.WriteString("You carry nothing of note.\n")
	}
	for _, item := range gs.Inventory {
		b.WriteString(fmt.Sprintf("• %s: %s\n", item.Name, item.Description))
	}
	return b.String()
}

// renderJournal shows the newest entries last, at most limit of them.
func renderJournal(gs *state.GameState, limit int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Journal:") + "\n")
	entries := gs.Journal
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		b.WriteString("Nothing recorded yet.\n")
	}
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("%s [%s] %s\n", e.Timestamp.Format("15:04"), e.Type, e.Content))
	}
	return b.String()
}
