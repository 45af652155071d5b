package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

const PlaceHolderText = "Pick a number, describe an action, or /help..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	ctx     context.Context
	ctrl    *game.Controller
	saveDir string

	gs            *state.GameState
	storyViewport viewport.Model
	sideViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	starting      bool
	width         int
	height        int

	// status is a one-line notice under the story; overlay holds the
	// output of informational commands until the next action.
	status  string
	overlay string

	// Genre / persona selection cursor
	selected int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
	ticking      bool
}

type stateMsg struct {
	gs *state.GameState
}

type startedMsg struct {
	gs      *state.GameState
	resumed bool
	err     error
}

type dispatchedMsg struct {
	err error
}

type feasibilityMsg struct {
	action  string
	verdict *adventure.Feasibility
	err     error
}

type progressTickMsg struct{}

func NewConsoleUI(ctx context.Context, ctrl *game.Controller, saveDir string) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	return ConsoleUI{
		ctx:           ctx,
		ctrl:          ctrl,
		saveDir:       saveDir,
		gs:            ctrl.State(),
		textarea:      ta,
		storyViewport: storyVp,
		sideViewport:  viewport.New(20, 20),
		starting:      true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.start(), textarea.Blink)
}

func (m ConsoleUI) start() tea.Cmd {
	return func() tea.Msg {
		resumed, err := m.ctrl.Start(m.ctx)
		return startedMsg{gs: m.ctrl.State(), resumed: resumed, err: err}
	}
}

func (m ConsoleUI) dispatch(ev game.Event) tea.Cmd {
	return func() tea.Msg {
		return dispatchedMsg{err: m.ctrl.Dispatch(m.ctx, ev)}
	}
}

func (m ConsoleUI) evaluate(action string) tea.Cmd {
	return func() tea.Msg {
		verdict, err := m.ctrl.EvaluateAction(m.ctx, action)
		return feasibilityMsg{action: action, verdict: verdict, err: err}
	}
}

func (m ConsoleUI) selecting() bool {
	return m.gs.Phase == state.PhaseSelectingGenre || m.gs.Phase == state.PhaseSelectingPersona
}

func (m ConsoleUI) selectionItems() []string {
	var items []string
	if m.gs.Phase == state.PhaseSelectingGenre {
		for _, g := range adventure.Genres() {
			items = append(items, fmt.Sprintf("%s - %s", g.Name, g.Description))
		}
		return items
	}
	for _, p := range adventure.Personas() {
		items = append(items, fmt.Sprintf("%s - %s", p.Name, p.Description))
	}
	return items
}

func (m *ConsoleUI) layout() {
	storyWidth := int(float64(m.width)*0.72) - 4
	sideWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 7
	m.sideViewport.Width = sideWidth - 2
	m.sideViewport.Height = m.height - 4
	m.textarea.SetWidth(storyWidth - 4)
}

// refresh re-renders both panels for the current width.
func (m *ConsoleUI) refresh() {
	width := m.storyViewport.Width - 6 // Account for left(3) + right(3) padding

	var b strings.Builder
	b.WriteString(renderStory(m.gs, width))
	if m.overlay != "" {
		b.WriteString(m.overlay + "\n")
	}
	if m.status != "" {
		b.WriteString(loadingStyle.Render(m.status) + "\n")
	}
	if m.gs.NarrativeBusy() {
		b.WriteString(m.renderProgressBar())
	}
	m.storyViewport.SetContent(b.String())
	m.storyViewport.GotoBottom()
	m.sideViewport.SetContent(renderSidebar(m.gs))
}

// setState swaps in a new state copy and resets the selection cursor when
// the phase changes.
func (m *ConsoleUI) setState(gs *state.GameState) {
	if gs.Phase != m.gs.Phase {
		m.selected = 0
	}
	m.gs = gs
}

func (m ConsoleUI) tick() (ConsoleUI, tea.Cmd) {
	if m.ticking || !m.gs.NarrativeBusy() {
		return m, nil
	}
	m.ticking = true
	m.progressTick = 0
	return m, progressTick()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		switch msg.(type) {
		case tea.KeyMsg, tea.WindowSizeMsg:
			return m.updateQuitModal(msg)
		}
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		svCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.sideViewport, svCmd = m.sideViewport.Update(msg)
		return m, tea.Batch(vpCmd, svCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()

	case startedMsg:
		m.starting = false
		m.setState(msg.gs)
		switch {
		case msg.err != nil:
			m.status = "Could not load your saved adventure: " + msg.err.Error()
		case msg.resumed:
			m.status = "Welcome back. Your adventure has been restored."
		}
		m.refresh()
		return m.tick()

	case stateMsg:
		m.setState(msg.gs)
		m.refresh()
		return m.tick()

	case dispatchedMsg:
		if msg.err != nil {
			m.status = dispatchErrorText(msg.err)
		}
		m.setState(m.ctrl.State())
		m.refresh()
		return m, nil

	case feasibilityMsg:
		if msg.err == nil && msg.verdict != nil && !msg.verdict.IsPossible {
			m.status = "That isn't possible: " + msg.verdict.Reason
			m.refresh()
			return m, nil
		}
		m.status = ""
		m.refresh()
		return m, m.dispatch(game.SubmitCustomAction{Text: msg.action})

	case progressTickMsg:
		if m.gs.NarrativeBusy() {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
		m.ticking = false
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.starting {
			return m, nil
		}
		if m.selecting() {
			return m.updateSelection(msg)
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.sideViewport, svCmd = m.sideViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, svCmd)
}

func dispatchErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrBusy):
		return "Still working on the last request..."
	case errors.Is(err, game.ErrRetryPending):
		return "Resolve the error first: /retry or /restart."
	case errors.Is(err, game.ErrNoRetry):
		return "There is nothing to retry."
	default:
		return err.Error()
	}
}

func (m ConsoleUI) updateSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.selectionItems()
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > 0 {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < len(items)-1 {
			m.selected++
		}
	case tea.KeyEnter:
		if len(items) == 0 || m.gs.NarrativeBusy() {
			return m, nil
		}
		m.status = ""
		m.overlay = ""
		if m.gs.Phase == state.PhaseSelectingGenre {
			return m, m.dispatch(game.SelectGenre{Genre: adventure.Genres()[m.selected].ID})
		}
		return m, m.dispatch(game.SelectPersona{Persona: adventure.Personas()[m.selected].ID})
	}
	return m, nil
}

// submit handles Enter in the main view.
func (m ConsoleUI) submit() (tea.Model, tea.Cmd) {
	in := parseInput(m.textarea.Value())
	if in.kind == inputNone {
		return m, nil
	}
	m.textarea.Reset()
	m.status = ""
	m.overlay = ""

	switch in.kind {
	case inputChoice:
		m.refresh()
		return m, m.dispatch(game.ChooseOption{Index: in.choice})
	case inputAction:
		m.status = "Considering whether that is possible..."
		m.refresh()
		return m, m.evaluate(in.text)
	}
	return m.handleCommand(in.command)
}

func (m ConsoleUI) handleCommand(cmd string) (tea.Model, tea.Cmd) {
	var next tea.Cmd
	switch cmd {
	case "/help":
		m.overlay = titleStyle.Render("Help:") + helpText
	case "/examine":
		next = m.dispatch(game.Examine{})
	case "/dismiss":
		next = m.dispatch(game.DismissExamination{})
	case "/retry", "/retry-image":
		next = m.dispatch(game.Retry{})
	case "/continue":
		next = m.dispatch(game.ContinueWithoutImage{})
	case "/restart":
		next = m.dispatch(game.Restart{})
	case "/inventory":
		m.overlay = renderInventory(m.gs)
	case "/journal":
		m.overlay = renderJournal(m.gs, 15)
	case "/image":
		var url string
		if m.gs.CurrentSegment != nil {
			url = m.gs.CurrentSegment.ImageURL
		}
		path, err := saveIllustration(url, m.saveDir, m.gs.SegmentSeq)
		if err != nil {
			m.status = "Could not save the illustration: " + err.Error()
		} else {
			m.status = "Illustration saved to " + path
		}
	case "/copy":
		if m.gs.CurrentSegment == nil {
			m.status = "There is no scene to copy yet."
		} else if err := clipboard.WriteAll(m.gs.CurrentSegment.SceneDescription); err != nil {
			m.status = "Clipboard unavailable: " + err.Error()
		} else {
			m.status = "Scene copied to the clipboard."
		}
	case "/quit":
		m.showQuitModal = true
	default:
		m.status = "Unknown command " + cmd + ". Type /help for the list."
	}
	m.refresh()
	return m, next
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				m.refresh()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every scene.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSelectionModal() string {
	var content strings.Builder

	switch {
	case m.starting:
		content.WriteString(modalTitleStyle.Render("Loading..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Looking for a saved adventure..."))
	case m.gs.NarrativeBusy():
		content.WriteString(modalTitleStyle.Render("Creating Adventure..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up your adventure..."))
	default:
		title := "Choose a Genre"
		if m.gs.Phase == state.PhaseSelectingPersona {
			title = "Choose Your Persona"
		}
		content.WriteString(modalTitleStyle.Render(title))
		content.WriteString("\n\n")

		for i, item := range m.selectionItems() {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", item)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", item)))
			}
			content.WriteString("\n")
		}
		if m.status != "" {
			content.WriteString("\n" + errorStyle.Render(m.status) + "\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.starting || m.selecting() {
		return m.renderSelectionModal()
	}

	storyWidth := int(float64(m.width)*0.72) - 4
	sideWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			m.textarea.View(),
		),
	)

	sidePanel := sidePanelStyle.Width(sideWidth).Height(m.height - 2).Render(
		m.sideViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, sidePanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
