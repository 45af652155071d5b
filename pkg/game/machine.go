// Package game holds the adventure state machine and the controller that
// executes its effects.
//
// Machine.Apply is the only place a GameState is mutated. It takes the
// current state and an event, updates the state and returns the effects to
// run. It performs no I/O.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

// Machine applies events to a GameState.
type Machine struct {
	rating string
	now    func() time.Time
}

// NewMachine creates a machine that builds prompts for a content rating.
func NewMachine(rating string) *Machine {
	return &Machine{rating: rating, now: time.Now}
}

// Apply applies ev to gs and returns the resulting effects. When it returns
// an error gs is left unchanged.
func (m *Machine) Apply(gs *state.GameState, ev Event) ([]Effect, error) {
	next := gs.Clone()
	effects, err := m.apply(next, ev)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()
	*gs = *next
	return effects, nil
}

func (m *Machine) apply(gs *state.GameState, ev Event) ([]Effect, error) {
	switch e := ev.(type) {
	case SelectGenre:
		return m.selectGenre(gs, e)
	case SelectPersona:
		return m.selectPersona(gs, e)
	case OutlineReady:
		return m.outlineReady(gs, e)
	case WorldReady:
		return m.worldReady(gs, e)
	case ChooseOption:
		return m.chooseOption(gs, e)
	case SubmitCustomAction:
		return m.customAction(gs, e)
	case SegmentReady:
		return m.segmentReady(gs, e)
	case Examine:
		return m.examine(gs)
	case ExaminationReady:
		return m.examinationReady(gs, e)
	case DismissExamination:
		gs.Examination = ""
		return nil, nil
	case ImageReady:
		return m.imageReady(gs, e)
	case RequestFailed:
		return m.requestFailed(gs, e)
	case Retry:
		return m.retry(gs)
	case ContinueWithoutImage:
		return m.continueWithoutImage(gs)
	case Restart:
		return m.restart(gs), nil
	case Resume:
		return m.resume(gs, e)
	default:
		return nil, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

func (m *Machine) journal(gs *state.GameState, t state.JournalType, format string, args ...any) {
	gs.AppendJournal(t, fmt.Sprintf(format, args...), m.now())
}

func (m *Machine) selectGenre(gs *state.GameState, e SelectGenre) ([]Effect, error) {
	if gs.Phase != state.PhaseSelectingGenre && gs.Phase != state.PhaseSelectingPersona {
		return nil, fmt.Errorf("%w: genre can only be chosen before generation starts", ErrInvalidTransition)
	}
	if !e.Genre.Valid() {
		return nil, fmt.Errorf("%w: unknown genre %q", ErrInvalidTransition, e.Genre)
	}

	gs.Epoch++
	gs.Selection = adventure.Selection{Genre: e.Genre}
	gs.Outline = nil
	gs.World = nil
	gs.CurrentSegment = nil
	gs.CurrentStage = 0
	gs.Inventory = make([]state.InventoryItem, 0)
	gs.RetryInfo = nil
	gs.Error = nil
	gs.Examination = ""
	gs.IsGameEnded = false
	gs.IsGameFailed = false
	gs.RetainSelectionJournal()
	m.journal(gs, state.JournalGenreSelected, "Genre selected: %s", e.Genre.DisplayName())
	gs.Phase = state.PhaseSelectingPersona
	return nil, nil
}

func (m *Machine) selectPersona(gs *state.GameState, e SelectPersona) ([]Effect, error) {
	if gs.Phase != state.PhaseSelectingPersona {
		return nil, fmt.Errorf("%w: persona can only be chosen after a genre", ErrInvalidTransition)
	}
	if !e.Persona.Valid() {
		return nil, fmt.Errorf("%w: unknown persona %q", ErrInvalidTransition, e.Persona)
	}

	if e.Persona != gs.LastPersona {
		gs.Inventory = make([]state.InventoryItem, 0)
	}
	gs.LastPersona = e.Persona
	gs.Selection.Persona = e.Persona

	prompt, err := prompts.Outline(gs.Selection, m.rating)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	m.journal(gs, state.JournalPersonaSelected, "Persona selected: %s", e.Persona.DisplayName())
	gs.Phase = state.PhaseGeneratingOutline
	gs.IsLoadingOutline = true
	return []Effect{FetchOutline{Epoch: gs.Epoch, Prompt: prompt}}, nil
}

func (m *Machine) outlineReady(gs *state.GameState, e OutlineReady) ([]Effect, error) {
	if e.Epoch != gs.Epoch || gs.Phase != state.PhaseGeneratingOutline || !gs.IsLoadingOutline {
		return nil, ErrStale
	}
	if e.Outline == nil || len(e.Outline.Stages) != adventure.StageCount {
		return m.requestFailed(gs, RequestFailed{
			Epoch:  e.Epoch,
			Target: state.TargetOutline,
			Err:    &content.Error{Kind: content.KindShape, Op: content.OpOutline, Message: "outline must have exactly 3 stages"},
		})
	}

	prompt, err := prompts.World(gs.Selection, e.Outline, m.rating)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	gs.Outline = e.Outline
	gs.IsLoadingOutline = false
	gs.RetryInfo = nil
	gs.Error = nil
	gs.Phase = state.PhaseGeneratingWorld
	gs.IsLoadingWorld = true
	return []Effect{FetchWorld{Epoch: gs.Epoch, Prompt: prompt}}, nil
}

func (m *Machine) worldReady(gs *state.GameState, e WorldReady) ([]Effect, error) {
	if e.Epoch != gs.Epoch || gs.Phase != state.PhaseGeneratingWorld || !gs.IsLoadingWorld {
		return nil, ErrStale
	}
	if e.World == nil {
		return m.requestFailed(gs, RequestFailed{
			Epoch:  e.Epoch,
			Target: state.TargetWorld,
			Err:    &content.Error{Kind: content.KindShape, Op: content.OpWorld, Message: "world details are missing"},
		})
	}

	gs.World = e.World
	gs.IsLoadingWorld = false
	gs.RetryInfo = nil
	gs.Error = nil
	gs.CurrentStage = 0
	m.journal(gs, state.JournalWorldGenerated, "World: %s", e.World.WorldName)
	gs.Phase = state.PhasePlaying

	prompt, err := prompts.New().WithGameState(gs).WithRating(m.rating).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	gs.IsLoadingStory = true
	return []Effect{FetchSegment{Epoch: gs.Epoch, Prompt: prompt}}, nil
}

// checkPlayable guards player actions that start a narrative request.
func checkPlayable(gs *state.GameState) error {
	if gs.Phase != state.PhasePlaying {
		return fmt.Errorf("%w: not playing (phase %s)", ErrInvalidTransition, gs.Phase)
	}
	if gs.NarrativeBusy() {
		return ErrBusy
	}
	if gs.HasNarrativeError() && !retryTargets(gs, state.TargetExamine) {
		return ErrRetryPending
	}
	if gs.CurrentSegment == nil {
		return fmt.Errorf("%w: no current scene", ErrInvalidTransition)
	}
	return nil
}

func retryTargets(gs *state.GameState, target state.RetryTarget) bool {
	return gs.RetryInfo != nil && gs.RetryInfo.Target == target
}

// clearSideErrors drops examination and image errors once the player moves on.
func clearSideErrors(gs *state.GameState) {
	gs.Error = nil
	gs.RetryInfo = nil
	gs.Examination = ""
}

func (m *Machine) chooseOption(gs *state.GameState, e ChooseOption) ([]Effect, error) {
	if err := checkPlayable(gs); err != nil {
		return nil, err
	}
	seg := gs.CurrentSegment
	if seg.IsUserInputCommandOnly {
		return nil, fmt.Errorf("%w: this scene only accepts a typed action", ErrInvalidTransition)
	}
	if e.Index < 0 || e.Index >= len(seg.Choices) {
		return nil, fmt.Errorf("%w: choice %d out of range", ErrInvalidTransition, e.Index)
	}
	choice := seg.Choices[e.Index]

	clearSideErrors(gs)
	m.journal(gs, state.JournalChoice, "%s", choice.Text)
	if choice.AdvancesStage() && gs.CurrentStage < len(gs.Outline.Stages)-1 {
		gs.CurrentStage++
	}

	prompt, err := prompts.New().WithGameState(gs).WithRating(m.rating).WithChoice(choice).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	gs.IsLoadingStory = true
	return []Effect{FetchSegment{Epoch: gs.Epoch, Prompt: prompt}}, nil
}

func (m *Machine) customAction(gs *state.GameState, e SubmitCustomAction) ([]Effect, error) {
	if err := checkPlayable(gs); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: action text is empty", ErrInvalidTransition)
	}

	clearSideErrors(gs)
	m.journal(gs, state.JournalCustomAction, "%s", text)
	prompt, err := prompts.New().WithGameState(gs).WithRating(m.rating).WithCustomAction(text).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	gs.IsLoadingStory = true
	return []Effect{FetchSegment{Epoch: gs.Epoch, Prompt: prompt, CustomAction: text}}, nil
}

func (m *Machine) segmentReady(gs *state.GameState, e SegmentReady) ([]Effect, error) {
	if e.Epoch != gs.Epoch || gs.Phase != state.PhasePlaying || !gs.IsLoadingStory {
		return nil, ErrStale
	}
	seg := e.Segment
	if seg == nil || (seg.IsUserInputCommandOnly && len(seg.Choices) > 0) {
		return m.requestFailed(gs, RequestFailed{
			Epoch:        e.Epoch,
			Target:       state.TargetSegment,
			Prompt:       e.Prompt,
			CustomAction: e.CustomAction,
			Err: &content.Error{Kind: content.KindShape, Op: content.OpSegment,
				Message: "segment is missing or inconsistent", Err: content.ErrInconsistentSegment},
		})
	}
	seg = seg.Clone()

	gs.IsLoadingStory = false
	gs.IsLoadingImage = false
	gs.RetryInfo = nil
	gs.Error = nil
	gs.Examination = ""
	gs.CurrentSegment = seg
	gs.SegmentSeq++

	m.journal(gs, state.JournalScene, "%s", seg.SceneDescription)
	if e.CustomAction != "" && prompts.IsImpossibleOutcome(seg.SceneDescription) {
		m.journal(gs, state.JournalActionImpossible, "%s", e.CustomAction)
	}

	if seg.ItemFound != nil {
		if item, added := gs.AddItem(seg.ItemFound.Name, seg.ItemFound.Description); added {
			m.journal(gs, state.JournalItemFound, "Found %s", item.Name)
		} else if item.ID != "" {
			m.journal(gs, state.JournalSystem, "%s is already in your inventory", item.Name)
		}
	}

	gs.IsGameEnded = seg.IsFinalScene
	gs.IsGameFailed = seg.IsFailureScene
	if gs.Ended() {
		gs.Phase = state.PhaseEnded
		return []Effect{ClearSnapshot{}}, nil
	}

	effects := []Effect{SaveSnapshot{}}
	if gs.CanGenerateImage() && seg.ImagePrompt != "" {
		gs.IsLoadingImage = true
		effects = append(effects, FetchImage{
			Epoch:      gs.Epoch,
			SegmentSeq: gs.SegmentSeq,
			Prompt:     prompts.Image(gs.Selection.Genre, seg.ImagePrompt),
		})
	}
	return effects, nil
}

func (m *Machine) examine(gs *state.GameState) ([]Effect, error) {
	if err := checkPlayable(gs); err != nil {
		return nil, err
	}
	prompt, err := prompts.New().WithGameState(gs).WithRating(m.rating).BuildExamine()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if retryTargets(gs, state.TargetExamine) {
		gs.Error = nil
		gs.RetryInfo = nil
	}
	gs.Examination = ""
	gs.IsLoadingExamination = true
	return []Effect{FetchExamination{Epoch: gs.Epoch, Prompt: prompt}}, nil
}

func (m *Machine) examinationReady(gs *state.GameState, e ExaminationReady) ([]Effect, error) {
	if e.Epoch != gs.Epoch || !gs.IsLoadingExamination {
		return nil, ErrStale
	}
	gs.IsLoadingExamination = false
	if retryTargets(gs, state.TargetExamine) {
		gs.RetryInfo = nil
		gs.Error = nil
	}
	gs.Examination = e.Text
	m.journal(gs, state.JournalExamine, "%s", e.Text)
	return []Effect{SaveSnapshot{}}, nil
}

func (m *Machine) imageReady(gs *state.GameState, e ImageReady) ([]Effect, error) {
	if e.Epoch != gs.Epoch || e.SegmentSeq != gs.SegmentSeq || gs.CurrentSegment == nil || !gs.IsLoadingImage {
		return nil, ErrStale
	}
	gs.IsLoadingImage = false

	if e.Err == nil {
		if retryTargets(gs, state.TargetImage) {
			gs.RetryInfo = nil
		}
		if gs.Error != nil && gs.Error.Scope == state.ScopeImage {
			gs.Error = nil
		}
		if e.URL == "" {
			m.journal(gs, state.JournalSystem, "No illustration was produced for this scene.")
			return nil, nil
		}
		gs.CurrentSegment.ImageURL = e.URL
		return []Effect{SaveSnapshot{}}, nil
	}

	kind := content.KindOf(e.Err)
	var effects []Effect
	if kind == content.KindQuota {
		if !gs.ImageGenerationPermanentlyDisabled {
			gs.ImageGenerationPermanentlyDisabled = true
			effects = append(effects, PersistImageDisable{})
		}
		if !gs.ImageQuotaNoted {
			gs.ImageQuotaNoted = true
			m.journal(gs, state.JournalSystem, "%s", state.ImageQuotaNotice)
		}
	} else {
		m.journal(gs, state.JournalSystem, "Illustration failed: %s", e.Err.Error())
	}

	// a narrative request or error owns the error surface
	if gs.NarrativeBusy() || gs.HasNarrativeError() {
		return append(effects, SaveSnapshot{}), nil
	}

	msg := "The illustration for this scene could not be generated."
	if kind == content.KindQuota {
		msg = state.ImageQuotaNotice
	}
	gs.Error = &state.GameError{
		Message: msg,
		Kind:    kind,
		Scope:   state.ScopeImage,
		Actions: state.ActionsFor(kind, state.ScopeImage),
	}
	gs.RetryInfo = nil
	if gs.Error.Allows(state.ActionRetryImage) {
		gs.RetryInfo = &state.RetryInfo{Type: state.RetryResendOriginal, Target: state.TargetImage, Prompt: e.Prompt}
	}
	return append(effects, SaveSnapshot{}), nil
}

func (m *Machine) continueWithoutImage(gs *state.GameState) ([]Effect, error) {
	if gs.Error == nil || gs.Error.Scope != state.ScopeImage {
		return nil, fmt.Errorf("%w: no image error to dismiss", ErrInvalidTransition)
	}
	gs.Error = nil
	if retryTargets(gs, state.TargetImage) {
		gs.RetryInfo = nil
	}
	return nil, nil
}

func (m *Machine) restart(gs *state.GameState) []Effect {
	fresh := state.NewGameState(gs.ImageGenerationEnabled)
	fresh.ID = gs.ID
	fresh.Epoch = gs.Epoch + 1
	fresh.SegmentSeq = gs.SegmentSeq
	fresh.ImageGenerationPermanentlyDisabled = gs.ImageGenerationPermanentlyDisabled
	fresh.ImageQuotaNoted = gs.ImageQuotaNoted
	*gs = *fresh
	return []Effect{ClearSnapshot{}}
}

func (m *Machine) resume(gs *state.GameState, e Resume) ([]Effect, error) {
	if gs.Phase != state.PhaseSelectingGenre || gs.Selection.Genre != "" {
		return nil, fmt.Errorf("%w: can only resume before a new adventure starts", ErrInvalidTransition)
	}
	if e.ImagesDisabled {
		gs.ImageGenerationPermanentlyDisabled = true
	}
	if e.Snapshot == nil {
		return nil, nil
	}

	gs.Epoch++
	gs.Restore(*e.Snapshot)
	gs.SegmentSeq++
	if gs.Phase == state.PhaseEnded {
		return []Effect{ClearSnapshot{}}, nil
	}

	seg := gs.CurrentSegment
	if seg != nil && seg.ImageURL == "" && seg.ImagePrompt != "" && gs.CanGenerateImage() {
		gs.IsLoadingImage = true
		return []Effect{FetchImage{
			Epoch:      gs.Epoch,
			SegmentSeq: gs.SegmentSeq,
			Prompt:     prompts.Image(gs.Selection.Genre, seg.ImagePrompt),
		}}, nil
	}
	return nil, nil
}
