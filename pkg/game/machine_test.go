package game

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

var fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var (
	walkOn  = adventure.Choice{Text: "Walk on", OutcomePrompt: "You keep walking"}
	finish  = adventure.Choice{Text: "Seize the map", OutcomePrompt: "The map is yours", SignalsStageCompletion: true}
	doomed  = adventure.Choice{Text: "Leap the chasm", OutcomePrompt: "You fall", SignalsStageCompletion: true, LeadsToFailure: true}
	choices = []adventure.Choice{walkOn, finish, doomed}
)

func newTestMachine() *Machine {
	m := NewMachine("PG")
	m.now = func() time.Time { return fixedTime }
	return m
}

func testOutline() *adventure.Outline {
	return &adventure.Outline{
		Title:       "The Glass Tower",
		OverallGoal: "Reach the top",
		Stages: []adventure.Stage{
			{Title: "Gate", Description: "The base", Objective: "Get inside"},
			{Title: "Stairs", Description: "The climb", Objective: "Reach the spire"},
			{Title: "Spire", Description: "The top", Objective: "Ring the bell"},
		},
	}
}

func testWorld() *adventure.WorldDetails {
	return &adventure.WorldDetails{
		WorldName:                   "Lumen",
		GenreClarification:          "Fairy tale",
		KeyEnvironmentalFeatures:    []string{"Glass"},
		DominantSocietiesOrFactions: []string{},
		UniqueCreaturesOrMonsters:   []string{},
		MagicSystemOverview:         "Light",
		BriefHistoryHook:            "A lost bell",
		CulturalNormsOrTaboos:       []string{},
	}
}

func scene(text string) *adventure.StorySegment {
	return &adventure.StorySegment{SceneDescription: text, Choices: append([]adventure.Choice(nil), choices...)}
}

func mustApply(t *testing.T, m *Machine, gs *state.GameState, ev Event) []Effect {
	t.Helper()
	effects, err := m.Apply(gs, ev)
	require.NoError(t, err, "applying %T", ev)
	return effects
}

func accept(t *testing.T, m *Machine, gs *state.GameState, seg *adventure.StorySegment) []Effect {
	t.Helper()
	return mustApply(t, m, gs, SegmentReady{Epoch: gs.Epoch, Segment: seg, Prompt: "prompt"})
}

// playing walks a fresh state through selection and generation to the
// opening scene.
func playing(t *testing.T, m *Machine, imagesEnabled bool) *state.GameState {
	t.Helper()
	gs := state.NewGameState(imagesEnabled)
	mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreFantasy})
	mustApply(t, m, gs, SelectPersona{Persona: adventure.PersonaRogue})
	mustApply(t, m, gs, OutlineReady{Epoch: gs.Epoch, Outline: testOutline()})
	mustApply(t, m, gs, WorldReady{Epoch: gs.Epoch, World: testWorld()})
	accept(t, m, gs, scene("The tower gate looms."))
	require.Equal(t, state.PhasePlaying, gs.Phase)
	return gs
}

func effectOf[T Effect](t *testing.T, effects []Effect) T {
	t.Helper()
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T in %#v", zero, effects)
	return zero
}

func hasEffect[T Effect](effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

func countJournal(gs *state.GameState, typ state.JournalType, content string) int {
	n := 0
	for _, e := range gs.Journal {
		if e.Type == typ && (content == "" || e.Content == content) {
			n++
		}
	}
	return n
}

func TestMachine_SelectionToPlaying(t *testing.T) {
	m := newTestMachine()
	gs := state.NewGameState(false)

	effects := mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreHorror})
	assert.Empty(t, effects)
	assert.Equal(t, state.PhaseSelectingPersona, gs.Phase)
	assert.EqualValues(t, 1, gs.Epoch)

	effects = mustApply(t, m, gs, SelectPersona{Persona: adventure.PersonaScholar})
	fetch := effectOf[FetchOutline](t, effects)
	assert.NotEmpty(t, fetch.Prompt)
	assert.Equal(t, state.PhaseGeneratingOutline, gs.Phase)
	assert.True(t, gs.IsLoadingOutline)

	effects = mustApply(t, m, gs, OutlineReady{Epoch: gs.Epoch, Outline: testOutline()})
	effectOf[FetchWorld](t, effects)
	assert.Equal(t, state.PhaseGeneratingWorld, gs.Phase)
	assert.False(t, gs.IsLoadingOutline)
	assert.True(t, gs.IsLoadingWorld)

	effects = mustApply(t, m, gs, WorldReady{Epoch: gs.Epoch, World: testWorld()})
	effectOf[FetchSegment](t, effects)
	assert.Equal(t, state.PhasePlaying, gs.Phase)
	assert.True(t, gs.IsLoadingStory)
	assert.Equal(t, 1, countJournal(gs, state.JournalWorldGenerated, ""))

	effects = accept(t, m, gs, scene("A crypt."))
	assert.True(t, hasEffect[SaveSnapshot](effects))
	assert.False(t, hasEffect[FetchImage](effects), "images are disabled")
	assert.Nil(t, gs.RetryInfo)
	assert.EqualValues(t, 1, gs.SegmentSeq)
}

func TestMachine_SelectGenreRejectedDuringPlay(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	before := gs.Clone()

	_, err := m.Apply(gs, SelectGenre{Genre: adventure.GenreMystery})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, gs, "a rejected event must not change the state")
}

func TestMachine_SelectGenreFiltersJournal(t *testing.T) {
	m := newTestMachine()
	gs := state.NewGameState(true)
	mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreFantasy})
	gs.AppendJournal(state.JournalScene, "old scene", fixedTime)
	gs.AppendJournal(state.JournalSystem, state.ImageQuotaNotice, fixedTime)
	gs.AppendJournal(state.JournalSystem, "some other failure", fixedTime)
	gs.AddItem("Lantern", "")

	mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreSciFi})

	assert.Equal(t, 2, countJournal(gs, state.JournalGenreSelected, ""))
	assert.Equal(t, 1, countJournal(gs, state.JournalSystem, state.ImageQuotaNotice))
	assert.Equal(t, 0, countJournal(gs, state.JournalScene, ""))
	assert.Equal(t, 0, countJournal(gs, state.JournalSystem, "some other failure"))
	assert.Empty(t, gs.Inventory)
	assert.Equal(t, adventure.GenreSciFi, gs.Selection.Genre)
}

func TestMachine_SelectPersonaInventory(t *testing.T) {
	tests := []struct {
		name     string
		persona  adventure.Persona
		wantKept bool
	}{
		{"same persona keeps inventory", adventure.PersonaRogue, true},
		{"different persona clears inventory", adventure.PersonaWarrior, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine()
			gs := state.NewGameState(false)
			gs.Phase = state.PhaseSelectingPersona
			gs.Selection.Genre = adventure.GenreFantasy
			gs.LastPersona = adventure.PersonaRogue
			gs.AddItem("Lockpick", "")

			mustApply(t, m, gs, SelectPersona{Persona: tt.persona})
			assert.Equal(t, tt.wantKept, gs.HasItem("lockpick"))
			assert.Equal(t, tt.persona, gs.LastPersona)
		})
	}
}

// Outline fetch fails with a transport error, is retried, and generation
// continues to the world without asking for a persona again.
func TestMachine_OutlineFailureAndRetry(t *testing.T) {
	m := newTestMachine()
	gs := state.NewGameState(false)
	mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreFantasy})
	fetch := effectOf[FetchOutline](t, mustApply(t, m, gs, SelectPersona{Persona: adventure.PersonaRogue}))

	mustApply(t, m, gs, RequestFailed{
		Epoch:  gs.Epoch,
		Target: state.TargetOutline,
		Prompt: fetch.Prompt,
		Err:    content.Classify(content.OpOutline, errors.New("connection reset by peer")),
	})
	require.NotNil(t, gs.RetryInfo)
	assert.Equal(t, state.RetryResendOriginal, gs.RetryInfo.Type)
	assert.Equal(t, state.TargetOutline, gs.RetryInfo.Target)
	require.NotNil(t, gs.Error)
	assert.Equal(t, content.KindTransport, gs.Error.Kind)
	assert.True(t, gs.Error.Allows(state.ActionRetry))
	assert.False(t, gs.IsLoadingOutline)
	assert.Equal(t, 1, countJournal(gs, state.JournalSystem, ""))

	effects := mustApply(t, m, gs, Retry{})
	effectOf[FetchOutline](t, effects)
	assert.Equal(t, state.PhaseGeneratingOutline, gs.Phase)
	assert.True(t, gs.IsLoadingOutline)
	assert.Nil(t, gs.Error)

	effects = mustApply(t, m, gs, OutlineReady{Epoch: gs.Epoch, Outline: testOutline()})
	effectOf[FetchWorld](t, effects)
	assert.Equal(t, state.PhaseGeneratingWorld, gs.Phase)
	assert.Equal(t, adventure.PersonaRogue, gs.Selection.Persona)
	assert.Nil(t, gs.RetryInfo)
}

func TestMachine_WorldRetryClearsDownstream(t *testing.T) {
	m := newTestMachine()
	gs := state.NewGameState(false)
	mustApply(t, m, gs, SelectGenre{Genre: adventure.GenreFantasy})
	mustApply(t, m, gs, SelectPersona{Persona: adventure.PersonaRogue})
	mustApply(t, m, gs, OutlineReady{Epoch: gs.Epoch, Outline: testOutline()})
	mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetWorld, Err: timeoutErr()})

	assert.Equal(t, content.KindTimeout, gs.Error.Kind)
	assert.Equal(t, state.TargetWorld, gs.RetryInfo.Target)

	effectOf[FetchWorld](t, mustApply(t, m, gs, Retry{}))
	assert.Nil(t, gs.World)
	assert.Nil(t, gs.CurrentSegment)
	assert.NotNil(t, gs.Outline, "the outline is kept")
	assert.True(t, gs.IsLoadingWorld)
}

func timeoutErr() error {
	return &content.Error{Kind: content.KindTimeout, Op: content.OpWorld, Message: "deadline exceeded"}
}

// A truncated segment is repaired first; when the repair also fails the
// retry falls back to the original narrative prompt.
func TestMachine_MalformedSegmentRepairAndDemotion(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)

	fetch := effectOf[FetchSegment](t, mustApply(t, m, gs, ChooseOption{Index: 0}))
	raw := `{"sceneDescription": "A door.", "choices": [`

	mustApply(t, m, gs, RequestFailed{
		Epoch:  gs.Epoch,
		Target: state.TargetSegment,
		Prompt: fetch.Prompt,
		Err:    &content.Error{Kind: content.KindParse, Op: content.OpSegment, RawText: raw},
	})
	require.NotNil(t, gs.RetryInfo)
	assert.Equal(t, state.RetryFixJSON, gs.RetryInfo.Type)
	assert.Equal(t, raw, gs.RetryInfo.FaultyJSONText)
	assert.Equal(t, fetch.Prompt, gs.RetryInfo.Prompt)

	repair := effectOf[RepairSegment](t, mustApply(t, m, gs, Retry{}))
	assert.Equal(t, raw, repair.FaultyText)
	assert.Equal(t, fetch.Prompt, repair.Prompt)
	assert.True(t, gs.IsLoadingStory)

	_, err := m.Apply(gs, ChooseOption{Index: 0})
	assert.ErrorIs(t, err, ErrBusy)

	mustApply(t, m, gs, RequestFailed{
		Epoch:  gs.Epoch,
		Target: state.TargetSegment,
		Prompt: repair.Prompt,
		Repair: true,
		Err:    &content.Error{Kind: content.KindShape, Op: content.OpRepair, RawText: `{"choices":[]}`},
	})
	require.NotNil(t, gs.RetryInfo)
	assert.Equal(t, state.RetryResendOriginal, gs.RetryInfo.Type)
	assert.Equal(t, fetch.Prompt, gs.RetryInfo.Prompt)
	assert.Empty(t, gs.RetryInfo.FaultyJSONText)

	resend := effectOf[FetchSegment](t, mustApply(t, m, gs, Retry{}))
	assert.Equal(t, fetch.Prompt, resend.Prompt)
	assert.True(t, resend.Retry)

	accept(t, m, gs, scene("The door opens."))
	assert.Nil(t, gs.RetryInfo)
	assert.Nil(t, gs.Error)
}

func TestMachine_ShapeFailureIsNotRepaired(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	mustApply(t, m, gs, ChooseOption{Index: 0})

	mustApply(t, m, gs, RequestFailed{
		Epoch:  gs.Epoch,
		Target: state.TargetSegment,
		Prompt: "p",
		Err:    &content.Error{Kind: content.KindShape, Op: content.OpSegment, RawText: `{"sceneDescription":""}`},
	})
	assert.Equal(t, state.RetryResendOriginal, gs.RetryInfo.Type)
}

// A segment that accepts only typed input must not carry choices.
func TestMachine_RejectsInconsistentSegment(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	current := gs.CurrentSegment.Clone()
	mustApply(t, m, gs, ChooseOption{Index: 0})

	bad := scene("Say the word.")
	bad.IsUserInputCommandOnly = true
	mustApply(t, m, gs, SegmentReady{Epoch: gs.Epoch, Segment: bad, Prompt: "p"})

	assert.Equal(t, current, gs.CurrentSegment)
	require.NotNil(t, gs.Error)
	assert.Equal(t, content.KindShape, gs.Error.Kind)
	assert.Equal(t, state.RetryResendOriginal, gs.RetryInfo.Type)
}

func TestMachine_InputOnlySegment(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	mustApply(t, m, gs, ChooseOption{Index: 0})
	accept(t, m, gs, &adventure.StorySegment{SceneDescription: "Speak the password.", IsUserInputCommandOnly: true})

	_, err := m.Apply(gs, ChooseOption{Index: 0})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	fetch := effectOf[FetchSegment](t, mustApply(t, m, gs, SubmitCustomAction{Text: "  mellon "}))
	assert.Equal(t, "mellon", fetch.CustomAction)
	assert.Equal(t, 1, countJournal(gs, state.JournalCustomAction, "mellon"))
}

func TestMachine_CustomActionImpossible(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)

	fetch := effectOf[FetchSegment](t, mustApply(t, m, gs, SubmitCustomAction{Text: "fly to the moon"}))
	seg := scene("That action is not possible: you have no wings.")
	mustApply(t, m, gs, SegmentReady{Epoch: gs.Epoch, Segment: seg, Prompt: fetch.Prompt, CustomAction: fetch.CustomAction})

	assert.Equal(t, 1, countJournal(gs, state.JournalActionImpossible, "fly to the moon"))
	assert.Equal(t, state.PhasePlaying, gs.Phase)
}

func TestMachine_CustomActionRetryReplaysAction(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)

	fetch := effectOf[FetchSegment](t, mustApply(t, m, gs, SubmitCustomAction{Text: "whistle"}))
	mustApply(t, m, gs, RequestFailed{
		Epoch: gs.Epoch, Target: state.TargetSegment, Prompt: fetch.Prompt, CustomAction: fetch.CustomAction,
		Err: &content.Error{Kind: content.KindTransport, Op: content.OpCustomAction},
	})
	assert.Equal(t, "whistle", gs.RetryInfo.CustomActionText)

	replay := effectOf[FetchSegment](t, mustApply(t, m, gs, Retry{}))
	assert.Equal(t, "whistle", replay.CustomAction)
	assert.Equal(t, fetch.Prompt, replay.Prompt)
	assert.True(t, replay.Retry)
	assert.Equal(t, 1, countJournal(gs, state.JournalCustomAction, "whistle"), "a replay is not journaled twice")
}

func TestMachine_StageAdvancement(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)

	mustApply(t, m, gs, ChooseOption{Index: 0})
	assert.Equal(t, 0, gs.CurrentStage, "plain choices do not advance")
	accept(t, m, gs, scene("s"))

	mustApply(t, m, gs, ChooseOption{Index: 1})
	assert.Equal(t, 1, gs.CurrentStage)

	// the failed fetch keeps the committed stage change
	mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetSegment, Prompt: "p",
		Err: &content.Error{Kind: content.KindTransport}})
	assert.Equal(t, 1, gs.CurrentStage)
	mustApply(t, m, gs, Retry{})
	assert.Equal(t, 1, gs.CurrentStage, "a retry does not advance again")
	accept(t, m, gs, scene("s"))

	for i := 0; i < 4; i++ {
		before := gs.CurrentStage
		mustApply(t, m, gs, ChooseOption{Index: 1})
		assert.GreaterOrEqual(t, gs.CurrentStage, before)
		assert.LessOrEqual(t, gs.CurrentStage, len(gs.Outline.Stages)-1)
		accept(t, m, gs, scene("s"))
	}
	assert.Equal(t, 2, gs.CurrentStage)
}

// Choosing a stage-completing option that also leads to failure does not
// advance the stage, and the following scene ends the adventure.
func TestMachine_FailureSuppressesStageAdvance(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	mustApply(t, m, gs, ChooseOption{Index: 1})
	accept(t, m, gs, scene("Stage two begins."))
	require.Equal(t, 1, gs.CurrentStage)

	fetch := effectOf[FetchSegment](t, mustApply(t, m, gs, ChooseOption{Index: 2}))
	assert.Equal(t, 1, gs.CurrentStage)
	assert.Contains(t, fetch.Prompt, "This choice ends the adventure in failure")

	effects := accept(t, m, gs, &adventure.StorySegment{SceneDescription: "You fall.", IsFailureScene: true})
	assert.True(t, gs.IsGameFailed)
	assert.Equal(t, state.PhaseEnded, gs.Phase)
	assert.True(t, hasEffect[ClearSnapshot](effects))
	assert.False(t, hasEffect[SaveSnapshot](effects))

	_, err := m.Apply(gs, ChooseOption{Index: 0})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_FinalSceneSkipsImage(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, true)
	mustApply(t, m, gs, ChooseOption{Index: 0})

	effects := accept(t, m, gs, &adventure.StorySegment{SceneDescription: "You win.", ImagePrompt: "a bell", IsFinalScene: true})
	assert.False(t, hasEffect[FetchImage](effects))
	assert.True(t, gs.IsGameEnded)
	assert.False(t, gs.IsLoadingImage)
}

func TestMachine_InventoryIdempotence(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)

	for i := 0; i < 2; i++ {
		mustApply(t, m, gs, ChooseOption{Index: 0})
		seg := scene("You find a key.")
		seg.ItemFound = &adventure.ItemFound{Name: "Brass Key", Description: "Old"}
		accept(t, m, gs, seg)
	}

	n := 0
	for _, item := range gs.Inventory {
		if item.ID == "brass-key" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countJournal(gs, state.JournalItemFound, ""))
	assert.Equal(t, 1, countJournal(gs, state.JournalSystem, "Brass Key is already in your inventory"))
}

// An image quota failure disables images for good without touching the
// accepted scene.
func TestMachine_ImageQuota(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, true)

	mustApply(t, m, gs, ChooseOption{Index: 0})
	seg := scene("A hall of mirrors.")
	seg.ImagePrompt = "mirrors"
	img := effectOf[FetchImage](t, accept(t, m, gs, seg))
	assert.True(t, gs.IsLoadingImage)
	assert.Equal(t, gs.SegmentSeq, img.SegmentSeq)

	effects := mustApply(t, m, gs, ImageReady{
		Epoch: img.Epoch, SegmentSeq: img.SegmentSeq, Prompt: img.Prompt,
		Err: content.Classify(content.OpImage, &content.ProviderError{Status: 429, Code: content.CodeQuotaExceeded}),
	})
	assert.True(t, hasEffect[PersistImageDisable](effects))
	assert.True(t, gs.ImageGenerationPermanentlyDisabled)
	assert.Equal(t, "A hall of mirrors.", gs.CurrentSegment.SceneDescription)
	assert.Empty(t, gs.CurrentSegment.ImageURL)
	assert.Equal(t, 1, countJournal(gs, state.JournalSystem, state.ImageQuotaNotice))
	require.NotNil(t, gs.Error)
	assert.Equal(t, state.ScopeImage, gs.Error.Scope)
	assert.Equal(t, []state.Action{state.ActionContinueWithoutImage}, gs.Error.Actions)

	_, err := m.Apply(gs, Retry{})
	assert.ErrorIs(t, err, ErrNoRetry)

	mustApply(t, m, gs, ContinueWithoutImage{})
	assert.Nil(t, gs.Error)

	mustApply(t, m, gs, ChooseOption{Index: 0})
	next := scene("Another hall.")
	next.ImagePrompt = "more mirrors"
	effects = accept(t, m, gs, next)
	assert.False(t, hasEffect[FetchImage](effects))
	assert.False(t, gs.IsLoadingImage)

	mustApply(t, m, gs, Restart{})
	assert.True(t, gs.ImageGenerationPermanentlyDisabled, "the quota flag survives a restart")
}

func TestMachine_ImageFailureRetry(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, true)
	mustApply(t, m, gs, ChooseOption{Index: 0})
	seg := scene("A garden.")
	seg.ImagePrompt = "a garden"
	img := effectOf[FetchImage](t, accept(t, m, gs, seg))

	mustApply(t, m, gs, ImageReady{Epoch: img.Epoch, SegmentSeq: img.SegmentSeq, Prompt: img.Prompt,
		Err: &content.Error{Kind: content.KindTransport, Op: content.OpImage}})
	require.NotNil(t, gs.Error)
	assert.Equal(t, state.ScopeImage, gs.Error.Scope)
	assert.ElementsMatch(t, []state.Action{state.ActionContinueWithoutImage, state.ActionRetryImage}, gs.Error.Actions)
	assert.NotContains(t, gs.Error.Actions, state.ActionStartNewGame)
	assert.Equal(t, state.TargetImage, gs.RetryInfo.Target)

	// the scene stays playable while the image error is shown
	assert.False(t, gs.HasNarrativeError())

	retry := effectOf[FetchImage](t, mustApply(t, m, gs, Retry{}))
	assert.Equal(t, gs.SegmentSeq, retry.SegmentSeq)
	assert.True(t, gs.IsLoadingImage)

	mustApply(t, m, gs, ImageReady{Epoch: retry.Epoch, SegmentSeq: retry.SegmentSeq, URL: "data:image/png;base64,AAAA"})
	assert.Equal(t, "data:image/png;base64,AAAA", gs.CurrentSegment.ImageURL)
	assert.Nil(t, gs.RetryInfo)
	assert.Nil(t, gs.Error)
}

func TestMachine_ImageFailureDuringNarrativeOnlyJournals(t *testing.T) {
	tests := []struct {
		name   string
		action Event
	}{
		{"next scene loading", ChooseOption{Index: 0}},
		{"examination loading", Examine{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine()
			gs := playing(t, m, true)
			mustApply(t, m, gs, ChooseOption{Index: 0})
			seg := scene("A bridge.")
			seg.ImagePrompt = "a bridge"
			img := effectOf[FetchImage](t, accept(t, m, gs, seg))

			mustApply(t, m, gs, tt.action)
			mustApply(t, m, gs, ImageReady{Epoch: img.Epoch, SegmentSeq: img.SegmentSeq, Err: errors.New("boom")})
			assert.Nil(t, gs.Error)
			assert.Nil(t, gs.RetryInfo)
			assert.False(t, gs.IsLoadingImage)
			assert.Equal(t, 1, countJournal(gs, state.JournalSystem, "Illustration failed: boom"))
		})
	}
}

func TestMachine_StaleImageIsNotStamped(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, true)
	mustApply(t, m, gs, ChooseOption{Index: 0})
	first := scene("First.")
	first.ImagePrompt = "first"
	img := effectOf[FetchImage](t, accept(t, m, gs, first))

	mustApply(t, m, gs, ChooseOption{Index: 0})
	second := scene("Second.")
	second.ImagePrompt = "second"
	img2 := effectOf[FetchImage](t, accept(t, m, gs, second))

	_, err := m.Apply(gs, ImageReady{Epoch: img.Epoch, SegmentSeq: img.SegmentSeq, URL: "data:first"})
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, gs.CurrentSegment.ImageURL)

	mustApply(t, m, gs, ImageReady{Epoch: img2.Epoch, SegmentSeq: img2.SegmentSeq, URL: "data:second"})
	assert.Equal(t, "data:second", gs.CurrentSegment.ImageURL)
}

func TestMachine_EmptyImageIsSoftFailure(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, true)
	mustApply(t, m, gs, ChooseOption{Index: 0})
	seg := scene("Fog.")
	seg.ImagePrompt = "fog"
	img := effectOf[FetchImage](t, accept(t, m, gs, seg))

	mustApply(t, m, gs, ImageReady{Epoch: img.Epoch, SegmentSeq: img.SegmentSeq})
	assert.Nil(t, gs.Error)
	assert.False(t, gs.IsLoadingImage)
	assert.Empty(t, gs.CurrentSegment.ImageURL)
}

func TestMachine_Guards(t *testing.T) {
	m := newTestMachine()

	t.Run("busy", func(t *testing.T) {
		gs := playing(t, m, false)
		mustApply(t, m, gs, ChooseOption{Index: 0})
		_, err := m.Apply(gs, SubmitCustomAction{Text: "jump"})
		assert.ErrorIs(t, err, ErrBusy)
		_, err = m.Apply(gs, Examine{})
		assert.ErrorIs(t, err, ErrBusy)
	})

	t.Run("retry pending", func(t *testing.T) {
		gs := playing(t, m, false)
		mustApply(t, m, gs, ChooseOption{Index: 0})
		mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetSegment, Prompt: "p",
			Err: &content.Error{Kind: content.KindTransport}})
		_, err := m.Apply(gs, ChooseOption{Index: 0})
		assert.ErrorIs(t, err, ErrRetryPending)
	})

	t.Run("nothing to retry", func(t *testing.T) {
		gs := playing(t, m, false)
		_, err := m.Apply(gs, Retry{})
		assert.ErrorIs(t, err, ErrNoRetry)
	})

	t.Run("server configuration is not retryable", func(t *testing.T) {
		gs := playing(t, m, false)
		mustApply(t, m, gs, ChooseOption{Index: 0})
		mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetSegment, Prompt: "p",
			Err: &content.Error{Kind: content.KindServerConfig}})
		assert.Equal(t, []state.Action{state.ActionStartNewGame}, gs.Error.Actions)
		_, err := m.Apply(gs, Retry{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("choice out of range", func(t *testing.T) {
		gs := playing(t, m, false)
		_, err := m.Apply(gs, ChooseOption{Index: 7})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("empty custom action", func(t *testing.T) {
		gs := playing(t, m, false)
		_, err := m.Apply(gs, SubmitCustomAction{Text: "   "})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestMachine_StaleAfterRestart(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	mustApply(t, m, gs, ChooseOption{Index: 0})
	oldEpoch := gs.Epoch

	effects := mustApply(t, m, gs, Restart{})
	assert.True(t, hasEffect[ClearSnapshot](effects))
	assert.Equal(t, state.PhaseSelectingGenre, gs.Phase)
	assert.Greater(t, gs.Epoch, oldEpoch)
	assert.Empty(t, gs.Journal)
	assert.Nil(t, gs.Outline)
	assert.False(t, gs.IsLoadingStory)

	_, err := m.Apply(gs, SegmentReady{Epoch: oldEpoch, Segment: scene("late"), Prompt: "p"})
	assert.ErrorIs(t, err, ErrStale)
	assert.Nil(t, gs.CurrentSegment)

	_, err = m.Apply(gs, RequestFailed{Epoch: oldEpoch, Target: state.TargetSegment, Err: errors.New("late")})
	assert.ErrorIs(t, err, ErrStale)
	assert.Nil(t, gs.Error)
}

func TestMachine_Examine(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	gs.AddItem("Rope", "")
	before := gs.Clone()

	fetch := effectOf[FetchExamination](t, mustApply(t, m, gs, Examine{}))
	assert.True(t, gs.IsLoadingExamination)
	assert.False(t, gs.IsLoadingStory)

	mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetExamine, Prompt: fetch.Prompt,
		Err: &content.Error{Kind: content.KindTimeout}})
	assert.Equal(t, state.TargetExamine, gs.RetryInfo.Target)

	retry := effectOf[FetchExamination](t, mustApply(t, m, gs, Retry{}))
	assert.Equal(t, fetch.Prompt, retry.Prompt)

	mustApply(t, m, gs, ExaminationReady{Epoch: gs.Epoch, Text: "Scratches on the lock."})
	assert.Equal(t, "Scratches on the lock.", gs.Examination)
	assert.Equal(t, 1, countJournal(gs, state.JournalExamine, "Scratches on the lock."))
	assert.Equal(t, before.CurrentSegment, gs.CurrentSegment)
	assert.Equal(t, before.CurrentStage, gs.CurrentStage)
	assert.Equal(t, before.Inventory, gs.Inventory)
	assert.Nil(t, gs.RetryInfo)

	mustApply(t, m, gs, DismissExamination{})
	assert.Empty(t, gs.Examination)
}

func TestMachine_ExamineFailureDoesNotBlockChoices(t *testing.T) {
	m := newTestMachine()
	gs := playing(t, m, false)
	mustApply(t, m, gs, Examine{})
	mustApply(t, m, gs, RequestFailed{Epoch: gs.Epoch, Target: state.TargetExamine, Prompt: "p",
		Err: &content.Error{Kind: content.KindTransport}})

	mustApply(t, m, gs, ChooseOption{Index: 0})
	assert.Nil(t, gs.Error)
	assert.Nil(t, gs.RetryInfo)
}

func TestMachine_Resume(t *testing.T) {
	m := newTestMachine()
	saved := playing(t, m, true)
	saved.CurrentSegment.ImagePrompt = "the gate"
	saved.CurrentStage = 1
	snap := saved.ToSnapshot(fixedTime)

	gs := state.NewGameState(true)
	effects := mustApply(t, m, gs, Resume{Snapshot: &snap})
	assert.Equal(t, state.PhasePlaying, gs.Phase)
	assert.Equal(t, 1, gs.CurrentStage)
	img := effectOf[FetchImage](t, effects)
	assert.Equal(t, gs.SegmentSeq, img.SegmentSeq)
	assert.True(t, strings.HasPrefix(img.Prompt, "the gate"))

	_, err := m.Apply(gs, Resume{Snapshot: &snap})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	fresh := state.NewGameState(true)
	effects = mustApply(t, m, fresh, Resume{ImagesDisabled: true})
	assert.Empty(t, effects)
	assert.True(t, fresh.ImageGenerationPermanentlyDisabled)
	assert.Equal(t, state.PhaseSelectingGenre, fresh.Phase)
}
