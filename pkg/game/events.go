package game

import (
	"errors"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

var (
	// ErrBusy is returned when a player action arrives while a narrative
	// request is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrInvalidTransition is returned for events that make no sense in the
	// current phase.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoRetry is returned by Retry when there is nothing to retry.
	ErrNoRetry = errors.New("nothing to retry")
	// ErrRetryPending blocks new narrative actions until a pending
	// narrative error is retried or the game restarted.
	ErrRetryPending = errors.New("a failed request must be retried first")
	// ErrStale marks a result whose epoch or segment no longer matches.
	ErrStale = errors.New("stale result")
)

// Event is an input to Machine.Apply: either a player action or the result
// of an effect.
type Event interface {
	event()
}

// Player actions.
type (
	SelectGenre struct {
		Genre adventure.Genre
	}
	SelectPersona struct {
		Persona adventure.Persona
	}
	ChooseOption struct {
		Index int
	}
	SubmitCustomAction struct {
		Text string
	}
	Examine              struct{}
	DismissExamination   struct{}
	Retry                struct{}
	ContinueWithoutImage struct{}
	Restart              struct{}
	// Resume restores a saved adventure at startup. Snapshot may be nil
	// when there is nothing to resume.
	Resume struct {
		Snapshot       *state.Snapshot
		ImagesDisabled bool
	}
)

// Effect results.
type (
	OutlineReady struct {
		Epoch   uint64
		Outline *adventure.Outline
	}
	WorldReady struct {
		Epoch uint64
		World *adventure.WorldDetails
	}
	SegmentReady struct {
		Epoch        uint64
		Segment      *adventure.StorySegment
		Prompt       string
		CustomAction string
	}
	ExaminationReady struct {
		Epoch uint64
		Text  string
	}
	// ImageReady carries an image result. An empty URL with a nil Err is
	// a soft failure.
	ImageReady struct {
		Epoch      uint64
		SegmentSeq uint64
		Prompt     string
		URL        string
		Err        error
	}
	// RequestFailed reports a failed narrative request. Repair is set when
	// the failed request was a JSON repair; Prompt is always the original
	// narrative prompt.
	RequestFailed struct {
		Epoch        uint64
		Target       state.RetryTarget
		Prompt       string
		CustomAction string
		Repair       bool
		Err          error
	}
)

func (SelectGenre) event()          {}
func (SelectPersona) event()        {}
func (ChooseOption) event()         {}
func (SubmitCustomAction) event()   {}
func (Examine) event()              {}
func (DismissExamination) event()   {}
func (Retry) event()                {}
func (ContinueWithoutImage) event() {}
func (Restart) event()              {}
func (Resume) event()               {}
func (OutlineReady) event()         {}
func (WorldReady) event()           {}
func (SegmentReady) event()         {}
func (ExaminationReady) event()     {}
func (ImageReady) event()           {}
func (RequestFailed) event()        {}

// Effect is work requested by Machine.Apply. The controller executes it and
// feeds the result back as an Event.
type Effect interface {
	effect()
}

type (
	FetchOutline struct {
		Epoch  uint64
		Prompt string
	}
	FetchWorld struct {
		Epoch  uint64
		Prompt string
	}
	FetchSegment struct {
		Epoch        uint64
		Prompt       string
		CustomAction string
		Retry        bool
	}
	// RepairSegment resubmits faulty output. Prompt and CustomAction
	// describe the original request so a failed repair can fall back to it.
	RepairSegment struct {
		Epoch        uint64
		FaultyText   string
		Prompt       string
		CustomAction string
	}
	FetchExamination struct {
		Epoch  uint64
		Prompt string
	}
	FetchImage struct {
		Epoch      uint64
		SegmentSeq uint64
		Prompt     string
	}
	SaveSnapshot        struct{}
	ClearSnapshot       struct{}
	PersistImageDisable struct{}
)

func (FetchOutline) effect()        {}
func (FetchWorld) effect()          {}
func (FetchSegment) effect()        {}
func (RepairSegment) effect()       {}
func (FetchExamination) effect()    {}
func (FetchImage) effect()          {}
func (SaveSnapshot) effect()        {}
func (ClearSnapshot) effect()       {}
func (PersistImageDisable) effect() {}
