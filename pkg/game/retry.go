package game

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

// requestFailed records a narrative failure and the single recovery path
// that a later Retry will take.
func (m *Machine) requestFailed(gs *state.GameState, e RequestFailed) ([]Effect, error) {
	if e.Epoch != gs.Epoch {
		return nil, ErrStale
	}
	switch e.Target {
	case state.TargetOutline:
		if !gs.IsLoadingOutline {
			return nil, ErrStale
		}
		gs.IsLoadingOutline = false
	case state.TargetWorld:
		if !gs.IsLoadingWorld {
			return nil, ErrStale
		}
		gs.IsLoadingWorld = false
	case state.TargetSegment:
		if !gs.IsLoadingStory {
			return nil, ErrStale
		}
		gs.IsLoadingStory = false
	case state.TargetExamine:
		if !gs.IsLoadingExamination {
			return nil, ErrStale
		}
		gs.IsLoadingExamination = false
	default:
		return nil, fmt.Errorf("%w: unexpected failure target %q", ErrInvalidTransition, e.Target)
	}

	kind := content.KindOf(e.Err)
	info := &state.RetryInfo{
		Type:             state.RetryResendOriginal,
		Target:           e.Target,
		Prompt:           e.Prompt,
		CustomActionText: e.CustomAction,
	}

	// only a parse failure of an original segment request is repairable;
	// a failed repair falls back to resending the original prompt
	var ce *content.Error
	if e.Target == state.TargetSegment && !e.Repair && kind == content.KindParse &&
		errors.As(e.Err, &ce) && ce.RawText != "" {
		info.Type = state.RetryFixJSON
		info.FaultyJSONText = ce.RawText
	}
	gs.RetryInfo = info

	gs.Error = &state.GameError{
		Message: failureMessage(e.Target, kind),
		Kind:    kind,
		Scope:   state.ScopeNarrative,
		Actions: state.ActionsFor(kind, state.ScopeNarrative),
	}
	m.journal(gs, state.JournalSystem, "%s (%s)", gs.Error.Message, errorText(e.Err))
	return nil, nil
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func failureMessage(target state.RetryTarget, kind content.ErrorKind) string {
	var what string
	switch target {
	case state.TargetOutline:
		what = "The adventure outline"
	case state.TargetWorld:
		what = "The world"
	case state.TargetExamine:
		what = "The closer look"
	default:
		what = "The next scene"
	}

	switch kind {
	case content.KindParse, content.KindShape:
		return what + " came back garbled."
	case content.KindQuota:
		return what + " could not be generated because the provider quota was reached."
	case content.KindTimeout:
		return what + " took too long to generate."
	case content.KindServerConfig:
		return what + " could not be generated because the server is misconfigured."
	default:
		return what + " could not be generated."
	}
}

// retry re-issues the request described by the pending RetryInfo.
func (m *Machine) retry(gs *state.GameState) ([]Effect, error) {
	info := gs.RetryInfo
	if info == nil {
		return nil, ErrNoRetry
	}
	if gs.NarrativeBusy() {
		return nil, ErrBusy
	}
	if gs.Error != nil && !gs.Error.Allows(state.ActionRetry) && !gs.Error.Allows(state.ActionRetryImage) {
		return nil, fmt.Errorf("%w: this failure cannot be retried", ErrInvalidTransition)
	}

	switch {
	case info.Type == state.RetryFixJSON && info.FaultyJSONText != "":
		gs.Error = nil
		gs.IsLoadingStory = true
		return []Effect{RepairSegment{
			Epoch:        gs.Epoch,
			FaultyText:   info.FaultyJSONText,
			Prompt:       info.Prompt,
			CustomAction: info.CustomActionText,
		}}, nil

	case info.Target == state.TargetOutline:
		prompt, err := prompts.Outline(gs.Selection, m.rating)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		gs.Error = nil
		gs.Outline = nil
		gs.World = nil
		gs.CurrentSegment = nil
		gs.CurrentStage = 0
		gs.Phase = state.PhaseGeneratingOutline
		gs.IsLoadingOutline = true
		return []Effect{FetchOutline{Epoch: gs.Epoch, Prompt: prompt}}, nil

	case info.Target == state.TargetWorld:
		if gs.Outline == nil {
			return nil, fmt.Errorf("%w: world retry without an outline", ErrInvalidTransition)
		}
		prompt, err := prompts.World(gs.Selection, gs.Outline, m.rating)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		gs.Error = nil
		gs.World = nil
		gs.CurrentSegment = nil
		gs.CurrentStage = 0
		gs.Phase = state.PhaseGeneratingWorld
		gs.IsLoadingWorld = true
		return []Effect{FetchWorld{Epoch: gs.Epoch, Prompt: prompt}}, nil

	case info.Target == state.TargetExamine:
		gs.Error = nil
		gs.IsLoadingExamination = true
		return []Effect{FetchExamination{Epoch: gs.Epoch, Prompt: info.Prompt}}, nil

	case info.Target == state.TargetImage:
		seg := gs.CurrentSegment
		if seg == nil || seg.ImagePrompt == "" || !gs.CanGenerateImage() {
			return nil, fmt.Errorf("%w: image generation is unavailable", ErrInvalidTransition)
		}
		gs.Error = nil
		gs.IsLoadingImage = true
		return []Effect{FetchImage{
			Epoch:      gs.Epoch,
			SegmentSeq: gs.SegmentSeq,
			Prompt:     prompts.Image(gs.Selection.Genre, seg.ImagePrompt),
		}}, nil

	case info.CustomActionText != "":
		gs.Error = nil
		gs.IsLoadingStory = true
		return []Effect{FetchSegment{Epoch: gs.Epoch, Prompt: info.Prompt, CustomAction: info.CustomActionText, Retry: true}}, nil

	default:
		if info.Prompt == "" {
			return nil, ErrNoRetry
		}
		gs.Error = nil
		gs.IsLoadingStory = true
		return []Effect{FetchSegment{Epoch: gs.Epoch, Prompt: info.Prompt, Retry: true}}, nil
	}
}
