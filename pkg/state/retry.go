package state

import "github.com/jwebster45206/adventure-engine/pkg/content"

// RetryType is the recovery strategy recorded after a failure.
type RetryType string

const (
	RetryResendOriginal RetryType = "resend_original"
	RetryFixJSON        RetryType = "fix_json"
)

// RetryTarget names the request a retry re-issues.
type RetryTarget string

const (
	TargetOutline RetryTarget = "outline"
	TargetWorld   RetryTarget = "world"
	TargetSegment RetryTarget = "segment"
	TargetExamine RetryTarget = "examine"
	TargetImage   RetryTarget = "image"
)

// RetryInfo exists only between a failure and either a successful retry or
// a restart. A new value always replaces the previous one.
type RetryInfo struct {
	Type             RetryType   `json:"type"`
	Target           RetryTarget `json:"target"`
	Prompt           string      `json:"prompt,omitempty"`
	FaultyJSONText   string      `json:"faulty_json_text,omitempty"`
	CustomActionText string      `json:"custom_action_text,omitempty"`
}

// ErrorScope separates failures that halt the story from image-only ones.
type ErrorScope string

const (
	ScopeNarrative ErrorScope = "narrative"
	ScopeImage     ErrorScope = "image"
)

// Action is a recovery affordance offered to the player.
type Action string

const (
	ActionRetry                Action = "retry"
	ActionContinueWithoutImage Action = "continue_without_image"
	ActionRetryImage           Action = "retry_image"
	ActionStartNewGame         Action = "start_new_game"
)

// GameError is the user-facing error surface.
type GameError struct {
	Message string            `json:"message"`
	Kind    content.ErrorKind `json:"kind"`
	Scope   ErrorScope        `json:"scope"`
	Actions []Action          `json:"actions"`
}

// Allows reports whether the player may take action a.
func (e *GameError) Allows(a Action) bool {
	if e == nil {
		return false
	}
	for _, candidate := range e.Actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ActionsFor maps an error kind and scope to the recovery actions the UI
// may offer. Image failures never offer only a restart, and server
// configuration failures never offer a retry.
func ActionsFor(kind content.ErrorKind, scope ErrorScope) []Action {
	if scope == ScopeImage {
		if kind.Retryable() && kind != content.KindQuota {
			return []Action{ActionContinueWithoutImage, ActionRetryImage}
		}
		return []Action{ActionContinueWithoutImage}
	}
	if kind.Retryable() {
		return []Action{ActionRetry, ActionStartNewGame}
	}
	return []Action{ActionStartNewGame}
}
