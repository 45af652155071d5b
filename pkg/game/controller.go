package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

// ContentService is the provider surface the controller needs.
// *content.Client implements it.
type ContentService interface {
	Outline(ctx context.Context, prompt string) (*adventure.Outline, error)
	World(ctx context.Context, prompt string) (*adventure.WorldDetails, error)
	Segment(ctx context.Context, prompt string) (*adventure.StorySegment, error)
	CustomActionOutcome(ctx context.Context, prompt string) (*adventure.StorySegment, error)
	RepairSegment(ctx context.Context, faulty string) (*adventure.StorySegment, error)
	EvaluateAction(ctx context.Context, prompt string) (*adventure.Feasibility, error)
	Examine(ctx context.Context, prompt string) (string, error)
	Image(ctx context.Context, prompt string) (string, error)
}

// Persistence stores snapshots. *persistence.Gateway implements it.
type Persistence interface {
	Save(ctx context.Context, gs *state.GameState) (bool, error)
	Load(ctx context.Context) (*state.Snapshot, error)
	Clear(ctx context.Context) error
	DisableImages(ctx context.Context) error
	ImagesDisabled(ctx context.Context) (bool, error)
}

// Controller is the single writer of a GameState. Player events are applied
// one at a time; narrative effects run on the caller's goroutine and image
// effects run in the background.
type Controller struct {
	mu      sync.Mutex
	gs      *state.GameState
	machine *Machine
	content ContentService
	store   Persistence
	logger  *slog.Logger

	busy   bool
	flight uint64
	cancel context.CancelFunc

	// persist orders snapshot writes and clears. A save reads the state
	// while holding it, so it can never land after a later clear.
	persist sync.Mutex

	images   sync.WaitGroup
	observer func(*state.GameState)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPersistence enables snapshot saving and resume.
func WithPersistence(p Persistence) ControllerOption {
	return func(c *Controller) { c.store = p }
}

// WithObserver registers fn to receive a copy of the state after every
// applied event, including background image results.
func WithObserver(fn func(*state.GameState)) ControllerOption {
	return func(c *Controller) { c.observer = fn }
}

// NewController creates a controller around gs.
func NewController(gs *state.GameState, machine *Machine, svc ContentService, logger *slog.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		gs:      gs,
		machine: machine,
		content: svc,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() *state.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gs.Clone()
}

// Wait blocks until background image requests have finished.
func (c *Controller) Wait() {
	c.images.Wait()
}

// Busy reports whether a player action is being processed.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// instant events never start a narrative request and are accepted while one
// is in flight.
func instant(ev Event) bool {
	switch ev.(type) {
	case Restart, DismissExamination, ContinueWithoutImage:
		return true
	}
	return false
}

// Dispatch applies a player event and runs the effects it produces until
// the narrative settles. Failures of provider requests are recorded in the
// state, not returned; the returned error reports a rejected event.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	c.mu.Lock()
	if instant(ev) {
		if _, ok := ev.(Restart); ok && c.cancel != nil {
			c.cancel()
			c.cancel = nil
			c.busy = false
			c.flight++
		}
		effects, changed, err := c.applyLocked(ev)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		c.notify(changed)
		c.run(ctx, effects)
		return nil
	}

	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	effects, changed, err := c.applyLocked(ev)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.flight++
	token := c.flight
	ctx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	c.mu.Unlock()
	c.notify(changed)

	defer func() {
		cancel()
		c.mu.Lock()
		if c.flight == token {
			c.busy = false
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	c.run(ctx, effects)
	return nil
}

// Start reads the durable image flag and resumes a saved adventure when one
// is valid. It reports whether an adventure was resumed.
func (c *Controller) Start(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	disabled, err := c.store.ImagesDisabled(ctx)
	if err != nil {
		c.logger.Warn("failed to read image flag", "error", err)
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := c.Dispatch(ctx, Resume{Snapshot: snap, ImagesDisabled: disabled}); err != nil {
		return false, err
	}
	if snap == nil {
		c.logger.Info("no saved adventure, starting fresh")
		return false, nil
	}
	c.logger.Info("resumed saved adventure", "genre", snap.SelectedGenre, "stage", snap.CurrentStageIndex)
	return true, nil
}

// EvaluateAction runs the optional feasibility pre-check for a free-text
// action. It does not change the state.
func (c *Controller) EvaluateAction(ctx context.Context, action string) (*adventure.Feasibility, error) {
	gs := c.State()
	if gs.Phase != state.PhasePlaying {
		return nil, fmt.Errorf("%w: not playing", ErrInvalidTransition)
	}
	prompt, err := prompts.New().WithGameState(gs).WithRating(c.machine.rating).WithCustomAction(action).BuildFeasibility()
	if err != nil {
		return nil, err
	}
	return c.content.EvaluateAction(ctx, prompt)
}

// applyLocked applies ev with c.mu held. The returned copy of the state is
// non-nil when an observer must be notified after the lock is released.
func (c *Controller) applyLocked(ev Event) ([]Effect, *state.GameState, error) {
	effects, err := c.machine.Apply(c.gs, ev)
	if err != nil {
		if errors.Is(err, ErrStale) {
			c.logger.Debug("discarding stale result", "event", fmt.Sprintf("%T", ev), "epoch", c.gs.Epoch)
		} else {
			c.logger.Debug("event rejected", "event", fmt.Sprintf("%T", ev), "error", err)
		}
		return nil, nil, err
	}
	c.logger.Debug("event applied", "event", fmt.Sprintf("%T", ev), "phase", c.gs.Phase, "effects", len(effects))
	if c.gs.Error != nil {
		c.logger.Warn("game error", "scope", c.gs.Error.Scope, "kind", c.gs.Error.Kind, "message", c.gs.Error.Message)
	}
	if c.observer == nil {
		return effects, nil, nil
	}
	return effects, c.gs.Clone(), nil
}

func (c *Controller) notify(gs *state.GameState) {
	if gs != nil && c.observer != nil {
		c.observer(gs)
	}
}

// feed applies a result event. Stale results are dropped.
func (c *Controller) feed(ev Event) []Effect {
	c.mu.Lock()
	effects, changed, err := c.applyLocked(ev)
	c.mu.Unlock()
	if err != nil {
		return nil
	}
	c.notify(changed)
	return effects
}

func (c *Controller) run(ctx context.Context, effects []Effect) {
	queue := effects
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]
		if result := c.execute(ctx, eff); result != nil {
			queue = append(queue, c.feed(result)...)
		}
	}
}

// execute performs one effect and returns the event describing its result,
// or nil for effects that produce none.
func (c *Controller) execute(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case FetchOutline:
		outline, err := c.content.Outline(ctx, e.Prompt)
		if err != nil {
			return RequestFailed{Epoch: e.Epoch, Target: state.TargetOutline, Prompt: e.Prompt, Err: err}
		}
		return OutlineReady{Epoch: e.Epoch, Outline: outline}

	case FetchWorld:
		world, err := c.content.World(ctx, e.Prompt)
		if err != nil {
			return RequestFailed{Epoch: e.Epoch, Target: state.TargetWorld, Prompt: e.Prompt, Err: err}
		}
		return WorldReady{Epoch: e.Epoch, World: world}

	case FetchSegment:
		if e.Retry {
			c.logger.Info("resending segment request", "custom_action", e.CustomAction != "", "epoch", e.Epoch)
		}
		fetch := c.content.Segment
		if e.CustomAction != "" {
			fetch = c.content.CustomActionOutcome
		}
		seg, err := fetch(ctx, e.Prompt)
		if err != nil {
			return RequestFailed{Epoch: e.Epoch, Target: state.TargetSegment, Prompt: e.Prompt, CustomAction: e.CustomAction, Err: err}
		}
		return SegmentReady{Epoch: e.Epoch, Segment: seg, Prompt: e.Prompt, CustomAction: e.CustomAction}

	case RepairSegment:
		seg, err := c.content.RepairSegment(ctx, e.FaultyText)
		if err != nil {
			return RequestFailed{Epoch: e.Epoch, Target: state.TargetSegment, Prompt: e.Prompt, CustomAction: e.CustomAction, Repair: true, Err: err}
		}
		return SegmentReady{Epoch: e.Epoch, Segment: seg, Prompt: e.Prompt, CustomAction: e.CustomAction}

	case FetchExamination:
		text, err := c.content.Examine(ctx, e.Prompt)
		if err != nil {
			return RequestFailed{Epoch: e.Epoch, Target: state.TargetExamine, Prompt: e.Prompt, Err: err}
		}
		return ExaminationReady{Epoch: e.Epoch, Text: text}

	case FetchImage:
		c.images.Add(1)
		go c.fetchImage(context.WithoutCancel(ctx), e)
		return nil

	case SaveSnapshot:
		c.save(ctx)
	case ClearSnapshot:
		c.clear(ctx)
	case PersistImageDisable:
		if c.store != nil {
			if err := c.store.DisableImages(ctx); err != nil {
				c.logger.Warn("failed to persist image flag", "error", err)
			}
		}
	default:
		c.logger.Error("unknown effect", "effect", fmt.Sprintf("%T", eff))
	}
	return nil
}

func (c *Controller) fetchImage(ctx context.Context, e FetchImage) {
	defer c.images.Done()
	url, err := c.content.Image(ctx, e.Prompt)
	c.run(ctx, c.feed(ImageReady{Epoch: e.Epoch, SegmentSeq: e.SegmentSeq, Prompt: e.Prompt, URL: url, Err: err}))
}

// save writes the live state, not the state the effect was emitted for. A
// background save that runs after a restart or an ending finds an
// ineligible state and writes nothing.
func (c *Controller) save(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.persist.Lock()
	defer c.persist.Unlock()
	gs := c.State()
	if _, err := c.store.Save(ctx, gs); err != nil {
		c.logger.Warn("failed to save snapshot", "error", err)
	}
}

func (c *Controller) clear(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.persist.Lock()
	defer c.persist.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear snapshot", "error", err)
	}
}
