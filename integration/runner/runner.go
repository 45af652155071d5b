package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/adventure-engine/internal/services"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/persistence"
	"github.com/jwebster45206/adventure-engine/pkg/state"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/textfilter"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

const defaultRating = "PG-13"

// FaultInjector queues one-shot provider replies behind the proxy.
// *services.MockProvider implements it.
type FaultInjector interface {
	QueueText(text string, err error)
	QueueImage(data string, err error)
}

// Runner plays test suites through the real client stack: a game
// controller talking to the proxy at BaseURL.
type Runner struct {
	BaseURL           string
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	// Faults is required by suites that inject failures.
	Faults FaultInjector
	// Log receives the controller's structured logs.
	Log *slog.Logger
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
		Log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// session is one suite's client side: the store outlives controllers so a
// reload step can resume from it.
type session struct {
	suite   TestSuite
	store   *storage.MockStorage
	gateway *persistence.Gateway
	ctrl    *game.Controller
	resumed bool
}

func (r *Runner) newController(s *session) *game.Controller {
	rating := s.suite.Rating
	if rating == "" {
		rating = defaultRating
	}
	client := content.NewClient(services.NewProxyProvider(r.BaseURL, r.Log), r.Log,
		content.WithTimeout(r.Timeout),
		content.WithFilter(textfilter.ForRating(rating)))
	return game.NewController(
		state.NewGameState(s.suite.Images),
		game.NewMachine(rating),
		client,
		r.Log,
		game.WithPersistence(s.gateway),
	)
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	store := storage.NewMockStorage()
	s := &session{
		suite:   suite,
		store:   store,
		gateway: persistence.NewGateway(store, "integration", r.Log),
	}
	s.ctrl = r.newController(s)
	if _, err := s.ctrl.Start(ctx); err != nil {
		result.Error = fmt.Errorf("failed to start controller: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameState = s.ctrl.State().ID

	for i, step := range suite.Steps {
		name := step.Name
		if name == "" {
			name = step.Action
		}
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), name)

		stepResult := r.runStep(ctx, s, step)
		stepResult.TestName = suite.Name
		stepResult.StepName = name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), name, stepResult.Duration)
	}

	s.ctrl.Wait()
	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, s *session, step TestStep) TestResult {
	start := time.Now()
	var result TestResult

	if err := r.inject(step.Inject); err != nil {
		result.Error = err
		return result
	}

	dispatchErr := r.perform(ctx, s, step.Action)
	// image requests run in the background; settle them before checking
	s.ctrl.Wait()
	result.Duration = time.Since(start)

	gs := s.ctrl.State()
	result.Phase = gs.Phase

	want := step.Expectations.DispatchError
	switch {
	case want == "" && dispatchErr != nil:
		result.Error = fmt.Errorf("action %q rejected: %w", step.Action, dispatchErr)
		return result
	case want != "" && dispatchErr == nil:
		result.Error = fmt.Errorf("action %q succeeded, expected error containing %q", step.Action, want)
		return result
	case want != "" && !strings.Contains(dispatchErr.Error(), want):
		result.Error = fmt.Errorf("action %q failed with %q, expected it to contain %q", step.Action, dispatchErr, want)
		return result
	}

	saved := s.store.Has(s.gateway.Key())
	if errs := checkExpectations(step.Expectations, gs, saved, s.resumed); len(errs) > 0 {
		result.Error = errors.Join(errs...)
		return result
	}
	result.Success = true
	return result
}

// perform translates a step action into a controller call.
func (r *Runner) perform(ctx context.Context, s *session, action string) error {
	verb, arg, _ := strings.Cut(strings.TrimSpace(action), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case ActionGenre:
		g, err := adventure.ParseGenre(arg)
		if err != nil {
			return err
		}
		return s.ctrl.Dispatch(ctx, game.SelectGenre{Genre: g})
	case ActionPersona:
		p, err := adventure.ParsePersona(arg)
		if err != nil {
			return err
		}
		return s.ctrl.Dispatch(ctx, game.SelectPersona{Persona: p})
	case ActionChoose:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("choose needs a number, got %q", arg)
		}
		return s.ctrl.Dispatch(ctx, game.ChooseOption{Index: n - 1})
	case ActionAct:
		return s.ctrl.Dispatch(ctx, game.SubmitCustomAction{Text: arg})
	case ActionExamine:
		return s.ctrl.Dispatch(ctx, game.Examine{})
	case ActionDismiss:
		return s.ctrl.Dispatch(ctx, game.DismissExamination{})
	case ActionRetry:
		return s.ctrl.Dispatch(ctx, game.Retry{})
	case ActionContinue:
		return s.ctrl.Dispatch(ctx, game.ContinueWithoutImage{})
	case ActionRestart:
		return s.ctrl.Dispatch(ctx, game.Restart{})
	case ActionReload:
		s.ctrl.Wait()
		s.ctrl = r.newController(s)
		resumed, err := s.ctrl.Start(ctx)
		s.resumed = resumed
		return err
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (r *Runner) inject(f Faults) error {
	if f.Empty() {
		return nil
	}
	if r.Faults == nil {
		return errors.New("step injects faults but the runner has no fault injector")
	}
	for _, name := range f.Text {
		reply, ok := faults[name]
		if !ok {
			return fmt.Errorf("unknown text fault %q", name)
		}
		r.Faults.QueueText(reply.text, reply.err)
	}
	for _, name := range f.Image {
		reply, ok := faults[name]
		if !ok {
			return fmt.Errorf("unknown image fault %q", name)
		}
		r.Faults.QueueImage(reply.text, reply.err)
	}
	return nil
}

type providerReply struct {
	text string
	err  error
}

// faults are the provider replies that produce each named failure once
// they have crossed the proxy.
var faults = map[string]providerReply{
	FaultQuota:        {err: &content.ProviderError{Status: 429, Code: content.CodeQuotaExceeded, Message: "quota exhausted"}},
	FaultTimeout:      {err: context.DeadlineExceeded},
	FaultServerConfig: {err: &content.ProviderError{Status: 401, Code: content.CodeServerConfiguration, Message: "invalid API key"}},
	FaultUpstream:     {err: errors.New("connection reset by peer")},
	FaultGarbled:      {text: `The fog thickens {"sceneDescription": oops`},
	FaultEmpty:        {},
}

func checkExpectations(exp Expectations, gs *state.GameState, saved, resumed bool) []error {
	var errs []error
	failf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if exp.Phase != nil && string(gs.Phase) != *exp.Phase {
		failf("phase: expected %q, got %q", *exp.Phase, gs.Phase)
	}
	if exp.Stage != nil && gs.CurrentStage != *exp.Stage {
		failf("stage: expected %d, got %d", *exp.Stage, gs.CurrentStage)
	}
	if exp.Ended != nil && gs.IsGameEnded != *exp.Ended {
		failf("ended: expected %v, got %v", *exp.Ended, gs.IsGameEnded)
	}
	if exp.Failed != nil && gs.IsGameFailed != *exp.Failed {
		failf("failed: expected %v, got %v", *exp.Failed, gs.IsGameFailed)
	}
	if exp.MinChoices != nil {
		n := 0
		if gs.CurrentSegment != nil {
			n = len(gs.CurrentSegment.Choices)
		}
		if n < *exp.MinChoices {
			failf("choices: expected at least %d, got %d", *exp.MinChoices, n)
		}
	}

	if exp.Inventory != nil {
		got := make([]string, 0, len(gs.Inventory))
		for _, item := range gs.Inventory {
			got = append(got, item.ID)
		}
		want := slices.Clone(exp.Inventory)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			failf("inventory: expected %v, got %v", want, got)
		}
	}
	for _, needle := range exp.JournalContains {
		if !slices.ContainsFunc(gs.Journal, func(e state.JournalEntry) bool {
			return strings.Contains(e.Content, needle)
		}) {
			failf("journal: no entry contains %q", needle)
		}
	}
	for _, t := range exp.JournalTypes {
		if !slices.ContainsFunc(gs.Journal, func(e state.JournalEntry) bool {
			return string(e.Type) == t
		}) {
			failf("journal: no %q entry", t)
		}
	}

	if exp.ErrorKind != nil {
		got := ""
		if gs.Error != nil {
			got = string(gs.Error.Kind)
		}
		if got != *exp.ErrorKind {
			failf("error kind: expected %q, got %q", *exp.ErrorKind, got)
		}
	}
	if exp.Actions != nil {
		var got []string
		if gs.Error != nil {
			for _, a := range gs.Error.Actions {
				got = append(got, string(a))
			}
		}
		if !slices.Equal(got, exp.Actions) {
			failf("actions: expected %v, got %v", exp.Actions, got)
		}
	}
	if exp.RetryType != nil {
		got := ""
		if gs.RetryInfo != nil {
			got = string(gs.RetryInfo.Type)
		}
		if got != *exp.RetryType {
			failf("retry type: expected %q, got %q", *exp.RetryType, got)
		}
	}

	if exp.Examination != nil && (gs.Examination != "") != *exp.Examination {
		failf("examination shown: expected %v", *exp.Examination)
	}
	if exp.ImageReady != nil {
		ready := gs.CurrentSegment != nil && gs.CurrentSegment.ImageURL != ""
		if ready != *exp.ImageReady {
			failf("image ready: expected %v, got %v", *exp.ImageReady, ready)
		}
	}
	if exp.ImagesDisabled != nil && gs.ImageGenerationPermanentlyDisabled != *exp.ImagesDisabled {
		failf("images disabled: expected %v, got %v", *exp.ImagesDisabled, gs.ImageGenerationPermanentlyDisabled)
	}
	if exp.Saved != nil && saved != *exp.Saved {
		failf("saved: expected %v, got %v", *exp.Saved, saved)
	}
	if exp.Resumed != nil && resumed != *exp.Resumed {
		failf("resumed: expected %v, got %v", *exp.Resumed, resumed)
	}
	return errs
}
