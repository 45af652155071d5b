package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/state"
)

// Step actions. Arguments follow the verb, e.g. "choose 2" or "act hum a tune".
const (
	ActionGenre    = "genre"
	ActionPersona  = "persona"
	ActionChoose   = "choose"
	ActionAct      = "act"
	ActionExamine  = "examine"
	ActionDismiss  = "dismiss"
	ActionRetry    = "retry"
	ActionContinue = "continue"
	ActionRestart  = "restart"
	// ActionReload drops the controller and starts a new one over the same
	// save store, the way a relaunched client would.
	ActionReload = "reload"
)

// Fault names accepted in a step's inject block.
const (
	FaultQuota        = "quota"
	FaultTimeout      = "timeout"
	FaultServerConfig = "server_config"
	FaultUpstream     = "upstream"
	FaultGarbled      = "garbled"
	FaultEmpty        = "empty"
)

// TestSuite defines a complete integration play-through.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name   string     `yaml:"name"`
	Images bool       `yaml:"images,omitempty"`
	Rating string     `yaml:"rating,omitempty"`
	Steps  []TestStep `yaml:"steps,omitempty"`
	Cases  []string   `yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player action and the state expected once it settles.
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Action       string       `yaml:"action"`
	Inject       Faults       `yaml:"inject,omitempty"`
	Expectations Expectations `yaml:"expect,omitempty"`
}

// Faults are provider failures queued before the step runs. Each entry is
// consumed by one request, in order.
type Faults struct {
	Text  []string `yaml:"text,omitempty"`
	Image []string `yaml:"image,omitempty"`
}

// Empty reports whether no fault is queued.
func (f Faults) Empty() bool {
	return len(f.Text) == 0 && len(f.Image) == 0
}

// Expectations defines what to check after a step executes. Unset fields
// are not checked.
type Expectations struct {
	Phase      *string `yaml:"phase,omitempty"`
	Stage      *int    `yaml:"stage,omitempty"` // zero-based stage index
	Ended      *bool   `yaml:"ended,omitempty"`
	Failed     *bool   `yaml:"failed,omitempty"`
	MinChoices *int    `yaml:"min_choices,omitempty"`

	Inventory       []string `yaml:"inventory,omitempty"` // item ids, order independent
	JournalContains []string `yaml:"journal_contains,omitempty"`
	JournalTypes    []string `yaml:"journal_types,omitempty"`

	// ErrorKind "" expects no error on screen.
	ErrorKind *string  `yaml:"error_kind,omitempty"`
	Actions   []string `yaml:"actions,omitempty"`
	RetryType *string  `yaml:"retry_type,omitempty"`

	Examination    *bool `yaml:"examination,omitempty"`
	ImageReady     *bool `yaml:"image_ready,omitempty"`
	ImagesDisabled *bool `yaml:"images_disabled,omitempty"`
	Saved          *bool `yaml:"saved,omitempty"`
	Resumed        *bool `yaml:"resumed,omitempty"`

	// DispatchError is a substring of the error the action is rejected with.
	DispatchError string `yaml:"dispatch_error,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Phase    state.Phase
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	GameState uuid.UUID // ID of the game state used for this run
}

// InjectsFaults reports whether any step queues a provider failure. Such
// suites only run against the in-process mock proxy.
func (ts *TestSuite) InjectsFaults() bool {
	for _, step := range ts.Steps {
		if !step.Inject.Empty() {
			return true
		}
	}
	return false
}
