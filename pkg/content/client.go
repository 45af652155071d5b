// Package content wraps the generative provider with one typed operation per
// narrative need. Every operation validates the response shape beyond JSON
// syntax and reports failures as *Error.
package content

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/jsonextract"
	"github.com/jwebster45206/adventure-engine/pkg/textfilter"
)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 30 * time.Second

// TextRequest is one structured text completion.
type TextRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Shape  Shape  `json:"shape"`
}

// Provider is the opaque generative service. GenerateImage returns base64
// image data, or an empty string when the provider produced no image.
type Provider interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Client performs provider operations.
type Client struct {
	provider Provider
	model    string
	timeout  time.Duration
	filter   *textfilter.ProfanityFilter
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model identifier sent with text requests.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithFilter applies a profanity filter to narration. A nil filter is a no-op.
func WithFilter(f *textfilter.ProfanityFilter) Option {
	return func(c *Client) { c.filter = f }
}

// NewClient creates a Client for provider.
func NewClient(provider Provider, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outline requests the three-stage adventure outline.
func (c *Client) Outline(ctx context.Context, prompt string) (*adventure.Outline, error) {
	raw, doc, err := c.structured(ctx, OpOutline, ShapeOutline, prompt, false)
	if err != nil {
		return nil, err
	}
	outline, err := parseOutline(doc)
	if err != nil {
		return nil, c.shapeFailure(OpOutline, raw, err)
	}
	return outline, nil
}

// World requests the world details for an outline.
func (c *Client) World(ctx context.Context, prompt string) (*adventure.WorldDetails, error) {
	raw, doc, err := c.structured(ctx, OpWorld, ShapeWorld, prompt, false)
	if err != nil {
		return nil, err
	}
	world, err := parseWorld(doc)
	if err != nil {
		return nil, c.shapeFailure(OpWorld, raw, err)
	}
	return world, nil
}

// Segment requests the next story segment.
func (c *Client) Segment(ctx context.Context, prompt string) (*adventure.StorySegment, error) {
	return c.segment(ctx, OpSegment, prompt, false)
}

// CustomActionOutcome requests the segment that follows a free-text action.
func (c *Client) CustomActionOutcome(ctx context.Context, prompt string) (*adventure.StorySegment, error) {
	return c.segment(ctx, OpCustomAction, prompt, false)
}

// RepairSegment asks the provider to turn faulty output back into a valid
// segment document.
func (c *Client) RepairSegment(ctx context.Context, faulty string) (*adventure.StorySegment, error) {
	return c.segment(ctx, OpRepair, RepairPrompt(faulty, ShapeSegment), true)
}

// EvaluateAction asks whether a free-text action is feasible in the scene.
func (c *Client) EvaluateAction(ctx context.Context, prompt string) (*adventure.Feasibility, error) {
	raw, doc, err := c.structured(ctx, OpFeasibility, ShapeFeasibility, prompt, false)
	if err != nil {
		return nil, err
	}
	f, err := parseFeasibility(doc)
	if err != nil {
		return nil, c.shapeFailure(OpFeasibility, raw, err)
	}
	return f, nil
}

// Examine requests a closer look at the current scene.
func (c *Client) Examine(ctx context.Context, prompt string) (string, error) {
	raw, doc, err := c.structured(ctx, OpExamine, ShapeExamination, prompt, false)
	if err != nil {
		return "", err
	}
	text, err := parseExamination(doc)
	if err != nil {
		return "", c.shapeFailure(OpExamine, raw, err)
	}
	return c.filter.FilterText(text), nil
}

// Image generates an illustration and returns it as a data URL. An empty
// result with a nil error means the provider produced no image.
func (c *Client) Image(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b64, err := c.provider.GenerateImage(ctx, prompt)
	if err != nil {
		return "", Classify(OpImage, err)
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		c.logger.Warn("provider returned no image data")
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", &Error{Kind: KindShape, Op: OpImage, Message: "image payload is not valid base64", Err: err}
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + b64, nil
}

func (c *Client) segment(ctx context.Context, op Op, prompt string, isFix bool) (*adventure.StorySegment, error) {
	raw, doc, err := c.structured(ctx, op, ShapeSegment, prompt, isFix)
	if err != nil {
		return nil, err
	}
	seg, dropped, err := parseSegment(doc)
	if err != nil {
		return nil, c.shapeFailure(op, raw, err)
	}
	if dropped != nil {
		c.logger.Warn("dropping invalid itemFound", "op", op, "reason", dropped.reason, "item", jsonextract.Excerpt(dropped.raw))
	}

	seg.SceneDescription = c.filter.FilterText(seg.SceneDescription)
	for i := range seg.Choices {
		seg.Choices[i].Text = c.filter.FilterText(seg.Choices[i].Text)
	}
	return seg, nil
}

// structured performs a text request and extracts its JSON document.
func (c *Client) structured(ctx context.Context, op Op, shape Shape, prompt string, isFix bool) (raw, doc string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err = c.provider.GenerateText(ctx, TextRequest{Model: c.model, Prompt: prompt, Shape: shape})
	if err != nil {
		classified := Classify(op, err)
		c.logger.Warn("provider request failed", "op", op, "kind", KindOf(classified), "error", err)
		return "", "", classified
	}
	c.logger.Debug("provider request completed", "op", op, "duration", time.Since(start), "bytes", len(raw))

	doc, err = jsonextract.Extract(raw, isFix)
	if err != nil {
		var perr *jsonextract.ParseError
		msg := err.Error()
		if errors.As(err, &perr) {
			msg = perr.Diagnostic
		}
		c.logger.Warn("provider response is not valid JSON", "op", op, "text", jsonextract.Excerpt(raw))
		return raw, "", &Error{Kind: KindParse, Op: op, Message: msg, RawText: raw, Err: err}
	}
	return raw, doc, nil
}

func (c *Client) shapeFailure(op Op, raw string, err error) error {
	c.logger.Warn("provider response failed validation", "op", op, "error", err)
	return &Error{Kind: KindShape, Op: op, Message: err.Error(), RawText: raw, Err: err}
}

// RepairPrompt builds the request that asks the provider to fix its own
// malformed output.
func RepairPrompt(faulty string, shape Shape) string {
	return fmt.Sprintf(`The following text was supposed to be a single JSON object but it could not be parsed.

Expected structure:
%s

Faulty text:
%s

Return only the corrected JSON object with no commentary and no markdown fences. Keep the original content; only fix the structure.`, Reminder(shape), faulty)
}
