package services

import (
	"context"
	"strings"
	"sync"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// A 1x1 transparent PNG.
const mockImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

const (
	mockAdvance = "Press onward"
	mockDoomed  = "This choice ends the adventure in failure"
)

var mockResponses = map[content.Shape]string{
	content.ShapeOutline: `{"title": "The Mock Expedition", "overallGoal": "Recover the lost compass",
		"stages": [
			{"title": "Departure", "description": "Leave the harbor", "objective": "Find a ship"},
			{"title": "Crossing", "description": "Survive the sea", "objective": "Reach the island"},
			{"title": "Summit", "description": "Climb the peak", "objective": "Claim the compass"}]}`,
	content.ShapeWorld: `{"worldName": "Mockmoor", "genreClarification": "A gentle test world",
		"keyEnvironmentalFeatures": ["Fog banks"], "dominantSocietiesOrFactions": ["Harbor guild"],
		"uniqueCreaturesOrMonsters": ["Glass gulls"], "magicSystemOverview": "Tide runes",
		"briefHistoryHook": "The compass vanished a century ago", "culturalNormsOrTaboos": ["Never whistle at sea"]}`,
	content.ShapeSegment: `{"sceneDescription": "Mist curls around you as the path forks.",
		"choices": [
			{"text": "Look around", "outcomePrompt": "The player studies the fork", "signalsStageCompletion": false, "leadsToFailure": false},
			{"text": "` + mockAdvance + `", "outcomePrompt": "The player completes the current objective", "signalsStageCompletion": true, "leadsToFailure": false},
			{"text": "Leap into the ravine", "outcomePrompt": "The player jumps", "signalsStageCompletion": false, "leadsToFailure": true}],
		"imagePrompt": "a misty fork in a mountain path", "isFinalScene": false, "isFailureScene": false, "isUserInputCommandOnly": false}`,
	content.ShapeExamination: `{"examinationText": "Dew beads on the signpost; one arm has been recently repainted."}`,
	content.ShapeFeasibility: `{"isPossible": true, "reason": "Nothing prevents it."}`,
}

const (
	mockFailure = `{"sceneDescription": "The ground gives way and the mist swallows you.", "choices": [],
		"imagePrompt": "", "isFinalScene": false, "isFailureScene": true, "isUserInputCommandOnly": false}`
	mockVictory = `{"sceneDescription": "The compass glows in your hand. The journey is complete.", "choices": [],
		"imagePrompt": "a glowing compass on a summit", "isFinalScene": true, "isFailureScene": false, "isUserInputCommandOnly": false}`
)

type mockReply struct {
	text string
	err  error
}

// MockProvider is a canned TextService and ImageService used for offline
// play and tests. Func fields override the defaults.
type MockProvider struct {
	GenerateTextFunc  func(ctx context.Context, req content.TextRequest) (string, error)
	GenerateImageFunc func(ctx context.Context, prompt string) (string, error)

	// Track calls for testing
	TextCalls  []content.TextRequest
	ImageCalls []string

	textQueue  []mockReply
	imageQueue []mockReply

	mu sync.Mutex // protects all fields above
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		TextCalls:  make([]content.TextRequest, 0),
		ImageCalls: make([]string, 0),
	}
}

func (m *MockProvider) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	m.mu.Lock()
	m.TextCalls = append(m.TextCalls, req)
	fn := m.GenerateTextFunc
	reply, queued := pop(&m.textQueue)
	m.mu.Unlock()

	if queued {
		return reply.text, reply.err
	}

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Shape == content.ShapeSegment {
		switch {
		case strings.Contains(req.Prompt, mockDoomed):
			return mockFailure, nil
		case strings.Contains(req.Prompt, "Stage 3 (CURRENT)") && strings.Contains(req.Prompt, `chose: "`+mockAdvance):
			return mockVictory, nil
		}
	}
	if resp, ok := mockResponses[req.Shape]; ok {
		return resp, nil
	}
	return "Mock response", nil
}

func (m *MockProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.ImageCalls = append(m.ImageCalls, prompt)
	fn := m.GenerateImageFunc
	reply, queued := pop(&m.imageQueue)
	m.mu.Unlock()

	if queued {
		return reply.text, reply.err
	}

	if fn != nil {
		return fn(ctx, prompt)
	}
	return mockImage, nil
}

// QueueText makes the next text request answer with text and err, ahead of
// GenerateTextFunc and the canned responses. Queued replies are used in order.
func (m *MockProvider) QueueText(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textQueue = append(m.textQueue, mockReply{text: text, err: err})
}

// QueueImage is QueueText for image requests.
func (m *MockProvider) QueueImage(data string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageQueue = append(m.imageQueue, mockReply{text: data, err: err})
}

func pop(q *[]mockReply) (mockReply, bool) {
	if len(*q) == 0 {
		return mockReply{}, false
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r, true
}

// TextCallCount returns the number of text requests seen.
func (m *MockProvider) TextCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TextCalls)
}

// ImageCallCount returns the number of image requests seen.
func (m *MockProvider) ImageCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ImageCalls)
}

// Reset clears all call tracking
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TextCalls = m.TextCalls[:0]
	m.ImageCalls = m.ImageCalls[:0]
	m.textQueue = nil
	m.imageQueue = nil
}
