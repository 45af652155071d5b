package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/content"
)

// The canned responses must survive the same validation real output goes
// through.
func TestMockProvider_CannedResponsesValidate(t *testing.T) {
	client := content.NewClient(NewMockProvider(), discardLogger())
	ctx := context.Background()

	outline, err := client.Outline(ctx, "outline please")
	require.NoError(t, err)
	assert.Len(t, outline.Stages, 3)

	world, err := client.World(ctx, "world please")
	require.NoError(t, err)
	assert.Equal(t, "Mockmoor", world.WorldName)

	seg, err := client.Segment(ctx, "opening")
	require.NoError(t, err)
	assert.Len(t, seg.Choices, 3)
	assert.True(t, seg.Choices[1].AdvancesStage())

	failed, err := client.Segment(ctx, "This choice ends the adventure in failure. Set isFailureScene to true and offer no choices.")
	require.NoError(t, err)
	assert.True(t, failed.IsFailureScene)

	won, err := client.Segment(ctx, "Stage 3 (CURRENT): Summit\nThe player chose: \"Press onward\"")
	require.NoError(t, err)
	assert.True(t, won.IsFinalScene)

	text, err := client.Examine(ctx, "look")
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	verdict, err := client.EvaluateAction(ctx, "dance")
	require.NoError(t, err)
	assert.True(t, verdict.IsPossible)

	url, err := client.Image(ctx, "fog")
	require.NoError(t, err)
	assert.Contains(t, url, "data:image/png;base64,")
}

func TestMockProvider_Overrides(t *testing.T) {
	m := NewMockProvider()
	m.GenerateImageFunc = func(context.Context, string) (string, error) {
		return "", errors.New("no images today")
	}

	_, err := m.GenerateImage(context.Background(), "p")
	assert.EqualError(t, err, "no images today")
	_, _ = m.GenerateText(context.Background(), content.TextRequest{Shape: content.ShapeWorld})
	assert.Equal(t, 1, m.ImageCallCount())
	assert.Equal(t, 1, m.TextCallCount())

	m.Reset()
	assert.Zero(t, m.TextCallCount())
	assert.Zero(t, m.ImageCallCount())
}

func TestMockProvider_QueuedReplies(t *testing.T) {
	m := NewMockProvider()
	quota := &content.ProviderError{Status: 429, Code: content.CodeQuotaExceeded, Message: "out of credits"}
	m.QueueText("not json", nil)
	m.QueueText("", quota)
	m.QueueImage("", nil)

	ctx := context.Background()
	req := content.TextRequest{Shape: content.ShapeExamination}

	text, err := m.GenerateText(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "not json", text)

	_, err = m.GenerateText(ctx, req)
	assert.ErrorIs(t, err, quota)

	text, err = m.GenerateText(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, text, "examinationText", "queue drained, canned reply again")

	img, err := m.GenerateImage(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, img)

	img, err = m.GenerateImage(ctx, "p")
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}
