package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsergate/services/driver"
)

func newTestContext(t *testing.T) (*Context, *driver.Fake) {
	t.Helper()
	fake := driver.NewFake()
	h, err := fake.Launch(context.Background(), driver.LaunchOptions{})
	require.NoError(t, err)
	page, err := fake.NewPage(context.Background(), h)
	require.NoError(t, err)

	return New("b1", "s1", page.(string), page, fake, Options{}), fake
}

func TestNavigateRejectsWrongSession(t *testing.T) {
	cmd, _ := newTestContext(t)
	err := cmd.Navigate(context.Background(), "someone-else", "https://example.com")
	assert.Error(t, err)
}

func TestNavigateSucceedsForOwner(t *testing.T) {
	cmd, _ := newTestContext(t)
	err := cmd.Navigate(context.Background(), "s1", "https://example.com")
	assert.NoError(t, err)
}

func TestEvaluateReturnsDriverResult(t *testing.T) {
	cmd, _ := newTestContext(t)
	result, err := cmd.Evaluate(context.Background(), "s1", "1+1")
	require.NoError(t, err)
	assert.Equal(t, "1+1", result)
}

func TestScreenshotStaysInlineUnderLimit(t *testing.T) {
	cmd, _ := newTestContext(t)
	shot, err := cmd.Screenshot(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, shot.Inline)
	assert.Empty(t, shot.StorageKey)
}

func TestScreenshotStaysInlineWhenNoUploaderConfigured(t *testing.T) {
	fake := driver.NewFake()
	h, _ := fake.Launch(context.Background(), driver.LaunchOptions{})
	page, _ := fake.NewPage(context.Background(), h)

	cmd := New("b1", "s1", page.(string), page, fake, Options{InlineScreenshotLimit: 1})
	shot, err := cmd.Screenshot(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.NotEmpty(t, shot.Inline)
	assert.True(t, len(shot.Inline) > 1 && strings.Contains(string(shot.Inline), "fake"))
}

func TestRecordingWithoutConfigFails(t *testing.T) {
	cmd, _ := newTestContext(t)
	_, err := cmd.StartRecording(context.Background(), "s1", ":0")
	assert.Error(t, err)
}
