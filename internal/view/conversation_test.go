package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatdesk/internal/model"
)

func TestCaptureSkipsTransientRows(t *testing.T) {
	c := New(nil)
	c.AppendTransient("Hello! I'm your assistant.")
	c.Append(model.UserMessage("hi"))
	c.Append(model.BotMessage("hello"))
	c.ShowTyping()

	assert.Equal(t, []model.Message{model.UserMessage("hi"), model.BotMessage("hello")}, c.Capture())
	assert.Len(t, c.Rows(), 3)
	assert.Equal(t, c.Capture(), c.Capture(), "capturing twice yields equal lists")
}

func TestClear(t *testing.T) {
	c := New(nil)
	c.Append(model.UserMessage("hi"))
	c.ShowTyping()
	c.Clear()

	assert.Empty(t, c.Rows())
	assert.Empty(t, c.Capture())
	assert.False(t, c.Typing())
}

func TestRowIDsKeepIncreasingAcrossClears(t *testing.T) {
	c := New(nil)
	first := c.Append(model.UserMessage("a"))
	c.Clear()
	second := c.Append(model.UserMessage("b"))
	assert.Greater(t, second.ID, first.ID)
}

func TestSpeakerControls(t *testing.T) {
	c := New(nil)
	user := c.Append(model.UserMessage("hi"))
	bot := c.Append(model.BotMessage("hello"))
	img := c.AppendMultimodal("", []Image{{URL: "a.png", Prompt: "cat"}})

	assert.False(t, user.Speakable)
	assert.True(t, bot.Speakable)
	assert.False(t, img.Speakable)
}

func TestSwapImage(t *testing.T) {
	c := New(nil)
	row := c.AppendMultimodal("Here's the image for: a cat", []Image{{URL: "old.png", Prompt: "a cat"}})
	before := len(c.Rows())

	updated, err := c.SwapImage(row.ID, 0, "x.png")
	require.NoError(t, err)
	assert.Equal(t, "x.png", updated.Images[0].URL)
	assert.Contains(t, updated.Content, "(x.png ")
	assert.NotContains(t, updated.Content, "old.png")
	assert.Len(t, c.Rows(), before, "swapping never appends a row")

	captured := c.Capture()
	require.Len(t, captured, 1)
	assert.Equal(t, "Here's the image for: a cat\n\n![generated image](x.png \"a cat\")", captured[0].Content)

	_, err = c.SwapImage(row.ID, 3, "y.png")
	assert.ErrorIs(t, err, ErrRowNotFound)
	_, err = c.SwapImage(999, 0, "y.png")
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestSubscribe(t *testing.T) {
	c := New(nil)
	events, cancel := c.Subscribe()

	c.Append(model.UserMessage("hi"))
	c.ShowTyping()
	c.SetInput("draft")

	ev := <-events
	assert.Equal(t, EventRowAppended, ev.Type)
	require.NotNil(t, ev.Row)
	assert.Equal(t, "hi", ev.Row.Content)

	ev = <-events
	assert.Equal(t, EventTyping, ev.Type)
	assert.True(t, ev.Typing)

	ev = <-events
	assert.Equal(t, EventInput, ev.Type)
	assert.Equal(t, "draft", ev.Input)

	cancel()
	_, open := <-events
	assert.False(t, open)
	cancel()
}

func TestMultimodalContent(t *testing.T) {
	assert.Equal(t, "", MultimodalContent("", nil))
	assert.Equal(t, "text", MultimodalContent("text", nil))
	assert.Equal(t, "![generated image](a)\n\n![generated image](b)",
		MultimodalContent("", []Image{{URL: "a"}, {URL: "b"}}))
}

func TestParseMultimodal(t *testing.T) {
	images := []Image{{URL: "data:image/png;base64,AAA=", Prompt: `a "red" cat`}, {URL: "b.png"}}
	content := MultimodalContent("Here you go", images)

	text, got, ok := ParseMultimodal(content)
	require.True(t, ok)
	assert.Equal(t, "Here you go", text)
	assert.Equal(t, images, got)

	_, _, ok = ParseMultimodal("just words\n\nmore words")
	assert.False(t, ok)
}

func TestAppendRestoresImageRows(t *testing.T) {
	c := New(nil)
	content := MultimodalContent("", []Image{{URL: "a.png", Prompt: "cat"}})
	row := c.Append(model.BotMessage(content))

	assert.False(t, row.Speakable)
	require.Len(t, row.Images, 1)
	assert.Equal(t, "cat", row.Images[0].Prompt)
	assert.Equal(t, content, row.Content)
}
