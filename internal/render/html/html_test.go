package html

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
)

func TestRenderOrdersTurnsAndAddsShareLinks(t *testing.T) {
	h := chat.NewHistory(
		chat.UserTurn("first question"),
		chat.AssistantTurn("I feel good!"),
		chat.UserTurn("second question"),
	)

	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, h))
	out := buf.String()

	first := strings.Index(out, "first question")
	reply := strings.Index(out, "I feel good!")
	second := strings.Index(out, "second question")
	require.True(t, first >= 0 && reply > first && second > reply, "turns out of order")

	assert.Equal(t, 1, strings.Count(out, "Send to WhatsApp"))
	assert.Contains(t, out, `href="https://wa.me/?text=I%20feel%20good%21"`)
	assert.Contains(t, out, DefaultTitle)
}

func TestRenderMarkdownAndEscapesHTML(t *testing.T) {
	h := chat.NewHistory(chat.AssistantTurn("**breathe** <script>alert(1)</script>"))

	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, h))
	out := buf.String()

	assert.Contains(t, out, "<strong>breathe</strong>")
	assert.NotContains(t, out, "<script>alert(1)</script>")
}

func TestRenderPageShowsCrisisNoticeAndModes(t *testing.T) {
	modes := mode.Seed()
	assessment := crisis.Detect("I feel hopeless")

	var buf bytes.Buffer
	err := New().RenderPage(&buf, chat.History{}, Page{
		Mode:   modes[1],
		Modes:  modes,
		Crisis: &assessment,
	})
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, `<option value="cbt" selected>`)
}

func TestRenderPageWithResetHidesModeSelect(t *testing.T) {
	modes := mode.Seed()

	var buf bytes.Buffer
	err := New().RenderPage(&buf, chat.NewHistory(chat.UserTurn("hi")), Page{
		Mode:        modes[1],
		Modes:       modes,
		ResetAction: "/chat/reset",
	})
	require.NoError(t, err)
	out := buf.String()

	assert.NotContains(t, out, `<select name="mode">`)
	assert.Contains(t, out, `action="/chat/reset"`)
	assert.Contains(t, out, "Mode: "+modes[1].Name)
}
