// Package terminal renders a chat history for the interactive CLI.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/render"
)

var (
	colorUser      = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorDim       = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}

	styleUserBadge      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAssistantBadge = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	styleLink           = lipgloss.NewStyle().Foreground(colorDim).Underline(true)
	styleBody           = lipgloss.NewStyle().PaddingLeft(2)
)

// Renderer writes turns as badge-prefixed blocks.
type Renderer struct {
	// Width wraps message bodies when positive.
	Width int
}

// New returns a Renderer without wrapping.
func New() *Renderer {
	return &Renderer{}
}

// Render writes every turn of history in order.
func (r *Renderer) Render(w io.Writer, history chat.History) error {
	return r.RenderTurns(w, history.Turns())
}

// RenderTurns writes the given turns, typically the ones a submit appended.
func (r *Renderer) RenderTurns(w io.Writer, turns []chat.Turn) error {
	for _, tv := range render.Turns(turns) {
		if _, err := fmt.Fprintln(w, r.block(tv)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) block(tv render.TurnView) string {
	body := styleBody
	if r.Width > 0 {
		body = body.Width(r.Width)
	}

	var b strings.Builder
	b.WriteString(badge(tv.Role))
	b.WriteString("\n")
	b.WriteString(body.Render(tv.Message))
	if tv.ShareLink != "" {
		b.WriteString("\n")
		b.WriteString(styleBody.Render(styleLink.Render("Send to WhatsApp: " + tv.ShareLink)))
	}
	b.WriteString("\n")
	return b.String()
}

func badge(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return styleUserBadge.Render("You")
	case chat.RoleAssistant:
		return styleAssistantBadge.Render("Assistant")
	default:
		return string(role)
	}
}
