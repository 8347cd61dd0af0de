// Package render turns a chat history into display-ready views. Renderers
// only read the history; they never modify it.
package render

import (
	"io"
	"net/url"
	"strings"

	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
)

// ShareBaseURL prefixes every share link; the message follows percent-encoded.
const ShareBaseURL = "https://wa.me/?text="

// ShareLink builds a link that opens WhatsApp with message pre-filled.
// Spaces become %20 and every reserved character, "/" included, is escaped.
func ShareLink(message string) string {
	return ShareBaseURL + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// TurnView is one turn prepared for display.
type TurnView struct {
	Role      chat.Role `json:"role"`
	Message   string    `json:"message"`
	ShareLink string    `json:"shareLink,omitempty"`
}

// View is a full history prepared for display, in history order.
type View struct {
	Turns []TurnView `json:"turns"`
}

// Build walks history in order, attaching a share link to assistant turns.
func Build(history chat.History) View {
	return View{Turns: Turns(history.Turns())}
}

// Turns prepares a slice of turns, such as the ones appended by one submit.
func Turns(turns []chat.Turn) []TurnView {
	views := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, Turn(t))
	}
	return views
}

// Turn prepares a single turn.
func Turn(t chat.Turn) TurnView {
	view := TurnView{Role: t.Role, Message: t.Message}
	if t.Role == chat.RoleAssistant {
		view.ShareLink = ShareLink(t.Message)
	}
	return view
}

// Renderer writes a history to w in a specific format.
type Renderer interface {
	Render(w io.Writer, history chat.History) error
}
