package assistant

import (
	"context"
	"strings"

	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
)

// Request is a single user message plus the preamble that frames it.
type Request struct {
	Preamble string
	Message  string
}

// Prompt joins the preamble and the message into the single prompt sent to
// the model. An empty preamble falls back to the general-mode preamble.
func (r Request) Prompt() string {
	preamble := strings.TrimSpace(r.Preamble)
	if preamble == "" {
		preamble = mode.DefaultPreamble
	}
	return preamble + " " + r.Message
}

// Client answers one request with reply text. Failures are returned as
// *CallError.
type Client interface {
	Reply(ctx context.Context, req Request) (string, error)
}
