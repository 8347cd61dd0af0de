// Package turn implements turn-taking: one user message in, one user turn
// and one assistant turn appended to the history.
package turn

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/service/assistant"
)

// Processor appends exchanges to a history. It holds no session state; the
// caller owns the history and passes it in on every call.
type Processor struct {
	assistant assistant.Client
	preamble  string
	timeout   time.Duration
}

// Option customises a Processor.
type Option func(*Processor)

// WithTimeout bounds each assistant call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		p.timeout = d
	}
}

// NewProcessor returns a processor backed by client.
func NewProcessor(client assistant.Client, opts ...Option) *Processor {
	p := &Processor{assistant: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithPreamble returns a copy of p that frames prompts with preamble.
func (p *Processor) WithPreamble(preamble string) *Processor {
	clone := *p
	clone.preamble = preamble
	return &clone
}

// Submit appends the user's message and the assistant's answer to history
// and returns the extended history. Blank input returns history unchanged.
// Assistant failures become an assistant turn carrying the error text.
func (p *Processor) Submit(ctx context.Context, history chat.History, userText string) chat.History {
	if strings.TrimSpace(userText) == "" {
		return history
	}

	history = history.Append(chat.UserTurn(userText))

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	reply, err := p.assistant.Reply(callCtx, assistant.Request{Preamble: p.preamble, Message: userText})
	if err != nil {
		log.Warn("[turn] assistant call failed", "err", err)
		return history.Append(chat.AssistantTurn(assistant.Describe(err)))
	}

	return history.Append(chat.AssistantTurn(reply))
}
