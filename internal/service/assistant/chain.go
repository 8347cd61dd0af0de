package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChainClient answers requests through an eino chain: a single-message
// prompt template feeding a chat model.
type ChainClient struct {
	chain          compose.Runnable[map[string]any, *schema.Message]
	stripCitations bool
}

// NewChainClient compiles the prompt chain around chatModel.
func NewChainClient(ctx context.Context, chatModel model.BaseChatModel, stripCitations bool) (*ChainClient, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile assistant chain: %w", err)
	}

	return &ChainClient{chain: runnable, stripCitations: stripCitations}, nil
}

// Reply runs the chain for req. The chain exposes no HTTP status, so every
// failure carries StatusCode zero.
func (c *ChainClient) Reply(ctx context.Context, req Request) (string, error) {
	msg, err := c.chain.Invoke(ctx, map[string]any{"prompt": req.Prompt()})
	if err != nil {
		log.Warn("[assistant] chain invoke failed", "err", err)
		return "", &CallError{Body: err.Error(), Err: err}
	}
	if msg == nil {
		return "", &CallError{Body: "no message returned", Err: ErrMalformedReply}
	}

	reply := strings.TrimSpace(msg.Content)
	if c.stripCitations {
		reply = StripCitations(reply)
	}
	if reply == "" {
		return "", &CallError{Body: "empty reply", Err: ErrMalformedReply}
	}
	return reply, nil
}
