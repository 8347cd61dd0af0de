package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

// replyPath locates the reply text in a chat-completions response body.
const replyPath = "choices.0.message.content"

// SonarConfig configures a SonarClient.
type SonarConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	Temperature    *float64
	MaxTokens      *int
	StripCitations bool
}

// SonarClient calls an OpenAI-style chat-completions endpoint such as the
// Perplexity sonar API.
type SonarClient struct {
	httpClient *http.Client
	cfg        SonarConfig
}

// NewSonarClient builds a client. A nil httpClient uses a client without a
// timeout; callers bound calls through ctx.
func NewSonarClient(httpClient *http.Client, cfg SonarConfig) *SonarClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SonarClient{httpClient: httpClient, cfg: cfg}
}

type sonarMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sonarRequest struct {
	Model       string         `json:"model"`
	Messages    []sonarMessage `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
}

// Reply sends req as a single user message and returns the trimmed reply.
func (c *SonarClient) Reply(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(sonarRequest{
		Model:       c.cfg.Model,
		Messages:    []sonarMessage{{Role: "user", Content: req.Prompt()}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", &CallError{Body: err.Error(), Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &CallError{Body: err.Error(), Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("[assistant] request failed", "endpoint", c.cfg.Endpoint, "err", err)
		return "", &CallError{Body: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CallError{StatusCode: resp.StatusCode, Body: err.Error(), Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("[assistant] non-success status", "status", resp.StatusCode, "bytes", len(body))
		return "", &CallError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	reply, err := parseReply(body)
	if err != nil {
		return "", &CallError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}

	if c.cfg.StripCitations {
		reply = StripCitations(reply)
		if reply == "" {
			return "", &CallError{StatusCode: resp.StatusCode, Body: string(body), Err: ErrMalformedReply}
		}
	}

	log.Debug("[assistant] reply received", "model", c.cfg.Model, "length", len(reply))
	return reply, nil
}

func parseReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid json", ErrMalformedReply)
	}
	content := gjson.GetBytes(body, replyPath)
	if !content.Exists() || content.Type != gjson.String {
		return "", fmt.Errorf("%w: %s not found", ErrMalformedReply, replyPath)
	}
	reply := strings.TrimSpace(content.String())
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	return reply, nil
}
