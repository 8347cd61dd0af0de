package assistant

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/zhouzirui/mindchat/backend/internal/config"
)

// NewFromConfig builds the client selected by ASSISTANT_PROVIDER.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.Assistant.Provider {
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, err
		}
		client, err := NewChainClient(ctx, chatModel, cfg.Assistant.StripCitations)
		if err != nil {
			return nil, err
		}
		log.Info("assistant initialized", "provider", config.ProviderArk, "model", cfg.Ark.Model)
		return client, nil
	default:
		if !cfg.Assistant.Enabled() {
			// Calls still go out and fail upstream; each failure becomes an
			// error turn in the transcript.
			log.Warn("SONAR_API_KEY not set, assistant replies will report the upstream error")
		}
		log.Info("assistant initialized", "provider", config.ProviderSonar, "model", cfg.Assistant.Model, "endpoint", cfg.Assistant.Endpoint)
		return NewSonarClient(nil, SonarConfig{
			Endpoint:       cfg.Assistant.Endpoint,
			APIKey:         cfg.Assistant.APIKey,
			Model:          cfg.Assistant.Model,
			Temperature:    cfg.Assistant.Temperature,
			MaxTokens:      cfg.Assistant.MaxTokens,
			StripCitations: cfg.Assistant.StripCitations,
		}), nil
	}
}
