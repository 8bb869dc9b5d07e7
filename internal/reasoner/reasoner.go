// Package reasoner sends scoring prompts to a hosted language model.
package reasoner

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/config"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/anthropic"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/openai"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = eris.New("reasoner: not configured")

const (
	systemPrompt     = "You are a B2B sales analyst scoring inbound leads. Reply with one JSON object and no other text."
	defaultMaxTokens = 2048
	temperature      = 0.2
)

// Reasoner completes a prompt and returns the raw response text.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the reasoner selected by cfg.Scoring.Provider.
func New(cfg *config.Config) (Reasoner, error) {
	switch cfg.Scoring.Provider {
	case "", "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "anthropic.key is empty")
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Scoring.MaxTokens), nil
	case "openai":
		if cfg.OpenAI.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "openai.key is empty")
		}
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return NewOpenAI(openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.Model, opts...), cfg.Scoring.MaxTokens), nil
	}
	return nil, eris.Errorf("reasoner: unknown provider %q", cfg.Scoring.Provider)
}

// Anthropic completes prompts with the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens}
}

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	t := temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &t,
	})
	if err != nil {
		return "", eris.Wrap(err, "reasoner: anthropic")
	}
	resp.Usage.LogCost(a.model, "scoring")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("reasoner: anthropic returned no text")
	}
	return text, nil
}

// OpenAI completes prompts with chat completions in JSON mode.
type OpenAI struct {
	client    openai.Client
	maxTokens int
}

// NewOpenAI wraps an OpenAI client.
func NewOpenAI(client openai.Client, maxTokens int64) *OpenAI {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAI{client: client, maxTokens: int(maxTokens)}
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Complete(ctx, openai.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    o.maxTokens,
		Temperature:  temperature,
		JSONMode:     true,
	})
	if err != nil {
		return "", eris.Wrap(err, "reasoner: openai")
	}
	zap.L().Info("reasoner: openai usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", eris.New("reasoner: openai returned no text")
	}
	return text, nil
}
