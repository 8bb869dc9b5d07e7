// Package openai wraps go-openai chat completions behind a narrow interface.
package openai

import (
	"context"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// Client performs single-shot chat completions.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a system + user prompt pair.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float32
	JSONMode     bool
}

// CompletionResponse carries the first choice's content and token usage.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Option configures the client.
type Option func(*goopenai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *goopenai.ClientConfig) {
		c.BaseURL = url
	}
}

type sdkClient struct {
	client *goopenai.Client
	model  string
}

// NewClient creates a client. An empty model selects gpt-4o-mini.
func NewClient(apiKey, model string, opts ...Option) Client {
	cfg := goopenai.DefaultConfig(apiKey)
	for _, o := range opts {
		o(&cfg)
	}
	if model == "" {
		model = defaultModel
	}
	return &sdkClient{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.UserPrompt == "" {
		return nil, eris.New("openai: user prompt is required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response has no choices")
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
