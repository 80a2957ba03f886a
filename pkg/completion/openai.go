package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
)

var ErrMissingAPIKey = errors.New("completion: OpenAI API key is not configured")

type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client for the OpenAI chat completions API. An
// empty baseURL keeps the public endpoint.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: lo.Map(req.Messages, func(m Message, _ int) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		}),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
