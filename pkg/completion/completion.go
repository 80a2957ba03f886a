// Package completion talks to hosted chat-completion models.
package completion

//go:generate mockgen -source=completion.go -destination=mock_completion.go -package=completion

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Client performs a single, non-streaming completion. An empty string with a
// nil error means the model produced no text.
type Client interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

func ValidateProvider(provider string) error {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI, ProviderBedrock:
		return nil
	default:
		return fmt.Errorf("completion: unsupported provider %q (allowed: %s, %s)", provider, ProviderOpenAI, ProviderBedrock)
	}
}
