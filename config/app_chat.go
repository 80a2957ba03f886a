package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/circuitbreaker"
	"github.com/akeren/mehfil-api/pkg/completion"
	"github.com/akeren/mehfil-api/pkg/constants"
	"github.com/kelseyhightower/envconfig"
)

// MehfilSystemPrompt frames every chat completion. It is not read from the
// environment.
const MehfilSystemPrompt = "You are the persuasive FAQ assistant for Mehfil, the game-changing AI-powered cultural " +
	"events platform that revolutionizes how traditional event vendors across the USA skyrocket " +
	"their business success by connecting them with customers craving authentic South Asian and " +
	"multicultural celebrations, and you must only answer frequently asked questions about " +
	"Mehfil's transformative services while passionately showcasing how our breakthrough AI " +
	"technology solves vendors' biggest business challenges through personal AI assistants that " +
	"deliver profitable real-time insights on listings and bookings, powerful analytics that " +
	"pinpoint exactly where vendors can dramatically increase revenue, AI-driven profile " +
	"optimization that guarantees maximum visibility and explosive sales growth, intelligent " +
	"operational automation that eliminates vendor headaches while maximizing profits, seamless " +
	"booking management that converts more customers, and smart recommendation algorithms that " +
	"effortlessly match vendors with their ideal high-paying clients - if users ask anything " +
	"outside of Mehfil FAQs or try to engage in general conversation, enthusiastically redirect " +
	"them back to discovering how Mehfil can transform their vendor business and remind them " +
	"you're specifically designed to reveal Mehfil's incredible business-boosting solutions."

type ChatConfig struct {
	Provider       string        `envconfig:"CHAT_PROVIDER" default:"openai"`
	Model          string        `envconfig:"CHAT_MODEL"`
	MaxTokens      int           `envconfig:"CHAT_MAX_TOKENS" default:"500"`
	Temperature    float32       `envconfig:"CHAT_TEMPERATURE"`
	RequestTimeout time.Duration `envconfig:"CHAT_REQUEST_TIMEOUT" default:"25s"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	AWSRegion     string `envconfig:"AWS_REGION" default:"us-east-1"`

	BreakerFailureThreshold int           `envconfig:"CHAT_BREAKER_FAILURES" default:"5"`
	BreakerRecoveryTimeout  time.Duration `envconfig:"CHAT_BREAKER_COOLDOWN" default:"30s"`

	SystemPrompt string `ignored:"true"`
}

func LoadChatConfig() (*ChatConfig, error) {
	var cfg ChatConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("chat config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = completion.ProviderOpenAI
	}
	if err := completion.ValidateProvider(cfg.Provider); err != nil {
		return nil, fmt.Errorf("chat config: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = constants.DefaultChatMaxTokens
	}
	if _, set := os.LookupEnv("CHAT_TEMPERATURE"); !set {
		cfg.Temperature = constants.DefaultChatTemperature
	}

	cfg.SystemPrompt = MehfilSystemPrompt
	return &cfg, nil
}

func defaultModelFor(provider string) string {
	if provider == completion.ProviderBedrock {
		return completion.DefaultBedrockModel
	}
	return constants.DefaultChatModel
}

func (c *ChatConfig) BreakerConfig() *circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	if c.BreakerFailureThreshold > 0 {
		cfg.FailureThreshold = c.BreakerFailureThreshold
	}
	if c.BreakerRecoveryTimeout > 0 {
		cfg.RecoveryTimeout = c.BreakerRecoveryTimeout
	}
	return cfg
}

func NewCompletionClient(ctx context.Context, cfg *ChatConfig) (completion.Client, error) {
	switch cfg.Provider {
	case completion.ProviderBedrock:
		return completion.NewBedrockClient(ctx, cfg.AWSRegion, cfg.Model)
	default:
		return completion.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, nil)
	}
}

// NewCompletionClientOrNil keeps the API serving waitlist traffic when the
// completion provider is misconfigured; /chat then answers 500.
func NewCompletionClientOrNil(ctx context.Context, logger *log.Logger, cfg *ChatConfig) completion.Client {
	client, err := NewCompletionClient(ctx, cfg)
	if err != nil {
		logger.Error("Completion client unavailable; chat requests will fail", "provider", cfg.Provider, "error", err)
		return nil
	}

	logger.Info("Completion client configured", "provider", cfg.Provider, "model", cfg.Model)
	return client
}
