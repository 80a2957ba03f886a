package chat

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/circuitbreaker"
	"github.com/akeren/mehfil-api/pkg/completion"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
)

const (
	MsgMessageRequired = "Message is required"
	FallbackResponse   = "Sorry, I could not process your request."
)

type ChatService interface {
	// Relay sends the message after the system prompt and returns the
	// completion text. An empty completion yields FallbackResponse.
	Relay(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Available is false when no client is configured or the breaker is open.
	Available() bool
}

// Settings are fixed for the lifetime of the service.
type Settings struct {
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration // per completion call; 0 uses the request deadline
}

type chatService struct {
	logger   *log.Logger
	client   completion.Client
	breaker  circuitbreaker.CircuitBreaker
	settings Settings
	metrics  *Metrics
}

func NewChatService(logger *log.Logger, client completion.Client, breaker circuitbreaker.CircuitBreaker, settings Settings, metrics *Metrics) ChatService {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}

	return &chatService{
		logger:   logger,
		client:   client,
		breaker:  breaker,
		settings: settings,
		metrics:  metrics,
	}
}

func (s *chatService) Relay(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil || req.Message == "" {
		s.metrics.observe(outcomeRejected)
		return nil, apperrors.NewInvalidRequestError(MsgMessageRequired, nil)
	}

	if s.client == nil {
		logger.Error("Chat request received but no completion client is configured")
		s.metrics.observe(outcomeUnavailable)
		return nil, apperrors.NewUpstreamError("completion client not configured", nil)
	}

	callCtx := ctx
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	var text string
	start := time.Now()
	err := s.breaker.Call(func() error {
		var callErr error
		text, callErr = s.client.Complete(callCtx, s.buildRequest(req.Message))
		return callErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			logger.Warn("Completion circuit open; rejecting chat request")
			s.metrics.observe(outcomeUnavailable)
		} else {
			logger.Error("Completion request failed", "error", err, "latency_ms", time.Since(start).Milliseconds())
			s.metrics.observe(outcomeFailed)
		}
		return nil, apperrors.NewUpstreamError("completion failed", err)
	}

	if text == "" {
		logger.Warn("Completion returned no content; using fallback")
		s.metrics.observe(outcomeFallback)
		return &ChatResponse{Response: FallbackResponse}, nil
	}

	logger.Info("Completion succeeded", "latency_ms", time.Since(start).Milliseconds())
	s.metrics.observe(outcomeSucceeded)
	return &ChatResponse{Response: text}, nil
}

func (s *chatService) buildRequest(message string) *completion.Request {
	return &completion.Request{
		Model: s.settings.Model,
		Messages: []completion.Message{
			{Role: completion.RoleSystem, Content: s.settings.SystemPrompt},
			{Role: completion.RoleUser, Content: message},
		},
		MaxTokens:   s.settings.MaxTokens,
		Temperature: s.settings.Temperature,
	}
}

func (s *chatService) Available() bool {
	return s.client != nil && s.breaker.State() != circuitbreaker.Open
}
