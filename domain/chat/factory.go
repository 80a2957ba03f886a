package chat

import (
	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/circuitbreaker"
	"github.com/akeren/mehfil-api/pkg/completion"
)

type ChatServiceFactory interface {
	CreateService() ChatService
	CreateController() *router.RESTController
}

// DefaultChatServiceFactory memoizes the service so the controller and the
// health check observe the same breaker.
type DefaultChatServiceFactory struct {
	logger   *log.Logger
	client   completion.Client
	breaker  circuitbreaker.CircuitBreaker
	settings Settings
	metrics  *Metrics
	service  ChatService
}

func NewChatServiceFactory(appConfig *config.ApplicationConfig) ChatServiceFactory {
	chatCfg := appConfig.Chat
	breaker := circuitbreaker.NewCircuitBreaker(chatCfg.BreakerConfig())

	return &DefaultChatServiceFactory{
		logger:  appConfig.Logger,
		client:  appConfig.Completion,
		breaker: breaker,
		settings: Settings{
			SystemPrompt: chatCfg.SystemPrompt,
			Model:        chatCfg.Model,
			MaxTokens:    chatCfg.MaxTokens,
			Temperature:  chatCfg.Temperature,
			Timeout:      chatCfg.RequestTimeout,
		},
		metrics: NewMetrics(breaker),
	}
}

func (f *DefaultChatServiceFactory) CreateService() ChatService {
	if f.service == nil {
		f.service = NewChatService(f.logger, f.client, f.breaker, f.settings, f.metrics)
	}
	return f.service
}

func (f *DefaultChatServiceFactory) CreateController() *router.RESTController {
	return NewChatController(f.CreateService(), f.metrics)
}
