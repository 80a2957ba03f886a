package waitlist

import (
	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/internal/log"
)

type WaitlistServiceFactory interface {
	CreateRepository() WaitlistRepository
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	store   *config.Store
	options ServiceOptions
	logger  *log.Logger
}

func NewWaitlistServiceFactory(appConfig *config.ApplicationConfig) WaitlistServiceFactory {
	options := ServiceOptions{Metrics: NewMetrics()}
	if appConfig.Cache != nil && appConfig.Config != nil {
		options.Cache = appConfig.Cache
		options.StatsTTL = appConfig.Config.StatsCacheTTL
	}

	return &DefaultWaitlistServiceFactory{
		store:   appConfig.Store,
		options: options,
		logger:  appConfig.Logger,
	}
}

// CreateRepository picks the SQL repository when the store holds a gorm
// connection and the document store repository otherwise.
func (f *DefaultWaitlistServiceFactory) CreateRepository() WaitlistRepository {
	if f.store.IsSQL() {
		return NewWaitlistRepository(f.store.DB)
	}
	return NewMongoWaitlistRepository(f.store.Mongo)
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(f.logger, f.CreateRepository(), f.options)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.options.Metrics)
}
