package monitoring

import (
	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/config/router"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	store      Pinger
	cache      Pinger
	completion CompletionProbe
}

func NewMonitoringControllerFactory(appConfig *config.ApplicationConfig, completion CompletionProbe) MonitoringControllerFactory {
	f := &DefaultMonitoringControllerFactory{
		store:      appConfig.Store,
		completion: completion,
	}
	if appConfig.Cache != nil {
		f.cache = appConfig.Cache
	}
	return f
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.store, f.cache, f.completion)
}
