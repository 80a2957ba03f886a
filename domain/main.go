package domain

import (
	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/domain/chat"
	"github.com/akeren/mehfil-api/domain/monitoring"
	"github.com/akeren/mehfil-api/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	chatFactory := chat.NewChatServiceFactory(appConfig)

	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(appConfig, chatFactory.CreateService()).CreateController())
	appConfig.RouterService.MountController(waitlist.NewWaitlistServiceFactory(appConfig).CreateController())
	appConfig.RouterService.MountController(chatFactory.CreateController())
}
