package constants

import "time"

// RFC3339DateTimeFormat is used for every timestamp leaving the service.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

const (
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1

	WaitlistSignupRequestsPerMinute = 30
	ChatRequestsPerMinute           = 20
	MonitoringRequestsPerMinute     = 10
)

func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

const (
	DefaultChatModel       = "gpt-4o"
	DefaultChatMaxTokens   = 500
	DefaultChatTemperature = 0.7

	DefaultStatsCacheTTL = 30 * time.Second
)
