package waitlist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/internal/models"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
)

const (
	statsCacheKey      = "waitlist:stats"
	statsGenerationKey = "waitlist:stats:generation"
)

type WaitlistService interface {
	// Register validates the request, checks email and phone uniqueness and
	// stores a new active entry.
	Register(ctx context.Context, req *RegisterRequest) (*RegistrationResponse, error)

	// GetStats counts active vendors, couples and the active total.
	GetStats(ctx context.Context) (*StatsResponse, error)
}

// StatsCache is the subset of the shared cache the service needs.
type StatsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type ServiceOptions struct {
	Cache    StatsCache
	StatsTTL time.Duration // 0 disables caching even with a cache
	Metrics  *Metrics
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	cache      StatsCache
	statsTTL   time.Duration
	metrics    *Metrics
	now        func() time.Time
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, opts ServiceOptions) WaitlistService {
	s := &waitlistService{
		logger:     logger,
		repository: repository,
		metrics:    opts.Metrics,
		now:        time.Now,
	}

	if opts.Cache != nil && opts.StatsTTL > 0 {
		s.cache = opts.Cache
		s.statsTTL = opts.StatsTTL
	}

	return s
}

func (s *waitlistService) Register(ctx context.Context, req *RegisterRequest) (*RegistrationResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entry, err := validateRegistration(req)
	if err != nil {
		logger.Warn("Rejected waitlist registration", "reason", err.Error())
		s.metrics.observeRejection(apperrors.GetErrorType(err))
		return nil, err
	}

	existing, err := s.repository.FindEntryByEmail(ctx, entry.Email)
	if err != nil {
		return nil, s.failed(logger, "Failed to look up waitlist entry by email", err)
	}
	if existing != nil {
		return nil, s.conflict(logger, MsgEmailTaken)
	}

	existing, err = s.repository.FindEntryByPhoneNumber(ctx, entry.PhoneNumber)
	if err != nil {
		return nil, s.failed(logger, "Failed to look up waitlist entry by phone number", err)
	}
	if existing != nil {
		return nil, s.conflict(logger, MsgPhoneNumberTaken)
	}

	entry.CreatedAt = s.now().UTC()

	created, err := s.repository.CreateEntry(ctx, entry)
	if err != nil {
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeConflict {
			logger.Warn("Waitlist entry lost uniqueness race", "error", err)
			s.metrics.observeRejection(apperrors.ErrorTypeConflict)
			return nil, err
		}
		return nil, s.failed(logger, "Failed to create waitlist entry", err)
	}

	s.invalidateStats(ctx, logger)
	s.metrics.observeRegistration(created.UserType)

	logger.Info("Waitlist entry created", "id", created.ID, "user_type", created.UserType)
	return ToRegistrationResponse(created), nil
}

func (s *waitlistService) conflict(logger *log.Logger, message string) error {
	logger.Warn("Rejected duplicate waitlist registration", "reason", message)
	s.metrics.observeRejection(apperrors.ErrorTypeConflict)
	return apperrors.NewConflictError(message, nil)
}

func (s *waitlistService) failed(logger *log.Logger, message string, err error) error {
	logger.Error(message, "error", err)
	s.metrics.observeRejection(apperrors.ErrorTypeDatabaseError)
	return err
}

func (s *waitlistService) GetStats(ctx context.Context) (*StatsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	cacheKey, cacheable := s.statsKey(ctx, logger)
	if cacheable {
		if stats, ok := s.cachedStats(ctx, logger, cacheKey); ok {
			return &StatsResponse{Success: true, Data: stats}, nil
		}
	}

	var stats Stats
	counts := []struct {
		filter EntryFilter
		dst    *int64
	}{
		{EntryFilter{UserType: models.UserTypeVendor, Status: models.StatusActive}, &stats.Vendors},
		{EntryFilter{UserType: models.UserTypeCouple, Status: models.StatusActive}, &stats.Couples},
		{EntryFilter{Status: models.StatusActive}, &stats.Total},
	}

	for _, c := range counts {
		n, err := s.repository.CountEntries(ctx, c.filter)
		if err != nil {
			logger.Error("Failed to count waitlist entries", "user_type", c.filter.UserType, "error", err)
			return nil, err
		}
		*c.dst = n
	}

	if cacheable {
		s.storeStats(ctx, logger, cacheKey, stats)
	}
	return &StatsResponse{Success: true, Data: stats}, nil
}

// statsKey ties cached counts to the registration generation read before
// counting. A registration bumps the generation, so counts computed
// concurrently land under a key no later reader asks for.
func (s *waitlistService) statsKey(ctx context.Context, logger *log.Logger) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	generation, err := s.cache.Get(ctx, statsGenerationKey)
	if err != nil {
		logger.Warn("Stats cache read failed", "error", err)
		return "", false
	}
	if generation == "" {
		generation = "0"
	}

	return statsCacheKey + ":" + generation, true
}

func (s *waitlistService) cachedStats(ctx context.Context, logger *log.Logger, key string) (Stats, bool) {
	var stats Stats

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Stats cache read failed", "error", err)
		return stats, false
	}
	if raw == "" {
		return stats, false
	}

	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		logger.Warn("Discarding malformed cached stats", "error", err)
		return stats, false
	}
	return stats, true
}

func (s *waitlistService) storeStats(ctx context.Context, logger *log.Logger, key string, stats Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.statsTTL); err != nil {
		logger.Warn("Stats cache write failed", "error", err)
	}
}

func (s *waitlistService) invalidateStats(ctx context.Context, logger *log.Logger) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, statsGenerationKey); err != nil {
		logger.Warn("Stats cache invalidation failed", "error", err)
	}
}
