package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/mongodb"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

var supportedStoreDrivers = []string{StoreDriverMongo, StoreDriverPostgres, StoreDriverSQLite}

type StoreConfig struct {
	Driver              string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI            string        `envconfig:"MONGODB_URI"`
	MongoDatabase       string        `envconfig:"MONGODB_DATABASE" default:"mehfil"`
	MongoCollection     string        `envconfig:"MONGODB_COLLECTION" default:"waitlist"`
	MongoConnectTimeout time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
	MongoEnsureIndexes  bool          `envconfig:"MONGODB_ENSURE_INDEXES" default:"true"`
	SQLitePath          string        `envconfig:"SQLITE_PATH" default:"mehfil.db"`
}

func LoadStoreConfig() (*StoreConfig, error) {
	var cfg StoreConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}

	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = StoreDriverMongo
	}
	if !lo.Contains(supportedStoreDrivers, cfg.Driver) {
		return nil, fmt.Errorf("store config: unsupported STORE_DRIVER %q (allowed: %s)", cfg.Driver, strings.Join(supportedStoreDrivers, ", "))
	}

	if cfg.Driver == StoreDriverMongo && strings.TrimSpace(cfg.MongoURI) == "" {
		return nil, errors.New("store config: MONGODB_URI is required when STORE_DRIVER=mongo")
	}

	return &cfg, nil
}

// Store holds whichever backend STORE_DRIVER selected. Exactly one of DB and
// Mongo is set.
type Store struct {
	Driver string
	DB     *gorm.DB
	Mongo  *mongodb.Handle
}

// NewStore opens SQL stores eagerly. The Mongo handle connects on first use.
func NewStore(logger *log.Logger, cfg *StoreConfig) (*Store, error) {
	switch cfg.Driver {
	case StoreDriverMongo:
		handle := mongodb.NewHandle(mongodb.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			Collection:     cfg.MongoCollection,
			ConnectTimeout: cfg.MongoConnectTimeout,
		})
		logger.Info("Document store configured; connecting lazily",
			"database", handle.Config().Database,
			"collection", handle.Config().Collection,
		)
		return &Store{Driver: cfg.Driver, Mongo: handle}, nil

	case StoreDriverPostgres:
		db, err := NewDatabase(logger, nil)
		if err != nil {
			return nil, err
		}
		return &Store{Driver: cfg.Driver, DB: db}, nil

	case StoreDriverSQLite:
		db, err := NewSQLiteDatabase(logger, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{Driver: cfg.Driver, DB: db}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func NewSQLiteDatabase(logger *log.Logger, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to open SQLite database", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	logger.Info("SQLite database opened", "path", path)
	return db, nil
}

func (s *Store) IsSQL() bool {
	return s != nil && s.DB != nil
}

func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s == nil:
		return errors.New("store is not configured")
	case s.Mongo != nil:
		return s.Mongo.Ping(ctx)
	case s.DB != nil:
		sqlDB, err := s.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	default:
		return errors.New("store has no backend")
	}
}

func (s *Store) Close(logger *log.Logger) {
	if s == nil {
		return
	}

	if s.DB != nil {
		CloseDatabase(s.DB, logger)
	}

	if s.Mongo != nil && s.Mongo.Connected() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Mongo.Disconnect(ctx); err != nil {
			logger.Error("Failed to disconnect document store", "error", err)
			return
		}
		logger.Info("Document store disconnected")
	}
}
