package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/utils"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

// NewDBConfigFromEnv reads pool settings; sslmode defaults to require.
func NewDBConfigFromEnv() *DBConfig {
	return &DBConfig{
		MaxIdleConns:    utils.GetEnvPositiveInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    utils.GetEnvPositiveInt("DB_MAX_OPEN_CONNS", 50),
		ConnMaxLifetime: utils.GetEnvPositiveDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         "require",
	}
}

// NewDatabase connects to Postgres using APP_DATABASE_URL, or the POSTGRES_*
// variables when the URL is unset.
func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfigFromEnv()
	}

	dsn, err := postgresDSN(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		logger.Error("Database ping failed", "error", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established")
	return gdb, nil
}

type postgresParams struct {
	Host, Port, User, Password, Name, SSLMode string
}

func postgresParamsFromEnv() postgresParams {
	env := func(key string) string { return sanitizeEnv(GetValueFromEnvironmentVariable(key, "")) }

	return postgresParams{
		Host:     env("POSTGRES_HOST"),
		Port:     env("POSTGRES_PORT"),
		User:     env("POSTGRES_USER"),
		Password: env("POSTGRES_PASSWORD"),
		Name:     env("POSTGRES_DB_NAME"),
		SSLMode:  env("POSTGRES_SSLMODE"),
	}
}

func postgresDSN(logger *log.Logger, cfg *DBConfig) (string, error) {
	if url := sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")); url != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return url, nil
	}

	p := postgresParamsFromEnv()
	if p.SSLMode == "" {
		p.SSLMode = cfg.SSLMode
	}

	required := map[string]string{
		"POSTGRES_HOST":    p.Host,
		"POSTGRES_PORT":    p.Port,
		"POSTGRES_USER":    p.User,
		"POSTGRES_DB_NAME": p.Name,
	}
	missing := lo.Filter([]string{"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_DB_NAME"}, func(key string, _ int) bool {
		return required[key] == ""
	})
	if len(missing) > 0 {
		logger.Error("Missing required database environment variables", "missing_vars", strings.Join(missing, ", "))
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(p.Port)
	if err != nil {
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", p.Port, err)
	}

	logger.Info("Connecting to database", "host", p.Host, "port", port, "user", p.User, "dbname", p.Name, "sslmode", p.SSLMode)

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Name, p.SSLMode), nil
}

// sanitizeEnv trims whitespace and one pair of matching surrounding quotes.
func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return s
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database auto-migration completed")
	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
		return
	}
	logger.Info("Database closed")
}
