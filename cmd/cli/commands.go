package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/akeren/mehfil-api/config"
	"github.com/akeren/mehfil-api/domain/waitlist"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/migrations"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var errNotSQLStore = errors.New("migrate only applies to SQL stores; use ensure-indexes for the document store")

type MigrateCmd struct {
	Dir     string        `help:"Migrations directory." env:"MIGRATIONS_DIR" default:"migrations"`
	Timeout time.Duration `help:"Overall timeout." default:"5m"`
}

func (c *MigrateCmd) Run(logger *log.Logger) error {
	storeCfg, err := config.LoadStoreConfig()
	if err != nil {
		return err
	}

	var (
		db     *gorm.DB
		driver string
	)

	switch storeCfg.Driver {
	case config.StoreDriverPostgres:
		db, err = config.NewDatabase(logger, nil)
		driver = migrations.DriverPostgres
	case config.StoreDriverSQLite:
		db, err = config.NewSQLiteDatabase(logger, storeCfg.SQLitePath)
		driver = migrations.DriverSQLite
	default:
		return errNotSQLStore
	}
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	if err := migrations.Up(ctx, sqlDB, migrations.Config{Dir: c.Dir, Driver: driver, Logger: logger}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed", "driver", driver)
	return nil
}

type EnsureIndexesCmd struct {
	Timeout time.Duration `help:"Overall timeout including retries." default:"2m"`
}

func (c *EnsureIndexesCmd) Run(logger *log.Logger) error {
	storeCfg, err := config.LoadStoreConfig()
	if err != nil {
		return err
	}
	if storeCfg.Driver != config.StoreDriverMongo {
		return fmt.Errorf("ensure-indexes needs STORE_DRIVER=%s, got %q", config.StoreDriverMongo, storeCfg.Driver)
	}

	store, err := config.NewStore(logger, storeCfg)
	if err != nil {
		return err
	}
	defer store.Close(logger)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	return config.EnsureMongoIndexes(ctx, logger, store)
}

type StatsCmd struct {
	Timeout time.Duration `help:"Query timeout." default:"30s"`
}

func (c *StatsCmd) Run(logger *log.Logger, out io.Writer) error {
	storeCfg, err := config.LoadStoreConfig()
	if err != nil {
		return err
	}

	store, err := config.NewStore(logger, storeCfg)
	if err != nil {
		return err
	}
	defer store.Close(logger)

	service := waitlist.NewWaitlistServiceFactory(&config.ApplicationConfig{
		Store:  store,
		Logger: logger,
	}).CreateService()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	stats, err := service.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	renderStats(out, stats.Data)
	return nil
}

func renderStats(out io.Writer, stats waitlist.Stats) {
	title := cases.Title(language.English)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Segment", "Active entries"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := []struct {
		label string
		count int64
	}{
		{"vendors", stats.Vendors},
		{"couples", stats.Couples},
		{"total", stats.Total},
	}
	for _, r := range rows {
		table.Append([]string{title.String(r.label), strconv.FormatInt(r.count, 10)})
	}

	table.Render()
}
