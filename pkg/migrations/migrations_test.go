package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(string, ...any) {}

type fakeMigrator struct {
	upErr error
}

func (m *fakeMigrator) Up() error             { return m.upErr }
func (m *fakeMigrator) Close() (error, error) { return nil, nil }

type blockingMigrator struct {
	release   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func (m *blockingMigrator) Up() error {
	<-m.release
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.release)
	})
	return nil, nil
}

type factoryCall struct {
	sourceURL    string
	databaseName string
	cfg          Config
}

// stubFactories swaps the driver and migrator constructors for the test's lifetime.
func stubFactories(t *testing.T, m migrator, initErr error) *factoryCall {
	t.Helper()

	origDriver, origMigrator := driverFactory, migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriver
		migratorFactory = origMigrator
	})

	call := &factoryCall{}
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		call.cfg = cfg
		return nil, nil
	}
	migratorFactory = func(sourceURL, databaseName string, _ database.Driver) (migrator, error) {
		call.sourceURL = sourceURL
		call.databaseName = databaseName
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}
	return call
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
}

func TestUp_CancelledContextSkipsWork(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, call.sourceURL)
}

func TestUp_DeadlineClosesMigrator(t *testing.T) {
	block := &blockingMigrator{release: make(chan struct{})}
	stubFactories(t, block, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closed.Load())
}

func TestUp_NoChangeIsNotAnError(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

func TestUp_Success(t *testing.T) {
	stubFactories(t, &fakeMigrator{}, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "Migrations applied successfully")
}

func TestUp_AppliesDefaults(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	dir := t.TempDir()

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dir}))

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)

	assert.Equal(t, (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), call.sourceURL)
	assert.Equal(t, DriverPostgres, call.databaseName)
	assert.Equal(t, "schema_migrations", call.cfg.MigrationsTable)
}

func TestUp_WrapsInitError(t *testing.T) {
	stubFactories(t, nil, errors.New("boom"))

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: init")
}

func TestUp_PathWithSpaces(t *testing.T) {
	call := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	dir := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dir}))

	parsed, err := url.Parse(call.sourceURL)
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, "file", parsed.Scheme)
	assert.Equal(t, filepath.ToSlash(abs), parsed.Path)
}

func TestUp_UnsupportedDriver(t *testing.T) {
	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestUp_SQLiteAppliesWaitlistSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waitlist.db")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	// The sqlite3 migrate driver closes sqlDB when it is done.
	require.NoError(t, Up(context.Background(), sqlDB, Config{Dir: "../../migrations", Driver: DriverSQLite}))

	check, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if s, err := check.DB(); err == nil {
			_ = s.Close()
		}
	})

	assert.True(t, check.Migrator().HasTable("waitlist_entries"))
	assert.True(t, check.Migrator().HasIndex("waitlist_entries", "idx_waitlist_entries_email"))
	assert.True(t, check.Migrator().HasIndex("waitlist_entries", "idx_waitlist_entries_phone_number"))
}
