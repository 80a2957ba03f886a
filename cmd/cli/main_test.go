package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/akeren/mehfil-api/domain/waitlist"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_ParsesCommands(t *testing.T) {
	var cli CLI
	k, err := kong.New(&cli, kong.Name("cli"))
	require.NoError(t, err)

	ctx, err := k.Parse([]string{"ensure-indexes", "--timeout", "30s"})
	require.NoError(t, err)
	assert.Equal(t, "ensure-indexes", ctx.Command())
	assert.Equal(t, 30*time.Second, cli.EnsureIndexes.Timeout)

	ctx, err = k.Parse([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", ctx.Command())
	assert.Equal(t, 5*time.Minute, cli.Migrate.Timeout)

	_, err = k.Parse([]string{"generate-domain"})
	assert.Error(t, err)
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf, waitlist.Stats{Vendors: 4, Couples: 9, Total: 13})

	out := buf.String()
	for _, want := range []string{"Segment", "Active entries", "Vendors", "Couples", "Total", "13"} {
		assert.Contains(t, out, want)
	}
}

func TestMigrateCmd_RejectsDocumentStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	err := (&MigrateCmd{Dir: "../../migrations", Timeout: time.Second}).Run(log.NewLoggerWithJSONOutput())
	assert.ErrorIs(t, err, errNotSQLStore)
}

func TestMigrateThenStats_SQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	logger := log.NewLoggerWithJSONOutput()

	require.NoError(t, (&MigrateCmd{Dir: "../../migrations", Timeout: 30 * time.Second}).Run(logger))

	var buf bytes.Buffer
	require.NoError(t, (&StatsCmd{Timeout: 5 * time.Second}).Run(logger, &buf))
	assert.Contains(t, buf.String(), "Vendors")
	assert.Contains(t, buf.String(), "0")
}
