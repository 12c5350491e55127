package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Environment = "dev"
	cfg.Data.Dir = t.TempDir()
	cfg.Cache.Watch = false
	return cfg
}

func TestNew_DevGeneratesEphemeralSecret(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Gate)
	assert.NotNil(t, a.Registry)
	assert.Len(t, a.Registry.Modules(), 7)
	assert.NotNil(t, a.MCPHandler)
	assert.Equal(t, "America/New_York", a.Location.String())
}

func TestNew_ProdRequiresSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Environment = "prod"
	_, err := New(cfg, common.NewSilentLogger())
	assert.Error(t, err)
}

func TestNew_InvalidFlushSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.FlushSchedule = "not a schedule"
	_, err := New(cfg, common.NewSilentLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush_schedule")
}

func TestNew_InvalidTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Downloads.Timezone = "Mars/Olympus"
	_, err := New(cfg, common.NewSilentLogger())
	assert.Error(t, err)
}

func TestSweep_RunsRegisteredJobs(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	calls := 0
	a.AddSweep("test", func() int {
		calls++
		return 1
	})
	a.sweep()
	assert.Equal(t, 1, calls)
}

func TestDataReady(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.True(t, a.dataReady())

	cfg.Data.Dir = filepath.Join(cfg.Data.Dir, "missing")
	assert.False(t, a.dataReady())
}

func TestStart_WatcherFlushesOnChange(t *testing.T) {
	cfg := testConfig(t)
	// Non-strict so the ad hoc file is served rather than rejected.
	cfg.Environment = "prod"
	cfg.Auth.CookieSecret = "0123456789abcdef0123456789abcdef"
	cfg.Cache.Watch = true
	cfg.Cache.Debounce = "20ms"
	path := filepath.Join(cfg.Data.Dir, "qry_graph_data_01.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	a, err := New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	_, err = a.Store.Graph(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, a.Store.Stats().Entries)

	require.NoError(t, os.WriteFile(path, []byte("a,b\n3,4\n"), 0o644))
	assert.Eventually(t, func() bool {
		return a.Store.Stats().Entries == 0
	}, 2*time.Second, 20*time.Millisecond)
}
