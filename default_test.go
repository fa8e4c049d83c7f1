package logpp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetDefault stops and forgets the default registry after a test
func resetDefault(t *testing.T) {
	t.Cleanup(func() {
		_ = Shutdown(time.Second)
		defaultMu.Lock()
		defaultRegistry = nil
		defaultMu.Unlock()
	})
}

func TestDefaultRegistry(t *testing.T) {
	resetDefault(t)
	sink := &memorySink{}
	require.NoError(t, Init(testConfig(), WithSink("memory", sink, LevelTrace)))

	Get("app").Info("via default")
	assert.Same(t, Default().Logger("app"), Get("app"))
	require.NoError(t, Flush(time.Second))
	assert.Equal(t, []string{"via default"}, sink.messages())

	// A second Init reloads the running registry
	reg := Default()
	cfg := testConfig()
	cfg.Level = LevelDebug
	require.NoError(t, Init(cfg))
	assert.Same(t, reg, Default())
	assert.Equal(t, LevelDebug, Get("app").Level())
	assert.Equal(t, uint64(1), reg.Stats().Reloads)

	require.NoError(t, Shutdown(time.Second))
	assert.True(t, sink.isClosed())

	// Init after shutdown builds a fresh registry
	require.NoError(t, Init(testConfig()))
	assert.NotSame(t, reg, Default())
}

func TestDefaultInitErrors(t *testing.T) {
	resetDefault(t)

	cfg := testConfig()
	cfg.Writers = 0
	requireConfigError(t, Init(cfg), "writers")

	assert.NoError(t, Shutdown(), "shutdown without a default registry is a no-op")

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, InitFromFile(filepath.Join(t.TempDir(), "missing.toml"), nil), ErrConfig)
}

func TestDefaultInitFromFile(t *testing.T) {
	resetDefault(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	cfgPath := filepath.Join(dir, "logpp.toml")
	writeFile(t, cfgPath, `
level = "warn"
internal_errors_to_stderr = false

[[sinks]]
type = "file"
target = "`+filepath.ToSlash(logPath)+`"
pattern = "%l %v"
`)

	require.NoError(t, InitFromFile(cfgPath, nil))
	Get("svc").Info("hidden")
	Get("svc").Warn("shown")
	require.NoError(t, Flush(time.Second))
	assert.Equal(t, "warn shown\n", readFile(t, logPath))
}
