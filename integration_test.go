package logpp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullLifecycle(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	rollPath := filepath.Join(dir, "roll.log")

	jsonSink := DefaultSinkConfig(SinkFile)
	jsonSink.Target = jsonPath
	jsonSink.Format = FormatJSON

	reg, err := NewBuilder().
		LevelString("debug").
		LoggerLevel("noisy", "error").
		QueueCapacity(1024).
		BlockTimeout(0).
		InternalErrorsToStderr(false).
		Sink(jsonSink).
		RollingFile(rollPath, "1KB", "").
		Build()
	require.NoError(t, err)

	app := reg.Logger("app")
	noisy := reg.Logger("noisy.sub")
	for i := 0; i < 100; i++ {
		app.Debug("debug message", Int("i", i))
		noisy.Info("hidden")
	}
	app.Infof("formatted {} of {}", 1, 2)
	noisy.Error("noisy error")

	require.NoError(t, reg.Flush(time.Second))
	var rotations uint64
	for _, s := range reg.Stats().Sinks {
		if s.Type == SinkRollingFile {
			rotations = s.Rotations
		}
	}
	assert.Positive(t, rotations)

	require.NoError(t, reg.ApplyOverride("level=warn"))
	app.Info("hidden after override")
	app.Warn("visible after override")

	require.NoError(t, reg.Shutdown(2*time.Second))

	const want = 103
	s := reg.Stats()
	assert.Equal(t, uint64(want), s.Enqueued)
	assert.Equal(t, uint64(want), s.Dispatched)
	assert.Equal(t, uint64(1), s.Reloads)

	// Every record is a valid JSON line
	jsonLines := lines(readFile(t, jsonPath))
	require.Len(t, jsonLines, want)
	for _, line := range jsonLines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj), line)
	}
	assert.Contains(t, jsonLines[100], `"msg":"formatted 1 of 2"`)
	assert.Contains(t, jsonLines[101], `"logger":"noisy.sub"`)

	// The rolling sink split the same records over several files without losing any
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	total := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "roll.log") {
			total += len(lines(readFile(t, filepath.Join(dir, e.Name()))))
		}
	}
	assert.Equal(t, want, total)
}

func TestConcurrentOperations(t *testing.T) {
	reg, sink := createTestRegistry(t, func(cfg *Config) { cfg.BlockTimeout = 0 })

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := reg.Logger(fmt.Sprintf("worker.%d", id))
			for j := 0; j < 200; j++ {
				l.Info("work", Int("j", j))
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, reg.ApplyOverride(fmt.Sprintf("queue_capacity=%d", 100+i*100)))
			time.Sleep(5 * time.Millisecond)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			assert.NoError(t, reg.Flush(time.Second))
			time.Sleep(3 * time.Millisecond)
		}
	}()

	wg.Wait()
	require.NoError(t, reg.Shutdown(2*time.Second))

	s := reg.Stats()
	assert.Equal(t, uint64(1000), s.Enqueued+s.DroppedClosed+s.DroppedInactive)
	assert.Equal(t, s.Enqueued, s.Dispatched)
	assert.Len(t, sink.snapshot(), int(s.Dispatched))
}

func TestConfigFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "service.log")
	configPath := filepath.Join(dir, "logpp.toml")
	writeFile(t, configPath, fmt.Sprintf(`
level = "info"
internal_errors_to_stderr = false

[loggers]
"svc.db" = "debug"

[[sinks]]
type = "file"
target = %q
format = "logfmt"
`, logPath))

	cfg, err := LoadConfigFile(configPath, nil)
	require.NoError(t, err)
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	reg.Logger("svc.db").Debug("query", String("table", "users"))
	reg.Logger("svc.http").Debug("hidden")
	require.NoError(t, reg.Shutdown())

	content := readFile(t, logPath)
	assert.Contains(t, content, "level=debug logger=svc.db msg=query table=users\n")
	assert.NotContains(t, content, "hidden")
}
