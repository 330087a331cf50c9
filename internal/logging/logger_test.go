package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TRACE,
		"DEBUG":   DEBUG,
		"":        INFO,
		"warning": WARN,
		"Error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("streaming", &buf, INFO)

	l.Debug("скрыто %d", 1)
	l.Info("видно %d", 2)
	l.Error("ошибка %s", "x")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[streaming] [INFO] видно 2")
	assert.Contains(t, out, "[ERROR] ошибка x")
	assert.False(t, l.Enabled(DEBUG))
	assert.True(t, l.Enabled(WARN))

	l.SetLevels(TRACE, TRACE)
	l.Trace("теперь видно")
	assert.Contains(t, buf.String(), "[TRACE] теперь видно")
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	Configure(dir, ERROR)
	defer Configure("", INFO)

	l, err := NewLogger("terrain")
	require.NoError(t, err)
	l.Debug("в файл")
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "terrain_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] в файл")
}

func TestLoggerManagerReusesLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}

	a, err := lm.GetLogger("api")
	require.NoError(t, err)
	b, err := lm.GetLogger("api")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"api"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("api", DEBUG, DEBUG))
	assert.True(t, a.Enabled(DEBUG))
	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
