package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRules(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := NewWithRules(buf, InfoLevel, "json", "debug:predict.* info:*")
	require.NoError(t, err)

	l.Named("predict").Named("stage").Debug("visible")
	l.Named("llm").Debug("hidden")
	l.Named("llm").Info("visible too")

	out := buf.String()
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"msg":"visible too"`)
	assert.NotContains(t, out, "hidden")
}

func TestNewWithRulesInvalid(t *testing.T) {
	_, err := NewWithRules(&bytes.Buffer{}, InfoLevel, "json", "foo:*")
	assert.Error(t, err)
}

func TestLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, WarnLevel)
	l.Info("info msg")
	l.Warn("warn msg", String("key", "value"))
	assert.NotContains(t, buf.String(), "info msg")
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestContext(t *testing.T) {
	assert.Same(t, Default(), GetFromContext(context.Background()))
	l := New(&bytes.Buffer{}, DebugLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.yml")
	content := "level: debug\nformat: json\nfilters:\n  - \"debug:laps\"\n  - \"warn:*\"\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "debug:laps warn:*", cfg.Rules())

	buf := &bytes.Buffer{}
	l, err := FromConfig(buf, cfg, InfoLevel, "text")
	require.NoError(t, err)
	l.Named("laps").Debug("from laps")
	l.Named("other").Info("from other")
	assert.Contains(t, buf.String(), "from laps")
	assert.NotContains(t, buf.String(), "from other")
}
