package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/config"
	"github.com/mpapenbr/tirecast/pkg/publish"
)

func TestCredential(t *testing.T) {
	tests := []struct {
		name        string
		configured  string
		env         string
		wantPresent bool
		wantKey     string
	}{
		{name: "configured", configured: "abc-1234", env: "other", wantPresent: true, wantKey: "abc-1234"},
		{name: "env fallback", env: "env-5678", wantPresent: true, wantKey: "env-5678"},
		{name: "absent", wantPresent: false},
		{name: "blank", configured: "  ", wantPresent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(FallbackAPIKeyEnv, tt.env)
			old := config.GeminiAPIKey
			t.Cleanup(func() { config.GeminiAPIKey = old })
			config.GeminiAPIKey = tt.configured

			got := Credential()
			assert.Equal(t, tt.wantPresent, got.Present())
			assert.Equal(t, tt.wantKey, got.Key())
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDuration("3s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}

func TestNewSetup(t *testing.T) {
	dir := fs.NewDir(t, "setup",
		fs.WithFile("catalog.yml", `version: v1
tracks:
  - id: imola
    name: Emilia Romagna GP
    file: imola.csv
    totalLaps: 63
`),
		fs.WithDir("telemetry"))
	oldFile, oldDir := config.CatalogFile, config.DataDir
	t.Cleanup(func() { config.CatalogFile, config.DataDir = oldFile, oldDir })
	config.CatalogFile = dir.Join("catalog.yml")
	config.DataDir = dir.Join("telemetry")

	s, err := NewSetup(publish.Noop())
	require.NoError(t, err)
	info, err := s.Catalog.Lookup("imola")
	require.NoError(t, err)
	assert.Equal(t, 63, info.TotalLaps)
	assert.Equal(t, dir.Join("telemetry"), s.Catalog.DataDir())

	_, err = s.Tables.Get(context.Background(), dir.Join("telemetry", "missing.csv"))
	assert.Error(t, err)
	assert.Same(t, s.Catalog, s.Predictor.Catalog())
}

func TestNewSetupBadCatalog(t *testing.T) {
	dir := fs.NewDir(t, "setup", fs.WithFile("catalog.yml", "version: v2\n"))
	old := config.CatalogFile
	t.Cleanup(func() { config.CatalogFile = old })
	config.CatalogFile = dir.Join("catalog.yml")

	_, err := NewSetup(nil)
	assert.Error(t, err)
}

func TestSetupLoggerFromFile(t *testing.T) {
	dir := fs.NewDir(t, "logcfg", fs.WithFile("log.yml", `level: warn
format: json
`))
	old, oldDefault := config.LogConfig, log.Default()
	t.Cleanup(func() {
		config.LogConfig = old
		log.ResetDefault(oldDefault)
	})
	config.LogConfig = dir.Join("log.yml")

	l := SetupLogger()
	assert.Same(t, l, log.Default())
	assert.Equal(t, log.WarnLevel, l.Level())
}
