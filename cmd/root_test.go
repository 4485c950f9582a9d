/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/tirecast/pkg/config"
)

func TestPersistentFlagsBindConfig(t *testing.T) {
	tests := []struct {
		flag  string
		value string
		got   func() string
	}{
		{"log-level", "debug", func() string { return config.LogLevel }},
		{"log-format", "json", func() string { return config.LogFormat }},
		{"log-config", "/tmp/log.yml", func() string { return config.LogConfig }},
		{"retry-delay", "3s", func() string { return config.RetryDelay }},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := rootCmd.PersistentFlags().Lookup(tt.flag)
			require.NotNil(t, f)
			old := f.Value.String()
			t.Cleanup(func() { _ = f.Value.Set(old) })

			require.NoError(t, rootCmd.PersistentFlags().Set(tt.flag, tt.value))
			assert.Equal(t, tt.value, tt.got())
		})
	}
}
