package log

import (
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig is the content of the optional log config file.
//
// example:
//
//	level: info
//	format: text
//	filters:
//	  - "debug:predict.* llm.*"
//	  - ">=info:*"
type FileConfig struct {
	Level   string   `yaml:"level"`
	Format  string   `yaml:"format"`
	Filters []string `yaml:"filters"`
}

func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Rules joins the filter entries into a single zapfilter rule string
func (c *FileConfig) Rules() string {
	return strings.Join(c.Filters, " ")
}

// FromConfig creates a logger from cfg. Values missing in cfg are taken from
// the fallback arguments.
//
//nolint:whitespace // editor/linter issue
func FromConfig(
	w io.Writer, cfg *FileConfig, fallbackLevel Level, fallbackFormat string,
	opts ...Option,
) (*Logger, error) {
	level := fallbackLevel
	format := fallbackFormat
	if cfg.Level != "" {
		if l, err := ParseLevel(cfg.Level); err == nil {
			level = l
		}
	}
	if cfg.Format != "" {
		format = cfg.Format
	}
	return NewWithRules(w, level, format, cfg.Rules(), opts...)
}
