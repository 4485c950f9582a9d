// Package catalog maps track identifiers to their telemetry files and race
// metadata. Built-in defaults may be extended or overridden by a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

const (
	// SupportedMajor is the catalog file schema accepted by this version
	SupportedMajor = "v1"
	DefaultDataDir = "data"
)

var (
	ErrUnknownTrack = errors.New("unknown track")
	ErrVersion      = errors.New("unsupported catalog version")
)

// UnknownTrackError is returned for tracks not present in the catalog
type UnknownTrackError struct {
	Track string
}

func (e *UnknownTrackError) Error() string {
	return fmt.Sprintf("Data file not found for %s", e.Track)
}

func (e *UnknownTrackError) Is(target error) bool {
	return target == ErrUnknownTrack
}

// File is the on-disk layout of a catalog override
//
//nolint:tagliatelle // yaml layout
type File struct {
	Version string            `yaml:"version"`
	DataDir string            `yaml:"dataDir"`
	Tracks  []model.TrackInfo `yaml:"tracks"`
}

var defaultTracks = []model.TrackInfo{
	{
		ID:        "bahrain",
		Name:      "Bahrain GP 2024",
		File:      "bahrain_2024_hamilton.csv",
		TotalLaps: 57,
		Length:    5.412,
		TyreWear:  "High",
		Flag:      "🇧🇭",
	},
	{
		ID:        "monaco",
		Name:      "Monaco GP 2024",
		File:      "monaco_2024_hamilton.csv",
		TotalLaps: 78,
		Length:    3.337,
		TyreWear:  "Low",
		Flag:      "🇲🇨",
	},
	{
		ID:        "silverstone",
		Name:      "British GP 2024 (Silverstone)",
		File:      "silverstone_2024_hamilton.csv",
		TotalLaps: 52,
		Length:    5.891,
		TyreWear:  "Medium",
		Flag:      "🏁",
	},
}

type (
	// ChangeFunc is called with the path of a changed file
	ChangeFunc func(path string)

	Catalog struct {
		l         *log.Logger
		file      string
		mu        sync.RWMutex
		dataDir   string
		tracks    []model.TrackInfo
		listeners []ChangeFunc
	}
	Option func(*Catalog)
)

func WithLogger(l *log.Logger) Option {
	return func(c *Catalog) {
		c.l = l
	}
}

// WithFile loads overrides from a YAML catalog file
func WithFile(file string) Option {
	return func(c *Catalog) {
		c.file = file
	}
}

// WithDataDir sets the directory relative track files are resolved against.
// A dataDir set in the catalog file takes precedence.
func WithDataDir(dir string) Option {
	return func(c *Catalog) {
		c.dataDir = dir
	}
}

func New(opts ...Option) (*Catalog, error) {
	ret := &Catalog{
		l:       log.Default().Named("catalog"),
		dataDir: DefaultDataDir,
		tracks:  slices.Clone(defaultTracks),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.file != "" {
		if err := ret.reload(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Default returns a catalog with the built-in tracks only
func Default() *Catalog {
	c, _ := New()
	return c
}

// Tracks returns a copy of all entries
func (c *Catalog) Tracks() []model.TrackInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tracks)
}

func (c *Catalog) DataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataDir
}

// Lookup finds a track by id or display name (case insensitive)
func (c *Catalog) Lookup(track string) (model.TrackInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := strings.TrimSpace(track)
	t, ok := lo.Find(c.tracks, func(t model.TrackInfo) bool {
		return strings.EqualFold(t.ID, key) || strings.EqualFold(t.Name, key)
	})
	if !ok {
		return model.TrackInfo{}, &UnknownTrackError{Track: track}
	}
	return t, nil
}

// DataFile returns the path of the telemetry file for track
func (c *Catalog) DataFile(track string) (string, error) {
	t, err := c.Lookup(track)
	if err != nil {
		return "", err
	}
	return c.resolve(t.File), nil
}

// OnChange registers fn to be called after the catalog file or a telemetry
// file in the data directory changed.
func (c *Catalog) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Catalog) resolve(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filepath.Join(c.dataDir, file)
}

func (c *Catalog) notify(path string) {
	c.mu.RLock()
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(path)
	}
}

func (c *Catalog) reload() error {
	content, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("parse catalog %s: %w", c.file, err)
	}
	if err := CheckVersion(f.Version); err != nil {
		return err
	}
	if idx := slices.IndexFunc(f.Tracks, func(t model.TrackInfo) bool {
		return t.ID == ""
	}); idx >= 0 {
		return fmt.Errorf("parse catalog %s: track entry %d has no id", c.file, idx)
	}

	merged := slices.Clone(defaultTracks)
	for _, t := range f.Tracks {
		if i := slices.IndexFunc(merged, func(m model.TrackInfo) bool {
			return m.ID == t.ID
		}); i >= 0 {
			merged[i] = t
		} else {
			merged = append(merged, t)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = merged
	if f.DataDir != "" {
		c.dataDir = f.DataDir
	}
	c.l.Info("catalog loaded",
		log.String("file", c.file),
		log.String("version", f.Version),
		log.Int("tracks", len(merged)))
	return nil
}

// CheckVersion accepts semantic versions with major v1. The leading v is
// optional.
func CheckVersion(version string) error {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q", ErrVersion, version)
	}
	if semver.Major(v) != SupportedMajor {
		return fmt.Errorf("%w: %s (need %s.x)", ErrVersion, version, SupportedMajor)
	}
	return nil
}
