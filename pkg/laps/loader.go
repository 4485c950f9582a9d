package laps

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/model"
)

const (
	DefaultMinLapTime = 60.0
	DefaultMaxLapTime = 150.0
)

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrEmptyFile     = errors.New("empty file")
	ErrMissingColumn = errors.New("missing required column")
	ErrParse         = errors.New("could not parse telemetry")
)

// upstream export scripts differ in their column names
var columnAliases = map[model.Column][]string{
	model.ColLapNumber: {"lap_number", "LapNumber"},
	model.ColLapTime:   {"lap_time", "lap_time_seconds", "LapTime_seconds"},
	model.ColCompound:  {"tire_compound", "Compound"},
	model.ColTireAge:   {"tire_age", "TyreLife"},
	model.ColTrackTemp: {"track_temp", "TrackTemp"},
}

type (
	Loader struct {
		l          *log.Logger
		minLapTime float64
		maxLapTime float64
	}
	Option func(*Loader)

	// counters for discarded rows
	stats struct {
		rows          int
		missingTime   int
		missingLap    int
		outOfRange    int
		duplicateLaps int
	}
)

func WithLogger(l *log.Logger) Option {
	return func(ld *Loader) {
		ld.l = l
	}
}

// WithLapTimeBounds sets the inclusive range of plausible lap times (seconds)
func WithLapTimeBounds(lower, upper float64) Option {
	return func(ld *Loader) {
		ld.minLapTime = lower
		ld.maxLapTime = upper
	}
}

func NewLoader(opts ...Option) *Loader {
	ret := &Loader{
		l:          log.Default().Named("laps"),
		minLapTime: DefaultMinLapTime,
		maxLapTime: DefaultMaxLapTime,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load reads the lap table from file using default settings.
func Load(file string) (*model.LapTable, error) {
	return NewLoader().Load(file)
}

// Load reads and cleans the lap table stored in file.
// On failure an empty table is returned together with the cause. The cause is
// logged as well, so callers may treat the error as "no data available".
func (ld *Loader) Load(file string) (*model.LapTable, error) {
	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ld.l.Error("file not found", log.String("file", file))
			return model.EmptyLapTable(), fmt.Errorf("%w: %s", ErrFileNotFound, file)
		}
		ld.l.Error("unexpected error while loading",
			log.String("file", file), log.ErrorField(err))
		return model.EmptyLapTable(), fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	table, err := ld.Read(f)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyFile):
			ld.l.Error("file is empty", log.String("file", file))
		default:
			ld.l.Error("unexpected error while loading",
				log.String("file", file), log.ErrorField(err))
		}
		return model.EmptyLapTable(), err
	}
	return table, nil
}

// Read parses and cleans a lap table from r.
//
//nolint:funlen,cyclop // sequential cleanup steps
func (ld *Loader) Read(r io.Reader) (*model.LapTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.EmptyLapTable(), ErrEmptyFile
	}
	if err != nil {
		return model.EmptyLapTable(), fmt.Errorf("%w: %w", ErrParse, err)
	}
	idx := resolveColumns(header)
	for _, required := range []model.Column{model.ColLapNumber, model.ColLapTime} {
		if _, ok := idx[required]; !ok {
			return model.EmptyLapTable(),
				fmt.Errorf("%w: %w %s", ErrParse, ErrMissingColumn, required)
		}
	}

	st := stats{}
	records := make([]model.LapRecord, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.EmptyLapTable(), fmt.Errorf("%w: %w", ErrParse, err)
		}
		st.rows++

		rawTime := field(row, idx, model.ColLapTime)
		if isMissing(rawTime) {
			st.missingTime++
			continue
		}
		lapTime, err := strconv.ParseFloat(rawTime, 64)
		if err != nil {
			return model.EmptyLapTable(),
				fmt.Errorf("%w: lap time in row %d: %w", ErrParse, st.rows, err)
		}
		lapNum, ok := parseInt(field(row, idx, model.ColLapNumber))
		if !ok {
			st.missingLap++
			continue
		}
		if lapTime < ld.minLapTime || lapTime > ld.maxLapTime {
			st.outOfRange++
			continue
		}
		rec := model.LapRecord{
			LapNumber: lapNum,
			LapTime:   lapTime,
			Compound:  model.ParseCompound(field(row, idx, model.ColCompound)),
		}
		if age, ok := parseInt(field(row, idx, model.ColTireAge)); ok && age > 0 {
			rec.TireAge = age
		}
		if temp, err := strconv.ParseFloat(field(row, idx, model.ColTrackTemp), 64); err == nil &&
			!math.IsNaN(temp) {
			rec.TrackTemp = null.From(temp)
		}
		records = append(records, rec)
	}
	if st.rows == 0 {
		return model.EmptyLapTable(), ErrEmptyFile
	}

	slices.SortStableFunc(records, func(a, b model.LapRecord) int {
		return a.LapNumber - b.LapNumber
	})
	unique := lo.UniqBy(records, func(r model.LapRecord) int { return r.LapNumber })
	st.duplicateLaps = len(records) - len(unique)

	ld.l.Debug("lap table loaded",
		log.Int("rows", st.rows),
		log.Int("kept", len(unique)),
		log.Int("missingTime", st.missingTime),
		log.Int("missingLap", st.missingLap),
		log.Int("outOfRange", st.outOfRange),
		log.Int("duplicateLaps", st.duplicateLaps))

	cols := lo.Keys(idx)
	slices.Sort(cols)
	return model.NewLapTable(unique, cols...), nil
}

func resolveColumns(header []string) map[model.Column]int {
	ret := make(map[model.Column]int)
	names := lo.Map(header, func(h string, i int) string {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		return h
	})
	for col, aliases := range columnAliases {
		for _, alias := range aliases {
			if i := slices.Index(names, alias); i >= 0 {
				ret[col] = i
				break
			}
		}
	}
	return ret
}

func field(row []string, idx map[model.Column]int, col model.Column) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none", "nat":
		return true
	}
	return false
}

// parseInt accepts integer and float notation ("12", "12.0")
func parseInt(s string) (int, bool) {
	if isMissing(s) {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
