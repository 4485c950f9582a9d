package model

import (
	"slices"
	"strings"

	"github.com/aarondl/opt/null"
)

type (
	Column   string
	Compound string
)

const (
	ColLapNumber Column = "lap_number"
	ColLapTime   Column = "lap_time"
	ColCompound  Column = "tire_compound"
	ColTireAge   Column = "tire_age"
	ColTrackTemp Column = "track_temp"
)

const (
	CompoundSoft         Compound = "SOFT"
	CompoundMedium       Compound = "MEDIUM"
	CompoundHard         Compound = "HARD"
	CompoundIntermediate Compound = "INTERMEDIATE"
	CompoundWet          Compound = "WET"
	CompoundUnknown      Compound = "Unknown"
)

// ParseCompound maps a raw label to a known compound.
// Anything not recognized yields CompoundUnknown.
func ParseCompound(label string) Compound {
	switch c := Compound(strings.ToUpper(strings.TrimSpace(label))); c {
	case CompoundSoft, CompoundMedium, CompoundHard, CompoundIntermediate, CompoundWet:
		return c
	case "INTER":
		return CompoundIntermediate
	default:
		return CompoundUnknown
	}
}

type LapRecord struct {
	LapNumber int               `json:"lap_number"`
	LapTime   float64           `json:"lap_time_seconds"`
	Compound  Compound          `json:"tire_compound"`
	TireAge   int               `json:"tire_age"`
	TrackTemp null.Val[float64] `json:"track_temp"`
}

// DegradationEntry holds the derived values for the LapRecord at the same index.
type DegradationEntry struct {
	Degradation float64 `json:"degradation"`
	Cumulative  float64 `json:"cumulative_degradation"`
	Rate        float64 `json:"degradation_rate"`
}

// LapTable is the canonical in-memory lap table.
// Records are sorted ascending by lap number without duplicates.
// Degradation is either nil or has the same length as Records.
type LapTable struct {
	Records     []LapRecord
	Degradation []DegradationEntry
	columns     []Column
}

func NewLapTable(records []LapRecord, cols ...Column) *LapTable {
	return &LapTable{Records: records, columns: slices.Clone(cols)}
}

func EmptyLapTable() *LapTable {
	return &LapTable{Records: []LapRecord{}}
}

func (t *LapTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

func (t *LapTable) IsEmpty() bool { return t.Len() == 0 }

func (t *LapTable) HasColumn(c Column) bool {
	return t != nil && slices.Contains(t.columns, c)
}

func (t *LapTable) Columns() []Column {
	return slices.Clone(t.columns)
}

func (t *LapTable) HasDegradation() bool {
	return t != nil && len(t.Records) > 0 && len(t.Degradation) == len(t.Records)
}

// IndexOfLap returns the row index of lap or -1
func (t *LapTable) IndexOfLap(lap int) int {
	if t == nil {
		return -1
	}
	return slices.IndexFunc(t.Records, func(r LapRecord) bool { return r.LapNumber == lap })
}

func (t *LapTable) MaxLap() int {
	if t.IsEmpty() {
		return 0
	}
	return t.Records[len(t.Records)-1].LapNumber
}

// WithDegradation returns a copy of the table carrying d.
func (t *LapTable) WithDegradation(d []DegradationEntry) *LapTable {
	return &LapTable{
		Records:     slices.Clone(t.Records),
		Degradation: d,
		columns:     slices.Clone(t.columns),
	}
}
