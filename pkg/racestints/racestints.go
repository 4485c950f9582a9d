package racestints

import (
	"time"

	"github.com/mpapenbr/tirecast/pkg/model"
)

type (
	PartType   int
	CalcStints interface {
		Calc() (*Result, error)
	}
	Part interface {
		Type() PartType
		Output() string
	}
	StintPart interface {
		Part
		Laps() int
		LapStart() int
		LapEnd() int
		StintTime() time.Duration
	}
	PitPart interface {
		Part
		Lap() int
		PitTime() time.Duration
	}
	Result struct {
		Parts []Part
	}
)

const (
	PartTypeStint PartType = iota
	PartTypePit
)

// Stints returns the stint parts of the result
func (r *Result) Stints() []StintPart {
	ret := make([]StintPart, 0, len(r.Parts))
	for _, p := range r.Parts {
		if s, ok := p.(StintPart); ok {
			ret = append(ret, s)
		}
	}
	return ret
}

// TotalTime sums up the time of all parts
func (r *Result) TotalTime() time.Duration {
	total := time.Duration(0)
	for _, p := range r.Parts {
		switch x := p.(type) {
		case StintPart:
			total += x.StintTime()
		case PitPart:
			total += x.PitTime()
		}
	}
	return total
}

// StintInfos converts the stint parts for the api model
func (r *Result) StintInfos() []model.StintInfo {
	stints := r.Stints()
	ret := make([]model.StintInfo, len(stints))
	for i, s := range stints {
		ret[i] = model.StintInfo{LapStart: s.LapStart(), LapEnd: s.LapEnd(), Laps: s.Laps()}
	}
	return ret
}
