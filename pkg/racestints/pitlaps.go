package racestints

import (
	"fmt"
	"slices"
	"time"
)

type (
	PitLapCalcParams struct {
		FromLap   int           // last completed lap
		TotalLaps int           // race length
		PitLaps   []int         // pit at the end of these laps
		PitTime   time.Duration // time lost per pit stop
		AvgLap    time.Duration // lap time on fresh tires
		DegPerLap time.Duration // added lap time per lap of tire age
	}
)

type (
	pitLapCalc struct {
		param *PitLapCalcParams
		parts []Part
	}
	stintPart struct {
		laps      int
		lapStart  int
		lapEnd    int
		stintTime time.Duration
	}
	pitPart struct {
		lap     int
		pitTime time.Duration
	}
)

// NewPitLapCalc creates the stints between the given pit laps.
// Pit laps outside of (FromLap, TotalLaps) are ignored.
func NewPitLapCalc(param *PitLapCalcParams) CalcStints {
	return &pitLapCalc{param: param}
}

func (c *pitLapCalc) Calc() (*Result, error) {
	if c.param.TotalLaps < 1 {
		return nil, fmt.Errorf("invalid race length: %d", c.param.TotalLaps)
	}
	c.parts = make([]Part, 0)
	if c.param.FromLap >= c.param.TotalLaps {
		return &Result{Parts: c.parts}, nil
	}
	pits := slices.Clone(c.param.PitLaps)
	slices.Sort(pits)
	pits = slices.Compact(pits)

	curLap := c.param.FromLap + 1
	for _, pit := range pits {
		if pit < curLap || pit >= c.param.TotalLaps {
			continue
		}
		c.parts = append(c.parts,
			c.stint(curLap, pit),
			&pitPart{lap: pit, pitTime: c.param.PitTime})
		curLap = pit + 1
	}
	c.parts = append(c.parts, c.stint(curLap, c.param.TotalLaps))
	return &Result{Parts: c.parts}, nil
}

func (c *pitLapCalc) stint(start, end int) *stintPart {
	laps := end - start + 1
	wear := c.param.DegPerLap * time.Duration(laps*(laps-1)/2)
	return &stintPart{
		laps:      laps,
		lapStart:  start,
		lapEnd:    end,
		stintTime: time.Duration(laps)*c.param.AvgLap + wear,
	}
}

func (s stintPart) Type() PartType {
	return PartTypeStint
}

func (s stintPart) Laps() int {
	return s.laps
}

func (s stintPart) LapStart() int {
	return s.lapStart
}

func (s stintPart) LapEnd() int {
	return s.lapEnd
}

func (s stintPart) StintTime() time.Duration {
	return s.stintTime
}

func (s stintPart) Output() string {
	return fmt.Sprintf("%d-%d (%d): %s", s.lapStart, s.lapEnd, s.laps, s.stintTime)
}

func (p pitPart) Type() PartType {
	return PartTypePit
}

func (p pitPart) Lap() int {
	return p.lap
}

func (p pitPart) PitTime() time.Duration {
	return p.pitTime
}

func (p pitPart) Output() string {
	return fmt.Sprintf("Pit lap %d %s", p.lap, p.pitTime)
}
