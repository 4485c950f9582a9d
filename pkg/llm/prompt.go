package llm

import (
	"fmt"
	"strings"
)

const (
	ContextStartMarker = "=== CONTEXT DATA START ==="
	ContextEndMarker   = "=== CONTEXT DATA END ==="
)

// Horizon describes the laps the model is asked to predict
type Horizon struct {
	CurrentLap int
	Laps       int // number of laps to predict
	TotalLaps  int // race length, 0 if unknown
}

func (h Horizon) FirstLap() int { return h.CurrentLap + 1 }
func (h Horizon) LastLap() int  { return h.CurrentLap + h.Laps }

const roleDescription = "You are an expert F1 race strategist and data analyst. " +
	"Your job is to analyze lap times, tire wear, and degradation patterns " +
	"to forecast future lap times for the same tire stint."

const outputFormat = `Return your answer in **strict JSON format** like this:
{
  "predictions": [
    {"lap": 16, "predicted_time": 75.234, "confidence": 0.85},
    {"lap": 17, "predicted_time": 75.411, "confidence": 0.83},
    ...
  ],
  "reasoning": "Explain the trend, degradation pattern, and key insights."
}

Ensure floating-point lap times are in seconds with 3 decimal precision. ` +
	"Confidence should be a value between 0.0 and 1.0 representing prediction certainty."

// BuildPrompt creates the instruction prompt for the model.
// The result only depends on its arguments.
func BuildPrompt(raceContext string, h Horizon) string {
	b := strings.Builder{}
	b.WriteString(roleDescription)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Analyze the provided race telemetry and tire degradation context. "+
		"Focus on how lap times are increasing (slowing) over time, "+
		"and infer the degradation rate trend. Use that trend to estimate "+
		"the next %d lap times (laps %d to %d",
		h.Laps, h.FirstLap(), h.LastLap())
	if h.TotalLaps > 0 {
		fmt.Fprintf(&b, " of a %d lap race", h.TotalLaps)
	}
	b.WriteString("). Consider tire compound, age, and track temperature " +
		"when making predictions. Include a reasoning summary describing " +
		"how you derived the results.\n\n")

	b.WriteString(ContextStartMarker + "\n")
	b.WriteString(raceContext)
	b.WriteString("\n" + ContextEndMarker + "\n\n")

	b.WriteString(outputFormat)
	b.WriteString("\nEmphasize the degradation pattern (accelerating, stable, or recovering) " +
		"in your reasoning.")
	return b.String()
}
