package predict

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/predict"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	urgencyStyle = map[predict.Urgency]lipgloss.Style{
		predict.UrgencyUrgent:  lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1),
		predict.UrgencySoon:    lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("178")).Padding(0, 1),
		predict.UrgencyPlanned: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("34")).Padding(0, 1),
	}
)

// Render writes a human readable version of the report to w
func Render(w io.Writer, r *predict.Report) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", r.Track.Flag, r.Track.Name)))
	b.WriteString("\n")
	if !r.OK() {
		b.WriteString(errorStyle.Render(string(r.Forecast.Category)))
		b.WriteString(" " + r.Message + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s %d  %s %d\n",
		labelStyle.Render("current lap"), r.CurrentLap,
		labelStyle.Render("race laps"), r.TotalLaps)
	b.WriteString(boxStyle.Render(forecastTable(r)))
	b.WriteString("\n")

	if r.Pit != nil {
		if r.Pit.RecommendedLap.IsValue() {
			style, found := urgencyStyle[r.Urgency]
			if !found {
				style = labelStyle
			}
			fmt.Fprintf(&b, "%s pit on lap %d",
				style.Render(string(r.Urgency)), r.Pit.RecommendedLap.GetOr(0))
			if r.Pit.Window.IsValue() {
				win := r.Pit.Window.GetOr(model.PitWindow{})
				fmt.Fprintf(&b, " (window %d-%d)", win.Start, win.End)
			}
			b.WriteString("\n")
		}
		b.WriteString(r.Pit.Reasoning + "\n")
	}
	if s := r.Strategy; s != nil && len(s.Strategies) > 0 {
		b.WriteString(titleStyle.Render("Strategies") + "\n")
		for _, o := range s.Strategies {
			marker := " "
			if o.Name == s.Recommended {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s %-16s %9.2fs  pit laps %v\n", marker, o.Name, o.FinishTime, o.PitLaps)
		}
	}
	fmt.Fprintf(&b, "%s %.3f  %s %d\n",
		labelStyle.Render("avg confidence"), r.Metrics.AverageConfidence,
		labelStyle.Render("laps remaining"), r.Metrics.LapsRemaining)
	b.WriteString(labelStyle.Render(r.Forecast.Reasoning) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func forecastTable(r *predict.Report) string {
	rows := make([]string, 0, len(r.Forecast.Predictions)+1)
	rows = append(rows, labelStyle.Render(fmt.Sprintf("%4s %10s %6s", "lap", "time", "conf")))
	for _, p := range r.Forecast.Predictions {
		rows = append(rows, fmt.Sprintf("%4d %10.3f %6.2f", p.Lap, p.PredictedTime, p.Confidence))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
