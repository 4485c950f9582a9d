package tracks

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/tirecast/pkg/catalog"
	"github.com/mpapenbr/tirecast/pkg/config"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

func NewTracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks",
		Short: "lists the tracks available for predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.New(
				catalog.WithFile(config.CatalogFile),
				catalog.WithDataDir(config.DataDir))
			if err != nil {
				return err
			}
			return list(cmd.OutOrStdout(), cat)
		},
	}
}

func list(w io.Writer, cat *catalog.Catalog) error {
	if _, err := fmt.Fprintln(w, headerStyle.Render(
		fmt.Sprintf("%-14s %-32s %5s %8s %-7s", "id", "name", "laps", "km", "wear"))); err != nil {
		return err
	}
	for _, t := range cat.Tracks() {
		if _, err := fmt.Fprintf(w, "%-14s %-32s %5d %8.3f %-7s %s\n",
			t.ID, t.Name, t.TotalLaps, t.Length, t.TyreWear, t.Flag); err != nil {
			return err
		}
	}
	return nil
}
