package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/cmd/util"
	"github.com/mpapenbr/tirecast/pkg/export"
	"github.com/mpapenbr/tirecast/pkg/predict"
)

type options struct {
	track      string
	lap        int
	target     int
	strategy   bool
	exportFile string
	jsonOutput bool
}

var ErrPredictionFailed = errors.New("prediction failed")

func NewPredictCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "forecast tire degradation and recommend a pit stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger()
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), &opts)
		},
	}
	cmd.Flags().StringVarP(&opts.track, "track", "t", "", "track id or name")
	cmd.Flags().IntVarP(&opts.lap, "lap", "l", 0, "current lap")
	cmd.Flags().IntVar(&opts.target, "target", 0,
		"number of laps to predict (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.strategy, "strategy", false,
		"include the 1-stop vs 2-stop comparison")
	cmd.Flags().StringVar(&opts.exportFile, "export", "",
		"write predictions as CSV to this file (a directory selects the default name)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("lap")
	return cmd
}

//nolint:whitespace // editor/linter issue
func run(
	ctx context.Context, stdout, stderr io.Writer, opts *options,
) error {
	setup, err := util.NewSetup(nil)
	if err != nil {
		return err
	}
	report := setup.Predictor.Run(ctx, predict.Request{
		Track:      opts.track,
		CurrentLap: opts.lap,
		TargetLaps: opts.target,
		Strategy:   opts.strategy,
	}, func(p predict.Progress) {
		fmt.Fprintf(stderr, "[%3d%%] %s\n", p.Percent, p.Message)
	})

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if err := Render(stdout, report); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %s", ErrPredictionFailed, report.Message)
	}
	if opts.exportFile != "" {
		name := exportName(opts.exportFile, report.Track.Name, report.CurrentLap)
		if err := export.WriteFile(name, report.Forecast.Predictions); err != nil {
			return err
		}
		log.Info("Predictions exported", log.String("file", name))
	}
	return nil
}

func exportName(target, track string, lap int) string {
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		return filepath.Join(target, export.FileName(track, lap))
	}
	return target
}
