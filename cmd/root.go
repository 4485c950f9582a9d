/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mpapenbr/tirecast/pkg/advisor/pitstop"
	"github.com/mpapenbr/tirecast/pkg/catalog"
	predictCmd "github.com/mpapenbr/tirecast/pkg/cmd/predict"
	serverCmd "github.com/mpapenbr/tirecast/pkg/cmd/server"
	tracksCmd "github.com/mpapenbr/tirecast/pkg/cmd/tracks"
	"github.com/mpapenbr/tirecast/pkg/config"
	"github.com/mpapenbr/tirecast/pkg/llm"
	"github.com/mpapenbr/tirecast/pkg/llm/gemini"
	"github.com/mpapenbr/tirecast/pkg/predict"
	"github.com/mpapenbr/tirecast/version"
)

const envPrefix = "TIRECAST"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "tirecast",
	Short:   "Tire degradation forecasts and pit stop advice",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.tirecast.yml)")

	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"log config file (yaml) with per logger filter rules")
	rootCmd.PersistentFlags().StringVar(&config.GeminiAPIKey,
		"gemini-api-key",
		"",
		"API key for the model backend (falls back to GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&config.Model,
		"model",
		gemini.DefaultModel,
		"model used for forecasts")
	rootCmd.PersistentFlags().Float64Var(&config.Temperature,
		"temperature",
		0.2,
		"sampling temperature for the model")
	rootCmd.PersistentFlags().IntVar(&config.MaxAttempts,
		"max-attempts",
		llm.DefaultMaxAttempts,
		"attempts per forecast request")
	rootCmd.PersistentFlags().StringVar(&config.RetryDelay,
		"retry-delay",
		llm.DefaultRetryDelay.String(),
		"delay between attempts")
	rootCmd.PersistentFlags().Float64Var(&config.PitThreshold,
		"pit-threshold",
		pitstop.DefaultThreshold,
		"lap time loss in seconds which triggers a pit stop")
	rootCmd.PersistentFlags().IntVar(&config.TargetLaps,
		"target-laps",
		predict.DefaultTargetLaps,
		"default number of laps to predict")
	rootCmd.PersistentFlags().StringVar(&config.CatalogFile,
		"catalog",
		"",
		"track catalog file (yaml) extending the built-in tracks")
	rootCmd.PersistentFlags().StringVar(&config.DataDir,
		"data-dir",
		catalog.DefaultDataDir,
		"directory containing the telemetry files")
	rootCmd.PersistentFlags().StringVar(&config.CacheExpiration,
		"cache-expiration",
		"5m",
		"how long loaded telemetry is kept in memory")

	// add commands here
	rootCmd.AddCommand(predictCmd.NewPredictCmd())
	rootCmd.AddCommand(tracksCmd.NewTracksCmd())
	rootCmd.AddCommand(serverCmd.NewServerCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tirecast" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tirecast")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --log-level to TIRECAST_LOG_LEVEL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
