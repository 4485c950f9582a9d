package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // profiling endpoint
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/cmd/util"
	"github.com/mpapenbr/tirecast/pkg/config"
	"github.com/mpapenbr/tirecast/pkg/publish"
	"github.com/mpapenbr/tirecast/pkg/server"
	putils "github.com/mpapenbr/tirecast/pkg/utils"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.APIToken,
		"api-token",
		"",
		"token required in the api-token header (empty disables the check)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"NATS server receiving the prediction reports (empty disables publishing)")
	cmd.Flags().StringVar(&config.NatsSubject,
		"nats-subject",
		publish.DefaultSubjectPrefix,
		"subject prefix for published reports")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints to console)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	return cmd
}

//nolint:funlen // server wiring
func startServer(parent context.Context) error {
	util.SetupLogger()
	var telemetry *config.Telemetry

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // local profiling only
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices(parent)

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(parent); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	pub, err := newPublisher()
	if err != nil {
		log.Error("publisher could not be created", log.ErrorField(err))
		return err
	}
	defer pub.Close()

	setup, err := util.NewSetup(pub)
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup.InvalidateOnChange(ctx)
	if err := setup.Catalog.Watch(ctx); err != nil {
		log.Warn("Could not watch catalog files", log.ErrorField(err))
	}
	setupGoRoutinesDump()

	srv := server.New(setup.Predictor, server.WithAPIToken(config.APIToken))
	err = srv.Run(ctx, config.ServerAddr)
	if telemetry != nil {
		telemetry.Shutdown()
	}
	if err != nil {
		log.Error("server stopped with error", log.ErrorField(err))
		return err
	}
	log.Info("Server terminated")
	return nil
}

func newPublisher() (publish.Publisher, error) {
	if config.NatsURL == "" {
		return publish.Noop(), nil
	}
	return publish.Connect(config.NatsURL,
		publish.WithSubjectPrefix(config.NatsSubject))
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices(ctx context.Context) {
	timeout := util.ParseDuration(config.WaitForServices, 60*time.Second)

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := putils.WaitForTCP(ctx, addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}

	if natsAddr := putils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		wg.Add(1)
		go checkTCP(natsAddr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}
