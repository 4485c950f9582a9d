// Package server provides the JSON API used by the dashboard.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/predict"
	"github.com/mpapenbr/tirecast/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

type (
	Server struct {
		l              *log.Logger
		predictor      *predict.Predictor
		apiTokenHash   string
		metricsHandler http.Handler
		upgrader       websocket.Upgrader
	}
	Option func(*Server)
)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

// WithAPIToken requires the api-token header on all /api and /ws routes.
// An empty token disables the check.
func WithAPIToken(token string) Option {
	return func(s *Server) {
		if token == "" {
			s.apiTokenHash = ""
			return
		}
		s.apiTokenHash = utils.HashToken(token)
	}
}

func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func New(predictor *predict.Predictor, opts ...Option) *Server {
	ret := &Server{
		l:              log.Default().Named("server"),
		predictor:      predictor,
		metricsHandler: promhttp.Handler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Handler returns the complete handler chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tracks", s.handleTracks)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /api/strategy", s.handleStrategy)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /ws/predict", s.handlePredictStream)
	mux.Handle("GET /metrics", s.metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return otelhttp.NewHandler(newCORS().Handler(s.requireToken(mux)), "tirecast")
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.l.Info("Starting HTTP server", log.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.l.Info("Stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Content-Encoding",
		},
		MaxAge: 7200,
	})
}
