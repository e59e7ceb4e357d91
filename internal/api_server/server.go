package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/collaborators"
	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/estimation"
	"github.com/refurbd/renovation-planner/internal/events"
	handlers "github.com/refurbd/renovation-planner/internal/handlers/v1"
	"github.com/refurbd/renovation-planner/internal/pipeline"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/pkg/artifacts"
	"github.com/refurbd/renovation-planner/pkg/metrics"
	"github.com/refurbd/renovation-planner/pkg/middleware"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
}

// New returns a new instance of a renovation-planner server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	artifactStore, err := artifacts.NewFromConfig(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	publisher := events.NewPublisher(events.NewHub(), events.NewRegistry())
	defer publisher.Close()

	estimator := estimation.NewCostEstimator()
	runner := pipeline.NewRunner(
		s.store,
		publisher,
		collaborators.NewTemplateAnalyzer(),
		estimator,
		collaborators.NewPlaceholderImageGenerator(artifactStore),
		collaborators.NewLogNotifier(),
	)

	jobService := service.NewJobService(s.store, publisher)

	metrics.RegisterJobStatsCollector(s.store)
	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router := chi.NewRouter()
	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(s.cfg, jobService, s.store, publisher, runner, authenticator)

	// The websocket and SSE endpoints do their own token handling; the
	// header-based authenticator guards the rest.
	router.Group(func(r chi.Router) {
		r.Get("/ws/projects/{id}", h.ProjectWebsocket)
		r.Get("/health", h.Health)
	})
	router.Group(func(r chi.Router) {
		r.Use(authenticator.Authenticator)
		h.Routes(r)
	})

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
