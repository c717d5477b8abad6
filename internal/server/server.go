package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hireboard/apiserver/config"
	"github.com/hireboard/apiserver/internal/db"
	"github.com/hireboard/apiserver/internal/handlers"
	"github.com/hireboard/apiserver/internal/mq"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/internal/storage"
	"github.com/hireboard/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *slog.Logger
}

// Deps are the external resources a Server is built from.
type Deps struct {
	DB      *sql.DB
	Storage *storage.Storage
	MQ      *mq.MQ
	Logger  *slog.Logger
}

// New connects to the database, object storage and message broker named
// in cfg and constructs a Server over them.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	logger := NewLogger(cfg)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(dbConn, cfg.Database.Driver); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "migrations applied", "driver", cfg.Database.Driver)
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	return NewWithDeps(cfg, Deps{
		DB:      dbConn,
		Storage: objects,
		MQ:      broker,
		Logger:  logger,
	})
}

// NewWithDeps constructs a Server over already opened resources. The
// Server takes ownership of deps and closes them on Shutdown.
func NewWithDeps(cfg config.Config, deps Deps) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if deps.DB == nil || deps.Storage == nil {
		return nil, errors.New("database and storage are required")
	}
	if deps.MQ == nil {
		deps.MQ = mq.New(mq.Noop{})
	}
	if deps.Logger == nil {
		deps.Logger = NewLogger(cfg)
	}
	logger := deps.Logger

	userRepo := store.NewUserRepository(deps.DB)
	jobRepo := store.NewJobRepository(deps.DB)
	applicationRepo := store.NewApplicationRepository(deps.DB)

	tokens := services.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := services.NewAuthService(userRepo, tokens, services.WithAuthLogger(logger))
	jobService := services.NewJobService(jobRepo, deps.Storage, logger)
	applicationService := services.NewApplicationService(services.ApplicationServiceConfig{
		Applications:   applicationRepo,
		Jobs:           jobRepo,
		Storage:        deps.Storage,
		Events:         deps.MQ,
		Workflow:       services.StatusWorkflow{Strict: cfg.Workflow.StrictStatus},
		MaxResumeBytes: cfg.Workflow.MaxResumeBytes,
		Logger:         logger,
	})

	resp := handlers.NewResponder(cfg.IsDev(), logger)
	authMiddleware := handlers.RequireAuth(authService, resp)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(deps.DB, resp))
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService, resp)
		})
		r.Route("/jobs", func(r chi.Router) {
			handlers.JobRouter(r, jobService, resp, authMiddleware)
		})
		r.Route("/applications", func(r chi.Router) {
			handlers.ApplicationRouter(r, applicationService, resp, authMiddleware, cfg.Workflow.MaxResumeBytes)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         deps.DB,
		mq:         deps.MQ,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if closeErr := s.mq.Close(); closeErr != nil {
			s.logger.Warn("failed to close mq", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
