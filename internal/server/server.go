// Package server wires the application together: store, services,
// handlers, middleware, routes, and the process lifecycle.
//
// This is the composition root. Every dependency is assembled here and
// nowhere else: the store is created, services receive the repository
// interfaces, handlers receive services, and the reconciler is started
// and stopped alongside the HTTP listener. Each layer only sees the
// layer directly below it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/askwall/internal/auth"
	"github.com/sakif/askwall/internal/config"
	"github.com/sakif/askwall/internal/handler"
	"github.com/sakif/askwall/internal/middleware"
	"github.com/sakif/askwall/internal/notify"
	sqliteRepo "github.com/sakif/askwall/internal/repository/sqlite"
	"github.com/sakif/askwall/internal/service"
)

// Server owns the router, the store, and the background reconciler. The
// store and reconciler are resources with a shutdown order: stop
// accepting requests, stop the reconciler, then close the database.
type Server struct {
	router     *chi.Mux
	cfg        *config.Config
	logger     *slog.Logger
	db         *sqliteRepo.DB
	reconciler *service.Reconciler
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, sqliteRepo.WithOrderedFeed(cfg.OrderedFeed))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes assembles the dependency chain and mounts every route.
//
// ROUTE MAP:
//
//	POST /api/questions                     anonymous submission (public)
//	GET  /api/feed                          global feed (public)
//	GET  /api/users/{uid}/feed              user feed (public)
//	GET  /api/users/{uid}/stats             user stats (public)
//	GET  /api/profiles/{uid}                public profile view (public)
//	GET  /api/profiles/username/{username}  public profile by handle (public)
//	GET  /api/usernames/{username}          availability check (public)
//	POST /api/answers/{id}/like             like toggle (optional auth)
//	POST /api/profiles                      create profile (auth)
//	GET  /api/me/inbox                      pending questions (auth)
//	POST /api/answers                       publish answer (auth)
//	GET  /api/me/profile                    full own profile (auth)
//	PUT  /api/me/profile                    edit display fields (auth)
//	PUT  /api/me/username                   change username (auth)
//	POST /api/me/activity                   session heartbeat (auth)
//	POST /api/me/device-tokens              register push token (auth)
//	GET  /api/admin/analytics               dashboard (auth + allowlist)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	validate := validator.New()
	pusher := &notify.LogPusher{Logger: s.logger}

	identity := service.NewIdentityService(s.db, s.logger)
	intake := service.NewIntakeService(s.db, s.db, pusher, s.logger)
	publish := service.NewPublishService(s.db, s.db, s.db, s.logger)
	feed := service.NewFeedService(s.db, s.logger)
	engagement := service.NewEngagementService(s.db, s.logger)
	analytics := service.NewAnalyticsService(s.db, s.logger)

	s.reconciler = service.NewReconciler(s.db, s.db, time.Duration(s.cfg.ReconcileInterval), s.logger)

	profiles := handler.NewProfileHandler(identity, validate, s.logger)
	questions := handler.NewQuestionHandler(intake, validate, s.logger)
	answers := handler.NewAnswerHandler(publish, feed, engagement, validate, s.logger)
	admin := handler.NewAdminHandler(analytics, s.cfg.IsAdmin, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Public surface. Intake takes no auth at all — a session on a
		// question submission would be a temptation to record it.
		r.Post("/questions", questions.HandleSubmit)
		r.Get("/feed", answers.HandleGlobalFeed)
		r.Get("/users/{uid}/feed", answers.HandleUserFeed)
		r.Get("/users/{uid}/stats", answers.HandleUserStats)
		r.Get("/profiles/{uid}", profiles.HandleGet)
		r.Get("/profiles/username/{username}", profiles.HandleGetByUsername)
		r.Get("/usernames/{username}", profiles.HandleCheckUsername)

		// Likes accept either a session or a device id.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Post("/answers/{id}/like", answers.HandleToggleLike)
		})

		// Owner surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/profiles", profiles.HandleCreate)
			r.Get("/me/inbox", questions.HandleInbox)
			r.Post("/answers", answers.HandlePublish)
			r.Get("/me/profile", profiles.HandleMe)
			r.Put("/me/profile", profiles.HandleUpdate)
			r.Put("/me/username", profiles.HandleChangeUsername)
			r.Post("/me/activity", profiles.HandleTouchActivity)
			r.Post("/me/device-tokens", profiles.HandleRegisterDeviceToken)
			r.Get("/admin/analytics", admin.HandleAnalytics)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down in order:
// HTTP listener drains (30s grace), reconciler stops, database closes.
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.reconciler.Start(ctx)
	defer s.reconciler.Stop()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.cfg.Addr),
			slog.String("database", s.cfg.DBPath),
			slog.Bool("orderedFeed", s.cfg.OrderedFeed),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
