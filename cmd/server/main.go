package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/campus-market/meetup-hub/internal/api/http"
	"github.com/campus-market/meetup-hub/internal/application/audit"
	"github.com/campus-market/meetup-hub/internal/application/auth"
	"github.com/campus-market/meetup-hub/internal/application/catalog"
	"github.com/campus-market/meetup-hub/internal/application/chat"
	"github.com/campus-market/meetup-hub/internal/application/meetup"
	"github.com/campus-market/meetup-hub/internal/application/user"
	"github.com/campus-market/meetup-hub/internal/config"
	domainMeetup "github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/infrastructure/postgres"
	"github.com/campus-market/meetup-hub/internal/infrastructure/sse"
	"github.com/campus-market/meetup-hub/internal/migrations"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	auditKey, _ := cfg.AuditKey()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), postgres.PoolConfig{
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("db error")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration error")
	}

	// repositories
	transactionRepo := postgres.NewTransactionRepository(pool)
	chatRepo := postgres.NewChatRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// infrastructure
	sseHub := sse.NewHub(logger)
	sseHub.Start(ctx)
	defer sseHub.Stop()

	// services
	clock := domainMeetup.SystemClock{}
	auditSvc := audit.NewService(auditRepo, logger, auditKey)
	chatSvc := chat.NewService(chatRepo, sseHub, auditSvc, logger)
	store := meetup.NewStore(transactionRepo, sse.NewTransactionFeed(sseHub, logger), clock, logger)
	meetupSvc := meetup.NewService(store, domainMeetup.NewMachine(cfg.MeetupPolicy()), chatSvc, auditSvc, clock, logger)
	coordinator := meetup.NewCoordinator(meetupSvc, logger)
	monitor := meetup.NewMonitor(meetupSvc, cfg.Monitor.Workers, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, []byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL, logger)
	userSvc := user.NewService(userRepo, cfg.Auth.CampusEmailDomain, logger)
	catalogSvc := catalog.NewService(productRepo, logger)

	// API server
	apiServer := httpapi.NewServer(httpapi.Services{
		Meetup:      meetupSvc,
		Coordinator: coordinator,
		Monitor:     monitor,
		Chat:        chatSvc,
		Catalog:     catalogSvc,
		Audit:       auditSvc,
		Auth:        authSvc,
		User:        userSvc,
	}, sseHub, httpapi.Options{
		SessionCookieName:   cfg.Auth.SessionCookieName,
		SessionCookieSecure: cfg.Auth.SessionCookieSecure,
		CORSOrigins:         cfg.Server.CORSOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(cfg.Monitor.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := monitor.ProcessDue(ctx, cfg.Monitor.Batch); err != nil {
					logger.Error().Err(err).Msg("monitor run failed")
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Auth.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := authSvc.CleanupExpired(ctx)
				if err != nil {
					logger.Error().Err(err).Msg("session cleanup failed")
					continue
				}
				if n > 0 {
					logger.Info().Int("count", n).Msg("expired sessions removed")
				}
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
