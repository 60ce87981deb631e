package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"

	"github.com/otzivi/authcore/internal/auth"
	"github.com/otzivi/authcore/internal/background"
	"github.com/otzivi/authcore/internal/config"
	"github.com/otzivi/authcore/internal/database"
	"github.com/otzivi/authcore/internal/handlers"
	middlewareCustom "github.com/otzivi/authcore/internal/middleware"
	"github.com/otzivi/authcore/internal/repositories"
	"github.com/otzivi/authcore/internal/routes"
	"github.com/otzivi/authcore/internal/services"
	"github.com/otzivi/authcore/internal/throttle"
	pkghttp "github.com/otzivi/authcore/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("throttle_backend", cfg.Throttle.Backend),
	)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	challengeRepo := repositories.NewChallengeRepository(db)
	eventRepo := repositories.NewEventRepository(db)

	// Attempt store: in-process by default, Redis when running more than
	// one instance behind a balancer.
	var attemptStore throttle.Store
	var sweeper *background.Sweeper
	switch cfg.Throttle.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		pingCancel()
		defer client.Close()
		attemptStore = throttle.NewRedisStore(client)
	default:
		memoryStore := throttle.NewMemoryStore()
		sweeper = background.NewSweeper(memoryStore, logger, cfg.Throttle.SweepInterval)
		attemptStore = memoryStore
	}

	// Notification transport
	var notifier services.Notifier
	if cfg.Notify.Enabled {
		sesNotifier, err := services.NewSESNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	} else {
		notifier = services.NewLogNotifier(logger)
	}

	// Initialize services
	eventService := services.NewEventService(eventRepo, accountRepo, notifier, cfg.Events, logger)
	attemptLedger := services.NewAttemptLedger(attemptStore, eventService, cfg.Throttle, logger)
	challengeService := services.NewChallengeService(challengeRepo, eventService, logger)
	verifier := services.NewBcryptVerifier(accountRepo, logger)

	pendingManager := auth.NewPendingTokenManager(cfg.Challenge.PendingSecret, cfg.Challenge.PendingTTL)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 100,
	})

	authService := services.NewAuthService(
		verifier,
		accountRepo,
		attemptLedger,
		challengeService,
		eventService,
		pendingManager,
		timingDelay,
		logger,
		cfg.Server.Env,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	eventsHandler := handlers.NewEventsHandler(eventService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, challengeHandler, eventsHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go eventService.Start(workerCtx)
	if sweeper != nil {
		go sweeper.Start(workerCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Stop workers after the server has drained so in-flight requests can
	// still record events.
	workerCancel()
	if sweeper != nil {
		sweeper.Stop()
	}
	select {
	case <-eventService.Stopped():
	case <-time.After(10 * time.Second):
		logger.Warn("event worker did not stop in time")
	}

	logger.Info("server stopped gracefully")
}
