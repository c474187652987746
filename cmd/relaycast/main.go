package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaycast/internal/core/ports"
	"relaycast/internal/core/services"
	httphandlers "relaycast/internal/handlers/http"
	"relaycast/internal/infrastructure/distributed"
	"relaycast/internal/infrastructure/middleware"
	"relaycast/internal/infrastructure/monitoring"
	"relaycast/internal/infrastructure/reliability"
	repositories "relaycast/internal/infrastructure/repositories"
	"relaycast/internal/infrastructure/vonage"
	"relaycast/pkg/circuitbreaker"
	"relaycast/pkg/config"
	"relaycast/pkg/logger"
	"relaycast/pkg/retry"
	"relaycast/pkg/tracing"
	"relaycast/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	configPath := os.Getenv("RELAYCAST_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: cfg.Server.Mode,
		SampleRate:  cfg.Tracing.SamplingRate,
	})
	if err != nil {
		log.Fatalw("failed to initialise tracing", "error", err)
	}

	clock := clockwork.NewRealClock()
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	repoFactory := repositories.NewRepositoryFactory(rootCtx, cfg, log)
	eventSessions := repoFactory.CreateEventSessionRepository()
	channels := repoFactory.CreateChannelStackRepository()
	layouts := repoFactory.CreateLayoutRepository()
	participants := repoFactory.CreateParticipantStreamRepository()

	retryConfig := retry.Config{
		Enabled:      cfg.Retry.MaxRetries > 0,
		MaxAttempts:  cfg.Retry.MaxRetries,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.BackoffMultiplier,
		Jitter:       cfg.Retry.Jitter,
	}
	breakerConfig := circuitbreaker.DefaultConfig()
	breakerConfig.FailureThreshold = cfg.CircuitBreaker.MaxFailures
	breakerConfig.SuccessThreshold = cfg.CircuitBreaker.SuccessThreshold
	breakerConfig.Timeout = cfg.CircuitBreaker.Timeout

	vonageClient := vonage.NewClient(vonage.Config{
		BaseURL:        cfg.Provider.BaseURL,
		APIKey:         cfg.Provider.APIKey,
		APISecret:      cfg.Provider.APISecret,
		TokenTTL:       cfg.Provider.TokenTTL,
		RequestTimeout: cfg.Provider.RequestTimeout,
	}, nil, clock, log)

	log.Infow("vonage client ready",
		"base_url", cfg.Provider.BaseURL,
		"api_key", utils.MaskSensitive(cfg.Provider.APIKey, 4),
	)

	var provider *reliability.ProviderWrapper
	var providerState func() circuitbreaker.State
	if cfg.CircuitBreaker.Enabled {
		provider = reliability.NewProviderWrapper(vonageClient, retryConfig, breakerConfig, log)
		providerState = provider.State
	} else {
		provider = reliability.NewRetryingProvider(vonageClient, retryConfig, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics ports.MetricsRecorder = services.NoopMetrics{}
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector(registry)
	}

	var publisher ports.OutcomePublisher = services.NoopPublisher{}
	var eventBus *distributed.EventBus
	if cfg.Events.PublishOutcomes {
		if client := repoFactory.RedisClient(); client != nil {
			eventBus = distributed.NewEventBus(client, cfg.Events.Channel, utils.NewID(), log)
			publisher = eventBus
			go func() {
				err := eventBus.Subscribe(rootCtx, func(event *distributed.Event) error {
					log.Infow("event from peer instance",
						"type", event.Type,
						"instance_id", event.InstanceID,
						"session_id", event.SessionID,
					)
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, distributed.ErrEventBusClosed) {
					log.Warnw("event bus subscription ended", "error", err)
				}
			}()
		} else {
			log.Warnw("outcome publishing needs the redis backend, publishing disabled", "backend", repoFactory.Backend())
		}
	}

	inspector := services.NewSessionInspector(provider, log)
	translator := services.NewLayoutTranslator()
	applier := services.NewLayoutApplier(provider, inspector, metrics, log)
	broadcasts := services.NewBroadcastManager(provider, inspector, metrics, publisher, cfg.Broadcast.Resolution, log)
	reconciler := services.NewParticipantReconciler(provider, inspector, eventSessions, participants, metrics, clock, log)
	orchestrator := services.NewOrchestrator(eventSessions, reconciler, translator, applier, provider, metrics, publisher, clock, log)
	eventBroadcasts := services.NewEventBroadcastService(eventSessions, channels, layouts, translator, broadcasts, retryConfig, log)
	layoutService := services.NewLayoutService(eventSessions, layouts, orchestrator, clock, log)
	configuration := services.NewConfigurationService(eventSessions, channels, log)

	healthChecker := monitoring.NewHealthChecker(clock)
	healthChecker.AddStorageCheck(repoFactory.HealthCheck, 2*time.Second)
	if providerState != nil {
		healthChecker.AddProviderCheck(providerState)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalw("invalid trusted proxies", "error", err)
	}
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestLoggerMiddleware(logger.NewContextLogger(zapLogger)),
		middleware.TracingMiddleware(),
		middleware.NewHTTPRateLimitMiddleware(cfg, clock),
		middleware.ErrorHandlerMiddleware(log),
	)

	routes := httphandlers.Routes{
		Layouts:        httphandlers.NewLayoutHandler(layoutService, orchestrator, clock, log),
		SessionMonitor: httphandlers.NewSessionMonitorHandler(reconciler, log),
		Events:         httphandlers.NewEventHandler(eventBroadcasts, log),
		Configuration:  httphandlers.NewConfigurationHandler(configuration, log),
		Health:         httphandlers.NewHealthHandler(healthChecker, clock),
		EventSecret:    cfg.Auth.EventSecret,
	}
	if cfg.Monitoring.PrometheusEnabled {
		routes.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		routes.MetricsPath = cfg.Monitoring.MetricsPath
	}
	httphandlers.SetupRoutes(router, routes)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting relaycast", "address", cfg.Server.Address, "backend", repoFactory.Backend())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	cancelRoot()
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Warnw("error closing event bus", "error", err)
		}
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warnw("error shutting down tracer", "error", err)
	}

	log.Info("relaycast stopped")
}
