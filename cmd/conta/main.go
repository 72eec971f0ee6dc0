package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/config"
	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/handler"
	"github.com/gfranca/conta-gateway-go/internal/infra/cache"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/infra/resilience"
	"github.com/gfranca/conta-gateway-go/internal/infra/snapshotfile"
	"github.com/gfranca/conta-gateway-go/internal/infra/supabase"
	"github.com/gfranca/conta-gateway-go/internal/infra/viacep"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.String("snapshot_dir", cfg.SnapshotDir),
	)

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "conta-gateway")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		Permanent:      domain.Permanent,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	backend := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		resilience.NewCircuitBreaker("supabase"),
		resilienceCfg,
		logger,
	)
	postal := viacep.NewClient(
		httpClient,
		cfg.ViaCEPURL,
		resilience.NewCircuitBreaker("viacep"),
		resilienceCfg,
	)

	// --- Services ---
	sessions := service.NewSessionManager(backend, metrics, logger)

	snapshots := service.NewSnapshotKeeper(snapshotfile.New(cfg.SnapshotDir), metrics, logger)
	unwatch := snapshots.WatchSession(sessions)
	defer unwatch()

	profileCache := cache.New[*domain.Profile](cfg.CacheTTL)
	profile := service.NewProfileStore(sessions, backend, snapshots, profileCache, metrics, logger)
	addresses := service.NewAddressBook(sessions, backend, postal, metrics, logger)
	favorites := service.NewFavorites(sessions, backend, metrics, logger)
	orders := service.NewOrderHistory(sessions, backend, metrics, logger)

	// Everything keyed by the old user dies with the session.
	defer sessions.Subscribe(func(e domain.SessionEvent) {
		if e.Kind == domain.SessionSignedOut {
			profileCache.Flush()
		}
	})()

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Sessions:  sessions,
		Profile:   profile,
		Addresses: addresses,
		Favorites: favorites,
		Orders:    orders,
	}, metrics, cfg.CORSOrigins, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		// Long write timeout: the session event stream stays open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
