package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/crm"
	"voiceagent-platform/internal/dialer"
	"voiceagent-platform/internal/dialsvc"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/livectl"
	"voiceagent-platform/internal/tenant"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Shared outbound client for provider and CRM calls.
	providerClient := &http.Client{Timeout: cfg.Provider.HTTPTimeout}

	tenants := tenant.NewPostgresStore(db)
	callStore := calls.NewPostgresStore(db)
	resolver := tenant.NewResolver(tenants)
	limiter := dialsvc.NewRedisLimiter(rdb, cfg.Provider.MaxConcurrentCallsPerAgency, cfg.Provider.ConcurrencySlotTTL)

	h := httpapi.Handlers{
		Auth:      authManager,
		Dial:      dialsvc.NewService(resolver, dialer.NewDefaultDispatcher(providerClient), callStore, limiter),
		Live:      livectl.NewService(callStore, resolver, providerClient),
		Recorder:  crm.NewRecorder(),
		Tenants:   tenants,
		Calls:     callStore,
		Limiter:   limiter,
		CRMClient: providerClient,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
