package main

import (
	"DevcampAPI/internal"
	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/cache"
	"DevcampAPI/internal/config"
	"DevcampAPI/internal/db"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/router"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	migrateFlag := flag.Bool("m", false, "apply migrations before start (postgres)")
	flag.Parse()

	cfg := config.LoadConfig()
	root, _ := internal.FindRepoRoot()
	if err := logger.Init(root); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.SetDebug(*debugFlag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize registry
	reg, err := resource.InitRegistry(cfg.ResourcesDir)
	if err != nil {
		fatal("registry_init_failed", err)
	}
	logger.Info("resources_initialized", map[string]any{"dir": cfg.ResourcesDir, "resources": reg.Names()})

	st, err := db.OpenStore(ctx, cfg, reg, *migrateFlag)
	if err != nil {
		fatal("store_init_failed", err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("store_close_failed", map[string]any{"error": err.Error()})
		}
	}()

	// Redis необязателен: без REDIS_ADDR кэш страниц выключен
	rdb, err := db.InitRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("page_cache_disabled", map[string]any{"error": err.Error()})
		rdb = nil
	}
	pc := cache.New(rdb, time.Duration(cfg.PageCacheTTL)*time.Second)

	jwt, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		fatal("jwt_init_failed", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.InitRoutes(cfg, reg, st, pc, jwt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	// Start HTTP server
	logger.Info("server_start", map[string]any{"port": cfg.Port, "env": cfg.Env, "store": cfg.StoreDriver})
	log.Printf("🚀 Starting server in %s mode on port %s", cfg.Env, cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server_error", err)
	}
	logger.Info("server_stopped", nil)
}

func fatal(event string, err error) {
	logger.Error(event, map[string]any{"error": err.Error()})
	logger.Sync()
	os.Exit(1)
}
