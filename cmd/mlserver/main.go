// mlserver 是推荐服务进程：装配存储、缓存与引擎，暴露 HTTP 接口。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/config"
	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/logger"
	"github.com/snacktrack/tastekit/service"
	"github.com/snacktrack/tastekit/store/postgres"
	"github.com/snacktrack/tastekit/store/rediscache"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml (defaults to ./config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer pg.Close()

	var store core.Store = pg
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		store = rediscache.New(pg, rdb, cfg.Redis.TTL, log)
		log.Info("profile cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	constraints, err := cfg.DietConstraints()
	if err != nil {
		return err
	}
	engine, err := service.New(service.Options{
		Store:              store,
		ColdStartThreshold: cfg.Engine.ColdStartThreshold,
		ScorerTimeout:      cfg.Engine.ScorerTimeout,
		VAEWeightsPath:     cfg.Model.VAEWeightsPath,
		GRUWeightsPath:     cfg.Model.GRUWeightsPath,
		Rules:              cfg.Engine.Rules,
		DietConstraints:    constraints,
		Logger:             log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: service.Router(engine, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mlserver listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
