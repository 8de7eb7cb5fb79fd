package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mozhi/internal/util"
	"mozhi/pkg/storage"
	"mozhi/pkg/store"
	"mozhi/services/world/internal/app"
	"mozhi/services/world/internal/config"
	"mozhi/services/world/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logFile *util.LogFile
	if cfg.LogPath != "" {
		logFile = &util.LogFile{
			Path:       cfg.LogPath,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAgeDays: cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		}
	}
	logger, logCloser := util.InitLogger(cfg.LogLevel, logFile)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("failed to init object storage: %v", err)
		}
		objects = minioStore
	} else {
		logger.Warn("minio not configured; cover endpoints disabled")
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL(),
		StoreOptions: []store.GormStoreOption{
			store.WithDriver(cfg.DBDriver),
			store.WithPool(cfg.DBPoolSize, cfg.MaxOverflow()),
			store.WithPoolTimeout(cfg.PoolTimeout()),
			store.WithPoolRecycle(cfg.PoolRecycle()),
			store.WithPrePing(cfg.PrePing()),
			store.WithEcho(cfg.DBEcho),
			store.WithLogger(logger),
		},
		Objects:       objects,
		CoverMaxBytes: cfg.CoverMaxBytes,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close()

	if cfg.RedisAddr == "" {
		logger.Warn("redis not configured; rate limiting disabled")
	}
	httpServer, err := server.New(server.Config{
		App:                appCore,
		RedisAddr:          cfg.RedisAddr,
		RedisPassword:      cfg.RedisPassword,
		RateLimitPerMinute: cfg.RateLimit(),
		TrustedProxyCIDRs:  cfg.TrustedProxyCIDRs,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("world server listening", "addr", addr, "env", cfg.Env, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	slog.Info("world server stopped")
}
