package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/pribylovaa/go-stork-validator/internal/config"
	"github.com/pribylovaa/go-stork-validator/internal/metrics"
	"github.com/pribylovaa/go-stork-validator/internal/service"
	grpcserver "github.com/pribylovaa/go-stork-validator/internal/transport/grpc"
	httpserver "github.com/pribylovaa/go-stork-validator/internal/transport/http"
	pkglog "github.com/pribylovaa/go-stork-validator/pkg/log"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: его отсутствие не ошибка.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config_load_failed", slog.String("err", err.Error()))
		return 1
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("workers", cfg.Scheduler.Workers),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	rootCtx = pkglog.Into(rootCtx, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Хранилище токенов с таймаутом на подключение.
	storeCtx, storeCancel := context.WithTimeout(rootCtx, 10*time.Second)
	store, err := service.OpenStore(storeCtx, cfg)
	storeCancel()
	if err != nil {
		log.Error("storage_open_failed", slog.String("err", err.Error()))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("storage_close_failed", slog.String("err", err.Error()))
		}
	}()

	accounts, err := service.Accounts(cfg)
	if err != nil {
		log.Error("accounts_failed", slog.String("err", err.Error()))
		return 1
	}

	runners, err := service.Bootstrap(rootCtx, cfg, store, accounts, m)
	if err != nil {
		log.Error("bootstrap_failed", slog.String("err", err.Error()))
		return 1
	}
	log.Info("bootstrap_done", slog.Int("accounts", len(runners)))

	// HTTP: /livez, /healthz, /metrics.
	ready := &httpserver.Readiness{}
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httpserver.NewRouter(httpserver.Options{
			Logger:    log,
			Gatherer:  reg,
			Readiness: ready,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	// gRPC: grpc.health.v1.
	grpcSrv := grpcserver.New(grpcserver.Options{
		Logger:     log,
		Registerer: reg,
		Timeout:    cfg.Timeouts.Service,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	addr := cfg.GRPC.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("grpc_listen_failed",
			slog.String("addr", addr),
			slog.String("err", err.Error()),
		)
		_ = httpSrv.Shutdown(context.Background())
		return 1
	}
	log.Info("grpc_listen_start", slog.String("addr", addr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := grpcSrv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Планировщик работает до отмены schedCtx.
	schedCtx, schedCancel := context.WithCancel(rootCtx)
	defer schedCancel()

	scheduler := service.NewScheduler(cfg.Scheduler.Interval, service.NewDispatcher(cfg.Scheduler.Workers), runners, m)
	schedDone := make(chan struct{})
	go func() {
		scheduler.Run(schedCtx)
		close(schedDone)
	}()

	grpcSrv.SetServing(true)
	ready.Set(true)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	grpcSrv.SetServing(false)
	ready.Set(false)
	schedCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	select {
	case <-schedDone:
		log.Info("scheduler_stopped")
	case <-shutdownCtx.Done():
		log.Warn("scheduler_force_stop", slog.Duration("timeout", cfg.Timeouts.Shutdown))
	}

	grpcDone := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(grpcDone)
	}()

	select {
	case <-grpcDone:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcSrv.Stop()
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
	return 0
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
