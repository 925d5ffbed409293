package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vidhub/internal/config/api-gateway"
)

func main() {
	configPath := flag.String("config", os.Getenv("API_GATEWAY_CONFIG"), "path to yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("store", cfg.Store.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer st.close()

	uploader, err := initMedia(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("media init", zap.Error(err))
	}

	httpSrv, err := buildHTTPServer(cfg, logger, st, uploader)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
}
