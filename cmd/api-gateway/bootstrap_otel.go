package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vidhub/internal/config/api-gateway"
	"github.com/NordCoder/Vidhub/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("otel ready", zap.Bool("export", cfg.OTEL.Enable))
	return closer.Shutdown, nil
}
