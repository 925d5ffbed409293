package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vidhub/internal/config/api-gateway"
	s3repo "github.com/NordCoder/Vidhub/internal/repository/s3"
)

func initMedia(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*s3repo.Uploader, error) {
	up, err := s3repo.NewUploader(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	logger.Info("media uploader ready", zap.String("bucket", cfg.S3.Bucket), zap.String("endpoint", cfg.S3.Endpoint))
	return up, nil
}
