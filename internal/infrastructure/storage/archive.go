package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Archive is the storage a period closing is exported to
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// NewArchive picks the backend named by cfg.Provider
func NewArchive(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Archive, error) {
	switch cfg.Provider {
	case "s3":
		a, err := NewS3Archive(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Closing archives stored in S3", zap.String("bucket", a.Bucket()))
		return a, nil
	case "", "local":
		logger.Info("Closing archives stored locally", zap.String("dir", cfg.LocalDir))
		return NewLocalArchive(cfg.LocalDir, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
