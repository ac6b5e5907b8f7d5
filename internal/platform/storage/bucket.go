package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// BucketService is keyed object access against the art bucket.
type BucketService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Download returns the object bytes and stored content type.
	Download(ctx context.Context, key string) ([]byte, string, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

func NewBucketService(ctx context.Context, log *logger.Logger) (BucketService, error) {
	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(ctx, log, cfg)
}

func NewBucketServiceWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (BucketService, error) {
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")
	serviceLog.Info("Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"bucket", cfg.Bucket,
		"public_base_url", cfg.PublicBaseURL,
	)
	switch cfg.Mode {
	case ModeGCS, ModeGCSEmulator:
		return newGCSBucket(ctx, serviceLog, cfg)
	case ModeMinIO:
		return newMinIOBucket(ctx, serviceLog, cfg)
	case ModeMemory:
		return NewMemoryBucket(cfg.PublicBaseURL), nil
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
}
