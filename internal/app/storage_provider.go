package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
)

var newBucketServiceWithConfig = storage.NewBucketServiceWithConfig

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingMinIO        StorageProviderBootstrapErrorCode = "missing_minio_settings"
	StorageProviderBootstrapErrorInvalidPublicBase   StorageProviderBootstrapErrorCode = "invalid_public_base_url"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

// bootstrapCodes maps storage config validation failures onto bootstrap codes.
// Anything unmapped is treated as a connection failure.
var bootstrapCodes = map[storage.ConfigErrorCode]StorageProviderBootstrapErrorCode{
	storage.ConfigErrorInvalidMode:         StorageProviderBootstrapErrorInvalidMode,
	storage.ConfigErrorMissingBucket:       StorageProviderBootstrapErrorMissingBucket,
	storage.ConfigErrorMissingEmulatorHost: StorageProviderBootstrapErrorMissingEmulatorHost,
	storage.ConfigErrorInvalidEmulatorHost: StorageProviderBootstrapErrorInvalidEmulatorHost,
	storage.ConfigErrorMissingMinIO:        StorageProviderBootstrapErrorMissingMinIO,
	storage.ConfigErrorInvalidPublicBase:   StorageProviderBootstrapErrorInvalidPublicBase,
}

// StorageProviderBootstrapError is returned when the artwork bucket cannot be opened.
type StorageProviderBootstrapError struct {
	Code   StorageProviderBootstrapErrorCode
	Mode   string
	Bucket string
	Cause  error
}

func (e *StorageProviderBootstrapError) Error() string {
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q bucket=%q): %v", e.Code, e.Mode, e.Bucket, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error { return e.Cause }

// resolveBucketService opens the bucket artworks and metadata are written to.
// OBJECT_STORAGE_MODE, when set, overrides the mode in cfg.Storage.
func resolveBucketService(ctx context.Context, log *logger.Logger, cfg Config) (storage.BucketService, error) {
	sc := cfg.Storage
	if raw := strings.ToLower(strings.TrimSpace(cfg.ObjectStorageMode)); raw != "" {
		sc.Mode = storage.Mode(raw)
	}
	log = log.With("mode", sc.Mode, "mode_source", sc.ModeSource(), "bucket", sc.Bucket)

	var (
		bucket storage.BucketService
		err    error
	)
	if storage.IsSupportedMode(sc.Mode) {
		log.Info("Selecting object storage provider", "compatibility_fallback", sc.CompatibilityFallback)
		bucket, err = newBucketServiceWithConfig(ctx, log, sc)
	} else {
		err = &storage.ConfigError{Code: storage.ConfigErrorInvalidMode, Mode: string(sc.Mode)}
	}
	if err != nil {
		failure := classifyStorageProviderBootstrapError(sc, err)
		log.Error("Object storage provider bootstrap failed", "error_code", failure.Code, "error", failure)
		return nil, failure
	}
	return bucket, nil
}

func classifyStorageProviderBootstrapError(sc storage.Config, err error) *StorageProviderBootstrapError {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *storage.ConfigError
	if errors.As(err, &cfgErr) {
		if mapped, ok := bootstrapCodes[cfgErr.Code]; ok {
			code = mapped
		}
	}
	return &StorageProviderBootstrapError{Code: code, Mode: string(sc.Mode), Bucket: sc.Bucket, Cause: err}
}
