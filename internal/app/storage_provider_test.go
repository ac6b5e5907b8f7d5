package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
)

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		src  error
		want StorageProviderBootstrapErrorCode
	}{
		{&storage.ConfigError{Code: storage.ConfigErrorInvalidMode}, StorageProviderBootstrapErrorInvalidMode},
		{&storage.ConfigError{Code: storage.ConfigErrorMissingBucket}, StorageProviderBootstrapErrorMissingBucket},
		{&storage.ConfigError{Code: storage.ConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{&storage.ConfigError{Code: storage.ConfigErrorInvalidEmulatorHost}, StorageProviderBootstrapErrorInvalidEmulatorHost},
		{&storage.ConfigError{Code: storage.ConfigErrorMissingMinIO}, StorageProviderBootstrapErrorMissingMinIO},
		{errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		err := classifyStorageProviderBootstrapError(storage.Config{Mode: storage.ModeGCS}, tc.src)
		var got *StorageProviderBootstrapError
		if !errors.As(err, &got) {
			t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
		}
		if got.Code != tc.want {
			t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
		}
		if !errors.Is(err, tc.src) {
			t.Fatalf("cause not wrapped for %q", tc.want)
		}
	}
}

func TestResolveBucketServiceInvalidMode(t *testing.T) {
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{ObjectStorageMode: "invalid"})
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != StorageProviderBootstrapErrorInvalidMode {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorInvalidMode, got.Code)
	}
}

func TestResolveBucketServicePassesConfig(t *testing.T) {
	orig := newBucketServiceWithConfig
	t.Cleanup(func() { newBucketServiceWithConfig = orig })

	var captured storage.Config
	expected := storage.NewMemoryBucket("")
	newBucketServiceWithConfig = func(_ context.Context, _ *logger.Logger, cfg storage.Config) (storage.BucketService, error) {
		captured = cfg
		return expected, nil
	}

	got, err := resolveBucketService(context.Background(), logger.Nop(), Config{
		ObjectStorageMode: "MINIO",
		Storage: storage.Config{
			Bucket: "art",
			MinIO:  storage.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
		},
	})
	if err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if got != storage.BucketService(expected) {
		t.Fatalf("bucket: expected stub bucket instance")
	}
	if captured.Mode != storage.ModeMinIO || captured.Bucket != "art" {
		t.Fatalf("unexpected config %+v", captured)
	}
}

func TestResolveBucketServiceMissingEmulatorHost(t *testing.T) {
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{
		ObjectStorageMode: string(storage.ModeGCSEmulator),
		Storage:           storage.Config{Bucket: "art"},
	})
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != StorageProviderBootstrapErrorMissingEmulatorHost {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorMissingEmulatorHost, got.Code)
	}
}

func TestResolveBucketServiceMemoryMode(t *testing.T) {
	b, err := resolveBucketService(context.Background(), logger.Nop(), Config{ObjectStorageMode: string(storage.ModeMemory)})
	if err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if _, ok := b.(*storage.MemoryBucket); !ok {
		t.Fatalf("want *storage.MemoryBucket, got %T", b)
	}
}
