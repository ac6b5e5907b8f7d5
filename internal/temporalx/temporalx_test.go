package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := ClampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want=%s got=%s", tc.attempt, tc.want, got)
		}
	}
	if got := ClampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base: got=%s", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	t.Setenv("TEMPORAL_NAMESPACE_RETENTION_DAYS", "9999")

	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("expected Temporal disabled without an address")
	}
	if cfg.Namespace != "hermes" || cfg.TaskQueue != "hermes-generation" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.NamespaceRetention != 365*24*time.Hour {
		t.Fatalf("retention should clamp to a year, got %s", cfg.NamespaceRetention)
	}

	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("TEMPORAL_CLIENT_CERT_PATH", "/certs/client.pem")
	cfg = LoadConfig()
	if !cfg.Enabled() || !cfg.usesTLS() {
		t.Fatalf("expected enabled with TLS: %+v", cfg)
	}
	if _, err := loadTLSConfig(cfg); err == nil {
		t.Fatalf("expected error when the key path is missing")
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("PermissionDenied should not retry")
	}
	if isRetryableRPC(errors.New("plain")) || isRetryableRPC(nil) {
		t.Fatalf("plain errors should not retry")
	}
}

func TestWithBackoffStopsWhenDone(t *testing.T) {
	cfg := Config{DialBackoff: time.Millisecond, DialBackoffMax: time.Millisecond}
	calls := 0
	want := errors.New("gave up")
	err := withBackoff(context.Background(), cfg, func(attempt int) (bool, error) {
		calls++
		return attempt == 3, want
	})
	if !errors.Is(err, want) || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := withBackoff(ctx, cfg, func(int) (bool, error) { return false, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context: %v", err)
	}
}
