package observability

import "testing"

func TestParseOtelHeaders(t *testing.T) {
	h := parseOtelHeaders("x-api=abc, bad, =v, k=")
	if len(h) != 1 || h["x-api"] != "abc" {
		t.Fatalf("unexpected headers: %#v", h)
	}
	if parseOtelHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestExporterSettingsClampRatio(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := exporterSettingsFromEnv().sampleRatio; got != 1 {
		t.Fatalf("want 1 got %v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := exporterSettingsFromEnv().sampleRatio; got != 0 {
		t.Fatalf("want 0 got %v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "")
	if got := exporterSettingsFromEnv().sampleRatio; got != 0.1 {
		t.Fatalf("want default 0.1 got %v", got)
	}
}
