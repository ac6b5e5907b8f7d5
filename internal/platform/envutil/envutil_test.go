package envutil

import (
	"testing"
	"time"
)

func TestDefaultsWhenUnset(t *testing.T) {
	t.Setenv("HERMES_TEST_UNSET", "")
	if got := String("HERMES_TEST_UNSET", "x"); got != "x" {
		t.Fatalf("String: want x got %q", got)
	}
	if got := Int("HERMES_TEST_UNSET", 7); got != 7 {
		t.Fatalf("Int: want 7 got %d", got)
	}
	if got := Bool("HERMES_TEST_UNSET", true); !got {
		t.Fatalf("Bool: want true")
	}
	if got := Duration("HERMES_TEST_UNSET", time.Second); got != time.Second {
		t.Fatalf("Duration: want 1s got %s", got)
	}
}

func TestParsesValues(t *testing.T) {
	t.Setenv("HERMES_TEST_INT", "42")
	t.Setenv("HERMES_TEST_FLOAT", "0.25")
	t.Setenv("HERMES_TEST_BOOL", "off")
	t.Setenv("HERMES_TEST_DUR", "3")
	t.Setenv("HERMES_TEST_BAD", "abc")

	if got := Int("HERMES_TEST_INT", 0); got != 42 {
		t.Fatalf("Int: want 42 got %d", got)
	}
	if got := Int64("HERMES_TEST_INT", 0); got != 42 {
		t.Fatalf("Int64: want 42 got %d", got)
	}
	if got := Int64("HERMES_TEST_BAD", -1); got != -1 {
		t.Fatalf("Int64 bad value: want default -1 got %d", got)
	}
	if got := Float("HERMES_TEST_FLOAT", 0); got != 0.25 {
		t.Fatalf("Float: want 0.25 got %v", got)
	}
	if got := Bool("HERMES_TEST_BOOL", true); got {
		t.Fatalf("Bool: want false")
	}
	if got := Duration("HERMES_TEST_DUR", 0); got != 3*time.Second {
		t.Fatalf("Duration: want 3s got %s", got)
	}
	if got := Int("HERMES_TEST_BAD", 5); got != 5 {
		t.Fatalf("Int bad value: want default 5 got %d", got)
	}
}
