package humantime

import (
	"testing"
	"time"
)

func TestParseDuration_Simple(t *testing.T) {
	got, err := ParseDuration(" 1 day 3h 20 min 30s ")
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	want := 24*time.Hour + 3*time.Hour + 20*time.Minute + 30*time.Second
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDuration_Verbose(t *testing.T) {
	got, err := ParseDuration(DurationExample1)
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	want := 24*time.Hour + 3*time.Hour + 2*time.Minute + 59*time.Second
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDuration_Compact(t *testing.T) {
	got, err := ParseDuration(DurationExample2)
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	want := 24*time.Hour + 3*time.Hour + 2*time.Minute + 59*time.Second
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDuration_UnknownUnit(t *testing.T) {
	if _, err := ParseDuration("3 fortnights"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestParseDuration_InvalidCharacter(t *testing.T) {
	if _, err := ParseDuration("3h!"); err == nil {
		t.Error("expected error for invalid character")
	}
}

func TestParseDuration_DanglingCount(t *testing.T) {
	if _, err := ParseDuration("3h 5"); err == nil {
		t.Error("expected error for dangling count with no unit")
	}
}
