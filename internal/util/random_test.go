package util

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateRandomHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -1, 0},
		{"small length", 8, 8},
		{"medium length", 16, 16},
		{"large length", 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomHex(tt.length)

			if len(got) != tt.want {
				t.Errorf("GenerateRandomHex() length = %v, want %v", len(got), tt.want)
			}

			if tt.want > 0 && !isValidHex(got) {
				t.Errorf("GenerateRandomHex() = %v is not valid hex", got)
			}
		})
	}
}

func TestGenerateAndroidDeviceID(t *testing.T) {
	got := GenerateAndroidDeviceID()

	if !strings.HasPrefix(got, "android-") {
		t.Errorf("GenerateAndroidDeviceID() = %v, want prefix android-", got)
	}
	if len(got) != 24 { // "android-" + 16 hex chars
		t.Errorf("GenerateAndroidDeviceID() length = %v, want 24", len(got))
	}
	if !isValidHex(got[len("android-"):]) {
		t.Errorf("GenerateAndroidDeviceID() hex part of %v is not valid hex", got)
	}
}

func TestNewRandSeeded(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		if a.Uint64() != b.Uint64() {
			t.Fatal("same seed should produce the same sequence")
		}
	}
}

func TestUniformSeconds(t *testing.T) {
	r := NewRand(7)
	seen := make(map[time.Duration]bool)
	for i := 0; i < 2000; i++ {
		d := UniformSeconds(r, 10*time.Second, 30*time.Second)
		if d < 10*time.Second || d > 30*time.Second {
			t.Fatalf("UniformSeconds() = %v out of [10s, 30s]", d)
		}
		if d%time.Second != 0 {
			t.Fatalf("UniformSeconds() = %v is not whole seconds", d)
		}
		seen[d] = true
	}
	if !seen[10*time.Second] || !seen[30*time.Second] {
		t.Error("both bounds should be reachable")
	}
}

func TestUniformSecondsDegenerate(t *testing.T) {
	r := NewRand(1)
	if got := UniformSeconds(r, 5*time.Second, 5*time.Second); got != 5*time.Second {
		t.Errorf("equal bounds: got %v", got)
	}
	if got := UniformSeconds(r, 9*time.Second, 3*time.Second); got != 9*time.Second {
		t.Errorf("inverted bounds: got %v", got)
	}
}

func TestRandomHexUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		hex := GenerateRandomHex(16)
		if seen[hex] {
			t.Errorf("GenerateRandomHex() generated duplicate: %v", hex)
		}
		seen[hex] = true
	}
}

// Helper function to validate hex strings
func isValidHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
