// Package util provides utility functions for the CommentPipe application.
package util

import (
	"math/rand/v2"
	"strings"
	"time"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Not suitable for secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateAndroidDeviceID returns an identifier in the "android-<16 hex>" form
// the Instagram Android app reports.
func GenerateAndroidDeviceID() string {
	return GenerateRandomID("android-", 16)
}

// NewRand returns a random source. A zero seed draws a seed from the runtime's
// global generator; any other seed gives a reproducible sequence.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// UniformSeconds picks a whole number of seconds uniformly from [min, max], both inclusive.
// If max < min, min is returned.
func UniformSeconds(r *rand.Rand, min, max time.Duration) time.Duration {
	lo, hi := int64(min/time.Second), int64(max/time.Second)
	if hi <= lo {
		return min
	}
	return time.Duration(lo+r.Int64N(hi-lo+1)) * time.Second
}
