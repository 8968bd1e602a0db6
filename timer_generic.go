//go:build !amd64 && !arm64

package timingattack

import (
	"time"
)

// Generic fallback timer using the monotonic clock.
// Less precise than hardware timers but works everywhere.

// genericEpoch is the reference point for timer values.
var genericEpoch = time.Now()

// readTimer returns nanoseconds since epoch.
func readTimer() uint64 {
	return uint64(time.Since(genericEpoch).Nanoseconds())
}

func timerName() string {
	return "time.Now"
}

// timerFrequency returns 1 GHz: one tick per nanosecond.
func timerFrequency() uint64 {
	return 1_000_000_000
}
