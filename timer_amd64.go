//go:build amd64

package timingattack

import (
	"time"
)

// rdtsc reads the Time Stamp Counter via RDTSC instruction.
// Implemented in timer_amd64.s
func rdtsc() uint64

// readTimer returns the current timer value using rdtsc.
func readTimer() uint64 {
	return rdtsc()
}

// timerName returns the name of the timer being used.
func timerName() string {
	return "rdtsc"
}

// timerFrequency returns the estimated TSC frequency in Hz.
func timerFrequency() uint64 {
	return tscFrequency
}

// tscFrequency holds the TSC frequency calibrated at package initialization.
var tscFrequency uint64

func init() {
	tscFrequency = calibrateTSCFrequency()
}

// calibrateTSCFrequency estimates the TSC frequency by timing against the
// wall clock. Takes the median of a few short sleeps.
func calibrateTSCFrequency() uint64 {
	const measurements = 5
	const duration = 10 * time.Millisecond

	var freqs [measurements]uint64
	for i := 0; i < measurements; i++ {
		start := rdtsc()
		startTime := time.Now()
		time.Sleep(duration)
		end := rdtsc()
		elapsed := time.Since(startTime)

		freqs[i] = uint64(float64(end-start) / elapsed.Seconds())
	}

	for i := 0; i < measurements-1; i++ {
		for j := i + 1; j < measurements; j++ {
			if freqs[i] > freqs[j] {
				freqs[i], freqs[j] = freqs[j], freqs[i]
			}
		}
	}
	if freqs[measurements/2] == 0 {
		return 1_000_000_000
	}
	return freqs[measurements/2]
}
