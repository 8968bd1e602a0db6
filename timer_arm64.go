//go:build arm64

package timingattack

// cntvct reads the virtual counter via CNTVCT_EL0.
// Implemented in timer_arm64.s
func cntvct() uint64

// cntfrq reads the counter frequency via CNTFRQ_EL0.
// Implemented in timer_arm64.s
func cntfrq() uint64

func readTimer() uint64 {
	return cntvct()
}

func timerName() string {
	return "cntvct_el0"
}

// timerFrequency returns the counter frequency in Hz. Apple Silicon runs the
// counter at 24 MHz, so one tick is ~41.67 ns there; the inner loop of the
// sampler is what makes per-character differences visible on such clocks.
func timerFrequency() uint64 {
	freq := cntfrq()
	if freq == 0 {
		return 24_000_000
	}
	return freq
}
