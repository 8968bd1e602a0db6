package timingattack

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Timer is the clock the sampler reads around every trial.
type Timer interface {
	// Read returns the current counter value in ticks.
	Read() uint64
	// Frequency returns the number of ticks per second.
	Frequency() uint64
	// Name identifies the timer in logs.
	Name() string
}

type platformTimer struct{}

func (platformTimer) Read() uint64      { return readTimer() }
func (platformTimer) Frequency() uint64 { return timerFrequency() }
func (platformTimer) Name() string      { return timerName() }

// PlatformTimer returns the hardware counter for this architecture: rdtsc on
// amd64, cntvct_el0 on arm64 and the monotonic clock elsewhere.
func PlatformTimer() Timer {
	return platformTimer{}
}

// TimerResolutionNs returns the approximate platform timer resolution in nanoseconds.
func TimerResolutionNs() float64 {
	freq := timerFrequency()
	if freq == 0 {
		return 1.0
	}
	return 1_000_000_000.0 / float64(freq)
}

// Operation is the unit of work being timed.
type Operation interface {
	// Execute runs the operation once. A non-nil error aborts the measurement.
	Execute() error
}

// FuncOperation wraps a function to implement Operation.
type FuncOperation func() error

// Execute implements Operation.
func (f FuncOperation) Execute() error {
	return f()
}

// Sampler times an operation under a fixed protocol: repeats independent
// trials, each executing the operation innerCount times back to back.
type Sampler struct {
	timer      Timer
	repeats    int
	innerCount int
	warmup     int
}

// NewSampler creates a sampler. Non-positive repeats or innerCount fall back
// to the InProcess profile values.
func NewSampler(timer Timer, repeats, innerCount int) *Sampler {
	if timer == nil {
		timer = PlatformTimer()
	}
	if repeats <= 0 {
		repeats = InProcess.Repeats()
	}
	if innerCount <= 0 {
		innerCount = InProcess.InnerCount()
	}
	return &Sampler{timer: timer, repeats: repeats, innerCount: innerCount}
}

// Measure runs the measurement protocol and returns one latency per trial.
// Any error from op stops the measurement and is returned.
func (s *Sampler) Measure(op Operation) (SampleSet, error) {
	for i := 0; i < s.warmup; i++ {
		if err := op.Execute(); err != nil {
			return nil, err
		}
	}

	freq := s.timer.Frequency()
	if freq == 0 {
		freq = 1_000_000_000
	}
	nsPerTick := 1_000_000_000.0 / float64(freq)

	samples := make(SampleSet, 0, s.repeats)
	for trial := 0; trial < s.repeats; trial++ {
		start := s.timer.Read()
		for k := 0; k < s.innerCount; k++ {
			if err := op.Execute(); err != nil {
				return nil, err
			}
		}
		end := s.timer.Read()

		var ticks uint64
		if end > start {
			ticks = end - start
		}
		samples = append(samples, float64(ticks)*nsPerTick)
	}
	return samples, nil
}

// Representative measures op and returns the minimum trial latency in nanoseconds.
func (s *Sampler) Representative(op Operation) (float64, error) {
	samples, err := s.Measure(op)
	if err != nil {
		return 0, err
	}
	return samples.Representative(), nil
}

// Measure times op on the platform timer and returns the representative latency.
func Measure(op Operation, repeats, innerCount int) (float64, error) {
	return NewSampler(nil, repeats, innerCount).Representative(op)
}

// SampleSet holds the per-trial latencies, in nanoseconds, of one measurement.
type SampleSet []float64

// Representative returns the minimum latency. Scheduling noise only ever adds
// time to a trial, so the fastest trial is the closest to the true cost.
func (s SampleSet) Representative() float64 {
	if len(s) == 0 {
		return 0
	}
	best := s[0]
	for _, v := range s[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// Summary describes the spread of a sample set.
type Summary struct {
	Min    float64
	Mean   float64
	StdDev float64
	Max    float64
}

// Summary computes diagnostic statistics over the trials.
func (s SampleSet) Summary() Summary {
	if len(s) == 0 {
		return Summary{}
	}
	sum := Summary{Min: s[0], Max: s[0]}
	for _, v := range s {
		if v < sum.Min {
			sum.Min = v
		}
		if v > sum.Max {
			sum.Max = v
		}
	}
	sum.Mean = stat.Mean(s, nil)
	if len(s) > 1 {
		sum.StdDev = stat.StdDev(s, nil)
	}
	return sum
}

// String returns a compact rendering of the summary.
func (s Summary) String() string {
	return fmt.Sprintf("min=%.0fns mean=%.0fns sd=%.0fns max=%.0fns", s.Min, s.Mean, s.StdDev, s.Max)
}

// RandomString returns a string of n characters drawn uniformly from alphabet.
func RandomString(rng *rand.Rand, alphabet string, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return b.String()
}

// checkOperation binds one oracle check to an Operation.
func checkOperation(check func() (bool, error)) Operation {
	return FuncOperation(func() error {
		_, err := check()
		return err
	})
}
