package timingattack

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

// virtualTimer is a clock that only moves when the simulated oracle does work.
type virtualTimer struct {
	now uint64
}

func (v *virtualTimer) Read() uint64      { return v.now }
func (v *virtualTimer) Frequency() uint64 { return 1_000_000_000 }
func (v *virtualTimer) Name() string      { return "virtual" }

// simulatedOracle models an early-exit comparison without noise: rejecting at
// first mismatch k costs k+1 units, accepting costs len+1 units and a length
// mismatch costs nothing.
type simulatedOracle struct {
	secrets map[string]string
	clock   *virtualTimer
	checks  int
}

func newSimulatedOracle(secrets map[string]string) *simulatedOracle {
	return &simulatedOracle{secrets: secrets, clock: &virtualTimer{}}
}

func (s *simulatedOracle) Check(_ context.Context, account, candidate string) (bool, error) {
	s.checks++
	secret, ok := s.secrets[account]
	if !ok || len(candidate) != len(secret) {
		return false, nil
	}
	for k := 0; k < len(secret); k++ {
		if candidate[k] != secret[k] {
			s.clock.now += uint64(k + 1)
			return false, nil
		}
	}
	s.clock.now += uint64(len(secret) + 1)
	return true, nil
}

// fastOpts keeps the noiseless tests quick; the virtual clock makes the
// result independent of repeats and inner count.
func fastOpts(o *simulatedOracle, seed uint64, extra ...Option) []Option {
	return append([]Option{
		WithTimer(o.clock),
		WithRepeats(2),
		WithInnerCount(3),
		WithSeed(seed),
	}, extra...)
}

// newRandForTest creates a reproducible RNG for testing.
func newRandForTest(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xDEADBEEF))
}

// TestTimerWorks verifies the platform timer is functional.
func TestTimerWorks(t *testing.T) {
	timer := PlatformTimer()
	if timer.Name() == "" {
		t.Fatal("Timer name is empty")
	}
	t.Logf("Timer: %s", timer.Name())

	if timer.Frequency() == 0 {
		t.Fatal("Timer frequency is zero")
	}
	t.Logf("Frequency: %d Hz", timer.Frequency())

	res := TimerResolutionNs()
	if res <= 0 {
		t.Fatal("Timer resolution is invalid")
	}
	t.Logf("Resolution: %.2f ns", res)

	t1 := timer.Read()
	time.Sleep(1 * time.Millisecond)
	t2 := timer.Read()
	if t2 <= t1 {
		t.Fatalf("Timer did not advance: t1=%d, t2=%d", t1, t2)
	}
	t.Logf("Timer delta over 1ms: %d ticks", t2-t1)
}

// scriptedTimer returns successive readings from a fixed list.
type scriptedTimer struct {
	readings []uint64
	i        int
}

func (s *scriptedTimer) Read() uint64 {
	v := s.readings[s.i]
	s.i++
	return v
}
func (s *scriptedTimer) Frequency() uint64 { return 1_000_000_000 }
func (s *scriptedTimer) Name() string      { return "scripted" }

// TestSamplerRepresentativeIsMinimum verifies the fastest trial wins.
func TestSamplerRepresentativeIsMinimum(t *testing.T) {
	timer := &scriptedTimer{readings: []uint64{0, 500, 1000, 1300, 2000, 2900}}
	s := NewSampler(timer, 3, 1)

	samples, err := s.Measure(FuncOperation(func() error { return nil }))
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if diff := cmp.Diff(SampleSet{500, 300, 900}, samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if got := samples.Representative(); got != 300 {
		t.Errorf("Expected representative 300, got %v", got)
	}

	sum := samples.Summary()
	if sum.Min != 300 || sum.Max != 900 || sum.Mean != 1700.0/3 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
	t.Logf("Summary: %s", sum)
}

// TestSamplerRunsInnerCount verifies the operation runs exactly
// repeats*innerCount times, plus warmup.
func TestSamplerRunsInnerCount(t *testing.T) {
	calls := 0
	op := FuncOperation(func() error {
		calls++
		return nil
	})

	s := NewSampler(&virtualTimer{}, 4, 25)
	samples, err := s.Measure(op)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("Expected 4 samples, got %d", len(samples))
	}
	if calls != 100 {
		t.Errorf("Expected 100 executions, got %d", calls)
	}

	calls = 0
	s.warmup = 7
	if _, err := s.Measure(op); err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if calls != 107 {
		t.Errorf("Expected 107 executions with warmup, got %d", calls)
	}
}

// TestSamplerPropagatesError verifies a failing operation aborts measurement.
func TestSamplerPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	op := FuncOperation(func() error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})

	_, err := NewSampler(&virtualTimer{}, 10, 10).Measure(op)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected measurement to stop after 3 calls, got %d", calls)
	}
}

// TestSamplerDefaults verifies non-positive parameters fall back to InProcess.
func TestSamplerDefaults(t *testing.T) {
	s := NewSampler(nil, 0, -1)
	if s.repeats != 10 || s.innerCount != 1000 {
		t.Errorf("Expected 10x1000, got %dx%d", s.repeats, s.innerCount)
	}
	if s.timer == nil {
		t.Error("Expected platform timer")
	}
}

// TestConfigOptions verifies configuration options work.
func TestConfigOptions(t *testing.T) {
	cfg, err := newConfig(nil)
	if err != nil {
		t.Fatalf("newConfig failed: %v", err)
	}
	if cfg.repeats != 10 || cfg.innerCount != 1000 {
		t.Errorf("Expected 10x1000 defaults, got %dx%d", cfg.repeats, cfg.innerCount)
	}
	if cfg.alphabet != DefaultAlphabet || len(cfg.alphabet) != 63 {
		t.Errorf("Expected the 63 character default alphabet, got %q", cfg.alphabet)
	}

	cfg, err = newConfig([]Option{
		WithProfile(LocalNetwork),
		WithRepeats(7),
		WithTimeBudget(10 * time.Second),
		WithMaxIterations(500),
		WithCachedBaseline(),
	})
	if err != nil {
		t.Fatalf("newConfig failed: %v", err)
	}
	if cfg.repeats != 7 {
		t.Errorf("Expected explicit repeats 7, got %d", cfg.repeats)
	}
	if cfg.innerCount != LocalNetwork.InnerCount() {
		t.Errorf("Expected profile inner count %d, got %d", LocalNetwork.InnerCount(), cfg.innerCount)
	}
	if cfg.timeBudget != 10*time.Second || cfg.maxIterations != 500 || !cfg.cacheBaseline {
		t.Errorf("Options not applied: %+v", cfg)
	}
}

// TestConfigValidation verifies invalid configurations are rejected.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero repeats", []Option{WithRepeats(0)}},
		{"negative inner count", []Option{WithInnerCount(-5)}},
		{"empty alphabet", []Option{WithAlphabet("")}},
		{"non-ascii alphabet", []Option{WithAlphabet("abç")}},
		{"guess outside alphabet", []Option{WithAlphabet("ab"), WithInitialGuess("ac")}},
		{"negative iterations", []Option{WithMaxIterations(-1)}},
		{"negative top-N", []Option{WithTopN(-1)}},
	}
	for _, tc := range tests {
		if _, err := newConfig(tc.opts); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

// TestProfileDefaults verifies the measurement presets.
func TestProfileDefaults(t *testing.T) {
	tests := []struct {
		profile Profile
		repeats int
		inner   int
		name    string
	}{
		{InProcess, 10, 1000, "InProcess"},
		{LocalNetwork, 10, 20, "LocalNetwork"},
		{RemoteNetwork, 10, 5, "RemoteNetwork"},
	}
	for _, tc := range tests {
		if tc.profile.Repeats() != tc.repeats || tc.profile.InnerCount() != tc.inner {
			t.Errorf("%s: expected %dx%d, got %dx%d", tc.profile, tc.repeats, tc.inner,
				tc.profile.Repeats(), tc.profile.InnerCount())
		}
		if tc.profile.String() != tc.name {
			t.Errorf("Expected name %s, got %s", tc.name, tc.profile)
		}
	}

	if p, ok := ParseProfile("remote"); !ok || p != RemoteNetwork {
		t.Errorf("Expected remote to parse as RemoteNetwork, got %v %v", p, ok)
	}
	if _, ok := ParseProfile("satellite"); ok {
		t.Error("Expected unknown profile to fail")
	}
}

// TestLengthTableArgmaxStable verifies ties resolve to the shortest length.
func TestLengthTableArgmaxStable(t *testing.T) {
	tests := []struct {
		table LengthTable
		want  int
	}{
		{LengthTable{1, 5, 3}, 1},
		{LengthTable{4, 4, 4}, 0},
		{LengthTable{1, 2, 9, 9}, 2},
		{LengthTable{0}, 0},
		{LengthTable{}, -1},
	}
	for _, tc := range tests {
		if got := tc.table.Argmax(); got != tc.want {
			t.Errorf("Argmax(%v) = %d, want %d", tc.table, got, tc.want)
		}
	}
}

// TestLengthTableRanking verifies the diagnostic ranking and ratios.
func TestLengthTableRanking(t *testing.T) {
	table := LengthTable{10, 40, 20, 40, 5, 30}
	want := []LengthRank{
		{Length: 1, LatencyNs: 40, Ratio: 1},
		{Length: 3, LatencyNs: 40, Ratio: 1},
		{Length: 5, LatencyNs: 30, Ratio: 0.75},
		{Length: 2, LatencyNs: 20, Ratio: 0.5},
		{Length: 0, LatencyNs: 10, Ratio: 0.25},
	}
	if diff := cmp.Diff(want, table.Ranking(5)); diff != "" {
		t.Errorf("Ranking mismatch (-want +got):\n%s", diff)
	}
	if got := len(table.Ranking(0)); got != len(table) {
		t.Errorf("Expected full ranking for n=0, got %d rows", got)
	}
	t.Logf("Table: %s", table)
}

// TestRandomString verifies candidates stay inside the alphabet and are reproducible.
func TestRandomString(t *testing.T) {
	a := RandomString(newRandForTest(7), DefaultAlphabet, 64)
	b := RandomString(newRandForTest(7), DefaultAlphabet, 64)
	if a != b {
		t.Errorf("Same seed produced %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("Expected 64 characters, got %d", len(a))
	}
	for _, r := range a {
		if !strings.ContainsRune(DefaultAlphabet, r) {
			t.Errorf("Character %q outside the alphabet", r)
		}
	}
	if RandomString(newRandForTest(7), DefaultAlphabet, 0) != "" {
		t.Error("Expected empty string for length 0")
	}
}

// TestShortCircuitTimingProperty verifies a longer matched prefix is never
// faster to reject under the simulated comparison.
func TestShortCircuitTimingProperty(t *testing.T) {
	secret := "MyStr0ngPassW0rD"
	o := newSimulatedOracle(map[string]string{"admin": secret})
	s := NewSampler(o.clock, 10, 100)
	tgt := target{oracle: o, account: "admin"}
	ctx := context.Background()

	prev := -1.0
	for k := 0; k < len(secret); k++ {
		// Matches secret on [0, k), wrong at k.
		candidate := []byte(secret)
		candidate[k] = '#'
		for i := k + 1; i < len(candidate); i++ {
			candidate[i] = '#'
		}
		ns, err := s.Representative(tgt.operation(ctx, string(candidate)))
		if err != nil {
			t.Fatalf("Representative failed: %v", err)
		}
		if ns < prev {
			t.Errorf("Prefix %d rejected faster (%.0f) than prefix %d (%.0f)", k, ns, k-1, prev)
		}
		prev = ns
	}
}

// TestInferLengthNoiseless verifies the slowest length is the secret length
// for every bound above it.
func TestInferLengthNoiseless(t *testing.T) {
	secrets := []string{"a", "ab", "MyStr0ngPassW0rD", "with space 42"}
	for _, secret := range secrets {
		for _, maxLen := range []int{len(secret) + 1, len(secret) + 5, 32} {
			o := newSimulatedOracle(map[string]string{"admin": secret})
			got, table, err := InferLength(context.Background(), o, "admin", maxLen, fastOpts(o, 99)...)
			if err != nil {
				t.Fatalf("InferLength failed: %v", err)
			}
			if got != len(secret) {
				t.Errorf("secret %q, maxLen %d: inferred %d (table %s)", secret, maxLen, got, table)
			}
			if len(table) != maxLen {
				t.Errorf("Expected %d table entries, got %d", maxLen, len(table))
			}
		}
	}
}

// TestInferLengthDefaultParameters verifies the default 10x1000 protocol
// drives the oracle the expected number of times.
func TestInferLengthDefaultParameters(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "abc"})
	got, _, err := InferLength(context.Background(), o, "admin", 4, WithTimer(o.clock), WithSeed(1))
	if err != nil {
		t.Fatalf("InferLength failed: %v", err)
	}
	if got != 3 {
		t.Errorf("Expected length 3, got %d", got)
	}
	if o.checks != 4*10*1000 {
		t.Errorf("Expected %d checks, got %d", 4*10*1000, o.checks)
	}
}

// TestInferLengthInvalidBound verifies a non-positive bound is rejected.
func TestInferLengthInvalidBound(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	for _, maxLen := range []int{0, -3} {
		_, _, err := InferLength(context.Background(), o, "admin", maxLen, fastOpts(o, 1)...)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("maxLen %d: expected ErrInvalidArgument, got %v", maxLen, err)
		}
	}
	if o.checks != 0 {
		t.Errorf("Expected no oracle checks, got %d", o.checks)
	}
}

// TestInferLengthEmptySecret verifies a zero-length secret is inferable.
func TestInferLengthEmptySecret(t *testing.T) {
	for _, maxLen := range []int{1, 6} {
		o := newSimulatedOracle(map[string]string{"admin": ""})
		got, _, err := InferLength(context.Background(), o, "admin", maxLen, fastOpts(o, 3)...)
		if err != nil {
			t.Fatalf("InferLength failed: %v", err)
		}
		if got != 0 {
			t.Errorf("maxLen %d: expected length 0, got %d", maxLen, got)
		}
	}
}

// TestInferLengthDebugRanking verifies the ranking log with debug logging
// enabled, and that a negative top-N is rejected before it can be used.
func TestInferLengthDebugRanking(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "abc"})
	logger := zaptest.NewLogger(t)

	_, _, err := InferLength(context.Background(), o, "admin", 4, fastOpts(o, 1, WithTopN(-1), WithLogger(logger))...)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig for negative top-N, got %v", err)
	}

	for _, n := range []int{0, 2, 10} {
		got, _, err := InferLength(context.Background(), o, "admin", 4, fastOpts(o, 1, WithTopN(n), WithLogger(logger))...)
		if err != nil {
			t.Fatalf("top-N %d: InferLength failed: %v", n, err)
		}
		if got != 3 {
			t.Errorf("top-N %d: expected length 3, got %d", n, got)
		}
	}
}

// TestInferLengthCanceled verifies cancellation stops inference.
func TestInferLengthCanceled(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := InferLength(ctx, o, "admin", 8, fastOpts(o, 1)...)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

// TestRecoverNoiseless verifies convergence to the secret within
// length*alphabet trials under the simulated comparison.
func TestRecoverNoiseless(t *testing.T) {
	secrets := []string{"z", "ab", "MyStr0ngPassW0rD", "a b c"}
	for _, secret := range secrets {
		for _, seed := range []uint64{1, 2, 3} {
			o := newSimulatedOracle(map[string]string{"admin": secret})
			res, err := Recover(context.Background(), o, "admin", len(secret), fastOpts(o, seed)...)
			if err != nil {
				t.Fatalf("Recover failed: %v", err)
			}
			if !res.Found || res.Secret != secret {
				t.Fatalf("Expected %q, got %s", secret, res)
			}
			bound := len(secret) * len(DefaultAlphabet)
			if res.Adopted > bound {
				t.Errorf("%q: %d adoptions exceed %d", secret, res.Adopted, bound)
			}
			if res.Iterations > bound {
				t.Errorf("%q: %d iterations exceed %d", secret, res.Iterations, bound)
			}
		}
	}
}

// TestRecoverExampleScenario runs the two-letter example end to end.
func TestRecoverExampleScenario(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 4, 5} {
		o := newSimulatedOracle(map[string]string{"admin": "ab"})
		opts := fastOpts(o, seed, WithAlphabet("ab"))

		length, _, err := InferLength(context.Background(), o, "admin", 4, opts...)
		if err != nil {
			t.Fatalf("InferLength failed: %v", err)
		}
		if length != 2 {
			t.Fatalf("Expected length 2, got %d", length)
		}

		res, err := Recover(context.Background(), o, "admin", length, opts...)
		if err != nil {
			t.Fatalf("Recover failed: %v", err)
		}
		if res.Secret != "ab" {
			t.Errorf("Expected ab, got %q", res.Secret)
		}
		if res.Adopted > 4 {
			t.Errorf("Expected at most 4 adoptions, got %d", res.Adopted)
		}
	}
}

// TestRecoverFromEveryStart verifies convergence from every possible initial guess.
func TestRecoverFromEveryStart(t *testing.T) {
	for _, start := range []string{"aa", "ab", "ba", "bb"} {
		o := newSimulatedOracle(map[string]string{"admin": "ab"})
		res, err := Recover(context.Background(), o, "admin", 2,
			fastOpts(o, 1, WithAlphabet("ab"), WithInitialGuess(start))...)
		if err != nil {
			t.Fatalf("Recover from %q failed: %v", start, err)
		}
		if res.Secret != "ab" || res.Adopted > 4 {
			t.Errorf("From %q: %s", start, res)
		}
	}
}

// TestRecoverCachedBaseline verifies the cached baseline converges the same
// way under the simulated comparison while measuring less.
func TestRecoverCachedBaseline(t *testing.T) {
	secret := "MyStr0ngPassW0rD"

	plain := newSimulatedOracle(map[string]string{"admin": secret})
	want, err := Recover(context.Background(), plain, "admin", len(secret), fastOpts(plain, 11)...)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	cached := newSimulatedOracle(map[string]string{"admin": secret})
	got, err := Recover(context.Background(), cached, "admin", len(secret),
		fastOpts(cached, 11, WithCachedBaseline())...)
	if err != nil {
		t.Fatalf("Recover with cached baseline failed: %v", err)
	}

	if got.Secret != want.Secret || got.Iterations != want.Iterations || got.Adopted != want.Adopted {
		t.Errorf("Cached run diverged: %s vs %s", got, want)
	}
	if cached.checks >= plain.checks {
		t.Errorf("Expected fewer checks with cached baseline: %d vs %d", cached.checks, plain.checks)
	}
	t.Logf("Checks: plain=%d cached=%d", plain.checks, cached.checks)
}

// TestRecoverInvalidLength verifies a non-positive length is rejected.
func TestRecoverInvalidLength(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	for _, length := range []int{0, -1} {
		if _, err := Recover(context.Background(), o, "admin", length, fastOpts(o, 1)...); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("length %d: expected ErrInvalidArgument, got %v", length, err)
		}
	}
	if _, err := Recover(context.Background(), o, "admin", 3, fastOpts(o, 1, WithInitialGuess("ab"))...); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for short initial guess, got %v", err)
	}
}

// TestRecoverUnknownAccountBudget verifies an unknown account runs until the
// iteration budget stops it.
func TestRecoverUnknownAccountBudget(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	res, err := Recover(context.Background(), o, "nobody", 2, fastOpts(o, 1, WithMaxIterations(50))...)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Expected ErrBudgetExceeded, got %v", err)
	}
	if res == nil || res.Found || res.Iterations != 50 {
		t.Fatalf("Unexpected partial result: %v", res)
	}
	if res.Adopted != 0 {
		t.Errorf("Expected no adoptions without a timing signal, got %d", res.Adopted)
	}
}

// TestRecoverTimeBudget verifies the time budget stops an endless search.
func TestRecoverTimeBudget(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	res, err := Recover(context.Background(), o, "nobody", 4, fastOpts(o, 1, WithTimeBudget(20*time.Millisecond))...)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Expected ErrBudgetExceeded, got %v", err)
	}
	if res.ElapsedTime < 20*time.Millisecond {
		t.Errorf("Stopped before the budget: %v", res.ElapsedTime)
	}
}

// TestRecoverCanceled verifies context cancellation stops the search.
func TestRecoverCanceled(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	oracle := FuncOracle(func(ctx context.Context, account, candidate string) (bool, error) {
		steps++
		if steps == 100 {
			cancel()
		}
		return o.Check(ctx, account, candidate)
	})
	_, err := Recover(ctx, oracle, "nobody", 2, fastOpts(o, 1)...)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

// TestRecoverOracleError verifies oracle failures abort the run.
func TestRecoverOracleError(t *testing.T) {
	down := errors.New("store unavailable")
	oracle := FuncOracle(func(context.Context, string, string) (bool, error) {
		return false, down
	})
	_, err := Recover(context.Background(), oracle, "admin", 3, WithTimer(&virtualTimer{}), WithSeed(1))
	if !errors.Is(err, ErrOracle) || !errors.Is(err, down) {
		t.Fatalf("Expected wrapped oracle error, got %v", err)
	}
}

// TestSearchSteps verifies the step sequence of the iterator.
func TestSearchSteps(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ba"})
	var progress []Step
	s, err := NewSearch(o, "admin", 2, fastOpts(o, 1,
		WithAlphabet("ab"),
		WithInitialGuess("aa"),
		WithProgress(func(st Step) { progress = append(progress, st) }))...)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	ctx := context.Background()

	// Position 0, 'a': same as the guess, nothing changes.
	st, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	want := Step{Iteration: 1, Position: 0, Candidate: "aa", Guess: "aa", CandidateNs: 3, GuessNs: 3}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("step 1 mismatch (-want +got):\n%s", diff)
	}

	// Position 0, 'b': matches the first character, adopted.
	st, _ = s.Next(ctx)
	want = Step{Iteration: 2, Position: 0, Candidate: "ba", Found: true, Guess: "ba"}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("step 2 mismatch (-want +got):\n%s", diff)
	}
	if !s.Done() || s.Guess() != "ba" {
		t.Fatalf("Expected search to be done with ba, got %q", s.Guess())
	}

	checks := o.checks
	again, _ := s.Next(ctx)
	if again != st || o.checks != checks {
		t.Error("Next after success should not consult the oracle")
	}
	if len(progress) != 1 || !progress[0].Found {
		t.Errorf("Expected one progress report for the final step, got %+v", progress)
	}
}

// TestSearchAdoptsSlowerCandidate verifies a slower rejection replaces the guess.
func TestSearchAdoptsSlowerCandidate(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "bbb"})
	var adopted []string
	s, err := NewSearch(o, "admin", 3, fastOpts(o, 1,
		WithAlphabet("ab"),
		WithInitialGuess("aaa"),
		WithProgress(func(st Step) { adopted = append(adopted, st.Guess) }))...)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	for !s.Done() {
		if _, err := s.Next(context.Background()); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"baa", "bba", "bbb"}, adopted); diff != "" {
		t.Errorf("adoption sequence mismatch (-want +got):\n%s", diff)
	}
	if s.Adopted() != 2 {
		t.Errorf("Expected 2 timing adoptions, got %d", s.Adopted())
	}

	if err := s.Restart("aaa"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if s.Done() || s.Guess() != "aaa" {
		t.Errorf("Restart did not reset the search")
	}
}

// TestSearchRestartRejectsBadGuess verifies Restart leaves the search
// untouched when the guess does not fit it.
func TestSearchRestartRejectsBadGuess(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "ab"})
	s, err := NewSearch(o, "admin", 2, fastOpts(o, 1, WithAlphabet("ab"), WithInitialGuess("ba"))...)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	for _, guess := range []string{"a", "abb", "", "ax"} {
		if err := s.Restart(guess); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Restart(%q): expected ErrInvalidConfig, got %v", guess, err)
		}
	}
	if s.Guess() != "ba" {
		t.Errorf("Rejected restarts changed the guess to %q", s.Guess())
	}
}

// TestCrackNoiseless runs both phases end to end.
func TestCrackNoiseless(t *testing.T) {
	secret := "MyStr0ngPassW0rD"
	o := newSimulatedOracle(map[string]string{"admin": secret})
	res, err := Crack(context.Background(), o, "admin", DefaultMaxLength, 0, fastOpts(o, 42)...)
	if err != nil {
		t.Fatalf("Crack failed: %v", err)
	}
	if res.Length != len(secret) || res.Recover.Secret != secret {
		t.Fatalf("Unexpected result: %s", res)
	}
	if res.RunID == "" || len(res.Lengths) != DefaultMaxLength {
		t.Errorf("Missing run metadata: %+v", res)
	}
	t.Logf("Result: %s", res)
}

// TestCrackKnownLength verifies a supplied length skips inference.
func TestCrackKnownLength(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": "xyz"})
	res, err := Crack(context.Background(), o, "admin", 0, 3, fastOpts(o, 5)...)
	if err != nil {
		t.Fatalf("Crack failed: %v", err)
	}
	if res.Lengths != nil || res.Recover.Secret != "xyz" {
		t.Errorf("Unexpected result: %s", res)
	}
}

// TestCrackEmptySecret verifies a zero-length credential is accepted as is.
func TestCrackEmptySecret(t *testing.T) {
	o := newSimulatedOracle(map[string]string{"admin": ""})
	res, err := Crack(context.Background(), o, "admin", 4, 0, fastOpts(o, 5)...)
	if err != nil {
		t.Fatalf("Crack failed: %v", err)
	}
	if res.Length != 0 || !res.Recover.Found || res.Recover.Secret != "" {
		t.Errorf("Unexpected result: %s", res)
	}
}

// =============================================================================
// Integration Tests
// =============================================================================
// These tests measure a real early-exit comparison on the platform timer.
// They may take several seconds to run.

// leakyCompare performs early-exit comparison with busy work per compared
// character so the leak dominates timer noise.
func leakyCompare(a, b string, work int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		for j := 0; j < work; j++ {
			_ = j * j
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestKnownLeakyLength verifies length inference on real timings.
func TestKnownLeakyLength(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	secret := "hunter2"
	oracle := FuncOracle(func(_ context.Context, account, candidate string) (bool, error) {
		if account != "admin" {
			return false, nil
		}
		return leakyCompare(candidate, secret, 500), nil
	})

	length, table, err := InferLength(context.Background(), oracle, "admin", 16,
		WithRepeats(5), WithInnerCount(200), WithSeed(1))
	if err != nil {
		t.Fatalf("InferLength failed: %v", err)
	}
	t.Logf("Ranking: %s", table)
	for _, r := range table.Ranking(5) {
		t.Logf("  length %2d: %10.0f ns (ratio %.3f)", r.Length, r.LatencyNs, r.Ratio)
	}
	if length != len(secret) {
		t.Errorf("Expected length %d, got %d", len(secret), length)
	}
}
