package timingattack

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultAlphabet is the candidate character set: ASCII letters, digits and space.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "

// DefaultMaxLength is the largest secret length considered by Crack when no
// length is given.
const DefaultMaxLength = 32

// Config holds the configuration for an attack.
type Config struct {
	profile       Profile
	repeats       int
	repeatsSet    bool
	innerCount    int
	innerSet      bool
	warmup        int
	alphabet      string
	seed          uint64
	rng           *rand.Rand
	timer         Timer
	maxIterations int
	timeBudget    time.Duration
	cacheBaseline bool
	initialGuess  string
	topN          int
	logger        *zap.Logger
	progress      func(Step)
}

// Option is a functional option for configuring an attack.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		profile:  InProcess,
		alphabet: DefaultAlphabet,
		topN:     5,
		logger:   zap.NewNop(),
	}
}

// newConfig applies opts over the defaults and validates the result.
func newConfig(opts []Option) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.repeatsSet {
		cfg.repeats = cfg.profile.Repeats()
	}
	if !cfg.innerSet {
		cfg.innerCount = cfg.profile.InnerCount()
	}
	if cfg.timer == nil {
		cfg.timer = PlatformTimer()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.rng == nil {
		if cfg.seed != 0 {
			cfg.rng = rand.New(rand.NewPCG(cfg.seed, cfg.seed^0xDEADBEEF))
		} else {
			cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.repeats <= 0:
		return fmt.Errorf("%w: repeats must be positive, got %d", ErrInvalidConfig, c.repeats)
	case c.innerCount <= 0:
		return fmt.Errorf("%w: inner count must be positive, got %d", ErrInvalidConfig, c.innerCount)
	case c.warmup < 0:
		return fmt.Errorf("%w: warmup must not be negative, got %d", ErrInvalidConfig, c.warmup)
	case c.alphabet == "":
		return fmt.Errorf("%w: empty alphabet", ErrInvalidConfig)
	case !isASCII(c.alphabet):
		return fmt.Errorf("%w: alphabet must be ASCII", ErrInvalidConfig)
	case c.maxIterations < 0:
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidConfig, c.maxIterations)
	case c.topN < 0:
		return fmt.Errorf("%w: top-N must not be negative, got %d", ErrInvalidConfig, c.topN)
	}
	for _, r := range c.initialGuess {
		if !strings.ContainsRune(c.alphabet, r) {
			return fmt.Errorf("%w: initial guess contains %q outside the alphabet", ErrInvalidConfig, r)
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sampler builds the latency sampler described by the configuration.
func (c *Config) sampler() *Sampler {
	return &Sampler{
		timer:      c.timer,
		repeats:    c.repeats,
		innerCount: c.innerCount,
		warmup:     c.warmup,
	}
}

// WithProfile sets the measurement profile. Explicit WithRepeats and
// WithInnerCount values take precedence over the profile defaults.
func WithProfile(p Profile) Option {
	return func(c *Config) {
		c.profile = p
	}
}

// WithRepeats sets the number of independent timing trials per measurement.
// Default is 10.
func WithRepeats(n int) Option {
	return func(c *Config) {
		c.repeats = n
		c.repeatsSet = true
	}
}

// WithInnerCount sets how many times the check runs inside one trial.
// Default is 1000.
func WithInnerCount(n int) Option {
	return func(c *Config) {
		c.innerCount = n
		c.innerSet = true
	}
}

// WithWarmup runs the operation n extra times before the first trial of
// every measurement. Default is 0.
func WithWarmup(n int) Option {
	return func(c *Config) {
		c.warmup = n
	}
}

// WithAlphabet sets the candidate character set, enumerated in the given order.
func WithAlphabet(alphabet string) Option {
	return func(c *Config) {
		c.alphabet = alphabet
	}
}

// WithSeed sets the random seed for reproducible candidates.
// Default (0) uses system entropy.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.seed = seed
	}
}

// WithRand sets the random source directly. It overrides WithSeed.
func WithRand(rng *rand.Rand) Option {
	return func(c *Config) {
		c.rng = rng
	}
}

// WithTimer replaces the platform timer.
func WithTimer(t Timer) Option {
	return func(c *Config) {
		c.timer = t
	}
}

// WithMaxIterations bounds the refiner to n character trials.
// Default (0) is unbounded.
func WithMaxIterations(n int) Option {
	return func(c *Config) {
		c.maxIterations = n
	}
}

// WithTimeBudget bounds the wall-clock time spent by the refiner.
// Default (0) is unbounded.
func WithTimeBudget(d time.Duration) Option {
	return func(c *Config) {
		c.timeBudget = d
	}
}

// WithCachedBaseline reuses the current guess's latency for the rest of a
// position sweep instead of re-measuring it for every character. An adopted
// mutation replaces the cached value with its own latency; the cache is
// dropped when the position advances.
func WithCachedBaseline() Option {
	return func(c *Config) {
		c.cacheBaseline = true
	}
}

// WithInitialGuess starts the refiner from guess instead of a random string.
func WithInitialGuess(guess string) Option {
	return func(c *Config) {
		c.initialGuess = guess
	}
}

// WithTopN sets how many lengths the inference diagnostics report. Default is 5.
func WithTopN(n int) Option {
	return func(c *Config) {
		c.topN = n
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithProgress registers a callback invoked for every adopted guess and for
// the final accepted candidate.
func WithProgress(fn func(Step)) Option {
	return func(c *Config) {
		c.progress = fn
	}
}
