package timingattack

import (
	"context"
	"fmt"
)

// Oracle answers whether a candidate is the credential of an account.
//
// The attack only works against an oracle whose rejection time grows with
// the length of the matched prefix, which is the case for a comparison that
// returns on the first mismatched character. An unknown account must be
// indistinguishable from a wrong guess: Check returns false, not an error.
//
// Implementations must be idempotent. The oracle may be an in-process call or
// a network round trip; the sampler's repeats and inner count are the noise
// knobs in both cases.
type Oracle interface {
	Check(ctx context.Context, account, candidate string) (bool, error)
}

// FuncOracle wraps a function to implement Oracle.
type FuncOracle func(ctx context.Context, account, candidate string) (bool, error)

// Check implements Oracle.
func (f FuncOracle) Check(ctx context.Context, account, candidate string) (bool, error) {
	return f(ctx, account, candidate)
}

// target binds an oracle to a single account.
type target struct {
	oracle  Oracle
	account string
}

func (t target) check(ctx context.Context, candidate string) (bool, error) {
	ok, err := t.oracle.Check(ctx, t.account, candidate)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrOracle, err)
	}
	return ok, nil
}

// operation returns the timed unit for checking candidate.
func (t target) operation(ctx context.Context, candidate string) Operation {
	return checkOperation(func() (bool, error) {
		return t.check(ctx, candidate)
	})
}
