// Package target is the deliberately vulnerable login check the attack is
// demonstrated against. Do not copy it into real code.
package target

import (
	"context"
	"fmt"
	"time"

	"github.com/senadmustafi/Timing-attack/internal/store"
)

// Verifier checks passwords with an early-exit comparison.
type Verifier struct {
	store store.Store

	// CharDelay is extra time spent on every compared character. Zero keeps
	// the bare comparison; a few microseconds make the leak visible over a
	// network.
	CharDelay time.Duration
}

// NewVerifier returns a verifier backed by s.
func NewVerifier(s store.Store) *Verifier {
	return &Verifier{store: s}
}

// Check reports whether candidate is the secret of account. An unknown
// account is rejected like a wrong password.
func (v *Verifier) Check(ctx context.Context, account, candidate string) (bool, error) {
	secret, ok, err := v.store.Lookup(ctx, account)
	if err != nil {
		return false, fmt.Errorf("lookup failed: %w", err)
	}
	if !ok {
		return false, nil
	}
	return v.compare(candidate, secret), nil
}

// compare returns at the first differing character, so its running time
// grows with the length of the matched prefix.
func (v *Verifier) compare(candidate, secret string) bool {
	if len(candidate) != len(secret) {
		return false
	}
	for i := 0; i < len(secret); i++ {
		if v.CharDelay > 0 {
			spin(v.CharDelay)
		}
		if candidate[i] != secret[i] {
			return false
		}
	}
	return true
}

// spin busy-waits for d. time.Sleep rounds short delays up to the
// scheduler tick.
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
