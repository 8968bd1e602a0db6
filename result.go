package timingattack

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LengthTable maps every trial length (the index) to the representative
// latency, in nanoseconds, of rejecting a random candidate of that length.
type LengthTable []float64

// Argmax returns the length with the largest latency. Ties resolve to the
// shortest length. An empty table returns -1.
func (t LengthTable) Argmax() int {
	best := -1
	for i, v := range t {
		if best < 0 || v > t[best] {
			best = i
		}
	}
	return best
}

// LengthRank is one row of the inference diagnostics.
type LengthRank struct {
	// Length is the trial length.
	Length int
	// LatencyNs is the representative latency for the length.
	LatencyNs float64
	// Ratio is LatencyNs relative to the slowest length (1 for the top row).
	Ratio float64
}

// Ranking returns the n slowest lengths, slowest first. Equal latencies keep
// ascending length order.
func (t LengthTable) Ranking(n int) []LengthRank {
	order := make([]int, len(t))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t[order[a]] > t[order[b]]
	})
	if n > len(order) || n <= 0 {
		n = len(order)
	}

	ranks := make([]LengthRank, 0, n)
	for _, l := range order[:n] {
		ratio := 0.0
		if top := t[order[0]]; top > 0 {
			ratio = t[l] / top
		}
		ranks = append(ranks, LengthRank{Length: l, LatencyNs: t[l], Ratio: ratio})
	}
	return ranks
}

// String renders the top five lengths with their ratios.
func (t LengthTable) String() string {
	var b strings.Builder
	for i, r := range t.Ranking(5) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d:%.3f", r.Length, r.Ratio)
	}
	return b.String()
}

// Step is one character trial of the refiner.
type Step struct {
	// Iteration counts character trials from 1.
	Iteration int
	// Position is the index that was mutated.
	Position int
	// Candidate is the guess with Position replaced.
	Candidate string
	// Guess is the current best guess after the step.
	Guess string
	// CandidateNs and GuessNs are the measured latencies. Both are zero when
	// the oracle accepted the candidate before measurement.
	CandidateNs float64
	GuessNs     float64
	// Accepted reports that the candidate was adopted as the new guess.
	Accepted bool
	// Found reports that the oracle accepted the candidate.
	Found bool
}

// RecoverResult holds the outcome of a refinement run.
type RecoverResult struct {
	// Secret is the accepted candidate. Empty unless Found.
	Secret string
	// Found reports that the oracle accepted Secret.
	Found bool
	// Guess is the best guess when the run stopped.
	Guess string
	// Iterations is the number of character trials performed.
	Iterations int
	// Adopted is the number of mutations accepted on timing evidence.
	Adopted int
	// ElapsedTime is how long the search ran.
	ElapsedTime time.Duration
}

// String returns a human-readable summary of the refinement.
func (r *RecoverResult) String() string {
	if r.Found {
		return fmt.Sprintf("Recovered %q: iterations=%d, adopted=%d, elapsed=%v",
			r.Secret, r.Iterations, r.Adopted, r.ElapsedTime.Round(time.Millisecond))
	}
	return fmt.Sprintf("Not recovered: best guess %q, iterations=%d, adopted=%d, elapsed=%v",
		r.Guess, r.Iterations, r.Adopted, r.ElapsedTime.Round(time.Millisecond))
}

// Result holds the outcome of a full attack.
type Result struct {
	// RunID identifies the run in logs.
	RunID string
	// Account is the attacked account.
	Account string
	// Length is the inferred (or supplied) credential length.
	Length int
	// Lengths is the inference table. Nil when the length was supplied.
	Lengths LengthTable
	// Recover is the refinement outcome.
	Recover RecoverResult
	// ElapsedTime covers both phases.
	ElapsedTime time.Duration
}

// String returns a human-readable summary of the attack.
func (r *Result) String() string {
	return fmt.Sprintf("account=%s length=%d: %s", r.Account, r.Length, r.Recover.String())
}
