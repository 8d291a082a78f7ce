// Package driver runs the best-of-N optimization loop around the external
// generator: it schedules seeds, gates every candidate through the
// verifier, tracks the smallest acceptable suite, stops early when the
// lower bound is provably reached, and enforces the per-attempt and total
// wall budgets.
//
// Attempts are strictly sequential — one child process at a time — which
// keeps the seed schedule and tie-breaking deterministic. The generator is
// consumed through the Generator interface so tests can script outcomes.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"pairwise/internal/bounds"
	"pairwise/internal/exitcode"
	"pairwise/internal/model"
	"pairwise/internal/pict"
	"pairwise/internal/verify"
)

// OrderingMode selects the parameter permutation handed to the generator.
type OrderingMode string

const (
	// OrderingAuto sorts parameters by value count descending before
	// generation; output is re-projected to declared order.
	OrderingAuto OrderingMode = "auto"

	// OrderingKeep feeds parameters in declared order.
	OrderingKeep OrderingMode = "keep"
)

// Generator is the child-process seam. One call is one attempt.
type Generator interface {
	// Generate runs the external generator with the given seed and wall
	// budget, returning rows in the model's declared parameter order.
	Generate(ctx context.Context, seed int, timeout time.Duration) ([][]string, error)

	// ModelText returns the serialized model the generator consumes.
	ModelText() string
}

// Options configures a run. DefaultOptions supplies the documented
// defaults; Validate must pass before Run.
type Options struct {
	Ordering        OrderingMode
	Tries           int
	MaxTries        int
	Seed            int
	Deterministic   bool
	Strength        int
	EarlyStop       bool
	Verify          bool
	RequireVerified bool
	PictTimeout     time.Duration
	TotalTimeout    time.Duration

	// Verbose enables per-attempt progress lines on Diag.
	Verbose bool

	// Diag receives warnings and progress. Never the primary stream.
	Diag io.Writer
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Ordering:        OrderingAuto,
		Tries:           50,
		MaxTries:        5000,
		Seed:            0,
		Strength:        2,
		EarlyStop:       true,
		Verify:          true,
		RequireVerified: true,
		PictTimeout:     10 * time.Second,
		TotalTimeout:    30 * time.Second,
	}
}

// Validate rejects out-of-range options. All failures are validation-kind
// errors (exit 2).
func (o *Options) Validate() error {
	if o.Ordering != OrderingAuto && o.Ordering != OrderingKeep {
		return exitcode.New(exitcode.KindValidation, "ordering must be %q or %q, got %q",
			OrderingAuto, OrderingKeep, o.Ordering)
	}
	if o.Tries < 1 {
		return exitcode.New(exitcode.KindValidation, "tries must be at least 1, got %d", o.Tries)
	}
	if o.Tries > o.MaxTries {
		return exitcode.New(exitcode.KindValidation, "tries must be between 1 and %d, got %d",
			o.MaxTries, o.Tries)
	}
	if o.Seed < 0 {
		return exitcode.New(exitcode.KindValidation, "seed must be non-negative, got %d", o.Seed)
	}
	if o.Strength < 2 {
		return exitcode.New(exitcode.KindValidation, "strength must be >= 2, got %d", o.Strength)
	}
	if o.PictTimeout <= 0 {
		return exitcode.New(exitcode.KindValidation, "pict-timeout-sec must be > 0")
	}
	if o.TotalTimeout <= 0 {
		return exitcode.New(exitcode.KindValidation, "total-timeout-sec must be > 0")
	}
	if !o.Verify && o.RequireVerified {
		return exitcode.New(exitcode.KindValidation,
			"--no-verify cannot be combined with required verification")
	}
	return nil
}

// OrderedParams applies the ordering plan to m.
func OrderedParams(m *model.Model, ordering OrderingMode) []model.Parameter {
	if ordering == OrderingAuto {
		return m.Reordered()
	}
	return m.Parameters
}

// Run executes the optimization loop. When opts fail validation it returns
// a nil Result and the validation error; otherwise the returned Result is
// populated with the attempt log, and err is non-nil exactly when the run
// as a whole failed, already tagged with its exit category.
func Run(ctx context.Context, m *model.Model, gen Generator, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	diag := opts.Diag
	if diag == nil {
		diag = io.Discard
	}
	if opts.TotalTimeout < opts.PictTimeout {
		fmt.Fprintln(diag, "warning: total-timeout-sec is lower than pict-timeout-sec; both limits will be enforced")
	}

	res := &Result{
		Ordering:      opts.Ordering,
		SeedBase:      opts.Seed,
		Deterministic: opts.Deterministic,
		Strength:      opts.Strength,
		ModelText:     gen.ModelText(),
	}
	if opts.Strength == 2 {
		lb := bounds.PairwiseLowerBound(m.Counts())
		res.LB = &lb
	}

	// Non-deterministic mode still derives its schedule from the base
	// seed; the only permitted nondeterminism is the generator's own.
	var rng *rand.Rand
	if !opts.Deterministic {
		rng = rand.New(rand.NewSource(int64(opts.Seed)))
	}

	start := time.Now()
	for k := 0; k < opts.Tries; k++ {
		remaining := opts.TotalTimeout - time.Since(start)
		if remaining <= 0 {
			res.TotalTimedOut = true
			break
		}
		effective := opts.PictTimeout
		if remaining < effective {
			effective = remaining
		}

		seed := opts.Seed + k
		if rng != nil {
			seed = rng.Intn(1 << 30)
		}

		attempt := runAttempt(ctx, m, gen, seed, effective, opts)
		res.Attempts = append(res.Attempts, attempt)
		logAttempt(diag, opts, res, k, &attempt)

		if accepts(&attempt, opts) && better(&attempt, res.Best, opts.Deterministic) {
			best := attempt
			res.Best = &best
		}

		if opts.EarlyStop && opts.Verify && opts.Strength == 2 &&
			res.Best != nil && res.Best.Outcome == OutcomeVerified &&
			res.LB != nil && res.Best.N == *res.LB {
			res.EarlyStopped = true
			if opts.Verbose {
				fmt.Fprintf(diag, "stopping early at attempt %d: lower bound %d reached with verified coverage\n",
					k+1, *res.LB)
			}
			break
		}
	}

	return res, res.finalErr()
}

// runAttempt executes one generator invocation and classifies it.
func runAttempt(ctx context.Context, m *model.Model, gen Generator, seed int, timeout time.Duration, opts Options) Attempt {
	began := time.Now()
	rows, err := gen.Generate(ctx, seed, timeout)
	attempt := Attempt{Seed: seed, Wall: time.Since(began)}

	if err != nil {
		var runErr *pict.RunError
		switch {
		case errors.Is(err, pict.ErrTimeout):
			attempt.Outcome = OutcomeTimeout
			attempt.Detail = err.Error()
		case errors.As(err, &runErr):
			attempt.Outcome = OutcomeGeneratorError
			attempt.Detail = runErr.StderrTail
			if attempt.Detail == "" {
				attempt.Detail = runErr.Error()
			}
		default:
			attempt.Outcome = OutcomeGeneratorError
			attempt.Detail = err.Error()
		}
		return attempt
	}

	attempt.N = len(rows)
	attempt.Rows = rows
	if !opts.Verify {
		attempt.Outcome = OutcomeSuite
		return attempt
	}

	report := verify.Suite(m, rows)
	if report.Passed {
		attempt.Outcome = OutcomeVerified
		return attempt
	}
	attempt.Outcome = OutcomeUnverified
	attempt.Missing = report.MissingPairs
	attempt.Detail = report.Detail
	return attempt
}

// accepts reports whether an attempt may enter the selection pool.
func accepts(a *Attempt, opts Options) bool {
	switch a.Outcome {
	case OutcomeVerified:
		return true
	case OutcomeSuite:
		return !opts.Verify
	case OutcomeUnverified:
		return !opts.RequireVerified
	default:
		return false
	}
}

// better implements the total selection ordering: verified beats
// unverified, then smaller suite, then smaller seed (deterministic mode) or
// earliest attempt (the incumbent, by construction).
func better(cand, inc *Attempt, deterministic bool) bool {
	if inc == nil {
		return true
	}
	cv, iv := cand.Outcome == OutcomeVerified, inc.Outcome == OutcomeVerified
	if cv != iv {
		return cv
	}
	if cand.N != inc.N {
		return cand.N < inc.N
	}
	if deterministic {
		return cand.Seed < inc.Seed
	}
	return false
}

// logAttempt writes the verbose progress line for one attempt.
func logAttempt(diag io.Writer, opts Options, res *Result, k int, a *Attempt) {
	if !opts.Verbose {
		return
	}
	switch a.Outcome {
	case OutcomeTimeout:
		fmt.Fprintf(diag, "attempt %d/%d (seed %d): timed out\n", k+1, opts.Tries, a.Seed)
	case OutcomeGeneratorError:
		fmt.Fprintf(diag, "attempt %d/%d (seed %d): generator error: %s\n", k+1, opts.Tries, a.Seed, a.Detail)
	case OutcomeUnverified:
		fmt.Fprintf(diag, "attempt %d/%d (seed %d): failed verification (%d missing pairs)\n",
			k+1, opts.Tries, a.Seed, len(a.Missing))
	default:
		tag := ""
		if a.Outcome == OutcomeVerified && res.LB != nil && a.N == *res.LB {
			tag = " (provably minimum)"
		}
		fmt.Fprintf(diag, "attempt %d/%d (seed %d): N=%d%s\n", k+1, opts.Tries, a.Seed, a.N, tag)
	}
}
