package main

// generate.go — the generate command: flag surface, model loading, the
// optimization run, and artifact emission in the three output forms.

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pairwise/internal/driver"
	"pairwise/internal/exitcode"
	"pairwise/internal/model"
	"pairwise/internal/output"
	"pairwise/internal/pict"
)

// generateFlags is the parsed generate option set.
type generateFlags struct {
	modelPath string
	format    string
	outPath   string
	ordering  string
	keepOrder bool

	tries         int
	maxTries      int
	seed          int
	strength      int
	deterministic bool

	noEarlyStop       bool
	noVerify          bool
	noRequireVerified bool

	pictTimeoutSec  float64
	totalTimeoutSec float64

	maxParams         int
	maxValuesPerParam int
	maxTotalValues    int
	maxOutputCases    int
	printAll          bool

	dryRun  bool
	verbose bool
}

func parseGenerateFlags(env *environment, args []string) (*generateFlags, error) {
	g := &generateFlags{}
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(env.stderr)

	fs.StringVar(&g.modelPath, "model", "", "path to the model file (required)")
	fs.StringVar(&g.format, "format", env.cfg.FormatOr("table"), "output format: table, delim (csv), or struct (json)")
	fs.StringVar(&g.outPath, "out", "", "write output to this file instead of stdout")
	fs.StringVar(&g.ordering, "ordering", env.cfg.OrderingOr("auto"), "parameter ordering mode: auto or keep")
	fs.BoolVar(&g.keepOrder, "keep-order", false, "shorthand for --ordering keep")

	fs.IntVar(&g.tries, "tries", env.cfg.TriesOr(50), "number of seeds to try for the smallest suite")
	fs.IntVar(&g.maxTries, "max-tries", 5000, "maximum allowed --tries value")
	seedDefault := 0
	if env.cfg != nil {
		seedDefault = env.cfg.Seed
	}
	fs.IntVar(&g.seed, "seed", seedDefault, "base seed for the attempt schedule")
	fs.IntVar(&g.strength, "strength", 2, "combinatorial interaction strength")
	fs.BoolVar(&g.deterministic, "deterministic", false, "fixed seed progression and stable tie-breaking")

	earlyStop, verifyOn := true, true
	fs.BoolVar(&earlyStop, "early-stop", true, "stop as soon as a verified suite reaches the lower bound")
	fs.BoolVar(&g.noEarlyStop, "no-early-stop", false, "do not stop when the lower bound is reached")
	fs.BoolVar(&verifyOn, "verify", true, "verify pair coverage of every suite")
	fs.BoolVar(&g.noVerify, "no-verify", false, "disable pair coverage verification")
	fs.BoolVar(&g.noRequireVerified, "no-require-verified", false, "allow unverified suites into best-of selection")

	fs.Float64Var(&g.pictTimeoutSec, "pict-timeout-sec", env.cfg.PictTimeoutOr(10.0), "per-attempt wall budget in seconds")
	fs.Float64Var(&g.totalTimeoutSec, "total-timeout-sec", env.cfg.TotalTimeoutOr(30.0), "total wall budget in seconds")

	fs.IntVar(&g.maxParams, "max-params", 50, "maximum number of parameters")
	fs.IntVar(&g.maxValuesPerParam, "max-values-per-param", 50, "maximum values per parameter")
	fs.IntVar(&g.maxTotalValues, "max-total-values", 500, "maximum total values across parameters")
	fs.IntVar(&g.maxOutputCases, "max-output-cases", 100000, "suppress console table/csv output beyond this many cases")
	fs.BoolVar(&g.printAll, "print-all", false, "print table/csv output regardless of --max-output-cases")

	fs.BoolVar(&g.dryRun, "dry-run", false, "validate and plan seeds without invoking the generator")
	fs.BoolVar(&g.verbose, "verbose", false, "log per-attempt progress to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, exitcode.Wrap(exitcode.KindValidation, err)
	}
	g.noEarlyStop = g.noEarlyStop || !earlyStop
	g.noVerify = g.noVerify || !verifyOn
	if g.modelPath == "" {
		return nil, exitcode.New(exitcode.KindValidation, "generate requires --model FILE")
	}
	// csv and json are accepted as aliases for the delimited and
	// structured forms.
	switch g.format {
	case "table", "delim", "struct":
	case "csv":
		g.format = "delim"
	case "json":
		g.format = "struct"
	default:
		return nil, exitcode.New(exitcode.KindValidation,
			"format must be table, delim, or struct, got %q", g.format)
	}
	if g.keepOrder {
		g.ordering = string(driver.OrderingKeep)
	}
	return g, nil
}

// options converts flags to driver options.
func (g *generateFlags) options(env *environment) driver.Options {
	opts := driver.DefaultOptions()
	opts.Ordering = driver.OrderingMode(g.ordering)
	opts.Tries = g.tries
	opts.MaxTries = g.maxTries
	opts.Seed = g.seed
	opts.Deterministic = g.deterministic
	opts.Strength = g.strength
	opts.EarlyStop = !g.noEarlyStop
	opts.Verify = !g.noVerify
	opts.RequireVerified = !g.noVerify && !g.noRequireVerified
	opts.PictTimeout = secondsToDuration(g.pictTimeoutSec)
	opts.TotalTimeout = secondsToDuration(g.totalTimeoutSec)
	opts.Verbose = g.verbose
	opts.Diag = env.stderr
	return opts
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

func runGenerate(env *environment, args []string) error {
	g, err := parseGenerateFlags(env, args)
	if err != nil {
		return err
	}

	opts := g.options(env)
	if err := opts.Validate(); err != nil {
		return err
	}

	m, err := readModelFile(g.modelPath)
	if err != nil {
		return err
	}
	lim := model.Limits{
		MaxParams:         g.maxParams,
		MaxValuesPerParam: g.maxValuesPerParam,
		MaxTotalValues:    g.maxTotalValues,
	}
	if err := m.CheckLimits(lim); err != nil {
		return exitcode.Wrap(exitcode.KindValidation, err)
	}

	ordered := driver.OrderedParams(m, opts.Ordering)

	if g.dryRun {
		printDryRun(env, m, ordered, opts)
		return nil
	}

	path, err := locatePict(env.cfg)
	if err != nil {
		return err
	}
	client := pict.NewClient(path, m, ordered, opts.Strength)

	res, err := driver.Run(env.ctx, m, client, opts)
	if err != nil {
		if exitcode.Classify(err) == exitcode.Verification && res != nil {
			printMissingPairs(env, res)
		}
		return err
	}

	return emit(env, g, m, res)
}

// printDryRun reports the internal generator model and the seed plan on the
// diagnostic stream without spawning the generator.
func printDryRun(env *environment, m *model.Model, ordered []model.Parameter, opts driver.Options) {
	rule := strings.Repeat("-", 40)
	fmt.Fprintln(env.stderr, "Model parsing valid.")
	fmt.Fprintln(env.stderr, "Internal generator model:")
	fmt.Fprintln(env.stderr, rule)
	fmt.Fprint(env.stderr, model.Serialize(ordered))
	fmt.Fprintln(env.stderr, rule)
	fmt.Fprintf(env.stderr, "Would invoke tries: %d\n", opts.Tries)
	if opts.Deterministic {
		fmt.Fprintf(env.stderr, "Planned seed range: %d through %d\n", opts.Seed, opts.Seed+opts.Tries-1)
	} else {
		fmt.Fprintf(env.stderr, "Seed schedule derived from base seed %d\n", opts.Seed)
	}
}

// printMissingPairs lists the smallest failing attempt's uncovered pairs.
func printMissingPairs(env *environment, res *driver.Result) {
	attempt := res.SmallestUnverified()
	if attempt == nil {
		return
	}
	fmt.Fprintln(env.stderr, "coverage verification failed; missing pairs:")
	for _, p := range attempt.Missing {
		fmt.Fprintf(env.stderr, "  missing pair: %s\n", p)
	}
}

// emit renders the selected suite in the requested form and routes it to
// stdout or --out.
func emit(env *environment, g *generateFlags, m *model.Model, res *driver.Result) error {
	headers := m.DisplayNames()
	rows := res.Best.Rows
	n := res.Best.N

	if g.outPath == "" && g.format != "struct" && n > g.maxOutputCases && !g.printAll {
		fmt.Fprintf(env.stderr, "warning: generated %d cases, exceeding --max-output-cases %d\n", n, g.maxOutputCases)
		fmt.Fprintln(env.stderr, "pass --print-all to print anyway, or --out FILE to write to a file")
		return nil
	}

	var body string
	var err error
	switch g.format {
	case "table":
		body = output.Table(headers, rows)
	case "delim":
		body, err = output.CSV(headers, rows)
	case "struct":
		meta := output.Metadata{
			N:               n,
			LB:              res.LB,
			Verified:        res.Verified(),
			OrderingMode:    string(res.Ordering),
			Seed:            res.Best.Seed,
			Strength:        res.Strength,
			Attempts:        len(res.Attempts),
			EarlyStopped:    res.EarlyStopped,
			ProvablyMinimum: res.ProvablyMinimum(),
		}
		body, err = output.JSON(meta, headers, rows)
	}
	if err != nil {
		return exitcode.Wrap(exitcode.KindGenerator, err)
	}

	if g.outPath != "" {
		if err := os.WriteFile(g.outPath, []byte(body), 0o644); err != nil {
			return exitcode.New(exitcode.KindValidation, "write %s: %v", g.outPath, err)
		}
		fmt.Fprintf(env.stderr, "wrote %d cases to %s\n", n, g.outPath)
		return nil
	}
	_, err = io.WriteString(env.stdout, body)
	return err
}
