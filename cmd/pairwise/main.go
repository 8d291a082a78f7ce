// Command pairwise generates, verifies, and certifies pairwise (2-way)
// combinatorial test suites by driving the external PICT generator.
//
// Stream discipline: stdout carries only the primary artifact (suite table,
// CSV body, or structured JSON); every warning, progress line, and error
// goes to stderr. Exit codes are a published contract (see
// internal/exitcode).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pairwise/internal/doctor"
	"pairwise/internal/driver"
	"pairwise/internal/exitcode"
	"pairwise/internal/model"
	"pairwise/internal/pict"
	"pairwise/internal/settings"
	"pairwise/internal/wizard"
)

const version = "1.0.0"

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(env *environment, args []string) error
}

// environment bundles the streams and loaded settings a command runs with.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *settings.Settings
	ctx    context.Context
}

var commands = []command{
	{
		name:  "generate",
		short: "Generate a pairwise suite from a model file",
		usage: "pairwise generate --model FILE [options]",
		long: `Generate a pairwise (2-way) test suite from a model file.

Runs the external PICT generator across multiple seeds, independently
verifies coverage of every produced suite, keeps the smallest verified
one, and stops early when the information-theoretic lower bound is
reached. See 'pairwise generate --help' for the full option list.
`,
		run: runGenerate,
	},
	{
		name:  "verify",
		short: "Verify pair coverage of an existing suite",
		usage: "pairwise verify --model FILE --cases FILE",
		long: `Verify that a previously generated suite covers every value pair.

The cases file may be CSV (header row of parameter names) or JSON
(either a bare array of objects or the structured form with a
test_cases member). Missing pairs are listed, up to 20.
`,
		run: runVerify,
	},
	{
		name:  "wizard",
		short: "Build a model interactively and generate from it",
		usage: "pairwise wizard",
		long: `Run the interactive wizard (also the default with no arguments).

Prompts for parameters and values, then generates through the same
engine as the generate command and optionally saves the model and
suite to the current directory.
`,
		run: runWizard,
	},
	{
		name:  "doctor",
		short: "Run self-diagnostics on the PICT integration",
		usage: "pairwise doctor",
		long: `Check the platform, resolve the PICT executable, and run a smoke
generation over a tiny model, verifying its coverage in-process.
`,
		run: runDoctor,
	},
	{
		name:  "version",
		short: "Print version information",
		usage: "pairwise version",
		long:  "Print the pairwise version.\n",
		run: func(env *environment, args []string) error {
			fmt.Fprintf(env.stdout, "pairwise %s\n", version)
			return nil
		},
	},
	{
		name:  "licenses",
		short: "Display third-party licenses",
		usage: "pairwise licenses",
		long:  "Print THIRD_PARTY_NOTICES.txt found beside the executable.\n",
		run:   runLicenses,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "pairwise — pairwise combinatorial test suite generation\n\n")
	fmt.Fprintf(w, "Usage:\n  pairwise <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRunning pairwise with no command starts the wizard.\n")
	fmt.Fprintf(w, "Run 'pairwise help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "pairwise: unknown command %q\n\nRun 'pairwise help' for usage.\n", name)
}

// dispatch routes args to a command. The commands slice is the single
// source of truth for routing and help.
func dispatch(env *environment, args []string) error {
	if len(args) == 0 {
		return runWizard(env, nil)
	}
	if args[0] == "--help" || args[0] == "-h" {
		printUsage(env.stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(env.stdout, args[1])
		} else {
			printUsage(env.stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(env, args[1:])
		}
	}
	return exitcode.New(exitcode.KindValidation,
		"unknown command %q\n\nRun 'pairwise help' for usage", args[0])
}

// run is the single clean-exit barrier: every outcome becomes an exit code
// here, and nothing above it writes to the primary stream on failure.
func run(args []string, stdout, stderr io.Writer) (code int) {
	cfg, err := settings.Load(".")
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v (ignoring settings file)\n", err)
		cfg = nil
	}
	env := &environment{stdout: stdout, stderr: stderr, cfg: cfg, ctx: context.Background()}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(stderr, "error: internal fault during execution")
			code = exitcode.Generator
		}
	}()

	if err := dispatch(env, args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitcode.Classify(err)
	}
	return exitcode.Success
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// ---------------------------------------------------------------------------
// wizard / doctor / licenses
// ---------------------------------------------------------------------------

func runWizard(env *environment, args []string) error {
	engine := func(ctx context.Context, m *model.Model, opts driver.Options) (*driver.Result, error) {
		path, err := locatePict(env.cfg)
		if err != nil {
			return nil, err
		}
		opts.Diag = env.stderr
		client := pict.NewClient(path, m, driver.OrderedParams(m, opts.Ordering), opts.Strength)
		return driver.Run(ctx, m, client, opts)
	}
	return wizard.Run(env.ctx, env.stdout, env.stderr, engine)
}

func runDoctor(env *environment, args []string) error {
	return doctor.Run(env.ctx, env.stdout, env.cfg.PictPathOr(""))
}

func runLicenses(env *environment, args []string) error {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		p := filepath.Join(dir, "THIRD_PARTY_NOTICES.txt")
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		fmt.Fprintf(env.stdout, "Found licenses at: %s\n\n", p)
		env.stdout.Write(data)
		return nil
	}
	return exitcode.New(exitcode.KindValidation, "THIRD_PARTY_NOTICES.txt not found")
}

// locatePict resolves the generator executable, settings file first.
func locatePict(cfg *settings.Settings) (string, error) {
	if p := cfg.PictPathOr(""); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", exitcode.New(exitcode.KindValidation, "settings pict_path %q: %v", p, err)
		}
		return p, nil
	}
	p, err := pict.Locate()
	if err != nil {
		return "", exitcode.Wrap(exitcode.KindValidation, err)
	}
	return p, nil
}

// readModelFile loads and parses a model file, mapping every failure to the
// validation category.
func readModelFile(path string) (*model.Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, exitcode.New(exitcode.KindValidation, "file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exitcode.New(exitcode.KindValidation, "could not read model file: %v", err)
	}
	m, err := model.Parse(string(data))
	if err != nil {
		return nil, exitcode.Wrap(exitcode.KindValidation, err)
	}
	return m, nil
}
