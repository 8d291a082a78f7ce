// Package doctor runs self-diagnostics on the generator integration:
// platform report, executable resolution, and a smoke generation over a
// tiny fixed model, verified in-process. Failures map to the same exit
// categories as a real run.
package doctor

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"pairwise/internal/driver"
	"pairwise/internal/exitcode"
	"pairwise/internal/model"
	"pairwise/internal/pict"
)

// smokeTimeout bounds the diagnostic generation run.
const smokeTimeout = 5 * time.Second

// Run executes the checks, reporting progress to w. The returned error is
// tagged with its exit category.
func Run(ctx context.Context, w io.Writer, pictPath string) error {
	fmt.Fprintln(w, "pairwise doctor")
	fmt.Fprintln(w, "--------------------")
	fmt.Fprintf(w, "Platform        : %s %s\n", runtime.GOOS, runtime.GOARCH)

	if pictPath == "" {
		p, err := pict.Locate()
		if err != nil {
			fmt.Fprintf(w, "PICT Executable : NOT FOUND\n")
			return exitcode.Wrap(exitcode.KindValidation, err)
		}
		pictPath = p
	}
	fmt.Fprintf(w, "PICT Executable : %s\n", pictPath)

	m, err := smokeModel()
	if err != nil {
		return exitcode.Wrap(exitcode.KindGenerator, err)
	}

	opts := driver.DefaultOptions()
	opts.Tries = 1
	opts.EarlyStop = false
	opts.PictTimeout = smokeTimeout
	opts.TotalTimeout = smokeTimeout

	client := pict.NewClient(pictPath, m, driver.OrderedParams(m, opts.Ordering), opts.Strength)
	res, err := driver.Run(ctx, m, client, opts)
	if err != nil {
		fmt.Fprintf(w, "PICT Execution  : FAILED (%v)\n", err)
		return err
	}
	if !res.Verified() {
		fmt.Fprintln(w, "PICT Execution  : UNEXPECTED OUTPUT")
		return exitcode.New(exitcode.KindGenerator, "smoke suite failed verification")
	}
	fmt.Fprintf(w, "PICT Execution  : OK (%d cases, verified)\n", res.Best.N)
	fmt.Fprintln(w, "All doctor checks passed.")
	return nil
}

// smokeModel builds the fixed 2x2 diagnostic model.
func smokeModel() (*model.Model, error) {
	m := model.New()
	if err := m.AddParameter("a", []string{"A1", "A2"}); err != nil {
		return nil, err
	}
	if err := m.AddParameter("b", []string{"B1", "B2"}); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
